// Package namespace adds a namespace class to the top-level elements of HTML
// fragments.
//
// Given "<div><span>Hello</span></div><p class="below">Goodbye</p>" and the
// namespace "foo" the result is
// "<div class="foo"><span>Hello</span></div><p class="below foo">Goodbye</p>".
//
// Only markup outside comments, CDATA sections, declarations, processing
// instructions and the contents of non-visual elements (see IgnoredTags) is
// looked at. Everything else is copied byte for byte.
package namespace

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned (wrapped in *SyntaxError) when markup cannot be
// split into complete tokens.
var ErrMalformed = errors.New("badly-formed HTML")

// SyntaxError describes where scanning stopped.
type SyntaxError struct {
	Offset int // byte offset of the offending token
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", ErrMalformed, e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrMalformed
}

// Inject is AddNamespace for optional values. Absent html yields absent
// result, absent namespace yields html unchanged.
func Inject(html, ns *string) (*string, error) {
	if html == nil {
		return nil, nil
	}
	if ns == nil {
		return html, nil
	}
	out, err := AddNamespace(*html, *ns)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddNamespace returns html with ns added to the class attribute of every
// top-level element. Empty ns is treated as no namespace and html is returned
// as is. On error the result is empty and the error satisfies
// errors.Is(err, ErrMalformed).
func AddNamespace(html, ns string) (string, error) {
	if len(ns) == 0 || len(html) == 0 {
		return html, nil
	}

	s := &scanner{src: html, ns: ns}
	s.out.Grow(len(html) + 16*(len(ns)+10))
	if err := s.run(); err != nil {
		return "", err
	}
	return s.out.String(), nil
}
