package namespace

import (
	"fmt"
	"strings"
)

// IgnoredTags lists elements which never get a namespace. Content of those
// which are not void is copied verbatim up to the matching end tag.
var IgnoredTags = []string{"html", "head", "base", "meta", "title", "link", "script", "noscript", "style"}

var (
	ignoredTags = toSet(IgnoredTags)
	voidTags    = toSet([]string{"area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr"})
)

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func isIgnored(name string) bool {
	_, ok := ignoredTags[strings.ToLower(name)]
	return ok
}

func isVoid(name string) bool {
	_, ok := voidTags[strings.ToLower(name)]
	return ok
}

// scanner makes a single pass over src. Output is src with insertions:
// everything between insertion points is copied as is, so bytes outside of
// rewritten attributes never change.
type scanner struct {
	src   string
	ns    string
	out   strings.Builder
	pos   int // src[:pos] is already in out
	depth int // open non-void elements
}

func (s *scanner) run() error {
	for i := 0; ; {
		n := strings.IndexByte(s.src[i:], '<')
		if n < 0 {
			break
		}
		next, err := s.markup(i + n)
		if err != nil {
			return err
		}
		i = next
	}
	if s.depth > 0 {
		return s.fail(len(s.src), fmt.Sprintf("end of input with %d unclosed element(s)", s.depth))
	}
	s.out.WriteString(s.src[s.pos:])
	return nil
}

// insert writes text to the output in front of src[at].
func (s *scanner) insert(at int, text string) {
	s.out.WriteString(s.src[s.pos:at])
	s.out.WriteString(text)
	s.pos = at
}

func (s *scanner) fail(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Msg: msg}
}

// markup handles token starting with '<' at i and returns offset right after
// it.
func (s *scanner) markup(i int) (int, error) {
	rest := s.src[i+1:]
	switch {
	case strings.HasPrefix(rest, "!--"):
		return s.skipPast(i, i+4, "-->", "comment")
	case strings.HasPrefix(rest, "![CDATA["):
		return s.skipPast(i, i+9, "]]>", "CDATA section")
	case strings.HasPrefix(rest, "!"):
		return s.declaration(i)
	case strings.HasPrefix(rest, "?"):
		return s.skipPast(i, i+2, "?>", "processing instruction")
	case strings.HasPrefix(rest, "/"):
		return s.endTag(i)
	case len(rest) > 0 && isLetter(rest[0]):
		return s.startTag(i)
	}
	return 0, s.fail(i, "'<' does not start a tag")
}

func (s *scanner) skipPast(start, from int, term, what string) (int, error) {
	n := strings.Index(s.src[from:], term)
	if n < 0 {
		return 0, s.fail(start, "unterminated "+what)
	}
	return from + n + len(term), nil
}

// declaration skips <!DOCTYPE ...> and alike. Quoted literals may contain
// '>'.
func (s *scanner) declaration(i int) (int, error) {
	var quote byte
	for j := i + 2; j < len(s.src); j++ {
		c := s.src[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j + 1, nil
		}
	}
	what := "declaration"
	if len(s.src) >= i+9 && strings.EqualFold(s.src[i+2:i+9], "DOCTYPE") {
		what = "DOCTYPE declaration"
	}
	return 0, s.fail(i, "unterminated "+what)
}

func (s *scanner) endTag(i int) (int, error) {
	j := i + 2
	k := s.name(j)
	if k == j {
		return 0, s.fail(i, "missing end tag name")
	}
	name := s.src[j:k]
	j = s.skipSpace(k)
	if j >= len(s.src) || s.src[j] != '>' {
		return 0, s.fail(i, "unterminated end tag </"+name+">")
	}
	if !isVoid(name) {
		if s.depth == 0 {
			return 0, s.fail(i, "end tag </"+name+"> without start tag")
		}
		s.depth--
	}
	return j + 1, nil
}

func (s *scanner) startTag(i int) (int, error) {
	j := s.name(i + 1)
	name := s.src[i+1 : j]

	// closing quote of the first class attribute value, or end of its name
	// when it has no value
	classEnd, classBare := -1, false

	for {
		ws := j
		j = s.skipSpace(j)
		if j >= len(s.src) {
			return 0, s.fail(i, "unterminated start tag <"+name+">")
		}

		switch s.src[j] {
		case '>':
			return s.finishStartTag(i, name, classEnd, classBare, j, false, false)
		case '/':
			if j+1 >= len(s.src) || s.src[j+1] != '>' {
				return 0, s.fail(j, "'/' is not followed by '>' in <"+name+">")
			}
			return s.finishStartTag(i, name, classEnd, classBare, j, true, j > ws)
		}

		an := j
		for j < len(s.src) && isAttrNameChar(s.src[j]) {
			j++
		}
		if j == an {
			return 0, s.fail(j, fmt.Sprintf("unexpected %q in <%s>", s.src[j], name))
		}
		attr := s.src[an:j]

		v := s.skipSpace(j)
		if v >= len(s.src) || s.src[v] != '=' {
			// attribute without value, bare class gets one
			if classEnd < 0 && strings.EqualFold(attr, "class") {
				classEnd, classBare = j, true
			}
			continue
		}
		v = s.skipSpace(v + 1)
		if v >= len(s.src) {
			return 0, s.fail(i, "unterminated start tag <"+name+">")
		}
		q := s.src[v]
		if q != '"' && q != '\'' {
			return 0, s.fail(v, "unquoted value of attribute "+attr+" in <"+name+">")
		}
		end := strings.IndexByte(s.src[v+1:], q)
		if end < 0 {
			return 0, s.fail(v, "unterminated value of attribute "+attr+" in <"+name+">")
		}
		end += v + 1
		if classEnd < 0 && strings.EqualFold(attr, "class") {
			classEnd = end
		}
		j = end + 1
	}
}

// finishStartTag injects namespace if needed and updates nesting. term points
// to '>' or to '/' of "/>". classEnd is where class value ends, see
// startTag.
func (s *scanner) finishStartTag(i int, name string, classEnd int, classBare bool, term int, selfClosing, spaced bool) (int, error) {
	ignored := isIgnored(name)

	if s.depth == 0 && !ignored {
		switch {
		case classBare:
			s.insert(classEnd, `="`+s.ns+`"`)
		case classEnd >= 0 && s.src[classEnd-1] == s.src[classEnd]:
			// empty value
			s.insert(classEnd, s.ns)
		case classEnd >= 0:
			s.insert(classEnd, " "+s.ns)
		case selfClosing && spaced:
			s.insert(term, `class="`+s.ns+`" `)
		default:
			s.insert(term, ` class="`+s.ns+`"`)
		}
	}

	if selfClosing {
		return term + 2, nil
	}
	end := term + 1
	if isVoid(name) {
		return end, nil
	}
	s.depth++

	if ignored {
		// leave matching end tag to the main loop
		n := indexEndTag(s.src[end:], name)
		if n < 0 {
			return 0, s.fail(i, "missing end tag for <"+name+">")
		}
		return end + n, nil
	}
	return end, nil
}

// name returns end of a tag name starting at j, or j if there is none.
func (s *scanner) name(j int) int {
	if j >= len(s.src) || !isLetter(s.src[j]) {
		return j
	}
	for j++; j < len(s.src) && isNameChar(s.src[j]); j++ {
	}
	return j
}

func (s *scanner) skipSpace(j int) int {
	for j < len(s.src) && isSpace(s.src[j]) {
		j++
	}
	return j
}

// indexEndTag finds "</name" (ASCII case-insensitive) in text.
func indexEndTag(text, name string) int {
	for off := 0; ; {
		n := strings.Index(text[off:], "</")
		if n < 0 {
			return -1
		}
		at := off + n
		rest := text[at+2:]
		if len(rest) >= len(name) && strings.EqualFold(rest[:len(name)], name) &&
			(len(rest) == len(name) || !isNameChar(rest[len(name)])) {
			return at
		}
		off = at + 2
	}
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isLetter(c) || '0' <= c && c <= '9' || c == '-' || c == '_' || c == ':' || c == '.'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f'
}

func isAttrNameChar(c byte) bool {
	switch c {
	case '"', '\'', '<', '>', '/', '=':
		return false
	}
	return !isSpace(c)
}
