// Package css scopes stylesheets to a namespace by prefixing selectors with
// the namespace class.
package css

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Scoper rewrites stylesheets so that every rule applies only inside elements
// carrying the namespace class. Results of ScopeFile are cached by path.
type Scoper struct {
	log     *zap.Logger
	resolve func(filename string) string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewScoper creates a Scoper. resolve maps stylesheet file name to a
// namespace and is only used by ScopeFile.
func NewScoper(resolve func(filename string) string, log *zap.Logger) *Scoper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scoper{
		log:     log.Named("css-scoper"),
		resolve: resolve,
		cache:   make(map[string][]byte),
	}
}

// ScopeFile reads stylesheet from filename and scopes it with namespace
// produced by resolver. Files without namespace are returned as is.
func (s *Scoper) ScopeFile(filename string) ([]byte, error) {
	s.mu.Lock()
	if data, ok := s.cache[filename]; ok {
		s.mu.Unlock()
		return data, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read stylesheet: %w", err)
	}

	var ns string
	if s.resolve != nil {
		ns = s.resolve(filename)
	}
	if len(ns) > 0 {
		if data, err = s.Scope(data, ns, filename); err != nil {
			return nil, err
		}
	} else {
		s.log.Debug("No namespace for stylesheet", zap.String("file", filename))
	}

	s.mu.Lock()
	s.cache[filename] = data
	s.mu.Unlock()
	return data, nil
}

// Forget drops cached result for filename, all results when filename is
// empty.
func (s *Scoper) Forget(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(filename) == 0 {
		clear(s.cache)
		return
	}
	delete(s.cache, filename)
}

// Scope rewrites CSS text so that every qualified rule is prefixed with
// ".ns". The optional source parameter identifies what's being scoped (for
// debug logging).
func (s *Scoper) Scope(data []byte, ns string, source ...string) ([]byte, error) {
	if len(source) > 0 && source[0] != "" {
		s.log.Debug("Scoping CSS", zap.String("source", source[0]), zap.String("namespace", ns), zap.Int("bytes", len(data)))
	}

	w := &writer{scope: "." + escapeIdent(ns)}
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("unable to parse stylesheet: %w", err)
			}
			return w.buf.Bytes(), nil

		case css.CommentGrammar, css.TokenGrammar:
			w.buf.Write(data)

		case css.AtRuleGrammar:
			// statement at-rule (@import, @charset, @namespace)
			w.indent()
			w.buf.Write(data)
			if prelude := joinTokens(parser.Values()); prelude != "" {
				w.buf.WriteByte(' ')
				w.buf.WriteString(prelude)
			}
			w.buf.WriteString(";\n")

		case css.BeginAtRuleGrammar:
			name := strings.ToLower(string(data))
			w.indent()
			w.buf.Write(data)
			if prelude := joinTokens(parser.Values()); prelude != "" {
				w.buf.WriteByte(' ')
				w.buf.WriteString(prelude)
			}
			w.buf.WriteString(" {\n")
			w.push(blockKind(name))

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			w.pop()
			w.indent()
			w.buf.WriteString("}\n")

		case css.QualifiedRuleGrammar:
			// selector followed by comma, the list continues
			w.selectors = append(w.selectors, splitSelectors(parser.Values())...)

		case css.BeginRulesetGrammar:
			w.selectors = append(w.selectors, splitSelectors(parser.Values())...)
			w.beginRuleset()

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			w.indent()
			w.buf.Write(data)
			w.buf.WriteByte(':')
			w.buf.WriteString(joinTokens(parser.Values()))
			w.buf.WriteString(";\n")
		}
	}
}

// writer accumulates scoped output and tracks nesting of blocks.
type writer struct {
	buf       bytes.Buffer
	scope     string
	stack     []block
	selectors [][]css.Token
}

type block int

const (
	// conditional group rules (@media, @supports) - rules inside are scoped
	blockGroup block = iota
	// everything else (@keyframes, @font-face, @page) - copied as is
	blockOpaque
	// qualified rule, nested rules inside it are relative to it
	blockRuleset
)

func (w *writer) push(b block) {
	w.stack = append(w.stack, b)
}

func (w *writer) pop() {
	if len(w.stack) > 0 {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

func (w *writer) indent() {
	for range w.stack {
		w.buf.WriteString("  ")
	}
}

// scoping reports whether rules at current level get the namespace.
func (w *writer) scoping() bool {
	for _, b := range w.stack {
		if b != blockGroup {
			return false
		}
	}
	return true
}

func (w *writer) beginRuleset() {
	scoped := w.scoping()
	parts := make([]string, 0, len(w.selectors))
	for _, sel := range w.selectors {
		if scoped {
			parts = append(parts, scopeSelector(sel, w.scope))
		} else {
			parts = append(parts, joinTokens(sel))
		}
	}
	w.selectors = w.selectors[:0]

	w.indent()
	w.buf.WriteString(strings.Join(parts, ", "))
	w.buf.WriteString(" {\n")
	w.push(blockRuleset)
}

// scopeSelector puts scope in front of selector. Parent reference "&" is
// replaced by the scope instead.
func scopeSelector(sel []css.Token, scope string) string {
	var (
		sb     strings.Builder
		parent bool
	)
	for _, t := range sel {
		if t.TokenType == css.DelimToken && string(t.Data) == "&" {
			sb.WriteString(scope)
			parent = true
			continue
		}
		sb.Write(t.Data)
	}
	s := strings.TrimSpace(sb.String())
	if parent {
		return s
	}
	return scope + " " + s
}

// splitSelectors splits selector list on commas which are not nested in
// parentheses or brackets, i.e. ":is(a, b)" stays whole.
func splitSelectors(tokens []css.Token) [][]css.Token {
	var (
		list  [][]css.Token
		cur   []css.Token
		level int
	)
	for _, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			level++
		case css.RightParenthesisToken, css.RightBracketToken:
			level--
		case css.CommaToken:
			if level == 0 {
				if trimmed := trimWhitespace(cur); len(trimmed) > 0 {
					list = append(list, trimmed)
				}
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	if trimmed := trimWhitespace(cur); len(trimmed) > 0 {
		list = append(list, trimmed)
	}
	return list
}

func trimWhitespace(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// joinTokens builds text from tokens collapsing whitespace runs to single
// space.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range trimWhitespace(tokens) {
		if t.TokenType == css.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.Write(t.Data)
	}
	return sb.String()
}
