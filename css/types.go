package css

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"htmlns/namespace"
)

// at-rules whose nested rules are scoped, the rest is copied as is
var groupRules = map[string]bool{
	"@media":         true,
	"@supports":      true,
	"@document":      true,
	"@-moz-document": true,
	"@layer":         true,
	"@container":     true,
}

func blockKind(atRule string) block {
	if groupRules[atRule] {
		return blockGroup
	}
	return blockOpaque
}

// escapeIdent escapes s for use as class name in a selector.
func escapeIdent(s string) string {
	if plainIdent(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range s {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\%x `, r)
		case isDigit(r) && (i == 0 || i == 1 && s[0] == '-'):
			fmt.Fprintf(&b, `\%x `, r)
		case r >= 0x80 || r == '-' || r == '_' || isDigit(r) || isLetter(r):
			if r == '-' && len(s) == 1 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func plainIdent(s string) bool {
	if len(s) == 0 || s == "-" || isDigit(rune(s[0])) {
		return false
	}
	if len(s) > 1 && s[0] == '-' && isDigit(rune(s[1])) {
		return false
	}
	for _, r := range s {
		if !(r >= 0x80 || r == '-' || r == '_' || isDigit(r) || isLetter(r)) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// Namespace derives namespace of a compiled stylesheet from its output
// path. Only files under "location/prefix/" with ".css" extension have one:
// "public/stylesheets/views/users/show.css" with location
// "public/stylesheets" and prefix "views" resolves "users/show". Anything
// after first '.' in the relative name is dropped before calling resolver.
func Namespace(location, prefix, filename string, resolver namespace.Resolver) string {
	if resolver == nil {
		resolver = namespace.FromPath
	}

	base := path.Join(filepath.ToSlash(location), filepath.ToSlash(prefix)) + "/"
	name := path.Clean(filepath.ToSlash(filename))

	rel, ok := strings.CutPrefix(name, base)
	if !ok || !strings.HasSuffix(rel, ".css") {
		return ""
	}
	rel = strings.TrimSuffix(rel, ".css")
	rel, _, _ = strings.Cut(rel, ".")
	if len(rel) == 0 {
		return ""
	}
	return resolver(rel)
}

// OutputResolver returns resolve function for NewScoper which works on
// compiled output paths (see Namespace).
func OutputResolver(location, prefix string, resolver namespace.Resolver) func(string) string {
	return func(filename string) string {
		return Namespace(location, prefix, filename, resolver)
	}
}

// SourceResolver returns resolve function for NewScoper which derives
// namespace from stylesheet path relative to root, so that
// "root/users/show.css" resolves "users/show".
func SourceResolver(root string, resolver namespace.Resolver) func(string) string {
	if resolver == nil {
		resolver = namespace.FromPath
	}
	return func(filename string) string {
		rel, err := filepath.Rel(root, filename)
		if err != nil || rel == "." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
			return ""
		}
		return resolver(filepath.ToSlash(rel))
	}
}
