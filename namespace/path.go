package namespace

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// Resolver maps logical path of a template or stylesheet (e.g.
// "users/show") to a namespace. Empty result means no namespace.
type Resolver func(logicalPath string) string

// FromPath is the default Resolver: everything before the first '.' with
// slashes replaced by hyphens, so "users/show.html" becomes "users-show".
func FromPath(logicalPath string) string {
	head, _, _ := strings.Cut(filepath.ToSlash(logicalPath), ".")
	return strings.ReplaceAll(head, "/", "-")
}

// Slug wraps resolver so that produced namespaces are safe class names:
// lowercase, transliterated to ASCII, words joined with hyphens. Nil resolver
// means FromPath.
func Slug(resolver Resolver) Resolver {
	if resolver == nil {
		resolver = FromPath
	}
	return func(logicalPath string) string {
		ns := resolver(logicalPath)
		if len(ns) == 0 {
			return ""
		}
		return slug.Make(ns)
	}
}
