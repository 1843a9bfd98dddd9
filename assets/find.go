// Package assets locates per-view JavaScript and stylesheet files for
// rendered templates and builds inline blocks from them.
package assets

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// FindOptions describes how asset file names are derived from rendered
// template paths. For "users/show" with Suffix "js", ExtraSuffix "html" and
// OptionalSuffix "min" candidates are (in order)
//
//	users/show.html.min.js
//	users/show.html.js
//	users/show.min.js
//	users/show.js
//
// Candidates are glob patterns relative to Root.
type FindOptions struct {
	Root           string
	Suffix         string
	ExtraSuffix    string
	OptionalSuffix string
}

func (o *FindOptions) patterns(p string) []string {
	variants := [][]string{
		{p, o.ExtraSuffix, o.OptionalSuffix, o.Suffix},
		{p, o.ExtraSuffix, o.Suffix},
		{p, o.OptionalSuffix, o.Suffix},
		{p, o.Suffix},
	}

	res := make([]string, 0, len(variants))
	for _, parts := range variants {
		parts = slices.DeleteFunc(parts, func(s string) bool { return len(s) == 0 })
		pattern := filepath.Join(o.Root, filepath.FromSlash(strings.Join(parts, ".")))
		if !slices.Contains(res, pattern) {
			res = append(res, pattern)
		}
	}
	return res
}

// Find returns existing asset files for rendered paths. Every file is
// reported once, in order of paths and candidates, matches of a single
// candidate sorted naturally.
func Find(paths []string, opts FindOptions) ([]string, error) {
	var (
		res  []string
		seen = make(map[string]struct{})
	)
	for _, p := range paths {
		for _, pattern := range opts.patterns(p) {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("bad asset pattern %q: %w", pattern, err)
			}
			slices.SortFunc(matches, func(a, b string) int {
				switch {
				case a == b:
					return 0
				case natural.Less(a, b):
					return -1
				}
				return 1
			})
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				res = append(res, m)
			}
		}
	}
	return res, nil
}

// FindFormats is Find repeated for every format as ExtraSuffix, no formats
// means no extra suffix.
func FindFormats(paths, formats []string, opts FindOptions) ([]string, error) {
	if len(formats) == 0 {
		return Find(paths, opts)
	}

	var res []string
	for _, f := range formats {
		opts.ExtraSuffix = f
		files, err := Find(paths, opts)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			if !slices.Contains(res, file) {
				res = append(res, file)
			}
		}
	}
	return res, nil
}
