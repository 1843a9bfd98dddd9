// Package classindex maps class names to elements of a parsed HTML document.
// It is what client side bootstrap script builds in the browser, so that
// rendered output can be checked without one.
package classindex

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/maruel/natural"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Index keeps elements for every class name in document order.
type Index struct {
	classes map[string][]*html.Node
	// position of every visited element, used to order query results
	order map[*html.Node]int
}

// Build indexes root and everything below it.
func Build(root *html.Node) *Index {
	ix := &Index{
		classes: make(map[string][]*html.Node),
		order:   make(map[*html.Node]int),
	}
	if root == nil {
		return ix
	}

	// explicit stack, children pushed in reverse so they pop in document order
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			ix.order[n] = len(ix.order)
			for _, name := range splitClasses(classAttr(n)) {
				ix.classes[name] = append(ix.classes[name], n)
			}
		}
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return ix
}

// Parse parses HTML document from r and indexes its body (whole document if
// there is no body).
func Parse(r io.Reader) (*Index, *html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse html: %w", err)
	}
	root := findElement(atom.Body, doc)
	if root == nil {
		root = doc
	}
	return Build(root), doc, nil
}

// Namespace returns roots of namespace ns, that is elements having ns class.
func (ix *Index) Namespace(ns string) []*html.Node {
	return slices.Clone(ix.classes[ns])
}

// Classes returns all indexed class names in natural order.
func (ix *Index) Classes() []string {
	names := make([]string, 0, len(ix.classes))
	for name := range ix.classes {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natural.Less(a, b):
			return -1
		}
		return 1
	})
	return names
}

// Query returns elements matching CSS selector inside namespace ns (roots
// included) in document order. Elements under several roots are reported
// once.
func (ix *Index) Query(ns, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}

	seen := make(map[*html.Node]struct{})
	var res []*html.Node
	for _, root := range ix.classes[ns] {
		for _, n := range sel.MatchAll(root) {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			res = append(res, n)
		}
	}
	slices.SortFunc(res, func(a, b *html.Node) int {
		return ix.order[a] - ix.order[b]
	})
	return res, nil
}

func classAttr(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "class" {
			return a.Val
		}
	}
	return ""
}

// splitClasses splits class attribute on runs of spaces, tabs and newlines.
func splitClasses(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n'
	})
}

func findElement(a atom.Atom, n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if r := findElement(a, c); r != nil {
			return r
		}
	}
	return nil
}
