package classindex

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Dump returns indented outline of namespace ns: every root of it with
// elements and non-blank text below.
func (ix *Index) Dump(ns string) string {
	tw := &treeWriter{}
	for _, root := range ix.Namespace(ns) {
		tw.node(0, root)
	}
	return tw.String()
}

type treeWriter struct {
	sb strings.Builder
}

func (tw *treeWriter) String() string {
	return tw.sb.String()
}

func (tw *treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.sb.WriteString("  ")
	}
	fmt.Fprintf(&tw.sb, format, args...)
	tw.sb.WriteByte('\n')
}

func (tw *treeWriter) node(depth int, n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		tw.line(depth, "%s", describe(n))
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			tw.node(depth+1, c)
		}
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); len(s) > 0 {
			tw.line(depth, "%s", strconv.Quote(s))
		}
	}
}

// describe gives element in selector form: tag#id.class1.class2
func describe(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == "id" && len(a.Val) > 0 {
			sb.WriteByte('#')
			sb.WriteString(a.Val)
			break
		}
	}
	for _, c := range splitClasses(classAttr(n)) {
		sb.WriteByte('.')
		sb.WriteString(c)
	}
	return sb.String()
}
