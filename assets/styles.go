package assets

import (
	"html"
	"maps"
	"slices"
	"strings"
)

// ScopeFiler returns stylesheet content scoped to its namespace, see
// css.Scoper.
type ScopeFiler interface {
	ScopeFile(filename string) ([]byte, error)
}

// Styles concatenates scoped content of stylesheet files.
func Styles(files []string, scoper ScopeFiler) (string, error) {
	var sb strings.Builder
	for _, file := range files {
		data, err := scoper.ScopeFile(file)
		if err != nil {
			return "", err
		}
		sb.Write(data)
	}
	return sb.String(), nil
}

// StyleTag puts css into style element with additional attributes (sorted
// by name). Empty css gives empty result.
func StyleTag(css string, attrs map[string]string) string {
	if len(strings.TrimSpace(css)) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<style type="text/css"`)
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(attrs[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	sb.WriteString(css)
	sb.WriteString("</style>")
	return sb.String()
}
