package assets

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"htmlns/namespace"
)

//go:embed dom_index_jquery.js
var jqueryBootstrap string

// DefaultWrapperTemplate exposes namespace of the view to view script as NS
// (string) and $NS() (jQuery set of namespace roots).
const DefaultWrapperTemplate = `jQuery(function($){var NS={{ .NS }},$NS=function(){return $($.NS[NS]||[])};{{ .Code }}});`

// Framework is client side support for a JavaScript library.
type Framework struct {
	// Bootstrap indexes document once, before any view script runs.
	Bootstrap string
	// Wrapper is applied to every view script.
	Wrapper *template.Template
}

var frameworks = map[string]func() Framework{
	"jquery": func() Framework {
		return Framework{
			Bootstrap: jqueryBootstrap,
			Wrapper:   template.Must(template.New("jquery").Parse(DefaultWrapperTemplate)),
		}
	},
}

// JavaScriptOptions controls JavaScript generation.
type JavaScriptOptions struct {
	Framework string
	// Root is directory script files are relative to, relative path
	// determines namespace.
	Root     string
	Resolver namespace.Resolver
	// WrapperTemplate replaces framework wrapper when not empty. It is
	// text/template executed with NS (JSON encoded namespace) and Code.
	WrapperTemplate string
}

func (o *JavaScriptOptions) framework() (Framework, error) {
	mk, ok := frameworks[o.Framework]
	if !ok {
		return Framework{}, fmt.Errorf("unsupported javascript framework %q", o.Framework)
	}
	fw := mk()
	if len(o.WrapperTemplate) > 0 {
		t, err := template.New(o.Framework).Parse(o.WrapperTemplate)
		if err != nil {
			return Framework{}, fmt.Errorf("bad javascript wrapper template: %w", err)
		}
		fw.Wrapper = t
	}
	return fw, nil
}

// JavaScript returns framework bootstrap followed by every file wrapped so
// it knows its namespace. Nothing is returned when there are no files.
func JavaScript(files []string, opts JavaScriptOptions) (string, error) {
	fw, err := opts.framework()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = namespace.FromPath
	}

	var sb strings.Builder
	sb.WriteString(fw.Bootstrap)
	if !strings.HasSuffix(fw.Bootstrap, "\n") {
		sb.WriteByte('\n')
	}
	for _, file := range files {
		rel, err := filepath.Rel(opts.Root, file)
		if err != nil {
			return "", fmt.Errorf("unable to locate script %s under %s: %w", file, opts.Root, err)
		}
		logical, _, _ := strings.Cut(filepath.ToSlash(rel), ".")
		ns, err := json.Marshal(resolver(logical))
		if err != nil {
			return "", err
		}
		code, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("unable to read script: %w", err)
		}
		if err := fw.Wrapper.Execute(&sb, struct {
			NS   string
			Code string
		}{NS: string(ns), Code: string(code)}); err != nil {
			return "", fmt.Errorf("unable to wrap script %s: %w", rel, err)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// JavaScriptTag puts js into script element hiding it from old parsers.
// Empty js gives empty result.
func JavaScriptTag(js string) string {
	if len(strings.TrimSpace(js)) == 0 {
		return ""
	}
	return "<script type=\"text/javascript\"><!--//--><![CDATA[//><!--\n" + js + "//--><!]]></script>"
}
