package view

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	texttemplate "text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"htmlns/assets"
)

// ErrNotFound is returned for keys engine has no template for.
var ErrNotFound = errors.New("template not found")

// formats executed with html/template, everything else is text
var htmlFormats = []string{"html", "htm", "xhtml"}

const templateExt = ".tmpl"

// AssetOptions configure javascriptTag and styleTag template functions.
type AssetOptions struct {
	Scripts         assets.FindOptions
	JavaScript      assets.JavaScriptOptions
	Styles          assets.FindOptions
	Scoper          assets.ScopeFiler
	StyleAttributes map[string]string
}

// EngineOptions configure template loading.
type EngineOptions struct {
	// Root directory with "<key>.<format>.tmpl" files.
	Root string
	// Format used when key has templates in several formats, "html" if
	// empty.
	Format string
	Assets AssetOptions
}

// Engine loads templates from directory and renders them through Renderer.
type Engine struct {
	renderer  *Renderer
	opts      EngineOptions
	log       *zap.Logger
	templates map[string]map[string]*fileTemplate
}

// NewEngine loads all templates under opts.Root.
func NewEngine(r *Renderer, opts EngineOptions, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Format) == 0 {
		opts.Format = "html"
	}
	e := &Engine{
		renderer:  r,
		opts:      opts,
		log:       log.Named("engine"),
		templates: make(map[string]map[string]*fileTemplate),
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load() error {
	return filepath.WalkDir(e.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), templateExt) {
			return nil
		}

		rel, err := filepath.Rel(e.opts.Root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, templateExt))
		ext := filepath.Ext(name)
		if len(ext) <= 1 {
			e.log.Warn("Skipping template without format", zap.String("file", path))
			return nil
		}
		key, format := strings.TrimSuffix(name, ext), ext[1:]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("unable to read template: %w", err)
		}
		t := &fileTemplate{key: key, format: format, engine: e}
		if err := t.parse(string(data)); err != nil {
			return fmt.Errorf("unable to parse template %s: %w", rel, err)
		}

		if e.templates[key] == nil {
			e.templates[key] = make(map[string]*fileTemplate)
		}
		e.templates[key][format] = t
		e.log.Debug("Template loaded", zap.String("key", key), zap.String("format", format))
		return nil
	})
}

// Keys returns keys of all loaded templates, sorted.
func (e *Engine) Keys() []string {
	keys := make([]string, 0, len(e.templates))
	for k := range e.templates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Lookup returns template for key in default format, or in the only format
// key has.
func (e *Engine) Lookup(key string) (Template, error) {
	byFormat, ok := e.templates[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if t, ok := byFormat[e.opts.Format]; ok {
		return t, nil
	}
	if len(byFormat) == 1 {
		formats := slices.Collect(maps.Keys(byFormat))
		return byFormat[formats[0]], nil
	}
	return nil, fmt.Errorf("%w: %s in format %s", ErrNotFound, key, e.opts.Format)
}

// Render renders template with key.
func (e *Engine) Render(vc *Context, key string, data any) (string, error) {
	t, err := e.Lookup(key)
	if err != nil {
		return "", err
	}
	return e.renderer.Render(vc, t, data)
}

// LayoutData is what layout template is executed with.
type LayoutData struct {
	Content htmltemplate.HTML
	Data    any
}

// RenderLayout renders template with key and then layout with the result
// as .Content, so that asset helpers in layout see everything content
// rendered. Empty layout renders content only.
func (e *Engine) RenderLayout(vc *Context, layout, key string, data any) (string, error) {
	content, err := e.Render(vc, key, data)
	if err != nil || len(layout) == 0 {
		return content, err
	}
	return e.Render(vc, layout, LayoutData{Content: htmltemplate.HTML(content), Data: data})
}

// JavaScript returns script element for per-view scripts of everything
// rendered in vc so far.
func (e *Engine) JavaScript(vc *Context) (string, error) {
	a := &e.opts.Assets
	files, err := assets.FindFormats(vc.Rendered(), e.renderer.opts.Formats, a.Scripts)
	if err != nil {
		return "", err
	}
	js, err := assets.JavaScript(files, a.JavaScript)
	if err != nil {
		return "", err
	}
	return assets.JavaScriptTag(js), nil
}

// Styles returns style element with scoped per-view stylesheets of
// everything rendered in vc so far.
func (e *Engine) Styles(vc *Context) (string, error) {
	a := &e.opts.Assets
	if a.Scoper == nil {
		return "", errors.New("no stylesheet scoper configured")
	}
	files, err := assets.FindFormats(vc.Rendered(), e.renderer.opts.Formats, a.Styles)
	if err != nil {
		return "", err
	}
	css, err := assets.Styles(files, a.Scoper)
	if err != nil {
		return "", err
	}
	return assets.StyleTag(css, a.StyleAttributes), nil
}

// fileTemplate is template loaded from file, either html or text.
type fileTemplate struct {
	key    string
	format string
	engine *Engine
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

func (t *fileTemplate) Key() string    { return t.key }
func (t *fileTemplate) Format() string { return t.format }

func (t *fileTemplate) parse(src string) (err error) {
	if slices.Contains(htmlFormats, t.format) {
		// helpers are bound to view context on execution, html/template
		// wants them known at parse time
		t.html, err = htmltemplate.New(t.key).Funcs(sprig.HtmlFuncMap()).Funcs(htmltemplate.FuncMap(t.funcs(nil))).Parse(src)
		return err
	}
	t.text, err = texttemplate.New(t.key).Funcs(sprig.TxtFuncMap()).Funcs(t.funcs(nil)).Parse(src)
	return err
}

func (t *fileTemplate) Execute(w io.Writer, vc *Context, data any) error {
	funcs := t.funcs(vc)
	if t.html != nil {
		c, err := t.html.Clone()
		if err != nil {
			return err
		}
		return c.Funcs(htmltemplate.FuncMap(funcs)).Execute(w, data)
	}
	c, err := t.text.Clone()
	if err != nil {
		return err
	}
	return c.Funcs(funcs).Execute(w, data)
}

// funcs returns namespacing helpers, html templates get trusted HTML from
// them.
func (t *fileTemplate) funcs(vc *Context) texttemplate.FuncMap {
	trusted := func(s string) any {
		if slices.Contains(htmlFormats, t.format) {
			return htmltemplate.HTML(s)
		}
		return s
	}
	return texttemplate.FuncMap{
		"partial": func(key string, data ...any) (any, error) {
			var d any
			if len(data) > 0 {
				d = data[0]
			}
			out, err := t.engine.Render(vc, key, d)
			if err != nil {
				return nil, err
			}
			return trusted(out), nil
		},
		"namespace": func() string {
			return t.engine.renderer.Namespace(t)
		},
		"javascriptTag": func() (any, error) {
			out, err := t.engine.JavaScript(vc)
			if err != nil {
				return nil, err
			}
			return trusted(out), nil
		},
		"styleTag": func() (any, error) {
			out, err := t.engine.Styles(vc)
			if err != nil {
				return nil, err
			}
			return trusted(out), nil
		},
	}
}
