package view_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"htmlns/assets"
	"htmlns/css"
	"htmlns/view"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newEngine(t *testing.T) (*view.Engine, string) {
	t.Helper()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"views/users/show.html.tmpl":    `<div class="user" data-ns="{{ namespace }}">{{ .Name }}</div>{{ partial "users/_row" . }}`,
		"views/users/show.json.tmpl":    `{"name":"{{ .Name }}"}`,
		"views/users/_row.html.tmpl":    `<p>{{ .Name | upper }}</p>`,
		"views/mail/welcome.txt.tmpl":   `Hello {{ .Name }}{{ namespace }}`,
		"views/layouts/app.html.tmpl":   `<html><head>{{ styleTag }}</head><body>{{ .Content }}{{ javascriptTag }}</body></html>`,
		"views/broken.html.tmpl":        `<div>{{ .Name }}`,
		"views/README":                  `not a template`,
		"javascripts/users/show.js":     `$NS().hide();`,
		"stylesheets/users/show.css":    `p { color: red; }`,
		"stylesheets/users/_row.css":    `em { color: blue; }`,
		"stylesheets/layouts/other.css": `body { margin: 0; }`,
	})

	log := zaptest.NewLogger(t)
	r := view.NewRenderer(view.Options{TrackRendered: true}, log)
	stylesRoot := filepath.Join(root, "stylesheets")
	e, err := view.NewEngine(r, view.EngineOptions{
		Root: filepath.Join(root, "views"),
		Assets: view.AssetOptions{
			Scripts: assets.FindOptions{Root: filepath.Join(root, "javascripts"), Suffix: "js"},
			JavaScript: assets.JavaScriptOptions{
				Framework: "jquery",
				Root:      filepath.Join(root, "javascripts"),
			},
			Styles:          assets.FindOptions{Root: stylesRoot, Suffix: "css"},
			Scoper:          css.NewScoper(css.SourceResolver(stylesRoot, nil), log),
			StyleAttributes: map[string]string{"media": "screen"},
		},
	}, log)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, root
}

func TestEngine_Keys(t *testing.T) {
	e, _ := newEngine(t)
	want := "broken,layouts/app,mail/welcome,users/_row,users/show"
	if got := strings.Join(e.Keys(), ","); got != want {
		t.Errorf("Keys() = %s, want %s", got, want)
	}
}

func TestEngine_Lookup(t *testing.T) {
	e, _ := newEngine(t)

	tmpl, err := e.Lookup("users/show")
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Format() != "html" {
		t.Errorf("default format is %s", tmpl.Format())
	}

	tmpl, err = e.Lookup("mail/welcome")
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Format() != "txt" {
		t.Errorf("single format is %s", tmpl.Format())
	}

	if _, err := e.Lookup("users/missing"); !errors.Is(err, view.ErrNotFound) {
		t.Errorf("Lookup(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEngine_Render(t *testing.T) {
	e, _ := newEngine(t)
	vc := view.NewContext()

	got, err := e.Render(vc, "users/show", map[string]string{"Name": "ann"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<div class="user users-show" data-ns="users-show">ann</div><p class="users-_row users-show">ANN</p>`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}

	if r := strings.Join(vc.Rendered(), ","); r != "users/_row,users/show" {
		t.Errorf("Rendered() = %s", r)
	}
}

func TestEngine_RenderText(t *testing.T) {
	e, _ := newEngine(t)
	got, err := e.Render(view.NewContext(), "mail/welcome", map[string]string{"Name": "<ann>"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello <ann>" {
		t.Errorf("Render() = %q", got)
	}
}

func TestEngine_RenderMalformed(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.Render(view.NewContext(), "broken", map[string]string{"Name": "x"})
	if err == nil {
		t.Fatal("expected error for badly-formed output")
	}
}

func TestEngine_RenderLayout(t *testing.T) {
	e, _ := newEngine(t)
	vc := view.NewContext()

	got, err := e.RenderLayout(vc, "layouts/app", "users/show", map[string]string{"Name": "ann"})
	if err != nil {
		t.Fatalf("RenderLayout() error = %v", err)
	}

	checks := []string{
		`<html><head>`,
		`<style type="text/css" media="screen">`,
		".users-_row em {\n  color:blue;\n}\n",
		".users-show p {\n  color:red;\n}\n",
		`<div class="user users-show" data-ns="users-show">ann</div>`,
		`<script type="text/javascript">`,
		`var NS="users-show"`,
		`$NS().hide();`,
	}
	for _, c := range checks {
		if !strings.Contains(got, c) {
			t.Errorf("layout output does not contain %q:\n%s", c, got)
		}
	}
	if strings.Contains(got, "margin") {
		t.Errorf("stylesheet of not rendered view included:\n%s", got)
	}
	if strings.Index(got, ".users-_row em") > strings.Index(got, ".users-show p") {
		t.Errorf("stylesheets are not in render order:\n%s", got)
	}
}

func TestEngine_RenderLayoutEmpty(t *testing.T) {
	e, _ := newEngine(t)
	got, err := e.RenderLayout(view.NewContext(), "", "users/_row", map[string]string{"Name": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `<p class="users-_row">B</p>` {
		t.Errorf("RenderLayout() = %q", got)
	}
}

func TestNewEngine_BadTemplate(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.html.tmpl": `{{ if }}`})
	if _, err := view.NewEngine(view.NewRenderer(view.Options{}, nil), view.EngineOptions{Root: root}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected parse error")
	}
}
