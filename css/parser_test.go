package css_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"htmlns/css"
)

func TestScoper_Scope(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ns    string
		want  string
	}{
		{
			name:  "element selector",
			input: `p { color: red; }`,
			ns:    "X",
			want:  ".X p {\n  color:red;\n}\n",
		},
		{
			name:  "selector list",
			input: `h1, h2 .b { margin: 0 auto; }`,
			ns:    "X",
			want:  ".X h1, .X h2 .b {\n  margin:0 auto;\n}\n",
		},
		{
			name:  "parent reference",
			input: `&.active { color: red; }`,
			ns:    "users-show",
			want:  ".users-show.active {\n  color:red;\n}\n",
		},
		{
			name:  "media block is scoped",
			input: `@media print { p { color: red; } }`,
			ns:    "X",
			want:  "@media print {\n  .X p {\n    color:red;\n  }\n}\n",
		},
		{
			name:  "keyframes are not scoped",
			input: `@keyframes spin { from { opacity: 0; } to { opacity: 1; } }`,
			ns:    "X",
			want:  "@keyframes spin {\n  from {\n    opacity:0;\n  }\n  to {\n    opacity:1;\n  }\n}\n",
		},
		{
			name:  "font face is not scoped",
			input: `@font-face { font-family: x; }`,
			ns:    "X",
			want:  "@font-face {\n  font-family:x;\n}\n",
		},
		{
			name:  "import passes through",
			input: `@import url(a.css); p { color: red; }`,
			ns:    "X",
			want:  "@import url(a.css);\n.X p {\n  color:red;\n}\n",
		},
		{
			name:  "namespace is escaped",
			input: `p { color: red; }`,
			ns:    "1a",
			want:  ".\\31 a p {\n  color:red;\n}\n",
		},
		{
			name:  "empty stylesheet",
			input: ``,
			ns:    "X",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := css.NewScoper(nil, zaptest.NewLogger(t))
			got, err := s.Scope([]byte(tt.input), tt.ns, tt.name)
			if err != nil {
				t.Fatalf("Scope() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Scope()\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestNamespace(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"public/stylesheets/views/users/show.css", "users-show"},
		{"public/stylesheets/views/users/show.print.css", "users-show"},
		{"public/stylesheets/views/index.css", "index"},
		{"public/stylesheets/other/users/show.css", ""},
		{"public/stylesheets/views/users/show.scss", ""},
		{"public/stylesheets/views/.css", ""},
	}
	for _, tt := range tests {
		if got := css.Namespace("public/stylesheets", "views", tt.filename, nil); got != tt.want {
			t.Errorf("Namespace(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestSourceResolver(t *testing.T) {
	r := css.SourceResolver("styles", nil)
	if got := r(filepath.Join("styles", "users", "show.css")); got != "users-show" {
		t.Errorf("got %q, want users-show", got)
	}
	if got := r(filepath.Join("elsewhere", "show.css")); got != "" {
		t.Errorf("file outside root resolved to %q", got)
	}
}

func TestScoper_ScopeFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "users"), 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(root, "users", "show.css")
	if err := os.WriteFile(file, []byte(`p { color: red; }`), 0644); err != nil {
		t.Fatal(err)
	}

	s := css.NewScoper(css.SourceResolver(root, nil), zaptest.NewLogger(t))

	first, err := s.ScopeFile(file)
	if err != nil {
		t.Fatalf("ScopeFile() error = %v", err)
	}
	if !strings.HasPrefix(string(first), ".users-show p {") {
		t.Errorf("unexpected result %q", first)
	}

	// cached result survives changes on disk
	if err := os.WriteFile(file, []byte(`a { color: blue; }`), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := s.ScopeFile(file)
	if err != nil {
		t.Fatalf("ScopeFile() error = %v", err)
	}
	if string(second) != string(first) {
		t.Errorf("result was not memoized: %q", second)
	}

	s.Forget(file)
	third, err := s.ScopeFile(file)
	if err != nil {
		t.Fatalf("ScopeFile() error = %v", err)
	}
	if !strings.HasPrefix(string(third), ".users-show a {") {
		t.Errorf("unexpected result after Forget %q", third)
	}

	if _, err := s.ScopeFile(filepath.Join(root, "missing.css")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScoper_ScopeFile_NoNamespace(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.css")
	if err := os.WriteFile(file, []byte(`p{color:red}`), 0644); err != nil {
		t.Fatal(err)
	}
	s := css.NewScoper(func(string) string { return "" }, zaptest.NewLogger(t))
	got, err := s.ScopeFile(file)
	if err != nil {
		t.Fatalf("ScopeFile() error = %v", err)
	}
	if string(got) != `p{color:red}` {
		t.Errorf("stylesheet without namespace was changed: %q", got)
	}
}
