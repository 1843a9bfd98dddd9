package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"

	"htmlns/namespace"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	ns := cfg.Namespacing
	if !slices.Contains(ns.Formats, "html") {
		t.Errorf("html format is not enabled by default: %v", ns.Formats)
	}
	if slices.Contains(ns.Formats, "json") {
		t.Error("json format should not be enabled by default")
	}
	if ns.Resolver != "default" || ns.OnError != "raise" {
		t.Errorf("unexpected defaults resolver=%q on_error=%q", ns.Resolver, ns.OnError)
	}
	if cfg.Assets.JavaScript.Framework != "jquery" {
		t.Errorf("Framework = %q, want jquery", cfg.Assets.JavaScript.Framework)
	}
	if cfg.Assets.JavaScript.Suffix != "js" || cfg.Assets.Stylesheets.Suffix != "css" {
		t.Errorf("unexpected asset suffixes %q, %q", cfg.Assets.JavaScript.Suffix, cfg.Assets.Stylesheets.Suffix)
	}
	if cfg.Styles.Prefix != "views" {
		t.Errorf("Styles.Prefix = %q, want views", cfg.Styles.Prefix)
	}
	if len(cfg.Inject.Extensions) != 3 {
		t.Errorf("Inject.Extensions = %v", cfg.Inject.Extensions)
	}
}

func TestConfig_WrapperTemplateNotExpanded(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	tmpl := cfg.Assets.JavaScript.WrapperTemplate
	if !strings.Contains(tmpl, "{{ .NS }}") || !strings.Contains(tmpl, "{{ .Code }}") {
		t.Errorf("wrapper template was expanded during configuration processing: %q", tmpl)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
namespacing:
  formats: ["html", "xml"]
  resolver: slug
  on_error: log
  track_rendered: false
views:
  root: ` + filepath.ToSlash(tmpDir) + `
  layout: layouts/application
logging:
  console:
    level: normal
  file:
    level: debug
    destination: ` + filepath.ToSlash(filepath.Join(tmpDir, "test.log")) + `
    mode: append
reporting:
  destination: ` + filepath.ToSlash(filepath.Join(tmpDir, "test-report.zip")) + `
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if !slices.Contains(cfg.Namespacing.Formats, "xml") {
		t.Error("Expected xml format to be enabled")
	}
	if cfg.Namespacing.OnError != "log" {
		t.Errorf("OnError = %q, want log", cfg.Namespacing.OnError)
	}
	if cfg.Namespacing.TrackRendered {
		t.Error("Expected TrackRendered to be false")
	}
	if cfg.Views.Layout != "layouts/application" {
		t.Errorf("Views.Layout = %q", cfg.Views.Layout)
	}
	if got := cfg.Namespacing.NamespaceResolver()("Admin/Users.html"); got != "admin-users" {
		t.Errorf("slug resolver produced %q", got)
	}
	// defaults for sections not in the file survive
	if cfg.Assets.JavaScript.Framework != "jquery" {
		t.Errorf("Framework = %q, want default jquery", cfg.Assets.JavaScript.Framework)
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nnamespacing:\n  formats: [html\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"wrong version", "version: 2\n"},
		{"bad policy", "version: 1\nnamespacing:\n  on_error: explode\n"},
		{"bad resolver", "version: 1\nnamespacing:\n  resolver: magic\n"},
		{"bad framework", "version: 1\nassets:\n  javascript:\n    framework: prototype\n"},
		{"bad extension", "version: 1\ninject:\n  extensions: [html]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Assets.JavaScript.WrapperTemplate != cfg.Assets.JavaScript.WrapperTemplate {
		t.Errorf("wrapper template changed after dump/load: %q", cfg2.Assets.JavaScript.WrapperTemplate)
	}
}

func TestNamespacingConfig_NamespaceResolver(t *testing.T) {
	tests := []struct {
		resolver string
		path     string
		want     string
	}{
		{"default", "users/show.html", "users-show"},
		{"default", "Users/Show", "Users-Show"},
		{"slug", "Users/Show", "users-show"},
		{"", "users/show", "users-show"},
	}
	for _, tt := range tests {
		conf := NamespacingConfig{Resolver: tt.resolver}
		if got := conf.NamespaceResolver()(tt.path); got != tt.want {
			t.Errorf("%q resolver(%q) = %q, want %q", tt.resolver, tt.path, got, tt.want)
		}
	}

	var _ namespace.Resolver = (&NamespacingConfig{}).NamespaceResolver()
}
