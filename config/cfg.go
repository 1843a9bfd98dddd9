package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"htmlns/namespace"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	NamespacingConfig struct {
		Formats       []string `yaml:"formats" validate:"dive,required"`
		Resolver      string   `yaml:"resolver" validate:"oneof=default slug"`
		OnError       string   `yaml:"on_error" validate:"oneof=raise log ignore"`
		TrackRendered bool     `yaml:"track_rendered"`
	}

	ViewsConfig struct {
		Root   string `yaml:"root" sanitize:"path_clean"`
		Layout string `yaml:"layout"`
	}

	AssetLocationConfig struct {
		Root           string `yaml:"root" sanitize:"path_clean"`
		Suffix         string `yaml:"suffix" validate:"required"`
		OptionalSuffix string `yaml:"optional_suffix"`
	}

	JavaScriptConfig struct {
		AssetLocationConfig `yaml:",inline"`
		Framework           string `yaml:"framework" validate:"oneof=jquery"`
		WrapperTemplate     string `yaml:"wrapper_template"`
	}

	AssetsConfig struct {
		JavaScript  JavaScriptConfig    `yaml:"javascript"`
		Stylesheets AssetLocationConfig `yaml:"stylesheets"`
	}

	StylesConfig struct {
		Location   string            `yaml:"css_location" sanitize:"path_clean"`
		Prefix     string            `yaml:"prefix"`
		Attributes map[string]string `yaml:"attributes"`
	}

	InjectConfig struct {
		Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
	}

	Config struct {
		Version     int               `yaml:"version" validate:"eq=1"`
		Namespacing NamespacingConfig `yaml:"namespacing"`
		Views       ViewsConfig       `yaml:"views"`
		Assets      AssetsConfig      `yaml:"assets"`
		Styles      StylesConfig      `yaml:"styles"`
		Inject      InjectConfig      `yaml:"inject"`
		Logging     LoggingConfig     `yaml:"logging"`
		Reporting   ReporterConfig    `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	WrapperTemplateFieldName TemplateFieldName = "wrapper_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(WrapperTemplateFieldName)),
)

// NamespaceResolver returns path to namespace mapping selected by
// configuration.
func (conf *NamespacingConfig) NamespaceResolver() namespace.Resolver {
	if conf.Resolver == "slug" {
		return namespace.Slug(namespace.FromPath)
	}
	return namespace.FromPath
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
