package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	yaml "gopkg.in/yaml.v3"

	"htmlns/assets"
	"htmlns/classindex"
	"htmlns/config"
	"htmlns/css"
	"htmlns/state"
	"htmlns/view"
)

// newEngine builds template engine from configuration.
func newEngine(cfg *config.Config, root string, log *zap.Logger) (*view.Engine, error) {
	resolver := cfg.Namespacing.NamespaceResolver()
	onError, err := view.Policy(cfg.Namespacing.OnError, log)
	if err != nil {
		return nil, err
	}

	renderer := view.NewRenderer(view.Options{
		Resolver:      resolver,
		OnError:       onError,
		Formats:       cfg.Namespacing.Formats,
		TrackRendered: cfg.Namespacing.TrackRendered,
	}, log)

	js, styles := &cfg.Assets.JavaScript, &cfg.Assets.Stylesheets
	return view.NewEngine(renderer, view.EngineOptions{
		Root: root,
		Assets: view.AssetOptions{
			Scripts: assets.FindOptions{Root: js.Root, Suffix: js.Suffix, OptionalSuffix: js.OptionalSuffix},
			JavaScript: assets.JavaScriptOptions{
				Framework:       js.Framework,
				Root:            js.Root,
				Resolver:        resolver,
				WrapperTemplate: js.WrapperTemplate,
			},
			Styles:          assets.FindOptions{Root: styles.Root, Suffix: styles.Suffix, OptionalSuffix: styles.OptionalSuffix},
			Scoper:          css.NewScoper(css.SourceResolver(styles.Root, resolver), log),
			StyleAttributes: cfg.Styles.Attributes,
		},
	}, log)
}

func loadData(fname string) (any, error) {
	if len(fname) == 0 {
		return nil, nil
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read template data: %w", err)
	}
	var res map[string]any
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unable to decode template data: %w", err)
	}
	return res, nil
}

func writeResult(fname string, data string) error {
	if len(fname) == 0 {
		_, err := io.WriteString(os.Stdout, data)
		return err
	}
	return os.WriteFile(fname, []byte(data), 0644)
}

func renderView(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	key := cmd.Args().Get(0)
	if len(key) == 0 {
		return errors.New("no view has been specified")
	}
	root := cmd.String("root")
	if len(root) == 0 {
		root = env.Cfg.Views.Root
	}
	layout := env.Cfg.Views.Layout
	if cmd.IsSet("layout") {
		layout = cmd.String("layout")
	}

	data, err := loadData(cmd.String("data"))
	if err != nil {
		return err
	}
	engine, err := newEngine(env.Cfg, root, env.Log)
	if err != nil {
		return fmt.Errorf("unable to load views: %w", err)
	}

	vc := view.NewContext()
	out, err := engine.RenderLayout(vc, layout, key, data)
	if err != nil {
		return err
	}
	log.Info("View rendered", zap.String("view", key), zap.String("layout", layout),
		zap.Stringer("id", vc.ID), zap.Strings("rendered", vc.Rendered()))

	if err := writeResult(cmd.Args().Get(1), out); err != nil {
		return fmt.Errorf("unable to write result: %w", err)
	}
	return nil
}

func indexDocument(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("index")

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		return errors.New("no input file has been specified")
	}
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return fmt.Errorf("unable to detect document encoding: %w", err)
	}
	ix, _, err := classindex.Parse(r)
	if err != nil {
		return fmt.Errorf("unable to parse document: %w", err)
	}

	ns := cmd.String("namespace")
	if len(ns) == 0 {
		classes := ix.Classes()
		log.Debug("Document indexed", zap.String("file", fname), zap.Int("classes", len(classes)))
		var sb strings.Builder
		for _, c := range classes {
			fmt.Fprintf(&sb, "%s\t%d\n", c, len(ix.Namespace(c)))
		}
		return writeResult("", sb.String())
	}

	if cmd.Bool("tree") {
		return writeResult("", ix.Dump(ns))
	}

	nodes := ix.Namespace(ns)
	if sel := cmd.String("select"); len(sel) > 0 {
		if nodes, err = ix.Query(ns, sel); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}
	log.Debug("Namespace elements", zap.String("namespace", ns), zap.Int("count", len(nodes)))
	return writeResult("", buf.String())
}
