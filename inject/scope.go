package inject

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"htmlns/css"
	"htmlns/state"
)

// RunScope is the action of scope subcommand: stylesheets from source file
// or directory are written to destination with every rule limited to the
// namespace of the stylesheet. Stylesheets without namespace are copied.
func RunScope(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("scope")

	src, dst, err := sourceAndDestination(cmd, log)
	if err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")
	env.Namespace = strings.TrimSpace(cmd.String("namespace"))

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found: %w", err)
	}
	root := src
	if !fi.IsDir() {
		root = filepath.Dir(src)
	}

	resolver := env.Cfg.Namespacing.NamespaceResolver()
	resolve := css.SourceResolver(root, resolver)
	switch {
	case len(env.Namespace) > 0:
		resolve = func(string) string { return env.Namespace }
	case cmd.Bool("compiled"):
		// source is compiled output, only files under configured location
		// and prefix get namespace
		location, err := filepath.Abs(env.Cfg.Styles.Location)
		if err != nil {
			return err
		}
		resolve = css.OutputResolver(location, env.Cfg.Styles.Prefix, resolver)
	}
	scoper := css.NewScoper(resolve, log)

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	var count int
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)), zap.Int("files", count))
	}(time.Now())

	var errs error
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() && path != src && path == dst {
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), ".css") {
			return nil
		}

		count++
		if err := scopeFile(scoper, root, path, dst, env.Overwrite, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to process stylesheets: %w", err)
	}
	return errs
}

func scopeFile(scoper *css.Scoper, root, path, dst string, overwrite bool, log *zap.Logger) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	data, err := scoper.ScopeFile(path)
	if err != nil {
		return fmt.Errorf("unable to scope %s: %w", rel, err)
	}
	outputName := filepath.Join(dst, rel)
	if err := prepareOutput(outputName, overwrite, log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	log.Debug("Stylesheet scoped", zap.String("from", rel), zap.String("to", outputName))
	return nil
}
