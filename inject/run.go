// Package inject namespaces HTML files in bulk: single file, directory tree
// or zip archive.
package inject

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"htmlns/archive"
	"htmlns/config"
	"htmlns/state"
	"htmlns/view"
)

// Run is the action of inject subcommand.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inject")

	src, dst, err := sourceAndDestination(cmd, log)
	if err != nil {
		return err
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")
	env.Namespace = strings.TrimSpace(cmd.String("namespace"))

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage = lookupEncoding(cp, log)
		if env.CodePage != nil {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	policy := env.Cfg.Namespacing.OnError
	if p := cmd.String("on-error"); len(p) > 0 {
		policy = p
	}
	r, err := newRunner(env, log, policy)
	if err != nil {
		return err
	}
	if cs := cmd.String("charset"); len(cs) > 0 {
		r.charset = lookupEncoding(cs, log)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.String("namespace", env.Namespace))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)), zap.Int("files", r.count), zap.Int("failed", len(multierr.Errors(r.errs))))
	}(time.Now())

	return r.process(ctx, src, dst)
}

func sourceAndDestination(cmd *cli.Command, log *zap.Logger) (src, dst string, err error) {
	src = cmd.Args().Get(0)
	if len(src) == 0 {
		return "", "", errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return "", "", err
	}

	dst = cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return "", "", err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}
	return src, dst, nil
}

func lookupEncoding(name string, log *zap.Logger) encoding.Encoding {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
		return nil
	}
	return enc
}

// runner keeps state of a single inject run.
type runner struct {
	env     *state.LocalEnv
	log     *zap.Logger
	exts    []string
	charset encoding.Encoding
	render  *view.Renderer

	count int
	errs  error
}

// newRunner prepares inject run, policy decides what happens to
// badly-formed documents.
func newRunner(env *state.LocalEnv, log *zap.Logger, policy string) (*runner, error) {
	onError, err := view.Policy(policy, log)
	if err != nil {
		return nil, err
	}
	return &runner{
		env:  env,
		log:  log,
		exts: env.Cfg.Inject.Extensions,
		render: view.NewRenderer(view.Options{
			Resolver: env.NamespaceFor,
			OnError:  onError,
		}, log),
	}, nil
}

// document is HTML file which is already rendered, its key is slash
// separated path relative to processed source.
type document struct {
	key, text string
}

func (d document) Key() string    { return d.key }
func (d document) Format() string { return "html" }

func (d document) Execute(w io.Writer, _ *view.Context, _ any) error {
	_, err := io.WriteString(w, d.text)
	return err
}

// fail records failure of a single file, processing continues.
func (r *runner) fail(err error, fields ...zap.Field) {
	r.log.Error("Unable to process file", append(fields, zap.Error(err))...)
	r.errs = multierr.Append(r.errs, err)
}

// process determines the input type (directory, archive, or single file) and
// processes it accordingly. Failures of individual files are accumulated and
// returned together.
func (r *runner) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := r.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := archive.IsArchive(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := r.processArchive(ctx, head, tail, "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		ok, err := isHTMLFile(head, r.exts)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if !ok {
			return fmt.Errorf("input was not recognized as HTML (%s)", head)
		}
		data, err := os.ReadFile(head)
		if err != nil {
			return err
		}
		r.count++
		if err := r.processFile(ctx, data, filepath.Base(head), dst); err != nil {
			r.fail(err, zap.String("file", head))
			r.saveFailed(filepath.Base(head), head)
		}
		break
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return r.errs
}

// processDir walks directory tree finding HTML files and processes them.
func (r *runner) processDir(ctx context.Context, dir, dst string) (err error) {
	count := r.count
	defer func() {
		if err == nil && count == r.count {
			r.log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			r.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() && path != dir && path == dst {
			// do not pick up our own output
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		isArchive, err := archive.IsArchive(path)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := r.processArchive(ctx, path, "", filepath.Dir(rel), dst); err != nil {
				r.fail(fmt.Errorf("unable to process archive %s: %w", path, err), zap.String("archive", path))
			}
			return nil
		}

		ok, err := isHTMLFile(path, r.exts)
		if err != nil {
			r.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !ok {
			r.log.Debug("Skipping file, not recognized as HTML or archive", zap.String("file", path))
			return nil
		}

		r.count++

		data, err := os.ReadFile(path)
		if err != nil {
			r.fail(err, zap.String("file", path))
			return nil
		}
		if err := r.processFile(ctx, data, rel, dst); err != nil {
			r.fail(err, zap.String("file", path))
			r.saveFailed(rel, path)
		}
		return nil
	})
}

// processArchive walks all files inside archive, finds HTML files under
// "pathIn" and processes them, output goes under "pathOut".
func (r *runner) processArchive(ctx context.Context, arc, pathIn, pathOut, dst string) (err error) {
	count := r.count
	defer func() {
		if err == nil && count == r.count {
			r.log.Debug("Nothing to process", zap.String("archive", arc))
		}
	}()

	return archive.Walk(ctx, arc, pathIn, func(arc string, f *zip.File) error {
		ok, err := isHTMLInArchive(f, r.exts)
		if err != nil {
			r.log.Warn("Skipping file in archive", zap.String("archive", arc), zap.String("path", f.Name), zap.Error(err))
			return nil
		}
		if !ok {
			r.log.Debug("Skipping file, not recognized as HTML", zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}

		r.count++

		data, err := readZipFile(f)
		if err != nil {
			r.fail(err, zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}

		pathInArchive := f.Name
		if cp := r.env.CodePage; cp != nil && f.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				r.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}

		if err := r.processFile(ctx, data, filepath.Join(pathOut, filepath.FromSlash(pathInArchive)), dst); err != nil {
			r.fail(err, zap.String("archive", arc), zap.String("file", f.Name))
			r.env.Rpt.StoreData(path.Join("failed", filepath.Base(arc), f.Name), data)
		}
		return nil
	})
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *runner) saveFailed(name, path string) {
	if err := r.env.Rpt.StoreCopy(filepath.ToSlash(filepath.Join("failed", name)), path); err != nil {
		r.log.Warn("Unable to put failed file into report", zap.String("file", path), zap.Error(err))
	}
}

// processFile namespaces single HTML document. "src" is path of the
// document relative to processed source (just base name when source is a
// file), it determines both namespace and output location under "dst".
func (r *runner) processFile(ctx context.Context, data []byte, src, dst string) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	var outputName string
	log := r.log.With(zap.String("from", src))

	log.Debug("Injection starting")
	defer func(start time.Time) {
		if p := recover(); p != nil {
			log.Error("Injection ended with panic", zap.Any("panic", p), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("injection panic: %v", p)
		} else if rerr == nil {
			log.Debug("Injection completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	text, enc, err := decode(data, r.charset)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", src, err)
	}
	if enc != "utf-8" {
		log.Debug("Input converted to UTF-8", zap.String("charset", enc))
	}

	doc := document{key: filepath.ToSlash(src), text: text}
	if len(r.render.Namespace(doc)) == 0 {
		log.Warn("No namespace for file, copying as is")
	}

	out, err := r.render.Render(view.NewContext(), doc, nil)
	if err != nil {
		return err
	}

	outputName = buildOutputPath(src, dst, r.env)
	if err := prepareOutput(outputName, r.env.Overwrite, log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, []byte(out), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	return nil
}

// prepareOutput makes sure output file could be written.
func prepareOutput(outputName string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

// buildOutputPath mirrors relative source path under destination, or puts
// everything directly into destination when directory structure should not
// be kept. Every path segment is cleaned.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	if env.NoDirs {
		return filepath.Join(dst, config.CleanFileName(filepath.Base(src)))
	}
	segments := strings.Split(filepath.ToSlash(filepath.Clean(src)), "/")
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, dst)
	for _, s := range segments {
		parts = append(parts, config.CleanFileName(s))
	}
	return filepath.Join(parts...)
}
