// Package view renders templates and puts their top-level elements into
// namespace derived from template path.
package view

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"htmlns/namespace"
)

// Template is anything renderer can execute.
type Template interface {
	// Key is logical path of the template, e.g. "users/show".
	Key() string
	// Format is output format, e.g. "html".
	Format() string
	Execute(w io.Writer, vc *Context, data any) error
}

// ExceptionHandler decides what to do when rendered output cannot be
// namespaced. Returned error is propagated to the caller of Render, nil
// means un-namespaced output is used.
type ExceptionHandler func(err error, tmpl Template, vc *Context) error

// Options are shared by all renders.
type Options struct {
	// Resolver maps template key to namespace, namespace.FromPath if nil.
	Resolver namespace.Resolver
	// OnError is called for badly-formed output, Raise if nil.
	OnError ExceptionHandler
	// Formats lists template formats which get namespace, "html" if empty.
	Formats []string
	// TrackRendered makes renderer record keys of rendered templates in
	// view context, asset helpers need them.
	TrackRendered bool
}

// Raise returns err unchanged.
func Raise(err error, _ Template, _ *Context) error {
	return err
}

// Ignore drops err.
func Ignore(error, Template, *Context) error {
	return nil
}

// LogAndContinue returns handler which reports err as warning and lets
// rendering continue.
func LogAndContinue(log *zap.Logger) ExceptionHandler {
	return func(err error, tmpl Template, vc *Context) error {
		log.Warn("Unable to namespace rendered template, using it as is",
			zap.String("template", tmpl.Key()), zap.Stringer("view", vc.ID), zap.Error(err))
		return nil
	}
}

// Policy returns handler by its configuration name: raise, log or ignore.
func Policy(name string, log *zap.Logger) (ExceptionHandler, error) {
	switch strings.ToLower(name) {
	case "", "raise":
		return Raise, nil
	case "log":
		return LogAndContinue(log), nil
	case "ignore":
		return Ignore, nil
	}
	return nil, fmt.Errorf("unknown error policy %q", name)
}

// Renderer executes templates and namespaces their output.
type Renderer struct {
	opts Options
	log  *zap.Logger
}

func NewRenderer(opts Options, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Resolver == nil {
		opts.Resolver = namespace.FromPath
	}
	if opts.OnError == nil {
		opts.OnError = Raise
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{"html"}
	} else {
		opts.Formats = slices.Clone(opts.Formats)
	}
	return &Renderer{opts: opts, log: log.Named("view")}
}

// Namespace returns namespace of the template, empty when its format is
// not namespaced.
func (r *Renderer) Namespace(tmpl Template) string {
	if !slices.Contains(r.opts.Formats, tmpl.Format()) {
		return ""
	}
	return r.opts.Resolver(tmpl.Key())
}

// Render executes tmpl with data and adds namespace to the result.
func (r *Renderer) Render(vc *Context, tmpl Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, vc, data); err != nil {
		return "", fmt.Errorf("unable to render %s: %w", tmpl.Key(), err)
	}
	out := sb.String()

	if r.opts.TrackRendered {
		vc.record(tmpl.Key())
	}

	ns := r.Namespace(tmpl)
	if len(ns) == 0 {
		return out, nil
	}

	res, err := namespace.AddNamespace(out, ns)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, namespace.ErrMalformed) {
		return "", err
	}

	r.log.Debug("Rendered output is badly-formed", zap.String("template", tmpl.Key()), zap.String("namespace", ns), zap.Error(err))
	if err := r.opts.OnError(err, tmpl, vc); err != nil {
		return "", fmt.Errorf("unable to namespace %s: %w", tmpl.Key(), err)
	}
	return out, nil
}
