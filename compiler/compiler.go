// Package compiler chains dereferencing, interpolation and translation into
// a single compilation of pipelines into MongoDB aggregation queries.
package compiler

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/dereference"
	"github.com/shibukawa/pipequery/interpolate"
	"github.com/shibukawa/pipequery/mongo"
	"github.com/shibukawa/pipequery/pipeline"
	"golang.org/x/sync/errgroup"
)

// Compiler compiles pipelines. It holds no state besides its options and is
// safe for concurrent use.
type Compiler struct {
	backend     pipequery.Backend
	render      interpolate.RenderFunc
	simplify    bool
	concurrency int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithBackend selects the MongoDB version to compile for.
func WithBackend(backend pipequery.Backend) Option {
	return func(c *Compiler) {
		c.backend = backend
	}
}

// WithRenderer replaces the template renderer.
func WithRenderer(render interpolate.RenderFunc) Option {
	return func(c *Compiler) {
		c.render = render
	}
}

// WithDelimiters uses the CEL template renderer with the given delimiters.
func WithDelimiters(start, end string) Option {
	return func(c *Compiler) {
		c.render = interpolate.TemplateRenderer{Start: start, End: end}.Render
	}
}

// WithSimplify toggles merging of consecutive $match stages.
func WithSimplify(simplify bool) Option {
	return func(c *Compiler) {
		c.simplify = simplify
	}
}

// WithConcurrency limits the number of pipelines CompileAll compiles at once.
func WithConcurrency(n int) Option {
	return func(c *Compiler) {
		c.concurrency = n
	}
}

// New returns a compiler for the default backend using the CEL template
// renderer with "{{" and "}}" delimiters.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		backend:     pipequery.DefaultBackend,
		render:      interpolate.TemplateRenderer{}.Render,
		simplify:    true,
		concurrency: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FromConfig returns a compiler configured from cfg.
func FromConfig(cfg *pipequery.Config, opts ...Option) *Compiler {
	base := []Option{
		WithBackend(cfg.Backend),
		WithDelimiters(cfg.Template.Start, cfg.Template.End),
		WithSimplify(cfg.Output.SimplifyEnabled()),
	}

	return New(append(base, opts...)...)
}

// Compile resolves the references of p against pipelines, renders its
// templates with vars and translates the result.
func (c *Compiler) Compile(p pipeline.Pipeline, pipelines pipeline.Scope, vars interpolate.Scope) (*mongo.Query, error) {
	resolved, err := dereference.Dereference(p, pipelines)
	if err != nil {
		return nil, fmt.Errorf("dereference: %w", err)
	}

	rendered, err := interpolate.Interpolate(resolved, vars, c.render)
	if err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}

	translator := &mongo.Translator{Backend: c.backend, Simplify: c.simplify}

	q, err := translator.Translate(rendered)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	return q, nil
}

// CompileAll compiles every pipeline of scope concurrently. It stops at the
// first failure or when ctx is cancelled.
func (c *Compiler) CompileAll(ctx context.Context, scope pipeline.Scope, vars interpolate.Scope) (map[string]*mongo.Query, error) {
	names := make([]string, 0, len(scope))
	for name := range scope {
		names = append(names, name)
	}

	sort.Strings(names)

	var (
		mu      sync.Mutex
		results = make(map[string]*mongo.Query, len(scope))
	)

	errGrp, gCtx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		errGrp.SetLimit(c.concurrency)
	}

	for _, name := range names {
		errGrp.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			q, err := c.Compile(scope[name], scope, vars)
			if err != nil {
				return fmt.Errorf("pipeline '%s': %w", name, err)
			}

			mu.Lock()
			results[name] = q
			mu.Unlock()

			return nil
		})
	}

	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
