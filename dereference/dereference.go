// Package dereference resolves the named pipeline references of a pipeline
// into a single self-contained step sequence.
package dereference

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
)

// rootVertex stands for the anonymous pipeline being dereferenced.
const rootVertex = "\x00root"

// Dereference replaces every named reference of p (domain steps, append
// pipelines and join right pipelines) with the fully dereferenced pipeline
// registered under that name in scope.
//
// A domain step naming a scope entry is spliced: its steps take the place of
// the domain step. Append and join references become inline pipelines.
// A name missing from scope is a terminal source (a backend collection): a
// domain step keeps it, and an append or join reference becomes the one-step
// pipeline [{domain: name}]. No error is raised for unknown names.
//
// References forming a cycle return ErrCyclicReference. Neither p nor scope
// is modified.
func Dereference(p pipeline.Pipeline, scope pipeline.Scope) (pipeline.Pipeline, error) {
	r := newResolver(scope)

	return r.resolvePipeline(rootVertex, p)
}

// Dependencies returns the names of the scope pipelines p depends on,
// directly or transitively, dependencies first.
func Dependencies(p pipeline.Pipeline, scope pipeline.Scope) ([]string, error) {
	r := newResolver(scope)
	if _, err := r.resolvePipeline(rootVertex, p); err != nil {
		return nil, err
	}

	order, err := graph.StableTopologicalSort(r.graph, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipequery.ErrCyclicReference, err)
	}

	names := make([]string, 0, len(order))
	for _, name := range order {
		if name != rootVertex {
			names = append(names, name)
		}
	}

	slices.Reverse(names)

	return names, nil
}

type resolver struct {
	scope    pipeline.Scope
	graph    graph.Graph[string, string]
	resolved map[string]pipeline.Pipeline
}

func newResolver(scope pipeline.Scope) *resolver {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	_ = g.AddVertex(rootVertex)

	return &resolver{
		scope:    scope,
		graph:    g,
		resolved: map[string]pipeline.Pipeline{},
	}
}

// resolvePipeline dereferences p, whose references are owned by the vertex owner.
func (r *resolver) resolvePipeline(owner string, p pipeline.Pipeline) (pipeline.Pipeline, error) {
	result := make(pipeline.Pipeline, 0, len(p))

	for i, step := range p {
		switch s := step.(type) {
		case *pipeline.DomainStep:
			sub, ok, err := r.resolveName(owner, s.Domain)
			if err != nil {
				return nil, err
			}

			if !ok {
				result = append(result, &pipeline.DomainStep{Domain: s.Domain})
				continue
			}

			result = append(result, sub...)
		case *pipeline.AppendStep:
			refs := make([]pipeline.Reference, 0, len(s.Pipelines))

			for j, ref := range s.Pipelines {
				resolved, err := r.resolveReference(owner, ref)
				if err != nil {
					return nil, fmt.Errorf("step #%d append pipeline #%d: %w", i, j, err)
				}

				refs = append(refs, resolved)
			}

			result = append(result, &pipeline.AppendStep{Pipelines: refs})
		case *pipeline.JoinStep:
			resolved, err := r.resolveReference(owner, s.RightPipeline)
			if err != nil {
				return nil, fmt.Errorf("step #%d join: %w", i, err)
			}

			joined := pipeline.Clone(s).(*pipeline.JoinStep)
			joined.RightPipeline = resolved
			result = append(result, joined)
		default:
			result = append(result, pipeline.Clone(step))
		}
	}

	return result, nil
}

func (r *resolver) resolveReference(owner string, ref pipeline.Reference) (pipeline.Reference, error) {
	if ref.IsInline() {
		sub, err := r.resolvePipeline(owner, ref.Pipeline)
		if err != nil {
			return pipeline.Reference{}, err
		}

		return pipeline.InlineRef(sub), nil
	}

	sub, ok, err := r.resolveName(owner, ref.Name)
	if err != nil {
		return pipeline.Reference{}, err
	}

	if !ok {
		return pipeline.InlineRef(pipeline.Pipeline{&pipeline.DomainStep{Domain: ref.Name}}), nil
	}

	return pipeline.InlineRef(sub), nil
}

// resolveName returns a fresh copy of the dereferenced pipeline registered as
// name. ok is false when scope has no such pipeline.
func (r *resolver) resolveName(owner, name string) (pipeline.Pipeline, bool, error) {
	target, ok := r.scope[name]
	if !ok {
		return nil, false, nil
	}

	if err := r.link(owner, name); err != nil {
		return nil, false, err
	}

	if cached, ok := r.resolved[name]; ok {
		return cached.Clone(), true, nil
	}

	resolved, err := r.resolvePipeline(name, target)
	if err != nil {
		return nil, false, err
	}

	r.resolved[name] = resolved

	return resolved.Clone(), true, nil
}

// link records the owner -> name edge, failing when it closes a cycle.
func (r *resolver) link(owner, name string) error {
	if owner == name {
		return fmt.Errorf("%w: %s -> %s", pipequery.ErrCyclicReference, name, name)
	}

	if err := r.graph.AddVertex(name); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}

	err := r.graph.AddEdge(owner, name)

	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		path, pathErr := graph.ShortestPath(r.graph, name, owner)
		if pathErr != nil {
			return fmt.Errorf("%w: %s -> %s", pipequery.ErrCyclicReference, owner, name)
		}

		return fmt.Errorf("%w: %s", pipequery.ErrCyclicReference, strings.Join(append([]string{owner}, path...), " -> "))
	default:
		return err
	}
}
