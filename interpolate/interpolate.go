// Package interpolate substitutes template expressions embedded in step
// parameters with values computed from a variable scope.
package interpolate

import (
	"fmt"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/valuecast"
)

// Scope maps variable names to values. It is only read.
type Scope map[string]any

// RenderFunc renders one templated string against a scope.
type RenderFunc func(template string, scope Scope) (any, error)

// Interpolate returns a copy of p where the templated parameters of every
// step have been rendered. Only string values are passed to render; values
// that are already typed are copied untouched, so interpolating an already
// interpolated pipeline is a no-op.
//
// Inline pipelines of append and join steps are interpolated too.
func Interpolate(p pipeline.Pipeline, scope Scope, render RenderFunc) (pipeline.Pipeline, error) {
	in := &interpolator{scope: scope, render: render}

	return in.pipeline(p)
}

type interpolator struct {
	scope  Scope
	render RenderFunc
}

func (in *interpolator) pipeline(p pipeline.Pipeline) (pipeline.Pipeline, error) {
	result := make(pipeline.Pipeline, 0, len(p))

	for i, step := range p {
		interpolated, err := in.step(step)
		if err != nil {
			return nil, fmt.Errorf("step #%d (%s): %w", i, step.StepName(), err)
		}

		result = append(result, interpolated)
	}

	return result, nil
}

func (in *interpolator) step(step pipeline.Step) (pipeline.Step, error) {
	switch s := step.(type) {
	case *pipeline.FilterStep:
		cond, err := in.condition(s.Condition)
		if err != nil {
			return nil, err
		}

		return &pipeline.FilterStep{Condition: cond}, nil
	case *pipeline.FormulaStep:
		formula, err := in.value(s.Formula)
		if err != nil {
			return nil, err
		}

		return &pipeline.FormulaStep{NewColumn: s.NewColumn, Formula: formula}, nil
	case *pipeline.FillnaStep:
		value, err := in.value(s.Value)
		if err != nil {
			return nil, err
		}

		c := pipeline.Clone(s).(*pipeline.FillnaStep)
		c.Value = value

		return c, nil
	case *pipeline.TextStep:
		text, err := in.value(s.Text)
		if err != nil {
			return nil, err
		}

		return &pipeline.TextStep{NewColumn: s.NewColumn, Text: text}, nil
	case *pipeline.ReplaceStep:
		c := pipeline.Clone(s).(*pipeline.ReplaceStep)
		for i, pair := range s.ToReplace {
			for j := range pair {
				v, err := in.value(pair[j])
				if err != nil {
					return nil, fmt.Errorf("to_replace #%d: %w", i, err)
				}

				c.ToReplace[i][j] = v
			}
		}

		return c, nil
	case *pipeline.TopStep:
		limit := s.Limit
		if _, ok := limit.(string); ok {
			rendered, err := in.value(limit)
			if err != nil {
				return nil, err
			}

			limit = rendered
		}

		number, err := valuecast.ToNumber(limit)
		if err != nil {
			return nil, fmt.Errorf("limit: %w", err)
		}

		c := pipeline.Clone(s).(*pipeline.TopStep)
		c.Limit = number

		return c, nil
	case *pipeline.IfThenElseStep:
		branch, err := in.ifThenElse(&s.IfThenElse)
		if err != nil {
			return nil, err
		}

		return &pipeline.IfThenElseStep{NewColumn: s.NewColumn, IfThenElse: *branch}, nil
	case *pipeline.AppendStep:
		refs := make([]pipeline.Reference, 0, len(s.Pipelines))

		for _, ref := range s.Pipelines {
			r, err := in.reference(ref)
			if err != nil {
				return nil, err
			}

			refs = append(refs, r)
		}

		return &pipeline.AppendStep{Pipelines: refs}, nil
	case *pipeline.JoinStep:
		ref, err := in.reference(s.RightPipeline)
		if err != nil {
			return nil, err
		}

		c := pipeline.Clone(s).(*pipeline.JoinStep)
		c.RightPipeline = ref

		return c, nil
	case *pipeline.DomainStep, *pipeline.DateExtractStep, *pipeline.SelectStep,
		*pipeline.DeleteStep, *pipeline.RenameStep, *pipeline.SortStep,
		*pipeline.AggregateStep, *pipeline.ArgmaxStep, *pipeline.ArgminStep,
		*pipeline.LowercaseStep, *pipeline.UppercaseStep, *pipeline.ConcatenateStep,
		*pipeline.DuplicateStep, *pipeline.UniqueGroupsStep, *pipeline.ToDateStep,
		*pipeline.FromDateStep, *pipeline.SubstringStep, *pipeline.TrimStep,
		*pipeline.PercentageStep, *pipeline.CumSumStep, *pipeline.ConvertStep,
		*pipeline.CompareTextStep, *pipeline.CustomStep:
		return pipeline.Clone(step), nil
	default:
		return nil, fmt.Errorf("%w: %s", pipequery.ErrUnsupportedStep, step.StepName())
	}
}

func (in *interpolator) reference(ref pipeline.Reference) (pipeline.Reference, error) {
	if !ref.IsInline() {
		return ref.Clone(), nil
	}

	p, err := in.pipeline(ref.Pipeline)
	if err != nil {
		return pipeline.Reference{}, err
	}

	return pipeline.InlineRef(p), nil
}

func (in *interpolator) ifThenElse(b *pipeline.IfThenElse) (*pipeline.IfThenElse, error) {
	cond, err := in.condition(b.If)
	if err != nil {
		return nil, err
	}

	then, err := in.value(b.Then)
	if err != nil {
		return nil, err
	}

	result := &pipeline.IfThenElse{If: cond, Then: then}

	if nested, ok := b.ElseBranch(); ok {
		elseBranch, err := in.ifThenElse(nested)
		if err != nil {
			return nil, err
		}

		result.Else = elseBranch

		return result, nil
	}

	result.Else, err = in.value(b.Else)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (in *interpolator) condition(c pipeline.Condition) (pipeline.Condition, error) {
	switch cond := c.(type) {
	case nil:
		return nil, nil
	case *pipeline.AndCondition:
		children, err := in.conditions(cond.And)
		if err != nil {
			return nil, err
		}

		return &pipeline.AndCondition{And: children}, nil
	case *pipeline.OrCondition:
		children, err := in.conditions(cond.Or)
		if err != nil {
			return nil, err
		}

		return &pipeline.OrCondition{Or: children}, nil
	case *pipeline.SimpleCondition:
		value, err := in.conditionValue(cond.Value)
		if err != nil {
			return nil, fmt.Errorf("condition on '%s': %w", cond.Column, err)
		}

		return &pipeline.SimpleCondition{Column: cond.Column, Operator: cond.Operator, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: %T", pipequery.ErrInvalidCondition, c)
	}
}

func (in *interpolator) conditions(children []pipeline.Condition) ([]pipeline.Condition, error) {
	if children == nil {
		return nil, nil
	}

	result := make([]pipeline.Condition, 0, len(children))

	for _, child := range children {
		c, err := in.condition(child)
		if err != nil {
			return nil, err
		}

		result = append(result, c)
	}

	return result, nil
}

// conditionValue renders a condition value; list values (in, nin) element by element.
func (in *interpolator) conditionValue(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return in.value(v)
	}

	result := make([]any, 0, len(list))

	for _, elem := range list {
		rendered, err := in.value(elem)
		if err != nil {
			return nil, err
		}

		result = append(result, rendered)
	}

	return result, nil
}

func (in *interpolator) value(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return pipeline.CloneValue(v), nil
	}

	return in.render(s, in.scope)
}
