package interpolate

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
)

// upperRender marks rendered strings so tests can tell what went through render.
func upperRender(template string, _ Scope) (any, error) {
	return strings.ToUpper(template), nil
}

func TestInterpolate_TemplatedFields(t *testing.T) {
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "sales"},
		&pipeline.FormulaStep{NewColumn: "x", Formula: "a + b"},
		&pipeline.FillnaStep{Columns: []string{"a"}, Value: "zero"},
		&pipeline.FillnaStep{Columns: []string{"b"}, Value: 0},
		&pipeline.TextStep{NewColumn: "label", Text: "hello"},
		&pipeline.ReplaceStep{SearchColumn: "c", ToReplace: [][2]any{{"old", "new"}, {1, "one"}}},
		&pipeline.FilterStep{Condition: &pipeline.OrCondition{Or: []pipeline.Condition{
			&pipeline.SimpleCondition{Column: "c", Operator: pipeline.OperatorIn, Value: []any{"fr", 3, "de"}},
			&pipeline.AndCondition{And: []pipeline.Condition{
				&pipeline.SimpleCondition{Column: "d", Operator: pipeline.OperatorEq, Value: "x"},
				&pipeline.SimpleCondition{Column: "e", Operator: pipeline.OperatorGt, Value: 2.5},
			}},
		}}},
		&pipeline.SelectStep{Columns: []string{"keep"}},
	}

	got, err := Interpolate(p, nil, upperRender)
	assert.NoError(t, err)

	expected := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "sales"},
		&pipeline.FormulaStep{NewColumn: "x", Formula: "A + B"},
		&pipeline.FillnaStep{Columns: []string{"a"}, Value: "ZERO"},
		&pipeline.FillnaStep{Columns: []string{"b"}, Value: 0},
		&pipeline.TextStep{NewColumn: "label", Text: "HELLO"},
		&pipeline.ReplaceStep{SearchColumn: "c", ToReplace: [][2]any{{"OLD", "NEW"}, {1, "ONE"}}},
		&pipeline.FilterStep{Condition: &pipeline.OrCondition{Or: []pipeline.Condition{
			&pipeline.SimpleCondition{Column: "c", Operator: pipeline.OperatorIn, Value: []any{"FR", 3, "DE"}},
			&pipeline.AndCondition{And: []pipeline.Condition{
				&pipeline.SimpleCondition{Column: "d", Operator: pipeline.OperatorEq, Value: "X"},
				&pipeline.SimpleCondition{Column: "e", Operator: pipeline.OperatorGt, Value: 2.5},
			}},
		}}},
		&pipeline.SelectStep{Columns: []string{"keep"}},
	}
	assert.Equal(t, expected, got)

	// the input is left alone
	assert.Equal(t, any("a + b"), p[1].(*pipeline.FormulaStep).Formula)
}

func TestInterpolate_IfThenElse(t *testing.T) {
	step := &pipeline.IfThenElseStep{
		NewColumn: "size",
		IfThenElse: pipeline.IfThenElse{
			If:   &pipeline.SimpleCondition{Column: "n", Operator: pipeline.OperatorGt, Value: "big"},
			Then: "large",
			Else: &pipeline.IfThenElse{
				If:   &pipeline.SimpleCondition{Column: "n", Operator: pipeline.OperatorGt, Value: 10},
				Then: 1,
				Else: "small",
			},
		},
	}

	got, err := Interpolate(pipeline.Pipeline{step}, nil, upperRender)
	assert.NoError(t, err)

	result := got[0].(*pipeline.IfThenElseStep)
	assert.Equal(t, "size", result.NewColumn)
	assert.Equal(t, any("BIG"), result.If.(*pipeline.SimpleCondition).Value)
	assert.Equal(t, any("LARGE"), result.Then)

	nested, ok := result.ElseBranch()
	assert.True(t, ok)
	assert.Equal(t, any(10), nested.If.(*pipeline.SimpleCondition).Value)
	assert.Equal(t, any(1), nested.Then)
	assert.Equal(t, any("SMALL"), nested.Else)
}

func TestInterpolate_TopLimit(t *testing.T) {
	t.Run("numeric limit is not rendered", func(t *testing.T) {
		calls := 0
		render := func(template string, scope Scope) (any, error) {
			calls++
			return template, nil
		}

		got, err := Interpolate(pipeline.Pipeline{&pipeline.TopStep{RankOn: "x", Sort: pipeline.SortDesc, Limit: 5}}, nil, render)
		assert.NoError(t, err)
		assert.Equal(t, 0, calls)
		assert.Equal(t, any(5), got[0].(*pipeline.TopStep).Limit)
	})

	t.Run("templated limit is rendered then coerced", func(t *testing.T) {
		renderer := TemplateRenderer{}
		got, err := Interpolate(pipeline.Pipeline{&pipeline.TopStep{RankOn: "x", Limit: "{{ n }}"}}, Scope{"n": "7"}, renderer.Render)
		assert.NoError(t, err)
		assert.Equal(t, any(int64(7)), got[0].(*pipeline.TopStep).Limit)
	})

	t.Run("non numeric limit fails", func(t *testing.T) {
		_, err := Interpolate(pipeline.Pipeline{&pipeline.TopStep{RankOn: "x", Limit: "many"}}, nil, upperRender)
		assert.IsError(t, err, pipequery.ErrInvalidNumber)
	})
}

func TestInterpolate_InlinePipelines(t *testing.T) {
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "a"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{
			pipeline.NameRef("named"),
			pipeline.InlineRef(pipeline.Pipeline{&pipeline.TextStep{NewColumn: "t", Text: "x"}}),
		}},
		&pipeline.JoinStep{
			RightPipeline: pipeline.InlineRef(pipeline.Pipeline{&pipeline.TextStep{NewColumn: "t", Text: "y"}}),
			Type:          pipeline.JoinLeft,
		},
	}

	got, err := Interpolate(p, nil, upperRender)
	assert.NoError(t, err)

	appended := got[1].(*pipeline.AppendStep)
	assert.Equal(t, "named", appended.Pipelines[0].Name)
	assert.Equal(t, any("X"), appended.Pipelines[1].Pipeline[0].(*pipeline.TextStep).Text)

	joined := got[2].(*pipeline.JoinStep)
	assert.Equal(t, any("Y"), joined.RightPipeline.Pipeline[0].(*pipeline.TextStep).Text)
}

func TestInterpolate_RenderErrorNamesStep(t *testing.T) {
	failing := func(string, Scope) (any, error) { return nil, errors.New("boom") }

	_, err := Interpolate(pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "a"},
		&pipeline.TextStep{NewColumn: "t", Text: "x"},
	}, nil, failing)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "step #1 (text)")
}

func TestInterpolate_HandlesEveryStepKind(t *testing.T) {
	for _, name := range pipeline.StepNames() {
		t.Run(string(name), func(t *testing.T) {
			step, err := pipeline.NewStep(name)
			assert.NoError(t, err)

			_, err = Interpolate(pipeline.Pipeline{step}, nil, upperRender)
			assert.False(t, errors.Is(err, pipequery.ErrUnsupportedStep))
		})
	}
}
