package dereference

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/testhelper"
)

func priceFilter(op pipeline.Operator, value any) *pipeline.FilterStep {
	return &pipeline.FilterStep{Condition: &pipeline.SimpleCondition{Column: "Price", Operator: op, Value: value}}
}

func TestDereference_SplicesDomainAndAppend(t *testing.T) {
	scope := pipeline.Scope{
		"toto": {
			&pipeline.DomainStep{Domain: "dataset1"},
			priceFilter(pipeline.OperatorLe, 10),
		},
		"dataset2": {
			&pipeline.DomainStep{Domain: "toto"},
			priceFilter(pipeline.OperatorGe, 1200),
		},
	}
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "dataset2"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("toto")}},
	}

	got, err := Dereference(p, scope)
	assert.NoError(t, err)

	expected := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "dataset1"},
		priceFilter(pipeline.OperatorLe, 10),
		priceFilter(pipeline.OperatorGe, 1200),
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{
			pipeline.InlineRef(pipeline.Pipeline{
				&pipeline.DomainStep{Domain: "dataset1"},
				priceFilter(pipeline.OperatorLe, 10),
			}),
		}},
	}
	assert.Equal(t, expected, got)
}

func TestDereference_FromYAMLFixtures(t *testing.T) {
	scope := testhelper.LoadScopeYAML(t, `
		sales:
		  - name: domain
		    domain: raw_sales
		  - name: filter
		    condition:
		      column: Year
		      operator: eq
		      value: 2024
		countries:
		  - name: domain
		    domain: raw_countries
		`)
	p := testhelper.LoadPipelineYAML(t, `
		- name: domain
		  domain: sales
		- name: join
		  right_pipeline: countries
		  type: left
		  on:
		    - [Country, Code]
		`)

	got, err := Dereference(p, scope)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(got))
	assert.Equal(t, pipeline.Step(&pipeline.DomainStep{Domain: "raw_sales"}), got[0])

	join, ok := got[2].(*pipeline.JoinStep)
	assert.True(t, ok)
	assert.True(t, join.RightPipeline.IsInline())
	assert.Equal(t, pipeline.Pipeline{&pipeline.DomainStep{Domain: "raw_countries"}}, join.RightPipeline.Pipeline)
	assert.Equal(t, [][2]string{{"Country", "Code"}}, join.On)
}

func TestDereference_PassThroughWithoutReferences(t *testing.T) {
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "collection"},
		priceFilter(pipeline.OperatorLt, 5),
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{
			pipeline.InlineRef(pipeline.Pipeline{&pipeline.DomainStep{Domain: "other"}}),
		}},
		&pipeline.SortStep{Columns: []pipeline.SortColumn{{Column: "Price", Order: pipeline.SortAsc}}},
	}

	got, err := Dereference(p, pipeline.Scope{})
	assert.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDereference_UnknownNamesAreTerminalSources(t *testing.T) {
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "collection"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("other")}},
		&pipeline.JoinStep{RightPipeline: pipeline.NameRef("third"), Type: pipeline.JoinInner, On: [][2]string{{"a", "b"}}},
	}

	got, err := Dereference(p, nil)
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "collection"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{
			pipeline.InlineRef(pipeline.Pipeline{&pipeline.DomainStep{Domain: "other"}}),
		}},
		&pipeline.JoinStep{
			RightPipeline: pipeline.InlineRef(pipeline.Pipeline{&pipeline.DomainStep{Domain: "third"}}),
			Type:          pipeline.JoinInner,
			On:            [][2]string{{"a", "b"}},
		},
	}, got)
}

func TestDereference_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		scope pipeline.Scope
		root  pipeline.Pipeline
		path  []string
	}{
		{
			name:  "self reference",
			scope: pipeline.Scope{"a": {&pipeline.DomainStep{Domain: "a"}}},
			root:  pipeline.Pipeline{&pipeline.DomainStep{Domain: "a"}},
			path:  []string{"a -> a"},
		},
		{
			name: "mutual domain references",
			scope: pipeline.Scope{
				"a": {&pipeline.DomainStep{Domain: "b"}},
				"b": {&pipeline.DomainStep{Domain: "a"}},
			},
			root: pipeline.Pipeline{&pipeline.DomainStep{Domain: "a"}},
			path: []string{"a -> b", "b -> a"},
		},
		{
			name: "cycle through append",
			scope: pipeline.Scope{
				"a": {
					&pipeline.DomainStep{Domain: "x"},
					&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("b")}},
				},
				"b": {&pipeline.DomainStep{Domain: "a"}},
			},
			root: pipeline.Pipeline{&pipeline.DomainStep{Domain: "a"}},
			path: []string{"a -> b", "b -> a"},
		},
		{
			name: "cycle through inline join pipeline",
			scope: pipeline.Scope{
				"a": {
					&pipeline.DomainStep{Domain: "x"},
					&pipeline.JoinStep{
						RightPipeline: pipeline.InlineRef(pipeline.Pipeline{&pipeline.DomainStep{Domain: "c"}}),
						Type:          pipeline.JoinLeft,
					},
				},
				"c": {&pipeline.DomainStep{Domain: "a"}},
			},
			root: pipeline.Pipeline{
				&pipeline.DomainStep{Domain: "x"},
				&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("a")}},
			},
			path: []string{"a -> c", "c -> a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dereference(tt.root, tt.scope)
			assert.IsError(t, err, pipequery.ErrCyclicReference)

			for _, segment := range tt.path {
				assert.Contains(t, err.Error(), segment)
			}

			_, err = Dependencies(tt.root, tt.scope)
			assert.IsError(t, err, pipequery.ErrCyclicReference)
		})
	}
}

func TestDereference_DiamondIsNotACycle(t *testing.T) {
	scope := pipeline.Scope{
		"base": {&pipeline.DomainStep{Domain: "raw"}, priceFilter(pipeline.OperatorGt, 0)},
		"left": {&pipeline.DomainStep{Domain: "base"}},
		"right": {
			&pipeline.DomainStep{Domain: "base"},
			&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("base"), pipeline.NameRef("base")}},
		},
	}
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "left"},
		&pipeline.JoinStep{RightPipeline: pipeline.NameRef("right"), Type: pipeline.JoinInner},
	}

	got, err := Dereference(p, scope)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(got))

	join := got[2].(*pipeline.JoinStep)
	appended := join.RightPipeline.Pipeline[2].(*pipeline.AppendStep)
	assert.Equal(t, appended.Pipelines[0], appended.Pipelines[1])

	// memoised results are copied on every use
	appended.Pipelines[0].Pipeline[0].(*pipeline.DomainStep).Domain = "changed"
	assert.Equal(t, pipeline.Step(&pipeline.DomainStep{Domain: "raw"}), appended.Pipelines[1].Pipeline[0])
	assert.Equal(t, pipeline.Step(&pipeline.DomainStep{Domain: "raw"}), got[0])
}

func TestDereference_DoesNotModifyInputs(t *testing.T) {
	scope := pipeline.Scope{
		"toto": {&pipeline.DomainStep{Domain: "dataset1"}, priceFilter(pipeline.OperatorLe, 10)},
	}
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "toto"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("toto")}},
	}
	scopeBefore := pipeline.Scope{"toto": scope["toto"].Clone()}
	pBefore := p.Clone()

	got, err := Dereference(p, scope)
	assert.NoError(t, err)

	got[1].(*pipeline.FilterStep).Condition.(*pipeline.SimpleCondition).Value = 99

	assert.Equal(t, pBefore, p)
	assert.Equal(t, scopeBefore, scope)
}

func TestDependencies(t *testing.T) {
	scope := pipeline.Scope{
		"base":   {&pipeline.DomainStep{Domain: "raw"}},
		"middle": {&pipeline.DomainStep{Domain: "base"}},
		"extra":  {&pipeline.DomainStep{Domain: "raw2"}},
		"unused": {&pipeline.DomainStep{Domain: "base"}},
	}
	p := pipeline.Pipeline{
		&pipeline.DomainStep{Domain: "middle"},
		&pipeline.AppendStep{Pipelines: []pipeline.Reference{pipeline.NameRef("extra"), pipeline.NameRef("nowhere")}},
	}

	deps, err := Dependencies(p, scope)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(deps))
	assert.True(t, indexOf(deps, "base") < indexOf(deps, "middle"))
	assert.NotEqual(t, -1, indexOf(deps, "extra"))
	assert.Equal(t, -1, indexOf(deps, "unused"))
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}

	return -1
}
