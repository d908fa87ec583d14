package conditiontree

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/valuecast"
)

func eq(column string, value any) *pipeline.SimpleCondition {
	return &pipeline.SimpleCondition{Column: column, Operator: pipeline.OperatorEq, Value: value}
}

func TestToEditableTree(t *testing.T) {
	colA, colB, colC := eq("columnA", "true"), eq("columnB", "true"), eq("columnC", "true")

	cond := &pipeline.AndCondition{And: []pipeline.Condition{
		colA,
		colB,
		&pipeline.OrCondition{Or: []pipeline.Condition{colC}},
	}}

	expected := Tree{
		Operator:   OperatorAnd,
		Conditions: []*pipeline.SimpleCondition{colA, colB},
		Groups: []Tree{
			{Operator: OperatorOr, Conditions: []*pipeline.SimpleCondition{colC}, Groups: []Tree{}},
		},
	}

	assert.Equal(t, expected, ToEditableTree(cond))
}

func TestToEditableTree_SimpleCondition(t *testing.T) {
	c := eq("a", 1)
	tree := ToEditableTree(c)
	assert.Equal(t, Tree{Operator: OperatorNone, Conditions: []*pipeline.SimpleCondition{c}, Groups: []Tree{}}, tree)

	// the tree does not share the input condition
	tree.Conditions[0].Value = 2
	assert.Equal(t, any(1), c.Value)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cond pipeline.Condition
	}{
		{"simple", eq("a", 1)},
		{"flat and", &pipeline.AndCondition{And: []pipeline.Condition{eq("a", 1), eq("b", 2)}}},
		{"or with nested and", &pipeline.OrCondition{Or: []pipeline.Condition{
			eq("a", 1),
			&pipeline.AndCondition{And: []pipeline.Condition{eq("b", 2), eq("c", 3)}},
		}}},
		{"deeper than the editor", &pipeline.AndCondition{And: []pipeline.Condition{
			eq("a", 1),
			&pipeline.OrCondition{Or: []pipeline.Condition{
				eq("b", 2),
				&pipeline.AndCondition{And: []pipeline.Condition{
					eq("c", 3),
					&pipeline.OrCondition{Or: []pipeline.Condition{eq("d", 4)}},
				}},
			}},
		}}},
		{"in operator with list", &pipeline.AndCondition{And: []pipeline.Condition{
			&pipeline.SimpleCondition{Column: "c", Operator: pipeline.OperatorIn, Value: []any{"FR", "DE"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			back, err := ToConditionTree(ToEditableTree(tt.cond))
			assert.NoError(t, err)
			assert.Equal(t, tt.cond, back)
		})
	}
}

func TestToConditionTree_SimpleBeforeGroups(t *testing.T) {
	// combinator children move after simple ones
	cond := &pipeline.AndCondition{And: []pipeline.Condition{
		&pipeline.OrCondition{Or: []pipeline.Condition{eq("a", 1)}},
		eq("b", 2),
	}}

	back, err := ToConditionTree(ToEditableTree(cond))
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Condition(&pipeline.AndCondition{And: []pipeline.Condition{
		eq("b", 2),
		&pipeline.OrCondition{Or: []pipeline.Condition{eq("a", 1)}},
	}}), back)
}

func TestToConditionTree_Malformed(t *testing.T) {
	tests := []struct {
		name string
		tree Tree
	}{
		{"no operator and no condition", Tree{}},
		{"no operator and two conditions", Tree{Conditions: []*pipeline.SimpleCondition{eq("a", 1), eq("b", 2)}}},
		{"no operator with a group", Tree{
			Conditions: []*pipeline.SimpleCondition{eq("a", 1)},
			Groups:     []Tree{{Operator: OperatorAnd, Conditions: []*pipeline.SimpleCondition{eq("b", 2)}}},
		}},
		{"unknown operator", Tree{Operator: "xor", Conditions: []*pipeline.SimpleCondition{eq("a", 1)}}},
		{"malformed nested group", Tree{
			Operator: OperatorOr,
			Groups:   []Tree{{Operator: OperatorNone}},
		}},
		{"nil condition", Tree{Operator: OperatorAnd, Conditions: []*pipeline.SimpleCondition{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToConditionTree(tt.tree)
			assert.IsError(t, err, pipequery.ErrMalformedConditionTree)
		})
	}
}

func TestDepthAndValidateEditable(t *testing.T) {
	leaf := ToEditableTree(eq("a", 1))
	assert.Equal(t, 0, leaf.Depth())
	assert.NoError(t, ValidateEditable(leaf))

	two := ToEditableTree(&pipeline.AndCondition{And: []pipeline.Condition{
		eq("a", 1),
		&pipeline.OrCondition{Or: []pipeline.Condition{eq("b", 2)}},
	}})
	assert.Equal(t, 2, two.Depth())
	assert.NoError(t, ValidateEditable(two))

	three := ToEditableTree(&pipeline.AndCondition{And: []pipeline.Condition{
		&pipeline.OrCondition{Or: []pipeline.Condition{
			&pipeline.AndCondition{And: []pipeline.Condition{eq("b", 2)}},
		}},
	}})
	assert.Equal(t, 3, three.Depth())
	assert.IsError(t, ValidateEditable(three), pipequery.ErrTreeTooDeep)
}

func TestCastValues(t *testing.T) {
	types := ColumnTypes{
		"age":     valuecast.TypeInteger,
		"price":   valuecast.TypeFloat,
		"active":  valuecast.TypeBoolean,
		"created": valuecast.TypeDate,
		"name":    valuecast.TypeString,
	}

	cond := &pipeline.AndCondition{And: []pipeline.Condition{
		eq("age", "42"),
		&pipeline.SimpleCondition{Column: "price", Operator: pipeline.OperatorIn, Value: []any{"1.5", 2, "x"}},
		&pipeline.OrCondition{Or: []pipeline.Condition{
			eq("active", "true"),
			eq("created", "2024-01-31"),
		}},
		eq("name", "42"),
		eq("unknown", "42"),
		eq("age", "{{ age }}"),
		eq("age", 7),
	}}

	got := CastValues(cond, types)

	expected := &pipeline.AndCondition{And: []pipeline.Condition{
		eq("age", int64(42)),
		&pipeline.SimpleCondition{Column: "price", Operator: pipeline.OperatorIn, Value: []any{1.5, 2, "x"}},
		&pipeline.OrCondition{Or: []pipeline.Condition{
			eq("active", true),
			eq("created", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
		}},
		eq("name", "42"),
		eq("unknown", "42"),
		eq("age", "{{ age }}"),
		eq("age", 7),
	}}
	assert.Equal(t, pipeline.Condition(expected), got)

	// the input keeps its string values
	assert.Equal(t, []any{"1.5", 2, "x"}, cond.And[1].(*pipeline.SimpleCondition).Value.([]any))
}
