// Package conditiontree converts filter conditions to and from the grouped
// tree edited by the interactive condition editor.
package conditiontree

import (
	"fmt"

	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/valuecast"
)

// EditorMaxDepth is the number of nesting levels the condition editor displays.
const EditorMaxDepth = 2

// Operator combines the conditions and groups of a tree.
type Operator string

const (
	OperatorAnd  Operator = "and"
	OperatorOr   Operator = "or"
	OperatorNone Operator = ""
)

// Tree is the editable form of a condition. Simple conditions are listed
// before nested groups. A tree with no operator holds exactly one condition.
type Tree struct {
	Operator   Operator                    `json:"operator"`
	Conditions []*pipeline.SimpleCondition `json:"conditions"`
	Groups     []Tree                      `json:"groups"`
}

// ColumnTypes maps column names to their type.
type ColumnTypes map[string]valuecast.ColumnType

// ToEditableTree converts a condition into a tree. The order of simple and
// combinator children is kept within each partition.
func ToEditableTree(c pipeline.Condition) Tree {
	switch cond := c.(type) {
	case *pipeline.SimpleCondition:
		return Tree{
			Operator:   OperatorNone,
			Conditions: []*pipeline.SimpleCondition{cloneSimple(cond)},
			Groups:     []Tree{},
		}
	case *pipeline.AndCondition:
		return partition(OperatorAnd, cond.And)
	case *pipeline.OrCondition:
		return partition(OperatorOr, cond.Or)
	default:
		return Tree{Operator: OperatorNone, Conditions: []*pipeline.SimpleCondition{}, Groups: []Tree{}}
	}
}

func partition(op Operator, children []pipeline.Condition) Tree {
	t := Tree{Operator: op, Conditions: []*pipeline.SimpleCondition{}, Groups: []Tree{}}

	for _, child := range children {
		if simple, ok := child.(*pipeline.SimpleCondition); ok {
			t.Conditions = append(t.Conditions, cloneSimple(simple))
			continue
		}

		t.Groups = append(t.Groups, ToEditableTree(child))
	}

	return t
}

// ToConditionTree converts a tree back into a condition. A tree without
// operator must hold exactly one condition and no group, otherwise
// ErrMalformedConditionTree is returned.
func ToConditionTree(t Tree) (pipeline.Condition, error) {
	children := make([]pipeline.Condition, 0, len(t.Conditions)+len(t.Groups))
	for _, c := range t.Conditions {
		if c == nil {
			return nil, fmt.Errorf("%w: nil condition", pipequery.ErrMalformedConditionTree)
		}

		children = append(children, cloneSimple(c))
	}

	for i, g := range t.Groups {
		child, err := ToConditionTree(g)
		if err != nil {
			return nil, fmt.Errorf("group #%d: %w", i, err)
		}

		children = append(children, child)
	}

	switch t.Operator {
	case OperatorAnd:
		return &pipeline.AndCondition{And: children}, nil
	case OperatorOr:
		return &pipeline.OrCondition{Or: children}, nil
	case OperatorNone:
		if len(t.Conditions) != 1 || len(t.Groups) != 0 {
			return nil, fmt.Errorf("%w: a tree without operator needs exactly one condition and no group, got %d conditions and %d groups",
				pipequery.ErrMalformedConditionTree, len(t.Conditions), len(t.Groups))
		}

		return children[0], nil
	default:
		return nil, fmt.Errorf("%w: unknown operator '%s'", pipequery.ErrMalformedConditionTree, t.Operator)
	}
}

// Depth returns the number of combinator levels of t. A single condition has depth 0.
func (t Tree) Depth() int {
	if t.Operator == OperatorNone {
		return 0
	}

	depth := 1
	for _, g := range t.Groups {
		depth = max(depth, 1+g.Depth())
	}

	return depth
}

// ValidateEditable checks that t fits in the condition editor.
func ValidateEditable(t Tree) error {
	if depth := t.Depth(); depth > EditorMaxDepth {
		return fmt.Errorf("%w: depth %d exceeds %d", pipequery.ErrTreeTooDeep, depth, EditorMaxDepth)
	}

	return nil
}

// CastValues returns a copy of c where the string values of simple
// conditions are cast to the type of their column. Columns without a type,
// non-string values and strings that do not parse are left as they are.
func CastValues(c pipeline.Condition, types ColumnTypes) pipeline.Condition {
	switch cond := c.(type) {
	case *pipeline.AndCondition:
		return &pipeline.AndCondition{And: castAll(cond.And, types)}
	case *pipeline.OrCondition:
		return &pipeline.OrCondition{Or: castAll(cond.Or, types)}
	case *pipeline.SimpleCondition:
		result := cloneSimple(cond)

		columnType, ok := types[cond.Column]
		if !ok {
			return result
		}

		switch v := result.Value.(type) {
		case string:
			result.Value = castString(v, columnType)
		case []any:
			for i, elem := range v {
				if s, ok := elem.(string); ok {
					v[i] = castString(s, columnType)
				}
			}
		}

		return result
	default:
		return pipeline.CloneCondition(c)
	}
}

func castAll(children []pipeline.Condition, types ColumnTypes) []pipeline.Condition {
	if children == nil {
		return nil
	}

	result := make([]pipeline.Condition, len(children))
	for i, child := range children {
		result[i] = CastValues(child, types)
	}

	return result
}

func castString(s string, columnType valuecast.ColumnType) any {
	v, err := valuecast.Cast(s, columnType)
	if err != nil {
		return s
	}

	return v
}

func cloneSimple(c *pipeline.SimpleCondition) *pipeline.SimpleCondition {
	return pipeline.CloneCondition(c).(*pipeline.SimpleCondition)
}
