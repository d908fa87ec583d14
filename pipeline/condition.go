package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shibukawa/pipequery"
)

// Condition is a recursive boolean condition: *SimpleCondition, *AndCondition or *OrCondition.
type Condition interface {
	cloneCondition() Condition
}

// SimpleCondition compares one column against a value.
type SimpleCondition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// AndCondition holds when every child holds.
type AndCondition struct {
	And []Condition `json:"and"`
}

// OrCondition holds when any child holds.
type OrCondition struct {
	Or []Condition `json:"or"`
}

func (c *SimpleCondition) cloneCondition() Condition {
	return &SimpleCondition{Column: c.Column, Operator: c.Operator, Value: CloneValue(c.Value)}
}

func (c *AndCondition) cloneCondition() Condition {
	return &AndCondition{And: cloneConditions(c.And)}
}

func (c *OrCondition) cloneCondition() Condition {
	return &OrCondition{Or: cloneConditions(c.Or)}
}

// CloneCondition returns a deep copy of a condition tree.
func CloneCondition(c Condition) Condition {
	if c == nil {
		return nil
	}

	return c.cloneCondition()
}

func cloneConditions(cs []Condition) []Condition {
	if cs == nil {
		return nil
	}

	out := make([]Condition, len(cs))
	for i, c := range cs {
		out[i] = CloneCondition(c)
	}

	return out
}

// UnmarshalJSON decodes children of an and-combinator.
func (c *AndCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		And []json.RawMessage `json:"and"`
	}

	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", pipequery.ErrInvalidCondition, err)
	}

	children, err := decodeConditions(raw.And)
	if err != nil {
		return err
	}

	c.And = children

	return nil
}

// UnmarshalJSON decodes children of an or-combinator.
func (c *OrCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Or []json.RawMessage `json:"or"`
	}

	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", pipequery.ErrInvalidCondition, err)
	}

	children, err := decodeConditions(raw.Or)
	if err != nil {
		return err
	}

	c.Or = children

	return nil
}

// DecodeCondition decodes a condition object, picking the kind from its keys.
// A JSON null decodes to a nil condition.
func DecodeCondition(data []byte) (Condition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return nil, fmt.Errorf("%w: %w", pipequery.ErrInvalidCondition, err)
	}

	_, isAnd := keys["and"]
	_, isOr := keys["or"]

	switch {
	case isAnd && isOr:
		return nil, fmt.Errorf("%w: condition cannot combine 'and' and 'or'", pipequery.ErrInvalidCondition)
	case isAnd:
		var c AndCondition
		if err := c.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}

		return &c, nil
	case isOr:
		var c OrCondition
		if err := c.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}

		return &c, nil
	default:
		var c SimpleCondition
		if err := strictUnmarshal(trimmed, &c); err != nil {
			return nil, fmt.Errorf("%w: %w", pipequery.ErrInvalidCondition, err)
		}

		return &c, nil
	}
}

func decodeConditions(raws []json.RawMessage) ([]Condition, error) {
	out := make([]Condition, 0, len(raws))

	for i, raw := range raws {
		c, err := DecodeCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("condition #%d: %w", i, err)
		}

		if c == nil {
			return nil, fmt.Errorf("%w: condition #%d is null", pipequery.ErrInvalidCondition, i)
		}

		out = append(out, c)
	}

	return out, nil
}

// WalkConditions calls fn for every simple condition in tree order.
func WalkConditions(c Condition, fn func(*SimpleCondition)) {
	switch t := c.(type) {
	case *SimpleCondition:
		fn(t)
	case *AndCondition:
		for _, child := range t.And {
			WalkConditions(child, fn)
		}
	case *OrCondition:
		for _, child := range t.Or {
			WalkConditions(child, fn)
		}
	}
}
