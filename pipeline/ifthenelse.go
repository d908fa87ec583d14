package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shibukawa/pipequery"
)

// IfThenElse is one conditional branch. Else holds either a value or a
// nested *IfThenElse continuing the chain.
type IfThenElse struct {
	If   Condition `json:"if"`
	Then any       `json:"then"`
	Else any       `json:"else"`
}

// ElseBranch returns the nested branch when Else continues the chain.
func (b *IfThenElse) ElseBranch() (*IfThenElse, bool) {
	nested, ok := b.Else.(*IfThenElse)
	return nested, ok && nested != nil
}

// Clone returns a deep copy of the branch chain.
func (b *IfThenElse) Clone() *IfThenElse {
	if b == nil {
		return nil
	}

	return &IfThenElse{
		If:   CloneCondition(b.If),
		Then: CloneValue(b.Then),
		Else: CloneValue(b.Else),
	}
}

type rawBranch struct {
	If   json.RawMessage `json:"if"`
	Then json.RawMessage `json:"then"`
	Else json.RawMessage `json:"else"`
}

func (r rawBranch) decode() (*IfThenElse, error) {
	cond, err := DecodeCondition(r.If)
	if err != nil {
		return nil, fmt.Errorf("if: %w", err)
	}

	b := &IfThenElse{If: cond}

	if len(r.Then) > 0 {
		if err := json.Unmarshal(r.Then, &b.Then); err != nil {
			return nil, fmt.Errorf("%w: then: %w", pipequery.ErrInvalidStep, err)
		}
	}

	if len(r.Else) == 0 {
		return b, nil
	}

	if isBranchObject(r.Else) {
		var nested IfThenElse
		if err := nested.UnmarshalJSON(r.Else); err != nil {
			return nil, fmt.Errorf("else: %w", err)
		}

		b.Else = &nested

		return b, nil
	}

	if err := json.Unmarshal(r.Else, &b.Else); err != nil {
		return nil, fmt.Errorf("%w: else: %w", pipequery.ErrInvalidStep, err)
	}

	return b, nil
}

// isBranchObject reports whether an else value is a nested {if, then, else} object.
func isBranchObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return false
	}

	_, ok := keys["if"]

	return ok
}

// UnmarshalJSON decodes a branch, recognising nested else-if objects.
func (b *IfThenElse) UnmarshalJSON(data []byte) error {
	var raw rawBranch
	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", pipequery.ErrInvalidStep, err)
	}

	decoded, err := raw.decode()
	if err != nil {
		return err
	}

	*b = *decoded

	return nil
}

// UnmarshalJSON decodes an ifthenelse step.
func (s *IfThenElseStep) UnmarshalJSON(data []byte) error {
	var raw struct {
		NewColumn string `json:"new_column"`
		rawBranch
	}

	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", pipequery.ErrInvalidStep, err)
	}

	decoded, err := raw.decode()
	if err != nil {
		return err
	}

	s.NewColumn = raw.NewColumn
	s.IfThenElse = *decoded

	return nil
}

// UnmarshalJSON decodes a filter step and its condition tree.
func (s *FilterStep) UnmarshalJSON(data []byte) error {
	var raw struct {
		Condition json.RawMessage `json:"condition"`
	}

	if err := strictUnmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", pipequery.ErrInvalidStep, err)
	}

	cond, err := DecodeCondition(raw.Condition)
	if err != nil {
		return err
	}

	s.Condition = cond

	return nil
}
