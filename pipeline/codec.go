package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/shibukawa/pipequery"
)

// strictUnmarshal decodes JSON rejecting fields the target does not declare.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}

// DecodeStep decodes one step object using its "name" discriminator.
func DecodeStep(data []byte) (Step, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", pipequery.ErrInvalidStep, err)
	}

	rawName, ok := fields["name"]
	if !ok {
		return nil, fmt.Errorf("%w: missing 'name' field", pipequery.ErrInvalidStep)
	}

	var name Name
	if err := json.Unmarshal(rawName, &name); err != nil {
		return nil, fmt.Errorf("%w: 'name' must be a string", pipequery.ErrInvalidStep)
	}

	step, err := NewStep(name)
	if err != nil {
		return nil, err
	}

	delete(fields, "name")

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipequery.ErrInvalidStep, err)
	}

	if err := strictUnmarshal(body, step); err != nil {
		return nil, fmt.Errorf("%w: %s step: %w", pipequery.ErrInvalidStep, name, err)
	}

	return step, nil
}

// MarshalStep encodes a step with its "name" discriminator first.
func MarshalStep(step Step) ([]byte, error) {
	body, err := json.Marshal(step)
	if err != nil {
		return nil, err
	}

	name, err := json.Marshal(step.StepName())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	buf.WriteString(`{"name":`)
	buf.Write(name)

	inner := bytes.TrimSpace(body)
	if len(inner) > 2 {
		buf.WriteByte(',')
		buf.Write(inner[1 : len(inner)-1])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalJSON encodes the pipeline as an array of step objects.
func (p Pipeline) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}

	var buf bytes.Buffer

	buf.WriteByte('[')

	for i, step := range p {
		if i > 0 {
			buf.WriteByte(',')
		}

		data, err := MarshalStep(step)
		if err != nil {
			return nil, fmt.Errorf("step #%d: %w", i, err)
		}

		buf.Write(data)
	}

	buf.WriteByte(']')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an array of step objects.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("%w: pipeline must be a list of steps: %w", pipequery.ErrInvalidStep, err)
	}

	steps := make(Pipeline, 0, len(raws))

	for i, raw := range raws {
		step, err := DecodeStep(raw)
		if err != nil {
			return fmt.Errorf("step #%d: %w", i, err)
		}

		steps = append(steps, step)
	}

	*p = steps

	return nil
}

// Parse decodes a pipeline written in JSON or YAML.
func Parse(data []byte) (Pipeline, error) {
	jsonData, err := toJSON(data)
	if err != nil {
		return nil, err
	}

	var p Pipeline
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return nil, err
	}

	return p, nil
}

// ParseScope decodes a name -> pipeline mapping written in JSON or YAML.
func ParseScope(data []byte) (Scope, error) {
	jsonData, err := toJSON(data)
	if err != nil {
		return nil, err
	}

	var scope Scope
	if err := json.Unmarshal(jsonData, &scope); err != nil {
		return nil, err
	}

	if scope == nil {
		scope = Scope{}
	}

	return scope, nil
}

// ParseCondition decodes a condition written in JSON or YAML.
func ParseCondition(data []byte) (Condition, error) {
	jsonData, err := toJSON(data)
	if err != nil {
		return nil, err
	}

	return DecodeCondition(jsonData)
}

func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') && json.Valid(trimmed) {
		return trimmed, nil
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", pipequery.ErrInvalidStep, err)
	}

	return jsonData, nil
}
