package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shibukawa/pipequery"
)

// Reference points to the input of an append or join branch: either a named
// pipeline (Name) or an inline pipeline (Pipeline non-nil).
type Reference struct {
	Name     string
	Pipeline Pipeline
}

// NameRef builds a reference to a named pipeline.
func NameRef(name string) Reference {
	return Reference{Name: name}
}

// InlineRef builds a reference holding the pipeline itself.
func InlineRef(p Pipeline) Reference {
	if p == nil {
		p = Pipeline{}
	}

	return Reference{Pipeline: p}
}

// IsInline reports whether the reference holds a pipeline rather than a name.
func (r Reference) IsInline() bool {
	return r.Pipeline != nil
}

// Clone returns a deep copy of the reference.
func (r Reference) Clone() Reference {
	if r.IsInline() {
		return Reference{Pipeline: r.Pipeline.Clone()}
	}

	return Reference{Name: r.Name}
}

// MarshalJSON writes a name as a string and an inline pipeline as an array.
func (r Reference) MarshalJSON() ([]byte, error) {
	if r.IsInline() {
		return json.Marshal(r.Pipeline)
	}

	return json.Marshal(r.Name)
}

// UnmarshalJSON accepts a string or an array of steps.
func (r *Reference) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty value", pipequery.ErrInvalidReference)
	}

	switch trimmed[0] {
	case '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return fmt.Errorf("%w: %w", pipequery.ErrInvalidReference, err)
		}

		*r = NameRef(name)

		return nil
	case '[':
		var p Pipeline
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return err
		}

		*r = InlineRef(p)

		return nil
	default:
		return fmt.Errorf("%w: expected a pipeline name or a list of steps, got %s", pipequery.ErrInvalidReference, trimmed)
	}
}

func cloneReferences(refs []Reference) []Reference {
	if refs == nil {
		return nil
	}

	out := make([]Reference, len(refs))
	for i, r := range refs {
		out[i] = r.Clone()
	}

	return out
}
