// Package humanformat renders ifthenelse branches as short HTML sentences for
// display in pipeline step summaries.
package humanformat

import (
	"fmt"
	"strings"

	"github.com/shibukawa/pipequery/pipeline"
)

const emptyCondition = "<em>empty condition</em>"

var verbs = map[pipeline.Operator]string{
	pipeline.OperatorEq:         "is",
	pipeline.OperatorNe:         "is not",
	pipeline.OperatorGt:         ">",
	pipeline.OperatorGe:         ">=",
	pipeline.OperatorLt:         "<",
	pipeline.OperatorLe:         "<=",
	pipeline.OperatorIn:         "is in",
	pipeline.OperatorNin:        "is not in",
	pipeline.OperatorMatches:    "matches",
	pipeline.OperatorNotMatches: "does not match",
	pipeline.OperatorIsNull:     "is null",
	pipeline.OperatorNotNull:    "is not null",
}

// Renderer renders branches; template expressions between Start and End
// (default "{{" and "}}") are shown emphasized instead of quoted.
type Renderer struct {
	Start string
	End   string
}

// Render renders b with the default template delimiters.
func Render(b *pipeline.IfThenElse) string {
	return Renderer{}.Render(b)
}

// Render renders b as "<if> THEN <then> ELSE <else>", nested else branches
// as "ELSE IF <if> THEN <then>".
func (r Renderer) Render(b *pipeline.IfThenElse) string {
	if b == nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(r.condition(b.If, true))
	r.writeBranches(&sb, b)

	return sb.String()
}

func (r Renderer) writeBranches(sb *strings.Builder, b *pipeline.IfThenElse) {
	sb.WriteString(" <strong>THEN</strong> ")
	sb.WriteString(r.value(b.Then))

	if nested, ok := b.ElseBranch(); ok {
		sb.WriteString(" <strong>ELSE IF</strong> ")
		sb.WriteString(r.condition(nested.If, true))
		r.writeBranches(sb, nested)

		return
	}

	if b.Else != nil {
		sb.WriteString(" <strong>ELSE</strong> ")
		sb.WriteString(r.value(b.Else))
	}
}

func (r Renderer) condition(c pipeline.Condition, top bool) string {
	switch cond := c.(type) {
	case *pipeline.SimpleCondition:
		return r.simple(cond)
	case *pipeline.AndCondition:
		return r.combine(cond.And, " <strong>AND</strong> ", top)
	case *pipeline.OrCondition:
		return r.combine(cond.Or, " <strong>OR</strong> ", top)
	default:
		return emptyCondition
	}
}

func (r Renderer) combine(children []pipeline.Condition, separator string, top bool) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		parts = append(parts, r.condition(child, false))
	}

	joined := strings.Join(parts, separator)
	if top {
		return joined
	}

	return "(" + joined + ")"
}

func (r Renderer) simple(c *pipeline.SimpleCondition) string {
	if c.Column == "" && isFalsy(c.Value) {
		return emptyCondition
	}

	verb, ok := verbs[c.Operator]
	if !ok {
		return fmt.Sprintf("%s %s %s", c.Column, c.Operator, r.value(c.Value))
	}

	switch {
	case c.Operator.IsNullCheck():
		return c.Column + " " + verb
	case c.Operator.IsMultiValue():
		return fmt.Sprintf("%s %s (%s)", c.Column, verb, r.value(c.Value))
	default:
		return fmt.Sprintf("%s %s %s", c.Column, verb, r.value(c.Value))
	}
}

func (r Renderer) value(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		if expr, ok := r.expression(val); ok {
			return "<em>" + expr + "</em>"
		}

		return "'" + val + "'"
	case []any:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			parts = append(parts, r.value(elem))
		}

		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, 0, len(val))
		for _, elem := range val {
			parts = append(parts, r.value(elem))
		}

		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// expression returns the inner expression of a string made of a single template expression.
func (r Renderer) expression(s string) (string, bool) {
	start, end := r.Start, r.End
	if start == "" {
		start = "{{"
	}

	if end == "" {
		end = "}}"
	}

	trimmed := strings.TrimSpace(s)
	if len(trimmed) < len(start)+len(end) || !strings.HasPrefix(trimmed, start) || !strings.HasSuffix(trimmed, end) {
		return "", false
	}

	inner := trimmed[len(start) : len(trimmed)-len(end)]
	if strings.Contains(inner, start) || strings.Contains(inner, end) {
		return "", false
	}

	return strings.TrimSpace(inner), true
}

func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	default:
		return false
	}
}
