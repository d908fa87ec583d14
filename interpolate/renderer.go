package interpolate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/shibukawa/pipequery"
)

const (
	DefaultStart = "{{"
	DefaultEnd   = "}}"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved words CEL refuses as variable names.
var celReserved = map[string]bool{
	"true": true, "false": true, "null": true, "in": true, "as": true, "break": true,
	"const": true, "continue": true, "else": true, "for": true, "function": true,
	"if": true, "import": true, "let": true, "loop": true, "package": true,
	"namespace": true, "return": true, "var": true, "void": true, "while": true,
}

// TemplateRenderer renders templates whose expressions are delimited by
// Start and End (default "{{" and "}}") and written in CEL.
//
// A template that is exactly one expression evaluates to the native value of
// the expression (number, bool, list, map or string). Any other template gets
// the text form of every expression substituted in place. Templates without
// expressions are returned unchanged.
type TemplateRenderer struct {
	Start string
	End   string
}

func (r TemplateRenderer) delimiters() (string, string) {
	start, end := r.Start, r.End
	if start == "" {
		start = DefaultStart
	}

	if end == "" {
		end = DefaultEnd
	}

	return start, end
}

// Render implements RenderFunc.
func (r TemplateRenderer) Render(template string, scope Scope) (any, error) {
	segments := r.split(template)

	hasExpression := false

	for _, seg := range segments {
		if seg.expression {
			hasExpression = true
			break
		}
	}

	if !hasExpression {
		return template, nil
	}

	env, err := newEnv(scope)
	if err != nil {
		return nil, err
	}

	if r.isWholeExpression(template) {
		for _, seg := range segments {
			if seg.expression {
				return evaluate(env, seg.text, scope)
			}
		}
	}

	var b strings.Builder

	for _, seg := range segments {
		if !seg.expression {
			b.WriteString(seg.text)
			continue
		}

		value, err := evaluate(env, seg.text, scope)
		if err != nil {
			return nil, err
		}

		b.WriteString(toText(value))
	}

	return b.String(), nil
}

// Func returns r as a RenderFunc.
func (r TemplateRenderer) Func() RenderFunc {
	return r.Render
}

// Expressions returns the expressions of template, in order.
func (r TemplateRenderer) Expressions(template string) []string {
	var result []string

	for _, seg := range r.split(template) {
		if seg.expression {
			result = append(result, seg.text)
		}
	}

	return result
}

type segment struct {
	text       string
	expression bool
}

func (r TemplateRenderer) split(template string) []segment {
	start, end := r.delimiters()

	var segments []segment

	rest := template

	for {
		i := strings.Index(rest, start)
		if i < 0 {
			break
		}

		j := strings.Index(rest[i+len(start):], end)
		if j < 0 {
			break
		}

		if i > 0 {
			segments = append(segments, segment{text: rest[:i]})
		}

		expr := strings.TrimSpace(rest[i+len(start) : i+len(start)+j])
		segments = append(segments, segment{text: expr, expression: true})
		rest = rest[i+len(start)+j+len(end):]
	}

	if rest != "" {
		segments = append(segments, segment{text: rest})
	}

	return segments
}

// isWholeExpression reports whether template is one expression with only
// whitespace around it.
func (r TemplateRenderer) isWholeExpression(template string) bool {
	start, end := r.delimiters()
	trimmed := strings.TrimSpace(template)

	if !strings.HasPrefix(trimmed, start) || !strings.HasSuffix(trimmed, end) {
		return false
	}

	inner := trimmed[len(start) : len(trimmed)-len(end)]

	return !strings.Contains(inner, start) && !strings.Contains(inner, end)
}

func newEnv(scope Scope) (*cel.Env, error) {
	names := make([]string, 0, len(scope))
	for name := range scope {
		if identifierPattern.MatchString(name) && !celReserved[name] {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	options := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		options = append(options, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipequery.ErrTemplateEvaluation, err)
	}

	return env, nil
}

func evaluate(env *cel.Env, expression string, scope Scope) (any, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: '%s': %w", pipequery.ErrTemplateEvaluation, expression, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", pipequery.ErrTemplateEvaluation, expression, err)
	}

	vars := make(map[string]any, len(scope))
	for k, v := range scope {
		vars[k] = v
	}

	result, _, err := prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", pipequery.ErrTemplateEvaluation, expression, err)
	}

	return toNative(result), nil
}

// toNative converts a CEL value into plain Go values: lists become []any and
// maps map[string]any.
func toNative(v ref.Val) any {
	switch val := v.(type) {
	case types.Null:
		return nil
	case traits.Mapper:
		result := map[string]any{}

		it := val.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			result[fmt.Sprint(key.Value())] = toNative(val.Get(key))
		}

		return result
	case traits.Lister:
		var result []any

		it := val.Iterator()
		for it.HasNext() == types.True {
			result = append(result, toNative(it.Next()))
		}

		if result == nil {
			result = []any{}
		}

		return result
	default:
		return v.Value()
	}
}

func toText(v any) string {
	if v == nil {
		return "null"
	}

	return fmt.Sprint(v)
}
