package testhelper

import (
	"regexp"
	"strings"
	"testing"

	"github.com/shibukawa/pipequery/pipeline"
)

var (
	whiteSpaces = regexp.MustCompile(`(\s+)`)
	leadingTabs = regexp.MustCompile(`^(\t+)`)
)

func replaceTab(match string) string {
	return strings.Repeat("  ", strings.Count(match, "\t"))
}

// TrimIndent removes the indentation of the first content line from every
// line of a raw string literal and turns remaining leading tabs into spaces,
// so YAML fixtures can be indented along with the test code.
func TrimIndent(t *testing.T, src string) string {
	t.Helper()

	lines := strings.Split(src, "\n")

	var indent string
	if len(lines) > 1 {
		indent = whiteSpaces.FindString(lines[1])
	}

	for i, line := range lines {
		line = strings.TrimPrefix(line, indent)
		lines[i] = leadingTabs.ReplaceAllStringFunc(line, replaceTab)
	}

	return strings.Join(lines[1:], "\n")
}

// LoadPipelineYAML parses an indented YAML pipeline fixture.
func LoadPipelineYAML(t *testing.T, src string) pipeline.Pipeline {
	t.Helper()

	p, err := pipeline.Parse([]byte(TrimIndent(t, src)))
	if err != nil {
		t.Fatalf("invalid pipeline fixture %s: %v", GetCaller(t), err)
	}

	return p
}

// LoadScopeYAML parses an indented YAML fixture mapping names to pipelines.
func LoadScopeYAML(t *testing.T, src string) pipeline.Scope {
	t.Helper()

	scope, err := pipeline.ParseScope([]byte(TrimIndent(t, src)))
	if err != nil {
		t.Fatalf("invalid scope fixture %s: %v", GetCaller(t), err)
	}

	return scope
}
