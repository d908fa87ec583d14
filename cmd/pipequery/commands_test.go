package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shibukawa/pipequery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scopeYAML = `base:
  - name: domain
    domain: sales
  - name: filter
    condition:
      column: Country
      operator: eq
      value: "{{ country }}"
expensive:
  - name: domain
    domain: base
  - name: filter
    condition:
      column: Price
      operator: ge
      value: "{{ minPrice }}"
`

const sortedYAML = `- name: domain
  domain: expensive
- name: sort
  columns:
    - column: Price
      order: desc
`

// helper to write a file
func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))

	return p
}

// testContext returns a quiet context on a missing config file, so defaults apply
func testContext(t *testing.T, dir string) (*Context, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	ctx := newContext(filepath.Join(dir, "pipequery.yaml"), false, true, &stdout, &stderr)

	return ctx, &stdout
}

func TestCompileCmd(t *testing.T) {
	dir := t.TempDir()
	scopePath := writeTemp(t, dir, "pipelines.yaml", scopeYAML)
	inputPath := writeTemp(t, dir, "sorted.yaml", sortedYAML)
	varsPath := writeTemp(t, dir, "vars.yaml", "country: FR\nminPrice: 5\n")

	t.Run("InputFileWithVariables", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &CompileCmd{
			Input:     inputPath,
			Pipelines: scopePath,
			Vars:      varsPath,
			Var:       []string{"minPrice=10"},
			Compact:   true,
		}

		require.NoError(t, cmd.Run(ctx))
		assert.JSONEq(t, `{
			"domain": "sales",
			"pipeline": [
				{"$match": {"$and": [{"Country": "FR"}, {"Price": {"$gte": 10}}]}},
				{"$sort": {"Price": -1}}
			]
		}`, stdout.String())
	})

	t.Run("NamedPipeline", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &CompileCmd{Name: "base", Pipelines: scopePath, Var: []string{"country=DE"}}

		require.NoError(t, cmd.Run(ctx))
		assert.JSONEq(t, `{"domain": "sales", "pipeline": [{"$match": {"Country": "DE"}}]}`, stdout.String())
	})

	t.Run("AllPipelines", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &CompileCmd{All: true, Pipelines: scopePath, Vars: varsPath, Compact: true}

		require.NoError(t, cmd.Run(ctx))
		assert.JSONEq(t, `{
			"base": {"domain": "sales", "pipeline": [{"$match": {"Country": "FR"}}]},
			"expensive": {"domain": "sales", "pipeline": [
				{"$match": {"$and": [{"Country": "FR"}, {"Price": {"$gte": 5}}]}}
			]}
		}`, stdout.String())
	})

	t.Run("PipelinesFileFromConfig", func(t *testing.T) {
		configDir := t.TempDir()
		configPath := writeTemp(t, configDir, "pipequery.yaml", "pipelines_file: "+scopePath+"\noutput:\n  simplify: false\n")

		var stdout, stderr bytes.Buffer

		ctx := newContext(configPath, false, true, &stdout, &stderr)
		cmd := &CompileCmd{Input: inputPath, Var: []string{"country=FR", "minPrice=1"}}

		require.NoError(t, cmd.Run(ctx))
		assert.JSONEq(t, `{
			"domain": "sales",
			"pipeline": [
				{"$match": {"Country": "FR"}},
				{"$match": {"Price": {"$gte": 1}}},
				{"$sort": {"Price": -1}}
			]
		}`, stdout.String())
	})

	t.Run("OlderBackendRejectsTrim", func(t *testing.T) {
		trimPath := writeTemp(t, dir, "trim.yaml", "- name: domain\n  domain: sales\n- name: trim\n  columns: [Country]\n")
		ctx, _ := testContext(t, dir)
		cmd := &CompileCmd{Input: trimPath, Backend: "mongo36"}

		err := cmd.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "translate:")
	})
}

func TestCompileCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	scopePath := writeTemp(t, dir, "pipelines.yaml", scopeYAML)

	tests := []struct {
		name   string
		cmd    *CompileCmd
		target error
	}{
		{
			name:   "no input",
			cmd:    &CompileCmd{},
			target: ErrMissingInput,
		},
		{
			name:   "missing file",
			cmd:    &CompileCmd{Input: filepath.Join(dir, "nope.yaml")},
			target: ErrInputFileNotExist,
		},
		{
			name:   "unknown pipeline name",
			cmd:    &CompileCmd{Name: "ghost", Pipelines: scopePath},
			target: ErrPipelineNotFound,
		},
		{
			name:   "malformed variable",
			cmd:    &CompileCmd{Name: "base", Pipelines: scopePath, Var: []string{"country"}},
			target: ErrInvalidVariable,
		},
		{
			name:   "all without pipelines file",
			cmd:    &CompileCmd{All: true},
			target: ErrMissingInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext(t, dir)
			err := tt.cmd.Run(ctx)
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestDereferenceCmd(t *testing.T) {
	dir := t.TempDir()
	scopePath := writeTemp(t, dir, "pipelines.yaml", scopeYAML)
	inputPath := writeTemp(t, dir, "sorted.yaml", sortedYAML)

	t.Run("Pipeline", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &DereferenceCmd{Input: inputPath, Pipelines: scopePath, Compact: true}

		require.NoError(t, cmd.Run(ctx))
		assert.JSONEq(t, `[
			{"name": "domain", "domain": "sales"},
			{"name": "filter", "condition": {"column": "Country", "operator": "eq", "value": "{{ country }}"}},
			{"name": "filter", "condition": {"column": "Price", "operator": "ge", "value": "{{ minPrice }}"}},
			{"name": "sort", "columns": [{"column": "Price", "order": "desc"}]}
		]`, stdout.String())
	})

	t.Run("Dependencies", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &DereferenceCmd{Input: inputPath, Pipelines: scopePath, Deps: true}

		require.NoError(t, cmd.Run(ctx))
		assert.Equal(t, "base\nexpensive\n", stdout.String())
	})

	t.Run("Cycle", func(t *testing.T) {
		cyclic := writeTemp(t, dir, "cyclic.yaml", "a:\n  - name: domain\n    domain: b\nb:\n  - name: domain\n    domain: a\n")
		start := writeTemp(t, dir, "start.yaml", "- name: domain\n  domain: a\n")
		ctx, _ := testContext(t, dir)
		cmd := &DereferenceCmd{Input: start, Pipelines: cyclic}

		err := cmd.Run(ctx)
		require.ErrorIs(t, err, pipequery.ErrCyclicReference)
		assert.Contains(t, err.Error(), "a -> b")
	})
}

func TestHumanCmd(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeTemp(t, dir, "label.yaml", `- name: domain
  domain: sales
- name: ifthenelse
  new_column: label
  if:
    column: column
    operator: eq
    value: value
  then: then
  else: else
`)

	ctx, stdout := testContext(t, dir)
	cmd := &HumanCmd{Input: inputPath}

	require.NoError(t, cmd.Run(ctx))
	assert.Equal(t,
		"#1 label: column is 'value' <strong>THEN</strong> 'then' <strong>ELSE</strong> 'else'\n",
		stdout.String())
}

func TestTreeCmd(t *testing.T) {
	dir := t.TempDir()
	inputPath := writeTemp(t, dir, "filter.yaml", `- name: domain
  domain: sales
- name: filter
  condition:
    and:
      - column: Price
        operator: ge
        value: "10"
      - column: Country
        operator: eq
        value: FR
`)
	typesPath := writeTemp(t, dir, "types.yaml", "Price: integer\nCountry: string\n")

	t.Run("WithoutTypes", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &TreeCmd{Input: inputPath, Compact: true}

		require.NoError(t, cmd.Run(ctx))
		assert.Contains(t, stdout.String(), `"step":1`)
		assert.Contains(t, stdout.String(), `"operator":"and"`)
		assert.Contains(t, stdout.String(), `"value":"10"`)
	})

	t.Run("WithTypes", func(t *testing.T) {
		ctx, stdout := testContext(t, dir)
		cmd := &TreeCmd{Input: inputPath, Types: typesPath, Compact: true}

		require.NoError(t, cmd.Run(ctx))
		assert.Contains(t, stdout.String(), `"value":10`)
		assert.Contains(t, stdout.String(), `"value":"FR"`)
	})
}

func TestVersionCmd(t *testing.T) {
	ctx, stdout := testContext(t, t.TempDir())

	require.NoError(t, (&VersionCmd{}).Run(ctx))
	assert.Equal(t, "pipequery "+Version+"\n", stdout.String())
}

func TestReadVariables(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "vars.json", `{"n": 3, "ratio": 0.5, "tags": ["a", 1], "nested": {"k": 2}}`)

	vars, err := readVariables(path, []string{"flag=true", "name=Paris", "n=4"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), vars["n"])
	assert.Equal(t, 0.5, vars["ratio"])
	assert.Equal(t, []any{"a", int64(1)}, vars["tags"])
	assert.Equal(t, map[string]any{"k": int64(2)}, vars["nested"])
	assert.Equal(t, true, vars["flag"])
	assert.Equal(t, "Paris", vars["name"])
}
