package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/shibukawa/pipequery/conditiontree"
	"github.com/shibukawa/pipequery/interpolate"
	"github.com/shibukawa/pipequery/pipeline"
	"github.com/shibukawa/pipequery/valuecast"
	"go.mongodb.org/mongo-driver/bson"
)

// readFile reads an input file, reporting a missing file with ErrInputFileNotExist
func readFile(path string) ([]byte, error) {
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrInputFileNotExist, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// readPipeline loads a pipeline file written in JSON or YAML
func readPipeline(path string) (pipeline.Pipeline, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline %s: %w", path, err)
	}

	return p, nil
}

// readScope loads a name -> pipeline file. An empty path gives an empty scope.
func readScope(path string) (pipeline.Scope, error) {
	if path == "" {
		return pipeline.Scope{}, nil
	}

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	scope, err := pipeline.ParseScope(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipelines %s: %w", path, err)
	}

	return scope, nil
}

// readVariables loads the variables file and applies key=value assignments on top of it
func readVariables(path string, assignments []string) (interpolate.Scope, error) {
	vars := interpolate.Scope{}

	if path != "" {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}

		decoded, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse variables %s: %w", path, err)
		}

		for k, v := range decoded {
			vars[k] = v
		}
	}

	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidVariable, assignment)
		}

		vars[strings.TrimSpace(key)] = valuecast.Infer(value)
	}

	return vars, nil
}

// readColumnTypes loads a column -> type mapping
func readColumnTypes(path string) (conditiontree.ColumnTypes, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var types conditiontree.ColumnTypes
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("failed to parse column types %s: %w", path, err)
	}

	return types, nil
}

// decodeDocument decodes a JSON or YAML mapping. Numbers become int64 when
// integral and float64 otherwise.
func decodeDocument(data []byte) (map[string]any, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	normalized, _ := normalizeNumbers(doc).(map[string]any)
	if normalized == nil {
		normalized = map[string]any{}
	}

	return normalized, nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return valuecast.Infer(t.String())
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeNumbers(child)
		}

		return t
	case []any:
		for i, child := range t {
			t[i] = normalizeNumbers(child)
		}

		return t
	default:
		return v
	}
}

// encodeJSON marshals v with encoding/json
func encodeJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}

	return json.Marshal(v)
}

// encodeExtJSON marshals a BSON document as relaxed MongoDB extended JSON
func encodeExtJSON(v any, pretty bool) ([]byte, error) {
	data, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return nil, err
	}

	if !pretty {
		return data, nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeOutput prints data followed by a newline
func (ctx *Context) writeOutput(data []byte) error {
	if _, err := ctx.Stdout.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

// status prints a colored status line on stderr unless --quiet is set
func (ctx *Context) status(attr color.Attribute, format string, args ...any) {
	if ctx.Quiet {
		return
	}

	color.New(attr).Fprintf(ctx.Stderr, format+"\n", args...)
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
