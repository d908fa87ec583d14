package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/shibukawa/pipequery"
	"github.com/shibukawa/pipequery/compiler"
	"github.com/shibukawa/pipequery/interpolate"
	"github.com/shibukawa/pipequery/pipeline"
	"go.mongodb.org/mongo-driver/bson"
)

// CompileCmd represents the compile command
type CompileCmd struct {
	Input     string   `arg:"" optional:"" help:"Pipeline file (JSON or YAML)" type:"path"`
	Pipelines string   `help:"File mapping pipeline names to pipelines (defaults to pipelines_file)" short:"p" type:"path"`
	Vars      string   `help:"Variables file (defaults to variables_file)" type:"path"`
	Var       []string `help:"Variable as key=value, overrides the variables file" short:"V"`
	Name      string   `help:"Compile the named pipeline of the pipelines file" short:"n"`
	All       bool     `help:"Compile every pipeline of the pipelines file"`
	Backend   string   `help:"Target backend (mongo36, mongo40, mongo42, mongo50)"`
	Compact   bool     `help:"Print compact JSON"`
}

// Run executes the compile command
func (cmd *CompileCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	if cmd.Backend != "" {
		config.Backend = pipequery.Backend(cmd.Backend)
	}

	if !config.Backend.Valid() {
		return fmt.Errorf("%w: unknown backend '%s'", pipequery.ErrUnsupportedFeature, config.Backend)
	}

	scope, err := readScope(firstNonEmpty(cmd.Pipelines, config.PipelinesFile))
	if err != nil {
		return err
	}

	vars, err := readVariables(firstNonEmpty(cmd.Vars, config.VariablesFile), cmd.Var)
	if err != nil {
		return err
	}

	ctx.Logger.Debug().
		Int("pipelines", len(scope)).
		Int("variables", len(vars)).
		Msg("inputs loaded")

	c := compiler.FromConfig(config)
	pretty := config.Output.Pretty && !cmd.Compact

	if cmd.All {
		return cmd.compileAll(ctx, c, scope, vars, pretty)
	}

	p, label, err := cmd.selectPipeline(scope)
	if err != nil {
		return err
	}

	q, err := c.Compile(p, scope, vars)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", label, err)
	}

	data, err := encodeExtJSON(q, pretty)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	if err := ctx.writeOutput(data); err != nil {
		return err
	}

	ctx.status(color.FgGreen, "Compiled %s for %s (%d stages)", label, config.Backend, len(q.Pipeline))

	return nil
}

func (cmd *CompileCmd) selectPipeline(scope pipeline.Scope) (pipeline.Pipeline, string, error) {
	switch {
	case cmd.Name != "":
		p, ok := scope[cmd.Name]
		if !ok {
			return nil, "", fmt.Errorf("%w: '%s'", ErrPipelineNotFound, cmd.Name)
		}

		return p, fmt.Sprintf("pipeline '%s'", cmd.Name), nil
	case cmd.Input != "":
		p, err := readPipeline(cmd.Input)
		if err != nil {
			return nil, "", err
		}

		return p, cmd.Input, nil
	default:
		return nil, "", fmt.Errorf("%w: give a pipeline file, --name or --all", ErrMissingInput)
	}
}

func (cmd *CompileCmd) compileAll(ctx *Context, c *compiler.Compiler, scope pipeline.Scope, vars interpolate.Scope, pretty bool) error {
	if len(scope) == 0 {
		return fmt.Errorf("%w: --all needs a pipelines file", ErrMissingInput)
	}

	queries, err := c.CompileAll(context.Background(), scope, vars)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}

	sort.Strings(names)

	doc := make(bson.D, 0, len(names))
	for _, name := range names {
		doc = append(doc, bson.E{Key: name, Value: queries[name]})
	}

	data, err := encodeExtJSON(doc, pretty)
	if err != nil {
		return fmt.Errorf("failed to encode queries: %w", err)
	}

	if err := ctx.writeOutput(data); err != nil {
		return err
	}

	ctx.status(color.FgGreen, "Compiled %d pipelines", len(queries))

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
