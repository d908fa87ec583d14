package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shibukawa/pipequery/conditiontree"
	"github.com/shibukawa/pipequery/pipeline"
)

// TreeCmd represents the tree command
type TreeCmd struct {
	Input   string `arg:"" help:"Pipeline file (JSON or YAML)" type:"path"`
	Types   string `help:"Column types file used to cast condition values (defaults to column_types_file)" type:"path"`
	Compact bool   `help:"Print compact JSON"`
}

// filterTree is the editable tree of one filter step
type filterTree struct {
	Step int                `json:"step"`
	Tree conditiontree.Tree `json:"tree"`
}

// Run executes the tree command
func (cmd *TreeCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	p, err := readPipeline(cmd.Input)
	if err != nil {
		return err
	}

	var types conditiontree.ColumnTypes

	if path := firstNonEmpty(cmd.Types, config.ColumnTypesFile); path != "" {
		types, err = readColumnTypes(path)
		if err != nil {
			return err
		}

		ctx.Logger.Debug().Int("columns", len(types)).Msg("column types loaded")
	}

	trees := []filterTree{}

	for i, step := range p {
		s, ok := step.(*pipeline.FilterStep)
		if !ok || s.Condition == nil {
			continue
		}

		cond := s.Condition
		if types != nil {
			cond = conditiontree.CastValues(cond, types)
		}

		tree := conditiontree.ToEditableTree(cond)
		if err := conditiontree.ValidateEditable(tree); err != nil {
			ctx.status(color.FgYellow, "Step #%d: %v", i, err)
		}

		trees = append(trees, filterTree{Step: i, Tree: tree})
	}

	data, err := encodeJSON(trees, config.Output.Pretty && !cmd.Compact)
	if err != nil {
		return fmt.Errorf("failed to encode trees: %w", err)
	}

	return ctx.writeOutput(data)
}
