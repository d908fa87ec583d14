package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/shibukawa/pipequery/dereference"
)

// DereferenceCmd represents the dereference command
type DereferenceCmd struct {
	Input     string `arg:"" help:"Pipeline file (JSON or YAML)" type:"path"`
	Pipelines string `help:"File mapping pipeline names to pipelines (defaults to pipelines_file)" short:"p" type:"path"`
	Deps      bool   `help:"Print the referenced pipeline names, dependencies first, instead of the pipeline"`
	Compact   bool   `help:"Print compact JSON"`
}

// Run executes the dereference command
func (cmd *DereferenceCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	p, err := readPipeline(cmd.Input)
	if err != nil {
		return err
	}

	scope, err := readScope(firstNonEmpty(cmd.Pipelines, config.PipelinesFile))
	if err != nil {
		return err
	}

	if cmd.Deps {
		names, err := dereference.Dependencies(p, scope)
		if err != nil {
			return err
		}

		if len(names) > 0 {
			if err := ctx.writeOutput([]byte(strings.Join(names, "\n"))); err != nil {
				return err
			}
		}

		ctx.status(color.FgGreen, "%s references %d pipelines", cmd.Input, len(names))

		return nil
	}

	resolved, err := dereference.Dereference(p, scope)
	if err != nil {
		return err
	}

	data, err := encodeJSON(resolved, config.Output.Pretty && !cmd.Compact)
	if err != nil {
		return fmt.Errorf("failed to encode pipeline: %w", err)
	}

	if err := ctx.writeOutput(data); err != nil {
		return err
	}

	ctx.status(color.FgGreen, "Dereferenced %s: %d steps -> %d steps", cmd.Input, len(p), len(resolved))

	return nil
}
