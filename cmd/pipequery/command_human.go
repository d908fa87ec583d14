package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shibukawa/pipequery/humanformat"
	"github.com/shibukawa/pipequery/pipeline"
)

// HumanCmd represents the human command
type HumanCmd struct {
	Input string `arg:"" help:"Pipeline file (JSON or YAML)" type:"path"`
}

// Run executes the human command
func (cmd *HumanCmd) Run(ctx *Context) error {
	config, err := ctx.loadConfig()
	if err != nil {
		return err
	}

	p, err := readPipeline(cmd.Input)
	if err != nil {
		return err
	}

	renderer := humanformat.Renderer{Start: config.Template.Start, End: config.Template.End}
	found := 0

	for i, step := range p {
		s, ok := step.(*pipeline.IfThenElseStep)
		if !ok {
			continue
		}

		found++

		line := fmt.Sprintf("#%d %s: %s", i, s.NewColumn, renderer.Render(&s.IfThenElse))
		if err := ctx.writeOutput([]byte(line)); err != nil {
			return err
		}
	}

	if found == 0 {
		ctx.status(color.FgYellow, "No ifthenelse step in %s", cmd.Input)
	}

	return nil
}
