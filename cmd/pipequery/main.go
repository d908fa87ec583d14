package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shibukawa/pipequery"
)

// Version of the pipequery command
const Version = "v0.1.0"

// Context represents the global context for commands
type Context struct {
	Config  string
	Verbose bool
	Quiet   bool
	RunID   string
	Logger  zerolog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

// CLI represents the command-line interface
var CLI struct {
	Config      string         `help:"Configuration file path" default:"pipequery.yaml"`
	Verbose     bool           `help:"Enable verbose output" short:"v"`
	Quiet       bool           `help:"Suppress output" short:"q"`
	Compile     CompileCmd     `cmd:"" help:"Compile a pipeline into a MongoDB aggregation query"`
	Dereference DereferenceCmd `cmd:"" help:"Resolve the references of a pipeline"`
	Human       HumanCmd       `cmd:"" help:"Describe the ifthenelse steps of a pipeline"`
	Tree        TreeCmd        `cmd:"" help:"Show the editable condition tree of the filter steps of a pipeline"`
	Version     VersionCmd     `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintf(ctx.Stdout, "pipequery %s\n", Version)
	return nil
}

// newContext builds the command context, with a console logger on stderr
// tagged by a fresh run id.
func newContext(config string, verbose, quiet bool, stdout, stderr io.Writer) *Context {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	} else if quiet {
		level = zerolog.ErrorLevel
	}

	runID := uuid.NewString()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Str("run", runID).
		Logger()

	return &Context{
		Config:  config,
		Verbose: verbose,
		Quiet:   quiet,
		RunID:   runID,
		Logger:  logger,
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

// loadConfig loads the configuration file, logging where it came from
func (ctx *Context) loadConfig() (*pipequery.Config, error) {
	config, err := pipequery.LoadConfig(ctx.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx.Logger.Debug().
		Str("config", ctx.Config).
		Str("backend", string(config.Backend)).
		Msg("configuration loaded")

	return config, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pipequery"),
		kong.Description("Compile declarative data pipelines into MongoDB aggregation queries."),
	)

	appCtx := newContext(CLI.Config, CLI.Verbose, CLI.Quiet, os.Stdout, os.Stderr)

	err := ctx.Run(appCtx)
	if err != nil {
		appCtx.Logger.Error().Err(err).Str("command", ctx.Command()).Msg("command failed")
		os.Exit(1)
	}
}
