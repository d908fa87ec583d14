package pipequery

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// DefaultConfigFile is the configuration file looked up by the CLI.
const DefaultConfigFile = "pipequery.yaml"

// Config represents the pipequery configuration
type Config struct {
	Backend         Backend        `yaml:"backend"`
	Template        TemplateConfig `yaml:"template"`
	PipelinesFile   string         `yaml:"pipelines_file"`
	VariablesFile   string         `yaml:"variables_file"`
	ColumnTypesFile string         `yaml:"column_types_file"`
	Output          OutputConfig   `yaml:"output"`
}

// TemplateConfig holds the delimiters of template expressions in step parameters
type TemplateConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// OutputConfig represents how compiled queries are printed
type OutputConfig struct {
	Pretty   bool  `yaml:"pretty"`
	Simplify *bool `yaml:"simplify"` // nil means enabled
}

// SimplifyEnabled returns true unless simplify: false is set
func (o OutputConfig) SimplifyEnabled() bool {
	return o.Simplify == nil || *o.Simplify
}

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		// Return default configuration if file doesn't exist
		config := getDefaultConfig()
		expandConfigEnvVars(config)

		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML with strict mode to detect unknown fields
	var config Config

	err = yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDefaults(&config)
	expandConfigEnvVars(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	if config.Backend != "" && !config.Backend.Valid() {
		return fmt.Errorf("%w: invalid backend '%s': must be one of mongo36, mongo40, mongo42, mongo50", ErrConfigValidation, config.Backend)
	}

	// Delimiters come in pairs
	if (config.Template.Start == "") != (config.Template.End == "") {
		return fmt.Errorf("%w: template.start and template.end must be set together", ErrConfigValidation)
	}

	if config.Template.Start != "" && config.Template.Start == config.Template.End {
		return fmt.Errorf("%w: template.start and template.end must differ, got '%s'", ErrConfigValidation, config.Template.Start)
	}

	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackend,
		Template: TemplateConfig{
			Start: "{{",
			End:   "}}",
		},
		Output: OutputConfig{
			Pretty: true,
		},
	}
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	if config.Backend == "" {
		config.Backend = DefaultBackend
	}

	if config.Template.Start == "" {
		config.Template.Start = "{{"
		config.Template.End = "}}"
	}
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	plainEnvVar  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})

	return plainEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[1:])
	})
}

// expandConfigEnvVars expands environment variables in file paths
func expandConfigEnvVars(config *Config) {
	config.PipelinesFile = expandEnvVars(config.PipelinesFile)
	config.VariablesFile = expandEnvVars(config.VariablesFile)
	config.ColumnTypesFile = expandEnvVars(config.ColumnTypesFile)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
