package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/verify"
)

// Config represents the configuration for one headless run
type Config struct {
	// Task description
	Task string `yaml:"task" json:"task"`

	// Execution mode
	Mode ExecutionMode `yaml:"mode" json:"mode"`

	// Workspace directory
	WorkspaceDir string `yaml:"workspace_dir" json:"workspace_dir"`

	// Loop bounds
	Loop LoopConfig `yaml:"loop" json:"loop"`

	// Git configuration
	Git GitConfig `yaml:"git" json:"git"`

	// Verification command overrides
	Verify VerifyConfig `yaml:"verify" json:"verify"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ExecutionMode defines the execution mode for headless runs
type ExecutionMode string

const (
	// ModeReadOnly runs the loop in dry-run: every action is described,
	// nothing touches the workspace
	ModeReadOnly ExecutionMode = "read-only"
	// ModeWrite allows the agent to modify the workspace
	ModeWrite ExecutionMode = "write"
)

// LoopConfig bounds the plan/execute/observe loop
type LoopConfig struct {
	MaxIterations     int `yaml:"max_iterations" json:"max_iterations"`
	StepsPerIteration int `yaml:"steps_per_iteration" json:"steps_per_iteration"`
}

// GitConfig defines git operation configuration
type GitConfig struct {
	AutoCommit         bool   `yaml:"auto_commit" json:"auto_commit"`
	CommitOnVerifyFail bool   `yaml:"commit_on_verify_fail" json:"commit_on_verify_fail"` // Whether to commit partial work when verification fails
	CommitMessage      string `yaml:"commit_message" json:"commit_message"`
	Branch             string `yaml:"branch" json:"branch"` // Explicit branch name; empty generates anvil/<task-slug>-<timestamp>
	AuthorName         string `yaml:"author_name" json:"author_name"`
	AuthorEmail        string `yaml:"author_email" json:"author_email"`
}

// VerifyConfig overrides the verifier's lint and test commands per language.
// Unset fields keep the verifier defaults.
type VerifyConfig struct {
	PythonLinters  []string `yaml:"python_linters" json:"python_linters"`
	NodeLinters    []string `yaml:"node_linters" json:"node_linters"`
	PythonTests    string   `yaml:"python_tests" json:"python_tests"`
	NodeTests      string   `yaml:"node_tests" json:"node_tests"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
	Metrics  bool `yaml:"metrics" json:"metrics"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Task == "" {
		return fmt.Errorf("task description is required")
	}

	if c.Mode != ModeReadOnly && c.Mode != ModeWrite {
		return fmt.Errorf("invalid mode: %s (must be 'read-only' or 'write')", c.Mode)
	}

	if c.WorkspaceDir == "" {
		return fmt.Errorf("workspace directory is required")
	}

	if c.Loop.MaxIterations < 0 {
		return fmt.Errorf("loop.max_iterations cannot be negative")
	}

	if c.Loop.StepsPerIteration < 0 {
		return fmt.Errorf("loop.steps_per_iteration cannot be negative")
	}

	if c.Verify.TimeoutSeconds < 0 {
		return fmt.Errorf("verify.timeout_seconds cannot be negative")
	}

	// Author name and email only make sense together.
	if (c.Git.AuthorName == "") != (c.Git.AuthorEmail == "") {
		return fmt.Errorf("git.author_name and git.author_email must be set together")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	// Validate log level
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeWrite,
		Loop: LoopConfig{
			MaxIterations:     agent.DefaultMaxIterations,
			StepsPerIteration: agent.DefaultStepsPerIteration,
		},
		Git: GitConfig{
			AutoCommit: false,
		},
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".anvil/artifacts",
			JSON:      true,
			Markdown:  true,
			Metrics:   true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// LoadConfigFile reads a YAML run configuration, overlaying it on the
// defaults so partial files work.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// verifyConfig converts the overrides into the verifier's config type.
func (c *Config) verifyConfig() verify.Config {
	cfg := verify.Config{
		PythonLinters: c.Verify.PythonLinters,
		NodeLinters:   c.Verify.NodeLinters,
		PythonTests:   c.Verify.PythonTests,
		NodeTests:     c.Verify.NodeTests,
	}
	if c.Verify.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Verify.TimeoutSeconds) * time.Second
	}
	return cfg
}
