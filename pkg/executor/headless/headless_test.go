package headless

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/craftd/anvil/pkg/agent"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.Task = "test task"
	config.WorkspaceDir = "/tmp/test"
	return config
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing task",
			mutate:  func(c *Config) { c.Task = "" },
			wantErr: "task description is required",
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "interactive" },
			wantErr: "invalid mode",
		},
		{
			name:    "missing workspace",
			mutate:  func(c *Config) { c.WorkspaceDir = "" },
			wantErr: "workspace directory is required",
		},
		{
			name:    "negative max iterations",
			mutate:  func(c *Config) { c.Loop.MaxIterations = -1 },
			wantErr: "loop.max_iterations cannot be negative",
		},
		{
			name:    "negative steps per iteration",
			mutate:  func(c *Config) { c.Loop.StepsPerIteration = -2 },
			wantErr: "loop.steps_per_iteration cannot be negative",
		},
		{
			name:    "negative verify timeout",
			mutate:  func(c *Config) { c.Verify.TimeoutSeconds = -5 },
			wantErr: "verify.timeout_seconds cannot be negative",
		},
		{
			name:    "author name without email",
			mutate:  func(c *Config) { c.Git.AuthorName = "bot" },
			wantErr: "must be set together",
		},
		{
			name:    "author email without name",
			mutate:  func(c *Config) { c.Git.AuthorEmail = "bot@example.com" },
			wantErr: "must be set together",
		},
		{
			name: "author pair is valid",
			mutate: func(c *Config) {
				c.Git.AuthorName = "bot"
				c.Git.AuthorEmail = "bot@example.com"
			},
		},
		{
			name: "artifacts without output dir",
			mutate: func(c *Config) {
				c.Artifacts.Enabled = true
				c.Artifacts.OutputDir = ""
			},
			wantErr: "artifacts.output_dir is required",
		},
		{
			name: "disabled artifacts skip output dir check",
			mutate: func(c *Config) {
				c.Artifacts.Enabled = false
				c.Artifacts.OutputDir = ""
			},
		},
		{
			name:    "invalid verbosity",
			mutate:  func(c *Config) { c.Logging.Verbosity = "loud" },
			wantErr: "invalid logging verbosity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDefaultsVerbosity(t *testing.T) {
	config := validConfig()
	config.Logging.Verbosity = ""

	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if config.Logging.Verbosity != "normal" {
		t.Errorf("verbosity = %q, want %q", config.Logging.Verbosity, "normal")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Mode != ModeWrite {
		t.Errorf("Mode = %q, want %q", config.Mode, ModeWrite)
	}
	if config.Loop.MaxIterations != agent.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", config.Loop.MaxIterations, agent.DefaultMaxIterations)
	}
	if config.Loop.StepsPerIteration != agent.DefaultStepsPerIteration {
		t.Errorf("StepsPerIteration = %d, want %d", config.Loop.StepsPerIteration, agent.DefaultStepsPerIteration)
	}
	if config.Git.AutoCommit {
		t.Error("AutoCommit should default to false")
	}
	if !config.Artifacts.Enabled {
		t.Error("artifacts should default to enabled")
	}
	if config.Artifacts.OutputDir != ".anvil/artifacts" {
		t.Errorf("OutputDir = %q, want %q", config.Artifacts.OutputDir, ".anvil/artifacts")
	}
	if !config.Artifacts.JSON || !config.Artifacts.Markdown || !config.Artifacts.Metrics {
		t.Error("all artifact formats should default to enabled")
	}
	if config.Logging.Verbosity != "normal" {
		t.Errorf("Verbosity = %q, want %q", config.Logging.Verbosity, "normal")
	}
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	content := `task: "refactor the parser"
mode: read-only
git:
  auto_commit: true
logging:
  verbosity: quiet
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}

	if config.Task != "refactor the parser" {
		t.Errorf("Task = %q", config.Task)
	}
	if config.Mode != ModeReadOnly {
		t.Errorf("Mode = %q, want %q", config.Mode, ModeReadOnly)
	}
	if !config.Git.AutoCommit {
		t.Error("AutoCommit should come from the file")
	}
	if config.Logging.Verbosity != "quiet" {
		t.Errorf("Verbosity = %q, want %q", config.Logging.Verbosity, "quiet")
	}

	// Fields the file does not mention keep their defaults.
	if config.Loop.MaxIterations != agent.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want default %d", config.Loop.MaxIterations, agent.DefaultMaxIterations)
	}
	if !config.Artifacts.Enabled || config.Artifacts.OutputDir != ".anvil/artifacts" {
		t.Errorf("artifact defaults lost: %+v", config.Artifacts)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("err = %v, want read failure", err)
	}
}

func TestLoadConfigFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("task: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfigFile(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("err = %v, want parse failure", err)
	}
}

func TestConfig_VerifyConfig(t *testing.T) {
	config := validConfig()
	config.Verify.PythonLinters = []string{"ruff check ."}
	config.Verify.TimeoutSeconds = 90

	got := config.verifyConfig()
	if len(got.PythonLinters) != 1 || got.PythonLinters[0] != "ruff check ." {
		t.Errorf("PythonLinters = %v", got.PythonLinters)
	}
	if got.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", got.Timeout)
	}

	config.Verify.TimeoutSeconds = 0
	if got := config.verifyConfig(); got.Timeout != 0 {
		t.Errorf("zero timeout should stay zero, got %v", got.Timeout)
	}
}

func TestTaskSlug(t *testing.T) {
	tests := []struct {
		task string
		want string
	}{
		{"add feature file", "add-feature-file"},
		{"Fix THE Bug!", "fix-the-bug"},
		{"update   config, then   verify", "update-config-then-verify"},
		{"", "task"},
		{"!!!", "task"},
		{strings.Repeat("a", 50), strings.Repeat("a", 40)},
	}

	for _, tt := range tests {
		if got := taskSlug(tt.task); got != tt.want {
			t.Errorf("taskSlug(%q) = %q, want %q", tt.task, got, tt.want)
		}
	}
}
