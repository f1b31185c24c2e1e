// Package verify runs lint and test commands against the workspace and
// folds their results into a single pass/fail report. Commands run through
// the shell with a bounded timeout; the repository language decides which
// command set applies.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/craftd/anvil/pkg/types"
)

// Supported repository languages.
const (
	LangPython = "python"
	LangNode   = "node"
)

// DefaultTimeout bounds each lint or test command.
const DefaultTimeout = 120 * time.Second

// outputLimit caps how much command output is carried into the report.
const outputLimit = 500

// lexerScanLimit caps how many files the lexer tiebreak inspects.
const lexerScanLimit = 200

// Config selects the commands the verifier runs per language.
type Config struct {
	PythonLinters []string
	NodeLinters   []string
	PythonTests   string
	NodeTests     string
	Timeout       time.Duration
}

// DefaultConfig returns the standard lint and test commands.
func DefaultConfig() Config {
	return Config{
		PythonLinters: []string{"ruff check", "mypy"},
		NodeLinters:   []string{"eslint", "tsc --noEmit"},
		PythonTests:   "pytest -q",
		NodeTests:     "npm test --silent",
		Timeout:       DefaultTimeout,
	}
}

// DetectLanguage inspects manifest files to classify the repository.
// Python manifests win over Node when both are present. Without a
// manifest, source files are classified through the syntax-highlighting
// lexer registry and the majority language wins; an empty string means
// no supported language was detected.
func DetectLanguage(root string) string {
	if fileExists(filepath.Join(root, "pyproject.toml")) || fileExists(filepath.Join(root, "setup.py")) {
		return LangPython
	}
	if fileExists(filepath.Join(root, "package.json")) {
		return LangNode
	}
	return detectByLexer(root)
}

// detectByLexer samples source filenames and counts which supported
// language the lexer registry assigns them. Ties go to Python, matching
// the manifest precedence.
func detectByLexer(root string) string {
	skipDirs := map[string]bool{
		"node_modules": true,
		"__pycache__":  true,
		".venv":        true,
		"dist":         true,
		"build":        true,
	}

	counts := make(map[string]int)
	scanned := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if scanned >= lexerScanLimit {
			return filepath.SkipAll
		}
		scanned++

		lexer := lexers.Match(d.Name())
		if lexer == nil {
			return nil
		}
		switch lexer.Config().Name {
		case "Python", "Python 2":
			counts[LangPython]++
		case "JavaScript", "TypeScript", "JSX":
			counts[LangNode]++
		}
		return nil
	})

	if counts[LangPython] == 0 && counts[LangNode] == 0 {
		return ""
	}
	if counts[LangNode] > counts[LangPython] {
		return LangNode
	}
	return LangPython
}

// Verifier runs the configured checks for one workspace.
type Verifier struct {
	root     string
	language string
	cfg      Config
}

// NewVerifier creates a verifier for the workspace, detecting its language
// and filling unset config fields with defaults.
func NewVerifier(root string, cfg Config) *Verifier {
	defaults := DefaultConfig()
	if cfg.PythonLinters == nil {
		cfg.PythonLinters = defaults.PythonLinters
	}
	if cfg.NodeLinters == nil {
		cfg.NodeLinters = defaults.NodeLinters
	}
	if cfg.PythonTests == "" {
		cfg.PythonTests = defaults.PythonTests
	}
	if cfg.NodeTests == "" {
		cfg.NodeTests = defaults.NodeTests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &Verifier{
		root:     root,
		language: DetectLanguage(root),
		cfg:      cfg,
	}
}

// Language returns the detected repository language, or "" when unknown.
func (v *Verifier) Language() string {
	return v.language
}

// Verify runs linters and tests for the detected language. Repositories
// with no detected language pass trivially.
func (v *Verifier) Verify(ctx context.Context) *types.VerificationResult {
	result := &types.VerificationResult{Status: types.VerifyPass}

	if v.language == "" {
		result.Summary = "No verifier for this project"
		return result
	}

	switch v.language {
	case LangPython:
		result.LintErrors = v.runLinters(ctx, v.cfg.PythonLinters)
	case LangNode:
		result.LintErrors = v.runLinters(ctx, v.cfg.NodeLinters)
	}

	result.FailingTests = v.runTests(ctx)

	issues := len(result.LintErrors) + len(result.TypeErrors) + len(result.FailingTests)
	if issues > 0 {
		result.Status = types.VerifyFail
		result.Summary = fmt.Sprintf("Found %d issues", issues)
	} else {
		result.Summary = "All checks passed"
	}
	return result
}

// runLinters executes each linter command. A linter counts as an error
// only when it exits non-zero and wrote to stderr; tools that report
// problems on stdout alone are not treated as failures here.
func (v *Verifier) runLinters(ctx context.Context, commands []string) []string {
	var errs []string
	for _, command := range commands {
		res := v.runCommand(ctx, command)
		if !res.success && res.stderr != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", command, truncateOutput(res.stderr)))
		}
	}
	return errs
}

// runTests executes the test command for the detected language and
// captures its stdout on failure.
func (v *Verifier) runTests(ctx context.Context) []string {
	var command string
	switch v.language {
	case LangPython:
		command = v.cfg.PythonTests
	case LangNode:
		command = v.cfg.NodeTests
	default:
		return nil
	}

	res := v.runCommand(ctx, command)
	if res.success {
		return nil
	}
	return []string{truncateOutput(res.stdout)}
}

type commandResult struct {
	success  bool
	stdout   string
	stderr   string
	exitCode int
}

func (v *Verifier) runCommand(ctx context.Context, command string) commandResult {
	runCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = v.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return commandResult{success: false, stderr: "Command timed out", exitCode: -1}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return commandResult{
				success:  false,
				stdout:   stdout.String(),
				stderr:   stderr.String(),
				exitCode: exitErr.ExitCode(),
			}
		}
		return commandResult{success: false, stderr: err.Error(), exitCode: -1}
	}

	return commandResult{
		success: true,
		stdout:  stdout.String(),
		stderr:  stderr.String(),
	}
}

func truncateOutput(s string) string {
	if len(s) > outputLimit {
		return s[:outputLimit]
	}
	return s
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
