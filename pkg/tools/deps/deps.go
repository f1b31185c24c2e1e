// Package deps installs project dependencies for Python and Node workspaces.
// Python installs try uv first and fall back to pip; Node installs pick the
// package manager that matches the lockfile present in the repository.
package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// InstallTimeout bounds each installer invocation. The uv attempt and the
// pip fallback are timed separately, matching one invocation each.
const InstallTimeout = 300 * time.Second

// Result captures the outcome of a dependency installation.
type Result struct {
	Success bool
	Message string
	Stdout  string
	Stderr  string
}

// Tool installs packages into the workspace's environment.
type Tool struct {
	root      string
	pythonExe string
	timeout   time.Duration
}

// NewTool creates an installer rooted at the given repository directory.
func NewTool(root string) *Tool {
	return &Tool{
		root:      root,
		pythonExe: "python3",
		timeout:   InstallTimeout,
	}
}

// Install installs packages for the given language ("python" or "node").
func (t *Tool) Install(ctx context.Context, language string, packages []string) Result {
	switch language {
	case "python":
		return t.installPython(ctx, packages)
	case "node":
		return t.installNode(ctx, packages)
	default:
		return Result{Message: fmt.Sprintf("Unknown language: %s", language)}
	}
}

func (t *Tool) installPython(ctx context.Context, packages []string) Result {
	stdout, stderr, err := t.run(ctx, "uv", append([]string{"pip", "install"}, packages...)...)
	if err == nil {
		return Result{
			Success: true,
			Message: fmt.Sprintf("Installed Python packages with uv: %s", strings.Join(packages, ", ")),
			Stdout:  stdout,
			Stderr:  stderr,
		}
	}
	if !uvFallback(err) {
		return Result{Message: fmt.Sprintf("Error installing Python packages: %v", err)}
	}

	// uv is missing or failed; retry with pip so the install still lands in
	// the active interpreter's environment.
	stdout, stderr, err = t.run(ctx, t.pythonExe, append([]string{"-m", "pip", "install"}, packages...)...)
	if err == nil {
		return Result{
			Success: true,
			Message: fmt.Sprintf("Installed Python packages with pip: %s", strings.Join(packages, ", ")),
			Stdout:  stdout,
			Stderr:  stderr,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Message: "Installation failed", Stdout: stdout, Stderr: stderr}
	}
	return Result{Message: fmt.Sprintf("Error installing Python packages: %v", err)}
}

func (t *Tool) installNode(ctx context.Context, packages []string) Result {
	name, args := t.nodeInstaller()

	stdout, stderr, err := t.run(ctx, name, append(args, packages...)...)
	if err == nil {
		return Result{
			Success: true,
			Message: fmt.Sprintf("Installed Node packages: %s", strings.Join(packages, ", ")),
			Stdout:  stdout,
			Stderr:  stderr,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Message: "Installation failed", Stdout: stdout, Stderr: stderr}
	}
	return Result{Message: fmt.Sprintf("Error installing Node packages: %v", err)}
}

// nodeInstaller picks the package manager matching the repository's lockfile.
// No lockfile means npm.
func (t *Tool) nodeInstaller() (string, []string) {
	if fileExists(filepath.Join(t.root, "pnpm-lock.yaml")) {
		return "pnpm", []string{"add"}
	}
	if fileExists(filepath.Join(t.root, "yarn.lock")) {
		return "yarn", []string{"add"}
	}
	return "npm", []string{"install"}
}

// run executes an installer in the workspace root with the install timeout.
// A deadline hit is reported as a plain error so it is not mistaken for an
// installer exit status.
func (t *Tool) run(ctx context.Context, name string, args ...string) (string, string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = t.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), fmt.Errorf("command timed out after %ds", int(t.timeout.Seconds()))
	}
	return stdout.String(), stderr.String(), err
}

// uvFallback reports whether a failed uv attempt should fall through to pip:
// either uv is not installed or it ran and exited non-zero.
func uvFallback(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return true
	}
	return errors.Is(err, exec.ErrNotFound)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
