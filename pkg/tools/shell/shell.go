// Package shell runs allowlisted commands inside the workspace. Commands are
// validated before execution: the leading executable must be on the allowlist
// and the command line must not match any dangerous pattern. Validation
// failures never reach the OS.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/craftd/anvil/pkg/security"
	"github.com/craftd/anvil/pkg/security/workspace"
)

// DefaultMaxTimeout caps command runtime when the caller does not supply a
// tighter bound.
const DefaultMaxTimeout = 120 * time.Second

// DefaultAllowlist names the executables permitted when the caller does not
// configure a list of its own: interpreters, package managers, and the
// quality tools the planner reaches for.
var DefaultAllowlist = []string{
	"pytest", "python", "python3", "node", "npm", "pnpm", "yarn",
	"ruff", "mypy", "eslint", "tsc", "make", "uv", "pip", "git",
}

// dangerousPatterns are rejected even for allowlisted executables. Order
// matters: the first match supplies the rejection reason.
var dangerousPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`\brm\s+-rf\s+/`), "Dangerous recursive delete"},
	{regexp.MustCompile(`curl.*\|.*bash`), "Piping curl to bash"},
	{regexp.MustCompile(`wget.*\|.*bash`), "Piping wget to bash"},
	{regexp.MustCompile(`\bsudo\b`), "Sudo not allowed"},
	{regexp.MustCompile(`>\s*/dev/`), "Writing to /dev/ not allowed"},
}

// Result captures everything a command run produced. Validation failures and
// timeouts report exit code -1 with empty output.
type Result struct {
	Success  bool
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Message  string
}

// Tool executes shell commands with allowlist and pattern screening.
type Tool struct {
	guard      *workspace.Guard
	allowlist  map[string]struct{}
	maxTimeout time.Duration
}

// NewTool creates a shell adapter rooted at the guard's workspace. A
// non-positive maxTimeout selects the default cap.
func NewTool(guard *workspace.Guard, allowlist []string, maxTimeout time.Duration) *Tool {
	if maxTimeout <= 0 {
		maxTimeout = DefaultMaxTimeout
	}
	allowed := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = struct{}{}
	}
	return &Tool{
		guard:      guard,
		allowlist:  allowed,
		maxTimeout: maxTimeout,
	}
}

// Run validates and executes a command in the workspace root via "sh -c".
// timeoutSeconds is clamped to the configured maximum; zero or negative
// selects the maximum.
func (t *Tool) Run(ctx context.Context, command string, timeoutSeconds int) Result {
	if violation := t.Validate(command); violation != nil {
		return Result{
			Command:  command,
			ExitCode: -1,
			Message:  fmt.Sprintf("Command rejected: %s", violation.Message),
		}
	}

	timeout := t.maxTimeout
	if timeoutSeconds > 0 && time.Duration(timeoutSeconds)*time.Second <= t.maxTimeout {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = t.guard.WorkspaceDir()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return Result{
			Command:  command,
			ExitCode: -1,
			Message:  fmt.Sprintf("Command timed out after %ds", int(timeout.Seconds())),
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{
				Command:  command,
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
				Message:  "Command failed",
			}
		}
		return Result{
			Command:  command,
			ExitCode: -1,
			Message:  fmt.Sprintf("Error executing command: %v", err),
		}
	}

	return Result{
		Success:  true,
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
		Message:  "Command executed successfully",
	}
}

// Validate screens a command without running it. It returns nil when the
// command is allowed, otherwise a violation describing the first failed
// check. The executable is identified by the final path segment of the first
// whitespace-separated word, so "/usr/bin/python" and "python" are the same.
func (t *Tool) Validate(command string) *security.Violation {
	firstWord := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		firstWord = fields[0]
	}
	base := firstWord[strings.LastIndex(firstWord, "/")+1:]

	if _, ok := t.allowlist[base]; !ok {
		return &security.Violation{
			Type:    security.ViolationAllowlist,
			Message: fmt.Sprintf("Command '%s' not in allowlist", base),
			Details: map[string]interface{}{"command": command, "executable": base},
		}
	}

	for _, dp := range dangerousPatterns {
		if dp.re.MatchString(command) {
			return &security.Violation{
				Type:    security.ViolationDangerousPattern,
				Message: dp.reason,
				Details: map[string]interface{}{"command": command, "pattern": dp.re.String()},
			}
		}
	}

	return nil
}

// MaxTimeout returns the configured runtime cap.
func (t *Tool) MaxTimeout() time.Duration {
	return t.maxTimeout
}
