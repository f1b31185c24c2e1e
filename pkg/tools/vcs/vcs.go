// Package vcs wraps the git operations the agent needs: status, diffs,
// branching, commits, and restores. All commands run through the git binary
// in the workspace root with a bounded timeout. User-facing operations fold
// failures into Result values; infrastructure helpers return errors.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

const gitTimeout = 30 * time.Second

// Result captures the outcome of a user-facing git operation.
type Result struct {
	Success bool
	Message string
	Data    string
}

// FileStat summarizes one changed file in a diff.
type FileStat struct {
	Path      string
	Additions int64
	Deletions int64
}

// Tool performs git operations in a single repository.
type Tool struct {
	root string
}

// NewTool creates a git adapter rooted at the given directory.
func NewTool(root string) *Tool {
	return &Tool{root: root}
}

// EnsureRepo initializes a repository at the root if one is not already
// present.
func (t *Tool) EnsureRepo(ctx context.Context) error {
	if _, err := t.execGit(ctx, "rev-parse", "--is-inside-work-tree"); err == nil {
		return nil
	}
	if _, err := t.execGit(ctx, "init"); err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	return nil
}

// Status returns the full git status output.
func (t *Tool) Status(ctx context.Context) Result {
	output, err := t.execGit(ctx, "status")
	if err != nil {
		return Result{Message: fmt.Sprintf("Error getting status: %v", err)}
	}
	return Result{Success: true, Message: "Got status", Data: output}
}

// Diff returns the working tree diff, or the staged diff when cached is set.
func (t *Tool) Diff(ctx context.Context, cached bool) Result {
	args := []string{"diff"}
	if cached {
		args = append(args, "--cached")
	}
	output, err := t.execGit(ctx, args...)
	if err != nil {
		return Result{Message: fmt.Sprintf("Error getting diff: %v", err)}
	}
	return Result{Success: true, Message: "Got diff", Data: output}
}

// DiffBranch returns the diff from the merge base of baseBranch to HEAD.
func (t *Tool) DiffBranch(ctx context.Context, baseBranch string) Result {
	output, err := t.execGit(ctx, "diff", fmt.Sprintf("%s...HEAD", baseBranch))
	if err != nil {
		return Result{Message: fmt.Sprintf("Error getting diff: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("Got diff from %s", baseBranch), Data: output}
}

// CheckoutBranch switches to a branch, creating it first when create is set.
func (t *Tool) CheckoutBranch(ctx context.Context, branchName string, create bool) Result {
	args := []string{"checkout"}
	if create {
		args = append(args, "-b")
	}
	args = append(args, branchName)

	if _, err := t.execGit(ctx, args...); err != nil {
		return Result{Message: fmt.Sprintf("Error checking out branch: %v", err)}
	}
	return Result{Success: true, Message: fmt.Sprintf("Checked out %s", branchName)}
}

// Commit stages everything and creates a commit. With nothing to record it
// fails with "No changes to commit". On success Data carries the short SHA.
func (t *Tool) Commit(ctx context.Context, message string) Result {
	if _, err := t.execGit(ctx, "add", "-A"); err != nil {
		return Result{Message: fmt.Sprintf("Error creating commit: %v", err)}
	}

	if t.hasHead(ctx) {
		// Exit 0 means the staged tree matches HEAD.
		if _, err := t.execGit(ctx, "diff", "--cached", "--quiet"); err == nil {
			return Result{Message: "No changes to commit"}
		}
	} else {
		// Fresh repository: nothing staged means nothing to record.
		output, err := t.execGit(ctx, "status", "--porcelain")
		if err != nil || strings.TrimSpace(output) == "" {
			return Result{Message: "No changes to commit"}
		}
	}

	if _, err := t.execGit(ctx, "commit", "-m", message); err != nil {
		return Result{Message: fmt.Sprintf("Error creating commit: %v", err)}
	}

	sha, err := t.execGit(ctx, "rev-parse", "HEAD")
	if err != nil {
		return Result{Message: fmt.Sprintf("Error creating commit: %v", err)}
	}
	short := strings.TrimSpace(sha)
	if len(short) > 7 {
		short = short[:7]
	}

	return Result{Success: true, Message: fmt.Sprintf("Created commit %s", short), Data: short}
}

// Restore discards working tree changes for a path, or for everything when
// path is empty.
func (t *Tool) Restore(ctx context.Context, path string) Result {
	if path != "" {
		if _, err := t.execGit(ctx, "restore", path); err != nil {
			return Result{Message: fmt.Sprintf("Error restoring: %v", err)}
		}
		return Result{Success: true, Message: fmt.Sprintf("Restored %s", path)}
	}

	if _, err := t.execGit(ctx, "restore", "."); err != nil {
		return Result{Message: fmt.Sprintf("Error restoring: %v", err)}
	}
	return Result{Success: true, Message: "Restored all files"}
}

// SetAuthor sets the repository-local commit identity. Automated runs use
// this so their commits carry the configured bot identity instead of
// whatever the ambient git config holds.
func (t *Tool) SetAuthor(ctx context.Context, name, email string) error {
	if _, err := t.execGit(ctx, "config", "user.name", name); err != nil {
		return fmt.Errorf("failed to set author name: %w", err)
	}
	if _, err := t.execGit(ctx, "config", "user.email", email); err != nil {
		return fmt.Errorf("failed to set author email: %w", err)
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (t *Tool) CurrentBranch(ctx context.Context) (string, error) {
	output, err := t.execGit(ctx, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// CheckClean returns an error when the workspace has uncommitted changes.
func (t *Tool) CheckClean(ctx context.Context) error {
	output, err := t.execGit(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("failed to check git status: %w", err)
	}
	if strings.TrimSpace(output) != "" {
		return fmt.Errorf("workspace has uncommitted changes")
	}
	return nil
}

// ChangedFiles lists modified and untracked paths from porcelain status.
func (t *Tool) ChangedFiles(ctx context.Context) ([]string, error) {
	output, err := t.execGit(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	files := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) > 3 {
			files = append(files, strings.TrimSpace(line[3:]))
		}
	}
	return files, nil
}

// DiffStats parses the working tree diff against HEAD into per-file
// added/removed line counts.
func (t *Tool) DiffStats(ctx context.Context) ([]FileStat, error) {
	output, err := t.execGit(ctx, "diff", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to get diff: %w", err)
	}

	files, _, err := gitdiff.Parse(strings.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	stats := make([]FileStat, 0, len(files))
	for _, file := range files {
		name := file.NewName
		if name == "" {
			name = file.OldName
		}
		stat := FileStat{Path: name}
		for _, fragment := range file.TextFragments {
			stat.Additions += fragment.LinesAdded
			stat.Deletions += fragment.LinesDeleted
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// hasHead reports whether the repository has at least one commit.
func (t *Tool) hasHead(ctx context.Context) bool {
	_, err := t.execGit(ctx, "rev-parse", "--verify", "HEAD")
	return err == nil
}

// execGit executes a git command in the repository root.
func (t *Tool) execGit(ctx context.Context, args ...string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "git", args...)
	cmd.Dir = t.root

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w\nOutput: %s", err, string(output))
	}
	return string(output), nil
}

// GenerateBranchName builds a timestamped branch name for automated runs.
func GenerateBranchName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, time.Now().Format("20060102-150405"))
}
