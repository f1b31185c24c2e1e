package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGuard_WhitelistLifecycle(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if got := guard.GetWhitelist(); len(got) != 0 {
		t.Errorf("GetWhitelist() initially returned %d items, want 0", len(got))
	}

	outsideDir := t.TempDir()
	if guard.IsWithinWorkspace(outsideDir) {
		t.Error("Directory should not be within workspace before whitelisting")
	}

	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	if !guard.IsWithinWorkspace(outsideDir) {
		t.Error("Directory should be within workspace after whitelisting")
	}

	// Children of a whitelisted directory are covered too
	childPath := filepath.Join(outsideDir, "subdir", "file.txt")
	if !guard.IsWithinWorkspace(childPath) {
		t.Error("Child of whitelisted directory should be within workspace")
	}

	// Adding the same directory again does not duplicate it
	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() second call error = %v", err)
	}
	if got := guard.GetWhitelist(); len(got) != 1 {
		t.Errorf("GetWhitelist() returned %d items after duplicate add, want 1", len(got))
	}

	guard.ClearWhitelist()
	if guard.IsWithinWorkspace(outsideDir) {
		t.Error("Directory should not be within workspace after clearing whitelist")
	}
	if got := guard.GetWhitelist(); len(got) != 0 {
		t.Errorf("GetWhitelist() returned %d items after clear, want 0", len(got))
	}
}

func TestGuard_AddWhitelistEmpty(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if err := guard.AddWhitelist(""); err == nil {
		t.Error("AddWhitelist() expected error for empty path")
	}
}

func TestGuard_AddWhitelistNonExistent(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	// Whitelisting a directory that does not exist yet is allowed; the
	// agent state directory is created lazily on first use.
	parent := t.TempDir()
	pending := filepath.Join(parent, ".anvil", "artifacts")
	if err := guard.AddWhitelist(pending); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	if got := guard.GetWhitelist(); len(got) != 1 {
		t.Fatalf("GetWhitelist() returned %d items, want 1", len(got))
	}

	// Once the directory exists, paths inside it pass validation.
	if err := os.MkdirAll(pending, 0755); err != nil {
		t.Fatalf("Failed to create whitelisted directory: %v", err)
	}
	if err := guard.ValidatePath(filepath.Join(pending, "run.log")); err != nil {
		t.Errorf("ValidatePath() error = %v, want nil for path in whitelisted directory", err)
	}
}

func TestGuard_GetWhitelistReturnsCopy(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if err := guard.AddWhitelist(t.TempDir()); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}

	whitelist := guard.GetWhitelist()
	whitelist[0] = "/modified/path"
	if guard.GetWhitelist()[0] == "/modified/path" {
		t.Error("GetWhitelist() should return a copy, not the original slice")
	}
}

func TestGuard_ValidatePathWithWhitelist(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "test.txt")
	if err := os.WriteFile(outsideFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := guard.ValidatePath(outsideFile); err == nil {
		t.Error("ValidatePath() expected error for path outside workspace")
	}

	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	if err := guard.ValidatePath(outsideFile); err != nil {
		t.Errorf("ValidatePath() error = %v, want nil after whitelisting", err)
	}
}

func TestGuard_WhitelistDoesNotAuthorizeAbsoluteActionPaths(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	outsideDir := t.TempDir()
	outsideFile := filepath.Join(outsideDir, "state.json")
	if err := os.WriteFile(outsideFile, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}

	// The whitelist opens ValidatePath for agent-owned state, but action
	// paths stay jailed: ResolveWithin rejects absolute paths regardless.
	if err := guard.ValidatePath(outsideFile); err != nil {
		t.Fatalf("ValidatePath() error = %v, want nil for whitelisted path", err)
	}
	if _, err := guard.ResolveWithin(outsideFile); err == nil {
		t.Error("ResolveWithin() expected error for absolute path into whitelisted directory")
	}
}
