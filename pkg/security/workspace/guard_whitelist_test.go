package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGuard_WhitelistIgnoreInteraction(t *testing.T) {
	// Create a temp workspace
	workspaceDir := t.TempDir()

	// Create a .gitignore that ignores .cache directories
	gitignoreContent := `.cache/`
	gitignorePath := filepath.Join(workspaceDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		t.Fatalf("Failed to create .gitignore: %v", err)
	}

	// Create guard
	guard, err := NewGuard(workspaceDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	// Create a whitelisted directory (simulating ~/.anvil state outside the repo)
	whitelistDir := t.TempDir()
	stateDir := filepath.Join(whitelistDir, ".cache", "state")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatalf("Failed to create .cache/state: %v", err)
	}

	// Add whitelist
	if err := guard.AddWhitelist(stateDir); err != nil {
		t.Fatalf("Failed to add whitelist: %v", err)
	}

	// Test 1: File in workspace .cache directory should be ignored
	workspaceCacheDir := filepath.Join(workspaceDir, ".cache")
	if err := os.MkdirAll(workspaceCacheDir, 0755); err != nil {
		t.Fatalf("Failed to create workspace .cache dir: %v", err)
	}
	workspaceCacheFile := filepath.Join(workspaceCacheDir, "config.json")
	if err := os.WriteFile(workspaceCacheFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create workspace .cache file: %v", err)
	}

	if !guard.ShouldIgnore(workspaceCacheFile) {
		t.Error("Expected workspace .cache/config.json to be ignored by .gitignore pattern")
	}

	// Test 2: File in whitelisted .cache/state directory should NOT be ignored
	whitelistFile := filepath.Join(stateDir, "session.json")
	if err := os.WriteFile(whitelistFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create whitelist file: %v", err)
	}

	if guard.ShouldIgnore(whitelistFile) {
		t.Error("Expected whitelisted .cache/state/session.json to NOT be ignored despite .gitignore pattern")
	}

	// Test 3: Verify whitelisted path is within workspace boundaries
	if !guard.IsWithinWorkspace(whitelistFile) {
		t.Error("Expected whitelisted file to be considered within workspace")
	}

	// Test 4: Nested file in whitelisted directory should also not be ignored
	nestedDir := filepath.Join(stateDir, "runs")
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}
	nestedFile := filepath.Join(nestedDir, "plan.json")
	if err := os.WriteFile(nestedFile, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create nested file: %v", err)
	}

	if guard.ShouldIgnore(nestedFile) {
		t.Error("Expected nested file in whitelisted directory to NOT be ignored")
	}
}

func TestGuard_WhitelistWithRelativePaths(t *testing.T) {
	// Create temp workspace
	workspaceDir := t.TempDir()

	guard, err := NewGuard(workspaceDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	// Create whitelisted directory
	whitelistDir := t.TempDir()
	if err := guard.AddWhitelist(whitelistDir); err != nil {
		t.Fatalf("Failed to add whitelist: %v", err)
	}

	// Create file in whitelisted directory
	testFile := filepath.Join(whitelistDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Test with absolute path
	if guard.ShouldIgnore(testFile) {
		t.Error("Expected whitelisted file (absolute path) to NOT be ignored")
	}
}
