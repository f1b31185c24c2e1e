package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreMatcher_Defaults(t *testing.T) {
	matcher, err := NewIgnoreMatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewIgnoreMatcher() error = %v", err)
	}

	tests := []struct {
		name  string
		path  string
		isDir bool
		want  bool
	}{
		{"git directory", ".git", true, true},
		{"file inside git directory", ".git/config", false, true},
		{"node_modules directory", "node_modules", true, true},
		{"nested node_modules", "web/node_modules/lodash/index.js", false, true},
		{"agent trash", ".agent_trash/123_old.py", false, true},
		{"agent runs", ".agent_runs/run1/plan.json", false, true},
		{"pycache", "src/__pycache__/mod.cpython-311.pyc", false, true},
		{"pyc file at root", "mod.pyc", false, true},
		{"pyc file nested", "src/mod.pyc", false, true},
		{"regular source file", "src/main.py", false, false},
		{"regular directory", "src", true, false},
		{"file named like ignored dir", "dist", false, false},
		{"dist directory", "dist", true, true},
		{"workspace root", ".", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.ShouldIgnore(tt.path, tt.isDir); got != tt.want {
				t.Errorf("ShouldIgnore(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_GitignoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	gitignore := "*.log\nsecrets/\n# comment line\n\n!keep.log\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignore), 0644); err != nil {
		t.Fatalf("Failed to write .gitignore: %v", err)
	}

	matcher, err := NewIgnoreMatcher(tmpDir)
	if err != nil {
		t.Fatalf("NewIgnoreMatcher() error = %v", err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"debug.log", false, true},
		{"logs/debug.log", false, true},
		{"secrets", true, true},
		{"secrets/api.txt", false, true},
		{"keep.log", false, false}, // negated after *.log
		{"main.py", false, false},
	}

	for _, tt := range tests {
		if got := matcher.ShouldIgnore(tt.path, tt.isDir); got != tt.want {
			t.Errorf("ShouldIgnore(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestIgnoreMatcher_AnvilignoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".anvilignore"), []byte("generated/\n"), 0644); err != nil {
		t.Fatalf("Failed to write .anvilignore: %v", err)
	}

	matcher, err := NewIgnoreMatcher(tmpDir)
	if err != nil {
		t.Fatalf("NewIgnoreMatcher() error = %v", err)
	}

	if !matcher.ShouldIgnore("generated/out.py", false) {
		t.Error("Expected .anvilignore pattern to apply")
	}
	if matcher.ShouldIgnore("src/out.py", false) {
		t.Error("Unrelated path should not be ignored")
	}
}

func TestIgnoreMatcher_InvalidPattern(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("[invalid\n"), 0644); err != nil {
		t.Fatalf("Failed to write .gitignore: %v", err)
	}

	if _, err := NewIgnoreMatcher(tmpDir); err == nil {
		t.Error("Expected error for invalid glob pattern")
	}
}
