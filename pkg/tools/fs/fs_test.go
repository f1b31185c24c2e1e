package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/craftd/anvil/pkg/security/workspace"
)

func setupTestDir(t *testing.T) (string, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "fs_tool_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return tmpDir, func() { os.RemoveAll(tmpDir) }
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func newTestTool(t *testing.T, dir string) *Tool {
	t.Helper()
	guard, err := workspace.NewGuard(dir)
	if err != nil {
		t.Fatalf("Failed to create workspace guard: %v", err)
	}
	return NewTool(guard, 0)
}

func TestRead_ReturnsContent(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "hello.txt"), "hello world")
	tool := newTestTool(t, tmpDir)

	result := tool.Read("hello.txt")
	if !result.Success {
		t.Fatalf("Read failed: %s", result.Message)
	}
	if result.Message != "Read 11 bytes" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
	if result.Data != "hello world" {
		t.Errorf("Expected content in data, got: %v", result.Data)
	}
}

func TestRead_MissingFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Read("nope.txt")
	if result.Success {
		t.Fatal("Expected failure for missing file")
	}
	if result.Message != "File not found: nope.txt" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestRead_Directory(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	if err := os.Mkdir(filepath.Join(tmpDir, "subdir"), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	tool := newTestTool(t, tmpDir)

	result := tool.Read("subdir")
	if result.Success {
		t.Fatal("Expected failure for directory")
	}
	if result.Message != "Not a file: subdir" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestRead_FileTooLarge(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "big.txt"), strings.Repeat("x", 64))

	guard, err := workspace.NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create workspace guard: %v", err)
	}
	tool := NewTool(guard, 16)

	result := tool.Read("big.txt")
	if result.Success {
		t.Fatal("Expected failure for oversized file")
	}
	if result.Message != "File too large: big.txt (max 16 bytes)" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestWrite_CreatesFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Write("new.txt", "Hello, World!\n")
	if !result.Success {
		t.Fatalf("Write failed: %s", result.Message)
	}
	if result.Message != "Created new.txt (14 bytes)" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "new.txt"))
	if err != nil {
		t.Fatalf("Failed to read created file: %v", err)
	}
	if string(content) != "Hello, World!\n" {
		t.Errorf("Unexpected file content: %s", string(content))
	}

	if !strings.Contains(result.Diff, "+Hello, World!") {
		t.Errorf("Expected added line in diff, got: %s", result.Diff)
	}
}

func TestWrite_CreatesNestedDirectories(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Write("deep/nested/file.txt", "nested\n")
	if !result.Success {
		t.Fatalf("Write failed: %s", result.Message)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "deep", "nested", "file.txt"))
	if err != nil {
		t.Fatalf("Failed to read nested file: %v", err)
	}
	if string(content) != "nested\n" {
		t.Errorf("Unexpected file content: %s", string(content))
	}
}

func TestWrite_UpdatesExistingFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "existing.txt"), "old content\n")
	tool := newTestTool(t, tmpDir)

	result := tool.Write("existing.txt", "new content\n")
	if !result.Success {
		t.Fatalf("Write failed: %s", result.Message)
	}
	if result.Message != "Updated existing.txt (12 bytes)" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	if !strings.Contains(result.Diff, "--- a/existing.txt") {
		t.Errorf("Expected a/ label in diff, got: %s", result.Diff)
	}
	if !strings.Contains(result.Diff, "+++ b/existing.txt") {
		t.Errorf("Expected b/ label in diff, got: %s", result.Diff)
	}
	if !strings.Contains(result.Diff, "-old content") || !strings.Contains(result.Diff, "+new content") {
		t.Errorf("Expected old and new lines in diff, got: %s", result.Diff)
	}
}

func TestWrite_EmptyExistingFileReportsCreated(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	// A file that exists but is empty counts as created, not updated.
	writeTestFile(t, filepath.Join(tmpDir, "empty.txt"), "")
	tool := newTestTool(t, tmpDir)

	result := tool.Write("empty.txt", "content\n")
	if !result.Success {
		t.Fatalf("Write failed: %s", result.Message)
	}
	if !strings.HasPrefix(result.Message, "Created") {
		t.Errorf("Expected 'Created' for previously empty file, got: %s", result.Message)
	}
}

func TestWrite_ContentTooLarge(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	guard, err := workspace.NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create workspace guard: %v", err)
	}
	tool := NewTool(guard, 8)

	result := tool.Write("big.txt", strings.Repeat("x", 32))
	if result.Success {
		t.Fatal("Expected failure for oversized content")
	}
	if result.Message != "Content too large for big.txt" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "big.txt")); !os.IsNotExist(err) {
		t.Error("Oversized content should not have been written")
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "atomic.txt"), "original")
	tool := newTestTool(t, tmpDir)

	result := tool.Write("atomic.txt", "replaced")
	if !result.Success {
		t.Fatalf("Write failed: %s", result.Message)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("Found temporary file after write: %s", entry.Name())
		}
	}
}

func TestEdit_ReplacesFirstOccurrenceOnly(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "code.py"), "x = 1\ny = 1\nz = 1\n")
	tool := newTestTool(t, tmpDir)

	result := tool.Edit("code.py", "= 1", "= 2")
	if !result.Success {
		t.Fatalf("Edit failed: %s", result.Message)
	}
	if result.Message != "Edited code.py" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "code.py"))
	if err != nil {
		t.Fatalf("Failed to read edited file: %v", err)
	}
	if string(content) != "x = 2\ny = 1\nz = 1\n" {
		t.Errorf("Expected only first occurrence replaced, got: %s", string(content))
	}
	if result.Diff == "" {
		t.Error("Expected non-empty diff")
	}
}

func TestEdit_TextNotFound(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "code.py"), "x = 1\n")
	tool := newTestTool(t, tmpDir)

	result := tool.Edit("code.py", "does not appear", "replacement")
	if result.Success {
		t.Fatal("Expected failure for missing text")
	}
	if result.Message != "Text not found in code.py. Cannot apply edit." {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	content, _ := os.ReadFile(filepath.Join(tmpDir, "code.py"))
	if string(content) != "x = 1\n" {
		t.Error("File should be unchanged after failed edit")
	}
}

func TestEdit_MissingFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Edit("ghost.py", "a", "b")
	if result.Success {
		t.Fatal("Expected failure for missing file")
	}
	if result.Message != "File not found: ghost.py" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestInsertLines_Operations(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		lineNumber int
		content    string
		expected   string
	}{
		{"after first line", "after", 1, "inserted", "one\ninserted\ntwo\nthree\n"},
		{"before first line", "before", 1, "inserted", "inserted\none\ntwo\nthree\n"},
		{"replace middle line", "replace", 2, "replaced", "one\nreplaced\nthree\n"},
		{"after last line", "after", 3, "appended", "one\ntwo\nthree\nappended\n"},
		{"append position", "after", 4, "appended", "one\ntwo\nthree\nappended\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir, cleanup := setupTestDir(t)
			defer cleanup()

			writeTestFile(t, filepath.Join(tmpDir, "lines.txt"), "one\ntwo\nthree\n")
			tool := newTestTool(t, tmpDir)

			result := tool.InsertLines("lines.txt", tt.lineNumber, tt.content, tt.operation)
			if !result.Success {
				t.Fatalf("InsertLines failed: %s", result.Message)
			}
			if result.Message != fmt.Sprintf("Inserted at line %d in lines.txt", tt.lineNumber) {
				t.Errorf("Unexpected message: %s", result.Message)
			}

			content, err := os.ReadFile(filepath.Join(tmpDir, "lines.txt"))
			if err != nil {
				t.Fatalf("Failed to read file: %v", err)
			}
			if string(content) != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, string(content))
			}
		})
	}
}

func TestInsertLines_OutOfRange(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		lineNumber int
	}{
		{"zero line number", "after", 0},
		{"negative line number", "before", -1},
		{"past append position", "after", 5},
		{"replace past last line", "replace", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir, cleanup := setupTestDir(t)
			defer cleanup()

			writeTestFile(t, filepath.Join(tmpDir, "lines.txt"), "one\ntwo\nthree\n")
			tool := newTestTool(t, tmpDir)

			result := tool.InsertLines("lines.txt", tt.lineNumber, "x", tt.operation)
			if result.Success {
				t.Fatal("Expected failure for out-of-range line number")
			}
			expected := fmt.Sprintf("Line number %d out of range (file has 3 lines)", tt.lineNumber)
			if result.Message != expected {
				t.Errorf("Unexpected message: %s", result.Message)
			}
		})
	}
}

func TestInsertLines_InvalidOperation(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "lines.txt"), "one\n")
	tool := newTestTool(t, tmpDir)

	result := tool.InsertLines("lines.txt", 1, "x", "around")
	if result.Success {
		t.Fatal("Expected failure for invalid operation")
	}
	if result.Message != "Invalid operation: around. Must be 'after', 'before', or 'replace'" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestInsertLines_NormalizesTrailingNewlines(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	// Neither the file's last line nor the inserted content ends with a
	// newline; both are normalized.
	writeTestFile(t, filepath.Join(tmpDir, "lines.txt"), "one")
	tool := newTestTool(t, tmpDir)

	result := tool.InsertLines("lines.txt", 1, "two", "after")
	if !result.Success {
		t.Fatalf("InsertLines failed: %s", result.Message)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "lines.txt"))
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "one\ntwo\n" {
		t.Errorf("Expected normalized newlines, got %q", string(content))
	}
}

func TestInsertLines_EmptyFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "empty.txt"), "")
	tool := newTestTool(t, tmpDir)

	result := tool.InsertLines("empty.txt", 1, "first", "after")
	if !result.Success {
		t.Fatalf("InsertLines failed: %s", result.Message)
	}

	content, _ := os.ReadFile(filepath.Join(tmpDir, "empty.txt"))
	if string(content) != "first\n" {
		t.Errorf("Expected %q, got %q", "first\n", string(content))
	}
}

func TestDelete_MovesToTrash(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "doomed.txt"), "precious data")
	tool := newTestTool(t, tmpDir)

	result := tool.Delete("doomed.txt")
	if !result.Success {
		t.Fatalf("Delete failed: %s", result.Message)
	}
	if !strings.HasPrefix(result.Message, "Deleted doomed.txt (moved to ") {
		t.Errorf("Unexpected message: %s", result.Message)
	}
	if !strings.Contains(result.Message, TrashDirName) {
		t.Errorf("Expected trash path in message, got: %s", result.Message)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "doomed.txt")); !os.IsNotExist(err) {
		t.Error("Original file should be gone")
	}

	entries, err := os.ReadDir(filepath.Join(tmpDir, TrashDirName))
	if err != nil {
		t.Fatalf("Failed to read trash dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 trashed file, got %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), "_doomed.txt") {
		t.Errorf("Expected timestamped name, got: %s", entries[0].Name())
	}

	trashed, err := os.ReadFile(filepath.Join(tmpDir, TrashDirName, entries[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read trashed file: %v", err)
	}
	if string(trashed) != "precious data" {
		t.Error("Trashed file content should be preserved")
	}
}

func TestDelete_MissingFile(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Delete("ghost.txt")
	if result.Success {
		t.Fatal("Expected failure for missing file")
	}
	if result.Message != "File not found: ghost.txt" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestListDirectory_SortedWithDirMarkers(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "b.txt"), "b")
	writeTestFile(t, filepath.Join(tmpDir, "a.txt"), "a")
	if err := os.Mkdir(filepath.Join(tmpDir, "src"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	tool := newTestTool(t, tmpDir)

	result := tool.ListDirectory("")
	if !result.Success {
		t.Fatalf("ListDirectory failed: %s", result.Message)
	}
	if result.Message != "Found 3 items" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	names, ok := result.Data.([]string)
	if !ok {
		t.Fatalf("Expected []string data, got %T", result.Data)
	}
	expected := []string{"a.txt", "b.txt", "src/"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, names)
			break
		}
	}
}

func TestListDirectory_FiltersIgnoredEntries(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "node_modules"), 0755); err != nil {
		t.Fatalf("Failed to create node_modules: %v", err)
	}
	writeTestFile(t, filepath.Join(tmpDir, "main.go"), "package main\n")
	tool := newTestTool(t, tmpDir)

	result := tool.ListDirectory(".")
	if !result.Success {
		t.Fatalf("ListDirectory failed: %s", result.Message)
	}

	names, _ := result.Data.([]string)
	for _, name := range names {
		if name == ".git/" || name == "node_modules/" {
			t.Errorf("Ignored entry leaked into listing: %s", name)
		}
	}
	if result.Message != "Found 1 items" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestListDirectory_NotADirectory(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "file.txt"), "x")
	tool := newTestTool(t, tmpDir)

	result := tool.ListDirectory("file.txt")
	if result.Success {
		t.Fatal("Expected failure for file path")
	}
	if result.Message != "Not a directory: file.txt" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestListDirectory_MissingDirectory(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.ListDirectory("nowhere")
	if result.Success {
		t.Fatal("Expected failure for missing directory")
	}
	if result.Message != "Directory not found: nowhere" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestPathJail_RejectsAbsolutePaths(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	result := tool.Write("/etc/evil.txt", "payload")
	if result.Success {
		t.Fatal("Expected failure for absolute path")
	}
	if result.Message != "Absolute paths not allowed: /etc/evil.txt" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestPathJail_RejectsTraversal(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	tool := newTestTool(t, tmpDir)

	for _, op := range []func() bool{
		func() bool { return tool.Read("../escape.txt").Success },
		func() bool { return tool.Write("../escape.txt", "x").Success },
		func() bool { return tool.Edit("../escape.txt", "a", "b").Success },
		func() bool { return tool.Delete("../escape.txt").Success },
		func() bool { return tool.ListDirectory("..").Success },
	} {
		if op() {
			t.Error("Expected traversal to be rejected")
		}
	}

	result := tool.Read("src/../../escape.txt")
	if result.Success {
		t.Fatal("Expected nested traversal to be rejected")
	}
	if result.Message != "Path src/../../escape.txt is outside repository root" {
		t.Errorf("Unexpected message: %s", result.Message)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(tmpDir), "escape.txt")); !os.IsNotExist(err) {
		t.Error("Traversal write must not touch the parent directory")
	}
}
