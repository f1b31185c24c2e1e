// Package fs implements the sandboxed filesystem adapter. Every operation
// resolves its path through the workspace guard's jail before touching disk,
// and every failure is folded into an ExecutionResult value instead of an
// error so the orchestration loop always has something to branch on.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/craftd/anvil/pkg/security"
	"github.com/craftd/anvil/pkg/security/workspace"
	"github.com/craftd/anvil/pkg/types"
)

const (
	// TrashDirName is the directory under the workspace root where deleted
	// files are parked. Delete never unlinks; it moves here.
	TrashDirName = ".agent_trash"

	// DefaultMaxFileSize bounds both reads and written content (1 MiB).
	DefaultMaxFileSize = 1048576
)

// Tool performs jailed file operations within a single workspace.
type Tool struct {
	guard       *workspace.Guard
	maxFileSize int64
}

// NewTool creates a filesystem adapter bound to the given guard.
// A non-positive maxFileSize selects the default ceiling.
func NewTool(guard *workspace.Guard, maxFileSize int64) *Tool {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Tool{
		guard:       guard,
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the configured byte ceiling.
func (t *Tool) MaxFileSize() int64 {
	return t.maxFileSize
}

// Read returns a file's content in the result Data field.
func (t *Tool) Read(path string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return failure(fmt.Sprintf("File not found: %s", path))
	}
	if err != nil {
		return failure(fmt.Sprintf("Error reading %s: %v", path, err))
	}
	if info.IsDir() {
		return failure(fmt.Sprintf("Not a file: %s", path))
	}
	if info.Size() > t.maxFileSize {
		return failure(fmt.Sprintf("File too large: %s (max %d bytes)", path, t.maxFileSize))
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return failure(fmt.Sprintf("Error reading %s: %v", path, err))
	}

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Read %d bytes", len(content)),
		Data:    string(content),
	}
}

// Write creates or fully replaces a file, creating parent directories as
// needed. The write is atomic (temp file + rename) and the result carries a
// unified diff from the prior content, which is empty for new files.
func (t *Tool) Write(path, content string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	if int64(len(content)) > t.maxFileSize {
		return failure(fmt.Sprintf("Content too large for %s", path))
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return failure(fmt.Sprintf("Error writing %s: %v", path, err))
	}

	oldContent := ""
	if data, readErr := os.ReadFile(absPath); readErr == nil {
		oldContent = string(data)
	}

	if err := writeFileAtomic(absPath, content); err != nil {
		return failure(fmt.Sprintf("Error writing %s: %v", path, err))
	}

	verb := "Created"
	if oldContent != "" {
		verb = "Updated"
	}

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("%s %s (%d bytes)", verb, path, len(content)),
		Diff:    GenerateUnifiedDiff(oldContent, content, path),
	}
}

// Edit replaces the first occurrence of oldText with newText. The match is
// an exact literal substring; a miss fails loudly rather than guessing.
func (t *Tool) Edit(path, oldText, newText string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		return failure(fmt.Sprintf("File not found: %s", path))
	}
	if err != nil {
		return failure(fmt.Sprintf("Error editing %s: %v", path, err))
	}

	content := string(data)
	if !strings.Contains(content, oldText) {
		return failure(fmt.Sprintf("Text not found in %s. Cannot apply edit.", path))
	}

	newContent := strings.Replace(content, oldText, newText, 1)

	if err := writeFileAtomic(absPath, newContent); err != nil {
		return failure(fmt.Sprintf("Error editing %s: %v", path, err))
	}

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Edited %s", path),
		Diff:    GenerateUnifiedDiff(content, newContent, path),
	}
}

// InsertLines performs a deterministic, 1-indexed line mutation. The
// operation is one of "after", "before", or "replace". A missing trailing
// newline on the file's last line is normalized before indexing, and
// inserted content is normalized to end with a newline.
func (t *Tool) InsertLines(path string, lineNumber int, content, operation string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		return failure(fmt.Sprintf("File not found: %s", path))
	}
	if err != nil {
		return failure(fmt.Sprintf("Error inserting in %s: %v", path, err))
	}

	lines := splitKeepEnds(string(data))
	if len(lines) > 0 && !strings.HasSuffix(lines[len(lines)-1], "\n") {
		lines[len(lines)-1] += "\n"
	}

	// Valid positions run from line 1 through one past the last line, so
	// "after" and "before" can append to the file.
	if lineNumber < 1 || lineNumber > len(lines)+1 {
		return failure(fmt.Sprintf("Line number %d out of range (file has %d lines)", lineNumber, len(lines)))
	}

	oldContent := strings.Join(lines, "")

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	switch operation {
	case "after":
		lines = spliceAt(lines, lineNumber, content)
	case "before":
		lines = spliceAt(lines, lineNumber-1, content)
	case "replace":
		if lineNumber > len(lines) {
			return failure(fmt.Sprintf("Line number %d out of range (file has %d lines)", lineNumber, len(lines)))
		}
		lines[lineNumber-1] = content
	default:
		return failure(fmt.Sprintf("Invalid operation: %s. Must be 'after', 'before', or 'replace'", operation))
	}

	newContent := strings.Join(lines, "")

	if err := writeFileAtomic(absPath, newContent); err != nil {
		return failure(fmt.Sprintf("Error inserting in %s: %v", path, err))
	}

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Inserted at line %d in %s", lineNumber, path),
		Diff:    GenerateUnifiedDiff(oldContent, newContent, path),
	}
}

// Delete moves a file into the trash directory with a timestamp prefix.
// Data is never destroyed; recovery is a manual move back.
func (t *Tool) Delete(path string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return failure(fmt.Sprintf("File not found: %s", path))
	}

	trashDir := filepath.Join(t.guard.WorkspaceDir(), TrashDirName)
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return failure(fmt.Sprintf("Error deleting %s: %v", path, err))
	}

	trashPath := filepath.Join(trashDir, fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(absPath)))
	if err := os.Rename(absPath, trashPath); err != nil {
		return failure(fmt.Sprintf("Error deleting %s: %v", path, err))
	}

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Deleted %s (moved to %s)", path, trashPath),
	}
}

// ListDirectory returns sorted entry names for a directory, with directories
// marked by a trailing slash. Ignored paths (VCS internals, dependency
// trees, agent state) are filtered out.
func (t *Tool) ListDirectory(path string) types.ExecutionResult {
	absPath, err := t.guard.ResolveWithin(path)
	if err != nil {
		return failure(violationMessage(err))
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return failure(fmt.Sprintf("Directory not found: %s", path))
	}
	if err != nil {
		return failure(fmt.Sprintf("Error listing %s: %v", path, err))
	}
	if !info.IsDir() {
		return failure(fmt.Sprintf("Not a directory: %s", path))
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return failure(fmt.Sprintf("Error listing %s: %v", path, err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		rel, relErr := t.guard.MakeRelative(filepath.Join(absPath, entry.Name()))
		if relErr == nil && t.guard.ShouldIgnore(rel) {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return types.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Found %d items", len(names)),
		Data:    names,
	}
}

// writeFileAtomic writes content through a temp file and renames it into
// place so readers never observe a partial write.
func writeFileAtomic(absPath, content string) error {
	tmpPath := absPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// splitKeepEnds splits content into lines that retain their trailing
// newline, mirroring how the line-splice operations index the file.
func splitKeepEnds(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	for {
		idx := strings.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:idx+1])
		content = content[idx+1:]
		if content == "" {
			break
		}
	}
	return lines
}

// spliceAt inserts s before index idx, appending when idx is past the end.
func spliceAt(lines []string, idx int, s string) []string {
	if idx >= len(lines) {
		return append(lines, s)
	}
	if idx < 0 {
		idx = 0
	}
	lines = append(lines, "")
	copy(lines[idx+1:], lines[idx:])
	lines[idx] = s
	return lines
}

func failure(message string) types.ExecutionResult {
	return types.ExecutionResult{Success: false, Message: message}
}

// violationMessage strips the violation wrapper so result messages carry the
// plain human-readable text.
func violationMessage(err error) string {
	var violation *security.Violation
	if errors.As(err, &violation) {
		return violation.Message
	}
	return err.Error()
}
