package fs

import (
	"strings"
	"testing"
)

func TestGenerateUnifiedDiff_Labels(t *testing.T) {
	diff := GenerateUnifiedDiff("old line\n", "new line\n", "src/app.py")

	if !strings.Contains(diff, "--- a/src/app.py") {
		t.Errorf("Expected a/ label, got: %s", diff)
	}
	if !strings.Contains(diff, "+++ b/src/app.py") {
		t.Errorf("Expected b/ label, got: %s", diff)
	}
	if !strings.Contains(diff, "-old line") {
		t.Errorf("Expected removed line, got: %s", diff)
	}
	if !strings.Contains(diff, "+new line") {
		t.Errorf("Expected added line, got: %s", diff)
	}
}

func TestGenerateUnifiedDiff_IdenticalContent(t *testing.T) {
	if diff := GenerateUnifiedDiff("same\n", "same\n", "f.txt"); diff != "" {
		t.Errorf("Expected empty diff for identical content, got: %s", diff)
	}
}

func TestGenerateUnifiedDiff_NewFile(t *testing.T) {
	diff := GenerateUnifiedDiff("", "line 1\nline 2\n", "new.txt")

	if !strings.Contains(diff, "+line 1") || !strings.Contains(diff, "+line 2") {
		t.Errorf("Expected both added lines, got: %s", diff)
	}
	if strings.Contains(diff, "\n-") {
		t.Errorf("New file diff should have no removed lines, got: %s", diff)
	}
}

func TestGenerateUnifiedDiff_KeepsContext(t *testing.T) {
	oldContent := "a\nb\nc\nd\ne\nf\ng\n"
	newContent := "a\nb\nc\nD\ne\nf\ng\n"

	diff := GenerateUnifiedDiff(oldContent, newContent, "f.txt")

	// Three context lines on either side of the change.
	for _, line := range []string{" a\n", " c\n", " g\n", "-d\n", "+D\n"} {
		if !strings.Contains(diff, line) {
			t.Errorf("Expected %q in diff, got: %s", line, diff)
		}
	}
}

func TestCalculateLineChanges(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		added   int
		removed int
	}{
		{"pure addition", "a\n", "a\nb\nc\n", 2, 0},
		{"pure removal", "a\nb\nc\n", "a\n", 0, 2},
		{"replacement", "a\nb\n", "a\nB\n", 1, 1},
		{"no change", "a\n", "a\n", 0, 0},
		{"new file", "", "x\ny\n", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := CalculateLineChanges(tt.old, tt.new)
			if changes.LinesAdded != tt.added {
				t.Errorf("Expected %d added, got %d", tt.added, changes.LinesAdded)
			}
			if changes.LinesRemoved != tt.removed {
				t.Errorf("Expected %d removed, got %d", tt.removed, changes.LinesRemoved)
			}
		})
	}
}

func TestCountDiffLines_SkipsHeaders(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1 +1 @@\n-old\n+new\n"

	changes := CountDiffLines(diff)
	if changes.LinesAdded != 1 {
		t.Errorf("Expected 1 added, got %d", changes.LinesAdded)
	}
	if changes.LinesRemoved != 1 {
		t.Errorf("Expected 1 removed, got %d", changes.LinesRemoved)
	}
}
