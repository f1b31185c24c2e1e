package fs

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// GenerateUnifiedDiff renders a unified diff between two versions of a file
// using git-style a/ and b/ labels and three lines of context. Identical
// content yields an empty string.
func GenerateUnifiedDiff(oldContent, newContent, path string) string {
	if oldContent == newContent {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        diffLines(oldContent),
		B:        diffLines(newContent),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// diffLines splits content into newline-terminated lines. Empty content
// yields no lines rather than one blank line, so diffs against new or
// emptied files do not carry a spurious context line.
func diffLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineChanges counts the lines added and removed by a modification.
type LineChanges struct {
	LinesAdded   int
	LinesRemoved int
}

// CalculateLineChanges computes the lines added and removed when
// transforming oldContent into newContent.
func CalculateLineChanges(oldContent, newContent string) LineChanges {
	return CountDiffLines(GenerateUnifiedDiff(oldContent, newContent, ""))
}

// CountDiffLines tallies the +/- lines of a rendered unified diff, skipping
// the --- and +++ file header lines.
func CountDiffLines(diff string) LineChanges {
	var changes LineChanges
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			changes.LinesAdded++
		case strings.HasPrefix(line, "-"):
			changes.LinesRemoved++
		}
	}
	return changes
}
