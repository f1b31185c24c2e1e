package headless

import (
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/craftd/anvil/pkg/tools/fs"
	"github.com/craftd/anvil/pkg/types"
)

// FileModification is one changed file with its line deltas.
type FileModification struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// ChangeTracker folds observations into per-file modification stats.
// Repeated changes to one path accumulate; files keep first-seen order.
type ChangeTracker struct {
	byPath map[string]*FileModification
	order  []string
}

// NewChangeTracker creates an empty change tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{byPath: make(map[string]*FileModification)}
}

// Record adds one observation's file changes. Only successful observations
// that touched files count; shell runs and failed actions are ignored.
func (t *ChangeTracker) Record(obs *types.Observation) {
	if obs == nil || !obs.Success {
		return
	}
	if len(obs.AffectedFiles) == 0 || len(obs.ContextUpdate) == 0 {
		return
	}

	path := obs.AffectedFiles[0]
	added, removed := diffLineCounts(obs.Diff)

	mod, ok := t.byPath[path]
	if !ok {
		mod = &FileModification{Path: path}
		t.byPath[path] = mod
		t.order = append(t.order, path)
	}
	mod.LinesAdded += added
	mod.LinesRemoved += removed
}

// Files returns the tracked modifications in first-seen order.
func (t *ChangeTracker) Files() []FileModification {
	files := make([]FileModification, 0, len(t.order))
	for _, path := range t.order {
		files = append(files, *t.byPath[path])
	}
	return files
}

// Totals sums line counts across all tracked files.
func (t *ChangeTracker) Totals() (added, removed int) {
	for _, mod := range t.byPath {
		added += mod.LinesAdded
		removed += mod.LinesRemoved
	}
	return added, removed
}

// diffLineCounts counts added and removed lines in a unified diff. Diffs
// with standard headers parse through go-gitdiff; anything it rejects falls
// back to a plain +/- line scan.
func diffLineCounts(diff string) (int, int) {
	if diff == "" {
		return 0, 0
	}

	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err == nil && len(files) > 0 {
		var added, removed int64
		for _, file := range files {
			for _, fragment := range file.TextFragments {
				added += fragment.LinesAdded
				removed += fragment.LinesDeleted
			}
		}
		return int(added), int(removed)
	}

	changes := fs.CountDiffLines(diff)
	return changes.LinesAdded, changes.LinesRemoved
}
