package workspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns are always active regardless of any ignore files.
// They cover VCS internals, dependency trees, and the agent's own state
// directories, which should never be edited or fed back as context.
var DefaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".agent_trash/",
	".agent_runs/",
	".anvil/",
	"__pycache__/",
	"*.pyc",
	".venv/",
	"dist/",
	"build/",
}

// IgnoreMatcher decides whether a workspace-relative path should be skipped
// by directory listings and context retrieval. Patterns come from the
// defaults above plus .gitignore and .anvilignore at the workspace root.
//
// Matching follows gitignore-style rules: patterns without a slash match any
// path segment, patterns with a slash match against the full relative path,
// a trailing slash restricts the pattern to directories, and a leading "!"
// negates. The last matching pattern wins.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	raw      string
	segment  glob.Glob // matches a single path segment, nil for slash patterns
	fullPath glob.Glob // matches the whole relative path
	negated  bool
	dirOnly  bool
}

// NewIgnoreMatcher loads ignore patterns for the given workspace root.
// Missing ignore files are not an error; invalid glob patterns are.
func NewIgnoreMatcher(workspaceDir string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	if err := m.addPatterns(DefaultIgnorePatterns); err != nil {
		return nil, err
	}

	for _, name := range []string{".gitignore", ".anvilignore"} {
		lines, err := readIgnoreFile(filepath.Join(workspaceDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := m.addPatterns(lines); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// readIgnoreFile returns the pattern lines of an ignore file, skipping
// blanks and comments. A missing file yields no lines.
func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func (m *IgnoreMatcher) addPatterns(raw []string) error {
	for _, pattern := range raw {
		p := ignorePattern{raw: pattern}

		if strings.HasPrefix(pattern, "!") {
			p.negated = true
			pattern = pattern[1:]
		}
		if strings.HasSuffix(pattern, "/") {
			p.dirOnly = true
			pattern = strings.TrimSuffix(pattern, "/")
		}
		// A leading slash anchors to the workspace root; strip it since all
		// matching happens on root-relative paths.
		pattern = strings.TrimPrefix(pattern, "/")
		if pattern == "" {
			continue
		}

		full, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("invalid ignore pattern '%s': %w", p.raw, err)
		}
		p.fullPath = full

		if !strings.Contains(pattern, "/") {
			// Unanchored: also match the pattern as any single segment
			seg, err := glob.Compile(pattern, '/')
			if err != nil {
				return fmt.Errorf("invalid ignore pattern '%s': %w", p.raw, err)
			}
			p.segment = seg
		}

		m.patterns = append(m.patterns, p)
	}
	return nil
}

// ShouldIgnore reports whether the workspace-relative path matches the
// loaded ignore rules. isDir indicates whether the path is a directory,
// which directory-only patterns require for a direct match.
func (m *IgnoreMatcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(filepath.Clean(relPath))
	if relPath == "." || relPath == "" {
		return false
	}
	segments := strings.Split(relPath, "/")

	ignored := false
	for _, p := range m.patterns {
		if p.matches(relPath, segments, isDir) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(relPath string, segments []string, isDir bool) bool {
	// Full-path match applies to the path itself. Directory patterns only
	// match the path directly when it is a directory; files inside a
	// matched directory are caught by the segment scan below.
	if (!p.dirOnly || isDir) && p.fullPath.Match(relPath) {
		return true
	}

	if p.segment == nil {
		return false
	}

	// Unanchored patterns match any segment. Matching a non-final segment
	// means the path lives inside a matched directory, so dirOnly holds.
	for i, seg := range segments {
		if !p.segment.Match(seg) {
			continue
		}
		if i < len(segments)-1 {
			return true
		}
		if !p.dirOnly || isDir {
			return true
		}
	}
	return false
}
