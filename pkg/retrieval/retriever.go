// Package retrieval builds repository context for the planner. It combines
// manifest files, files named in the query, ripgrep hits for key query
// terms, and (for small repositories) a fill of remaining source files,
// deduplicated and capped by file count and per-file size.
package retrieval

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/craftd/anvil/pkg/types"
)

// Defaults for context assembly limits.
const (
	DefaultMaxFiles = 16
	DefaultMaxBytes = 20000
)

// searchTimeout bounds a single ripgrep invocation.
const searchTimeout = 5 * time.Second

// manifestFiles are always offered first when present and small enough.
var manifestFiles = []string{
	"pyproject.toml",
	"setup.py",
	"requirements.txt",
	"package.json",
	"README.md",
	"Makefile",
}

// sourceExtensions are the file types the small-repo fill considers.
var sourceExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".jsx":  true,
	".tsx":  true,
	".java": true,
	".go":   true,
	".rs":   true,
	".c":    true,
	".cpp":  true,
	".h":    true,
}

// stopWords are query words that carry no retrieval signal.
var stopWords = map[string]bool{
	"create": true, "write": true, "add": true, "update": true, "delete": true,
	"remove": true, "edit": true, "modify": true,
	"the": true, "a": true, "an": true, "this": true, "that": true,
	"these": true, "those": true, "is": true, "are": true, "was": true, "were": true,
	"for": true, "with": true, "about": true, "what": true, "how": true,
	"why": true, "when": true, "where": true, "can": true, "could": true,
	"should": true, "would": true, "file": true, "files": true, "code": true,
	"make": true, "help": true, "please": true,
}

var (
	// filenamePattern matches explicit file references like calculator.py
	// or config.yaml.
	filenamePattern = regexp.MustCompile(`(?i)\b[\w-]+\.(py|js|ts|jsx|tsx|md|txt|json|yaml|yml|toml|cfg|ini|sh|bash)\b`)

	// wordPattern extracts candidate search terms.
	wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
)

// Retriever gathers relevant file snippets from a repository.
type Retriever struct {
	root     string
	maxFiles int
	maxBytes int
}

// NewRetriever creates a retriever rooted at the given repository path.
// Non-positive limits fall back to the defaults.
func NewRetriever(root string, maxFiles, maxBytes int) *Retriever {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Retriever{
		root:     root,
		maxFiles: maxFiles,
		maxBytes: maxBytes,
	}
}

// Retrieve collects context snippets for the query: manifests first, then
// files the query names explicitly, then ripgrep matches for key terms,
// then a small-repo fill. Paths are deduplicated and the result is capped
// at the file limit.
func (r *Retriever) Retrieve(ctx context.Context, query string) []types.ContextSnippet {
	var snippets []types.ContextSnippet
	seen := make(map[string]bool)

	appendSnippet := func(snippet types.ContextSnippet) {
		if seen[snippet.Path] {
			return
		}
		snippets = append(snippets, snippet)
		seen[snippet.Path] = true
	}

	for _, snippet := range r.manifestSnippets() {
		appendSnippet(snippet)
	}

	for _, path := range extractFilenames(query) {
		if seen[path] {
			continue
		}
		snippet := r.FileContext(path)
		if snippet.Content != "" {
			appendSnippet(snippet)
		}
	}

	for _, entity := range extractEntities(query) {
		for _, snippet := range r.searchCode(ctx, entity) {
			appendSnippet(snippet)
		}
	}

	if len(snippets) < r.maxFiles {
		for _, snippet := range r.allSourceFiles() {
			if len(snippets) >= r.maxFiles {
				break
			}
			appendSnippet(snippet)
		}
	}

	if len(snippets) > r.maxFiles {
		snippets = snippets[:r.maxFiles]
	}
	return snippets
}

// FileContext reads a single file relative to the repository root. Missing
// or unreadable files yield a snippet with empty content; oversized files
// are truncated.
func (r *Retriever) FileContext(path string) types.ContextSnippet {
	data, err := os.ReadFile(filepath.Join(r.root, path))
	if err != nil {
		return types.ContextSnippet{Path: path}
	}
	return types.ContextSnippet{Path: path, Content: r.truncate(string(data))}
}

// manifestSnippets reads the well-known manifest files, skipping any that
// are missing or larger than the per-file limit.
func (r *Retriever) manifestSnippets() []types.ContextSnippet {
	var snippets []types.ContextSnippet
	for _, name := range manifestFiles {
		data, err := os.ReadFile(filepath.Join(r.root, name))
		if err != nil || len(data) > r.maxBytes {
			continue
		}
		snippets = append(snippets, types.ContextSnippet{Path: name, Content: string(data)})
	}
	return snippets
}

// searchCode lists files matching the term via ripgrep and reads them.
// Missing ripgrep, timeouts, and no-match exits all yield no snippets.
func (r *Retriever) searchCode(ctx context.Context, term string) []types.ContextSnippet {
	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	cmd := exec.CommandContext(searchCtx, "rg", "-l", "--max-count", "5", term)
	cmd.Dir = r.root
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil
	}

	files := strings.Split(trimmed, "\n")
	if len(files) > r.maxFiles {
		files = files[:r.maxFiles]
	}

	var snippets []types.ContextSnippet
	for _, path := range files {
		data, err := os.ReadFile(filepath.Join(r.root, path))
		if err != nil {
			continue
		}
		snippets = append(snippets, types.ContextSnippet{Path: path, Content: r.truncate(string(data))})
	}
	return snippets
}

// allSourceFiles walks the repository collecting source files that fit the
// per-file limit, skipping hidden directories and dependency caches.
func (r *Retriever) allSourceFiles() []types.ContextSnippet {
	var snippets []types.ContextSnippet

	filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip entries with errors
		}

		name := info.Name()
		if info.IsDir() {
			if path == r.root {
				return nil
			}
			if strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !sourceExtensions[filepath.Ext(name)] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil || len(data) > r.maxBytes {
			return nil
		}

		relPath, err := filepath.Rel(r.root, path)
		if err != nil {
			return nil
		}
		snippets = append(snippets, types.ContextSnippet{Path: relPath, Content: string(data)})
		return nil
	})

	return snippets
}

// truncate caps content at the per-file byte limit, marking the cut.
func (r *Retriever) truncate(content string) string {
	if len(content) > r.maxBytes {
		return content[:r.maxBytes] + "\n... (truncated)"
	}
	return content
}

// extractFilenames pulls explicit file references out of the query,
// deduplicated in order of first appearance.
func extractFilenames(query string) []string {
	matches := filenamePattern.FindAllString(query, -1)

	var filenames []string
	seen := make(map[string]bool)
	for _, match := range matches {
		if seen[match] {
			continue
		}
		filenames = append(filenames, match)
		seen[match] = true
	}
	return filenames
}

// extractEntities picks up to five meaningful search terms from the query.
func extractEntities(query string) []string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)

	var entities []string
	seen := make(map[string]bool)
	for _, word := range words {
		if stopWords[word] || seen[word] {
			continue
		}
		entities = append(entities, word)
		seen[word] = true
		if len(entities) == 5 {
			break
		}
	}
	return entities
}
