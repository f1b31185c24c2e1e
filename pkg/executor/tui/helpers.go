package tui

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/craftd/anvil/pkg/types"
)

// randomLoadingMessage picks a loading message to show while the loop runs.
func randomLoadingMessage() string {
	messages := []string{
		"Hammering it out...",
		"Working the metal...",
		"Planning next steps...",
		"Reading the workspace...",
		"Shaping changes...",
		"Striking while hot...",
		"Thinking...",
	}
	return messages[rand.Intn(len(messages))]
}

// Words that resolve a pending yes/no question.
var (
	affirmatives = []string{"yes", "y", "confirm", "ok", "sure"}
	negatives    = []string{"no", "n", "cancel", "abort"}
)

func isAffirmative(input string) bool {
	return containsFold(affirmatives, input)
}

func isNegative(input string) bool {
	return containsFold(negatives, input)
}

func containsFold(words []string, input string) bool {
	input = strings.ToLower(strings.TrimSpace(input))
	for _, word := range words {
		if input == word {
			return true
		}
	}
	return false
}

// truncateLine caps a single line at max runes, appending an ellipsis.
func truncateLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// wordWrap breaks text into lines no wider than width, splitting on spaces.
// Words longer than the width are hard-broken.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(wrapLine(line, width))
	}
	return out.String()
}

func wrapLine(line string, width int) string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return line
	}

	var out strings.Builder
	current := 0
	for _, word := range words {
		for len([]rune(word)) > width {
			if current > 0 {
				out.WriteString("\n")
				current = 0
			}
			runes := []rune(word)
			out.WriteString(string(runes[:width]))
			out.WriteString("\n")
			word = string(runes[width:])
		}
		wordLen := len([]rune(word))
		switch {
		case current == 0:
			out.WriteString(word)
			current = wordLen
		case current+1+wordLen <= width:
			out.WriteString(" ")
			out.WriteString(word)
			current += 1 + wordLen
		default:
			out.WriteString("\n")
			out.WriteString(word)
			current = wordLen
		}
	}
	return out.String()
}

// highlightSource renders file content with terminal syntax highlighting.
// Unknown file types and tokenizer failures fall back to the plain content.
func highlightSource(path, content string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		ext := filepath.Ext(path)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer == nil {
		return content
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return content
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return content
	}
	return b.String()
}

// renderStatus formats the engine's status map as a small aligned block.
func renderStatus(status map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Session status"))
	b.WriteString("\n")

	session, _ := status["session"].(map[string]interface{})
	if id, ok := session["session_id"].(string); ok {
		b.WriteString(statusLine("Session", id))
	}
	if hasPlan, ok := status["has_plan"].(bool); ok {
		b.WriteString(statusLine("Has plan", fmt.Sprintf("%v", hasPlan)))
	}
	if goal, ok := status["plan_goal"].(string); ok && goal != "" {
		b.WriteString(statusLine("Goal", goal))
	}
	b.WriteString(statusLine("Actions executed", fmt.Sprintf("%v", status["actions_executed"])))
	b.WriteString(statusLine("Diffs recorded", fmt.Sprintf("%v", status["diffs_count"])))
	return strings.TrimRight(b.String(), "\n")
}

func statusLine(label, value string) string {
	return fmt.Sprintf("  %-18s %s\n", dimStyle.Render(label), value)
}

// renderVerification formats a verification result with its failure lists.
func renderVerification(result *types.VerificationResult) string {
	var b strings.Builder
	if result.Passed() {
		b.WriteString(successStyle.Render("✓ Verification passed"))
	} else {
		b.WriteString(errorStyle.Render("✗ Verification failed"))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(result.Summary))

	writeIssues := func(label string, issues []string) {
		if len(issues) == 0 {
			return
		}
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(label + ":"))
		for _, issue := range issues {
			b.WriteString("\n  " + truncateLine(issue, 160))
		}
	}
	writeIssues("Lint errors", result.LintErrors)
	writeIssues("Type errors", result.TypeErrors)
	writeIssues("Failing tests", result.FailingTests)
	return b.String()
}

// Files surfaced in the repository summary when present at the root.
var keyFiles = []string{
	"README.md", "go.mod", "requirements.txt", "pyproject.toml",
	"package.json", "Dockerfile", "Makefile", ".gitignore", "setup.py",
}

// Directories skipped when summarizing the repository.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__" || name == "node_modules"
}

// buildRepoSummary walks the workspace and reports file counts by type,
// total lines, a shallow tree, and the key project files present.
func buildRepoSummary(root string) (string, error) {
	typeCounts := make(map[string]int)
	totalFiles := 0
	totalLines := 0

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		totalFiles++
		ext := filepath.Ext(name)
		if ext == "" {
			ext = "(none)"
		}
		typeCounts[ext]++

		if content, err := os.ReadFile(path); err == nil {
			totalLines += strings.Count(string(content), "\n")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Repository summary"))
	b.WriteString("\n")
	b.WriteString(statusLine("Files", fmt.Sprintf("%d", totalFiles)))
	b.WriteString(statusLine("Lines", fmt.Sprintf("%d", totalLines)))

	if len(typeCounts) > 0 {
		type typeCount struct {
			ext   string
			count int
		}
		counts := make([]typeCount, 0, len(typeCounts))
		for ext, count := range typeCounts {
			counts = append(counts, typeCount{ext, count})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].ext < counts[j].ext
		})
		if len(counts) > 5 {
			counts = counts[:5]
		}
		b.WriteString(dimStyle.Render("  Top file types:"))
		b.WriteString("\n")
		for _, tc := range counts {
			b.WriteString(fmt.Sprintf("    %-10s %d\n", tc.ext, tc.count))
		}
	}

	b.WriteString(renderTree(root))

	var present []string
	for _, name := range keyFiles {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			present = append(present, name)
		}
	}
	if len(present) > 0 {
		b.WriteString(dimStyle.Render("  Key files: "))
		b.WriteString(strings.Join(present, ", "))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// renderTree lists the top two levels of the workspace, skipping ignored
// directories and hidden entries.
func renderTree(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("  Structure:"))
	b.WriteString("\n")
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || (entry.IsDir() && skipDir(name)) {
			continue
		}
		if !entry.IsDir() {
			b.WriteString("    " + name + "\n")
			continue
		}
		b.WriteString("    " + name + "/\n")
		children, err := os.ReadDir(filepath.Join(root, name))
		if err != nil {
			continue
		}
		for _, child := range children {
			childName := child.Name()
			if strings.HasPrefix(childName, ".") {
				continue
			}
			if child.IsDir() {
				childName += "/"
			}
			b.WriteString("      " + childName + "\n")
		}
	}
	return b.String()
}
