package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/types"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// OutputDir returns the directory artifacts are written into.
func (w *ArtifactWriter) OutputDir() string {
	return w.outputDir
}

// WriteAll writes all enabled artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteExecutionJSON(summary); err != nil {
			return fmt.Errorf("failed to write execution JSON: %w", err)
		}
	}

	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(summary); err != nil {
			return fmt.Errorf("failed to write summary markdown: %w", err)
		}
	}

	if w.config.Metrics {
		if err := w.WriteMetricsJSON(summary); err != nil {
			return fmt.Errorf("failed to write metrics JSON: %w", err)
		}
	}

	return nil
}

// WriteExecutionJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteExecutionJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "execution.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder

	// Header
	md.WriteString("# Anvil Headless Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Task:** %s\n\n", summary.Task))
	md.WriteString(fmt.Sprintf("**Mode:** %s\n\n", summary.Mode))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	// Result
	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	// Files Modified
	if len(summary.FilesModified) > 0 {
		md.WriteString("## Files Modified\n\n")
		for _, file := range summary.FilesModified {
			md.WriteString(fmt.Sprintf("- `%s` (+%d/-%d lines)\n",
				file.Path, file.LinesAdded, file.LinesRemoved))
		}
		md.WriteString("\n")
	}

	// Verification
	if summary.Verification != nil {
		md.WriteString("## Verification\n\n")
		if summary.Verification.Passed() {
			md.WriteString("✅ **Passed**\n")
		} else {
			md.WriteString(fmt.Sprintf("❌ **Failed:** %s\n", summary.Verification.Summary))
			writeCheckList(&md, "Lint errors", summary.Verification.LintErrors)
			writeCheckList(&md, "Type errors", summary.Verification.TypeErrors)
			writeCheckList(&md, "Failing tests", summary.Verification.FailingTests)
		}
		md.WriteString("\n")
	}

	// Git
	if summary.GitInfo != nil {
		md.WriteString("## Git\n\n")
		if summary.GitInfo.Branch != "" {
			md.WriteString(fmt.Sprintf("- **Branch:** `%s`\n", summary.GitInfo.Branch))
		}
		if summary.GitInfo.CommitHash != "" {
			md.WriteString(fmt.Sprintf("- **Commit:** `%s`\n", summary.GitInfo.CommitHash))
		}
		md.WriteString("\n")
	}

	// Metrics
	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Files Modified:** %d\n", summary.Metrics.FilesModified))
	md.WriteString(fmt.Sprintf("- **Total Lines Added:** %d\n", summary.Metrics.TotalLinesAdded))
	md.WriteString(fmt.Sprintf("- **Total Lines Removed:** %d\n", summary.Metrics.TotalLinesRemoved))
	md.WriteString(fmt.Sprintf("- **Iterations:** %d\n", summary.Metrics.Iterations))
	md.WriteString(fmt.Sprintf("- **Steps Executed:** %d\n", summary.Metrics.StepsExecuted))
	md.WriteString(fmt.Sprintf("- **Self-Corrections:** %d\n", summary.Metrics.SelfCorrections))

	// Write file
	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// writeCheckList renders one verification error category as a bullet list.
func writeCheckList(md *strings.Builder, title string, entries []string) {
	if len(entries) == 0 {
		return
	}
	md.WriteString(fmt.Sprintf("\n**%s:**\n", title))
	for _, entry := range entries {
		md.WriteString(fmt.Sprintf("- %s\n", entry))
	}
}

// WriteMetricsJSON writes execution metrics as JSON
func (w *ArtifactWriter) WriteMetricsJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "metrics.json")

	data, err := json.MarshalIndent(summary.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write metrics JSON: %w", writeErr)
	}

	return nil
}

// ExecutionSummary contains a complete summary of one headless run
type ExecutionSummary struct {
	Task          string                    `json:"task"`
	Mode          ExecutionMode             `json:"mode"`
	Status        string                    `json:"status"`
	Error         string                    `json:"error,omitempty"`
	StartTime     time.Time                 `json:"start_time"`
	EndTime       time.Time                 `json:"end_time"`
	Duration      time.Duration             `json:"duration"`
	FilesModified []FileModification        `json:"files_modified"`
	Steps         []agent.StepResult        `json:"steps,omitempty"`
	Verification  *types.VerificationResult `json:"verification,omitempty"`
	Metrics       ExecutionMetrics          `json:"metrics"`
	GitInfo       *GitInfo                  `json:"git_info,omitempty"`
	SessionID     string                    `json:"session_id,omitempty"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	FilesModified     int `json:"files_modified"`
	TotalLinesAdded   int `json:"total_lines_added"`
	TotalLinesRemoved int `json:"total_lines_removed"`
	Iterations        int `json:"iterations"`
	StepsExecuted     int `json:"steps_executed"`
	SelfCorrections   int `json:"self_corrections"`
}

// GitInfo contains git-related information
type GitInfo struct {
	Branch        string `json:"branch,omitempty"`
	CommitHash    string `json:"commit_hash,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
}
