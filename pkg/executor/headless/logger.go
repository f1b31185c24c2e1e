package headless

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows standard execution progress (default)
	LogLevelNormal
	// LogLevelVerbose shows detailed execution information
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// Logger provides structured, beautiful logging for headless execution
type Logger struct {
	level  LogLevel
	writer io.Writer

	// ANSI color codes
	colorReset     string
	colorGreen     string
	colorCyan      string
	colorSalmon    string
	colorYellow    string
	colorRed       string
	colorGray      string
	colorBoldGreen string
	colorBoldRed   string
	colorBoldWhite string

	// Execution state
	startTime time.Time
	stepCount int
}

// NewLogger creates a new logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:          level,
		writer:         os.Stdout,
		colorReset:     "\033[0m",
		colorGreen:     "\033[32m",
		colorCyan:      "\033[36m",
		colorSalmon:    "\033[38;5;217m", // Salmon pink #FFB3BA
		colorYellow:    "\033[33m",
		colorRed:       "\033[31m",
		colorGray:      "\033[90m",
		colorBoldGreen: "\033[1;32m",
		colorBoldRed:   "\033[1;31m",
		colorBoldWhite: "\033[1;37m",
		startTime:      time.Now(),
	}
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "\n%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
		fmt.Fprintf(l.writer, "%s  %s%s\n", l.colorBoldWhite, message, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		fmt.Fprintf(l.writer, "%s▶ %s%s\n", l.colorCyan, title, l.colorReset)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorGray, strings.Repeat("─", 50), l.colorReset)
	}
}

// Step prints a numbered step in the execution
func (l *Logger) Step(message string) {
	if l.level >= LogLevelNormal {
		l.stepCount++
		fmt.Fprintf(l.writer, "\n%s[%d] %s%s\n", l.colorCyan, l.stepCount, message, l.colorReset)
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✓ %s%s\n", l.colorBoldGreen, msg, l.colorReset)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s%s%s\n", l.colorSalmon, msg, l.colorReset)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s⚠ Warning: %s%s\n", l.colorYellow, msg, l.colorReset)
	}
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s✗ Error: %s%s\n", l.colorBoldRed, msg, l.colorReset)
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s→ %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.writer, "%s[DEBUG] %s%s\n", l.colorGray, msg, l.colorReset)
	}
}

// Action logs an executing action with formatting based on verbosity
func (l *Logger) Action(actionType, rationale string) {
	switch l.level {
	case LogLevelQuiet:
		// Don't log individual actions in quiet mode
	case LogLevelNormal:
		// Show compact progress indicator
		fmt.Fprintf(l.writer, "%s  • %s%s\n", l.colorGray, actionType, l.colorReset)
	case LogLevelVerbose, LogLevelDebug:
		// Show detailed information
		fmt.Fprintf(l.writer, "%s  🔧 Action: %s%s\n", l.colorCyan, actionType, l.colorReset)
		if rationale != "" {
			fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorGray, rationale, l.colorReset)
		}
	}
}

// FileModified logs a file modification
func (l *Logger) FileModified(path string, linesAdded, linesRemoved int) {
	if l.level >= LogLevelNormal {
		change := ""
		if linesAdded > 0 || linesRemoved > 0 {
			change = fmt.Sprintf(" (+%d/-%d)", linesAdded, linesRemoved)
		}
		fmt.Fprintf(l.writer, "%s  📝 Modified: %s%s%s\n", l.colorBoldGreen, path, change, l.colorReset)
	}
}

// Verification logs a verification pass
func (l *Logger) Verification(passed bool, summary string) {
	if l.level >= LogLevelNormal {
		if passed {
			fmt.Fprintf(l.writer, "%s  ✓ Verification passed%s\n", l.colorBoldGreen, l.colorReset)
		} else {
			fmt.Fprintf(l.writer, "%s  ✗ Verification failed%s\n", l.colorBoldRed, l.colorReset)
			if summary != "" {
				fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorGray, summary, l.colorReset)
			}
		}
	}
}

// SelfCorrection logs a reflect-and-fix attempt
func (l *Logger) SelfCorrection(analysis string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "%s  ↻ Self-correcting%s\n", l.colorYellow, l.colorReset)
		if analysis != "" && l.level >= LogLevelVerbose {
			fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorGray, analysis, l.colorReset)
		}
	}
}

// GitOperation logs a git operation
func (l *Logger) GitOperation(operation, details string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintf(l.writer, "%s  🔀 Git: %s%s\n", l.colorCyan, operation, l.colorReset)
		if details != "" && l.level >= LogLevelVerbose {
			fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorGray, details, l.colorReset)
		}
	}
}

// Summary prints a final execution summary. It prints at every level: the
// summary is the one thing quiet mode still reports.
func (l *Logger) Summary(status string, summary *ExecutionSummary) {
	l.printSummaryHeader()
	l.printStatus(status)
	l.printTaskAndDuration(summary)
	l.printMetrics(summary)
	l.printModifiedFiles(summary)
	l.printVerification(summary)
	l.printGitInfo(summary)
	l.printError(summary)
	l.printSummaryFooter()
}

func (l *Logger) printSummaryHeader() {
	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintf(l.writer, "%s  RUN SUMMARY%s\n", l.colorBoldWhite, l.colorReset)
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case statusSuccess:
		fmt.Fprintf(l.writer, "%s✓ SUCCESS%s\n", l.colorBoldGreen, l.colorReset)
	case statusPartialSuccess:
		fmt.Fprintf(l.writer, "%s⚠ PARTIAL SUCCESS%s\n", l.colorYellow, l.colorReset)
	case statusFailed:
		fmt.Fprintf(l.writer, "%s✗ FAILED%s\n", l.colorBoldRed, l.colorReset)
	default:
		fmt.Fprintln(l.writer, status)
	}
}

func (l *Logger) printTaskAndDuration(summary *ExecutionSummary) {
	fmt.Fprintf(l.writer, "  Task: %s\n", summary.Task)
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Second))
}

func (l *Logger) printMetrics(summary *ExecutionSummary) {
	fmt.Fprintf(l.writer, "\n  📊 Metrics:\n")
	fmt.Fprintf(l.writer, "    Iterations: %d\n", summary.Metrics.Iterations)
	fmt.Fprintf(l.writer, "    Steps executed: %d\n", summary.Metrics.StepsExecuted)

	if summary.Metrics.SelfCorrections > 0 {
		fmt.Fprintf(l.writer, "    Self-corrections: %d\n", summary.Metrics.SelfCorrections)
	}

	if summary.Metrics.FilesModified > 0 {
		fmt.Fprintf(l.writer, "    Files modified: %d\n", summary.Metrics.FilesModified)
	}

	if summary.Metrics.TotalLinesAdded > 0 || summary.Metrics.TotalLinesRemoved > 0 {
		fmt.Fprintf(l.writer, "    Lines changed: +%d/-%d\n",
			summary.Metrics.TotalLinesAdded, summary.Metrics.TotalLinesRemoved)
	}
}

func (l *Logger) printModifiedFiles(summary *ExecutionSummary) {
	if l.level < LogLevelVerbose || len(summary.FilesModified) == 0 {
		return
	}

	fmt.Fprintf(l.writer, "\n  📝 Modified Files:\n")
	for _, mod := range summary.FilesModified {
		change := ""
		if mod.LinesAdded > 0 || mod.LinesRemoved > 0 {
			change = fmt.Sprintf(" (+%d/-%d)", mod.LinesAdded, mod.LinesRemoved)
		}
		fmt.Fprintf(l.writer, "    • %s%s\n", mod.Path, change)
	}
}

func (l *Logger) printVerification(summary *ExecutionSummary) {
	if summary.Verification == nil {
		return
	}

	fmt.Fprintf(l.writer, "\n  🎯 Verification:\n")
	if summary.Verification.Passed() {
		fmt.Fprintf(l.writer, "%s    ✓ passed%s\n", l.colorBoldGreen, l.colorReset)
		return
	}

	fmt.Fprintf(l.writer, "%s    ✗ %s%s\n", l.colorBoldRed, summary.Verification.Summary, l.colorReset)
	if l.level >= LogLevelVerbose {
		for _, entry := range summary.Verification.LintErrors {
			fmt.Fprintf(l.writer, "%s      lint: %s%s\n", l.colorGray, entry, l.colorReset)
		}
		for _, entry := range summary.Verification.TypeErrors {
			fmt.Fprintf(l.writer, "%s      type: %s%s\n", l.colorGray, entry, l.colorReset)
		}
		for _, entry := range summary.Verification.FailingTests {
			fmt.Fprintf(l.writer, "%s      test: %s%s\n", l.colorGray, entry, l.colorReset)
		}
	}
}

func (l *Logger) printGitInfo(summary *ExecutionSummary) {
	if summary.GitInfo == nil {
		return
	}

	fmt.Fprintf(l.writer, "\n  🔀 Git:\n")
	if summary.GitInfo.Branch != "" {
		fmt.Fprintf(l.writer, "    Branch: %s\n", summary.GitInfo.Branch)
	}
	if summary.GitInfo.CommitHash != "" {
		fmt.Fprintf(l.writer, "    Commit: %s\n", summary.GitInfo.CommitHash)
	}
}

func (l *Logger) printError(summary *ExecutionSummary) {
	if summary.Error == "" {
		return
	}

	fmt.Fprintln(l.writer)
	fmt.Fprintf(l.writer, "%s  Error Details:%s\n", l.colorBoldRed, l.colorReset)
	fmt.Fprintf(l.writer, "%s    %s%s\n", l.colorRed, summary.Error, l.colorReset)
}

func (l *Logger) printSummaryFooter() {
	fmt.Fprintf(l.writer, "%s%s%s\n", l.colorBoldWhite, strings.Repeat("=", 70), l.colorReset)
	fmt.Fprintln(l.writer)
}

// Newline adds a blank line (respects log level)
func (l *Logger) Newline() {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
	}
}

// parseLogLevel converts a string log level to LogLevel type
func parseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}
