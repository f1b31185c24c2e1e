package tui

import "github.com/charmbracelet/lipgloss"

// Color Palette
// This is the single source of truth for all TUI colors.
// Use these constants throughout the TUI to ensure visual consistency.
var (
	// Primary Colors - Core brand colors
	emberAmber  = lipgloss.Color("#FFC66D") // Warm amber - primary accent
	forgeOrange = lipgloss.Color("#FF9E64") // Deeper forge orange - questions/prompts
	mossGreen   = lipgloss.Color("#9ECE6A") // Soft green - success/accept states
	steelBlue   = lipgloss.Color("#7AA2F7") // Cool steel blue - user input
	rustRed     = lipgloss.Color("#F7768E") // Rust red - errors/failures
	mutedGray   = lipgloss.Color("#6B7280") // Muted gray - secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // Bright white - primary text
)

// Common Styles
// These are pre-configured styles for common UI elements.
// Use these as base styles and customize as needed.
var (
	// Text Styles
	headerStyle = lipgloss.NewStyle().
			Foreground(emberAmber).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	userStyle = lipgloss.NewStyle().
			Foreground(steelBlue).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(emberAmber)

	resultStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	successStyle = lipgloss.NewStyle().
			Foreground(mossGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(rustRed)

	questionStyle = lipgloss.NewStyle().
			Foreground(forgeOrange).
			Bold(true)

	// Container Styles
	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(emberAmber).
			Padding(0, 1)
)
