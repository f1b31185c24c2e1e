package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/craftd/anvil/pkg/ui"
)

// Fixed chrome heights used by the layout. The header is the banner plus
// tips; the input box is one line plus its border.
const (
	headerHeight      = 9
	inputHeight       = 3
	statusHeight      = 1
	minViewportHeight = 5
)

// newViewport builds the transcript viewport for the current size.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// View renders the full interface: banner, transcript, loading line, input
// box, and status bar.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.buildHeader(),
		m.viewport.View(),
	}
	if m.busy {
		sections = append(sections, m.buildLoadingIndicator())
	}
	sections = append(sections, m.buildInputBox(), m.buildStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// buildHeader renders the banner and usage tips.
func (m *model) buildHeader() string {
	banner := headerStyle.Render(ui.GenerateASCIIArt("ANVIL"))
	tips := tipsStyle.Render("  Describe a task in plain words. /help lists commands, ctrl+c quits.")
	return lipgloss.JoinVertical(lipgloss.Left, banner, tips)
}

// buildLoadingIndicator renders the spinner line shown while the engine
// works in the background.
func (m *model) buildLoadingIndicator() string {
	return fmt.Sprintf(" %s %s", m.spinner.View(), dimStyle.Render(m.busyMessage))
}

// buildInputBox renders the bordered input line.
func (m *model) buildInputBox() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return inputBoxStyle.Width(width).Render(m.input.View())
}

// buildStatusBar renders the one-line footer: model, workspace, session.
func (m *model) buildStatusBar() string {
	modelName := "unknown"
	if info := m.agent.Client().Provider().GetModelInfo(); info != nil {
		modelName = info.Name
	}
	mode := ""
	if m.agent.DryRun() {
		mode = "  dry-run"
	}

	left := fmt.Sprintf("%s  %s%s", modelName, shortenPath(m.agent.Workspace(), 40), mode)
	right := "session " + m.agent.Session().SessionID()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

// shortenPath elides the middle of long paths, keeping the leading and
// trailing components.
func shortenPath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return path
	}
	return parts[0] + "/…/" + parts[len(parts)-1]
}
