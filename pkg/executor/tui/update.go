package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/craftd/anvil/pkg/agent/approval"
	"github.com/craftd/anvil/pkg/session"
)

// Update handles all state updates for the chat model. Spinner ticks are
// processed first so the loading indicator keeps animating during engine
// calls; everything else is routed by message type.
//
// Uses a pointer receiver so transcript and confirmation state mutated by
// handlers persists across updates.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if sp, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(sp)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.shouldQuit = true
			return m, tea.Quit
		case tea.KeyEnter:
			if cmd := m.handleSubmit(m.input.Value()); cmd != nil {
				cmds = append(cmds, cmd)
			}
			m.input.Reset()
			if m.shouldQuit {
				return m, tea.Quit
			}
		}

	case agentEventMsg:
		m.handleAgentEvent(msg.event)

	case classifiedMsg:
		m.clearBusy()
		if cmd := m.dispatchIntent(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.shouldQuit {
			return m, tea.Quit
		}

	case loopDoneMsg:
		m.clearBusy()
		if cmd := m.handleLoopDone(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case verifyDoneMsg:
		m.clearBusy()
		m.handleVerifyDone(msg)

	case fixDoneMsg:
		m.clearBusy()
		m.handleFixDone(msg)

	case commitDoneMsg:
		m.clearBusy()
		m.handleCommitDone(msg)

	case functionDoneMsg:
		m.clearBusy()
		if msg.output != "" {
			if msg.isErr {
				m.appendBlock(errorStyle.Render(msg.output))
			} else {
				m.appendBlock(msg.output)
				m.lastReply = msg.output
			}
		}
		if msg.quit {
			m.shouldQuit = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleSubmit interprets one submitted input line. The order is fixed: a
// blocked gate confirmation is answered first, then an unresolved pending
// confirmation, then slash commands, and only then does the input go to
// intent classification.
func (m *model) handleSubmit(raw string) tea.Cmd {
	input := strings.TrimSpace(raw)
	if input == "" {
		return nil
	}
	m.appendUser(input)

	if m.confirmID != "" {
		m.resolveGateConfirmation(input)
		return nil
	}

	if pending := m.agent.Session().PendingConfirmation(); pending != nil {
		cmd, handled := m.resolvePendingConfirmation(input, pending)
		if handled {
			return cmd
		}
		// The new input replaces the stale confirmation and is processed
		// as a fresh request below.
	}

	if name, args, ok := parseSlashCommand(input); ok {
		return m.runSlashCommand(name, args)
	}

	return m.classifyCmd(input)
}

// resolveGateConfirmation answers the approval manager while the engine is
// blocked on a risk-gate confirmation. Anything but an explicit affirmative
// counts as a denial.
func (m *model) resolveGateConfirmation(input string) {
	granted := isAffirmative(input)
	m.agent.Approvals().HandleResponse(&approval.Response{
		ConfirmationID: m.confirmID,
		Granted:        granted,
	})
	m.confirmID = ""
	if granted {
		m.appendLine(successStyle.Render("Approved."))
	} else {
		m.appendLine(dimStyle.Render("Denied."))
	}
}

// resolvePendingConfirmation handles input while a pending confirmation is
// outstanding. An affirmative answer executes the stored action, a negative
// answer cancels it, and anything else cancels it and reports handled=false
// so the input is processed as a new request.
func (m *model) resolvePendingConfirmation(input string, pending *session.PendingConfirmation) (tea.Cmd, bool) {
	switch {
	case isAffirmative(input):
		m.agent.Session().ClearPendingConfirmation()
		return m.executePendingAction(pending), true

	case isNegative(input):
		m.agent.Session().ClearPendingConfirmation()
		m.appendLine(dimStyle.Render("Cancelled."))
		return nil, true

	default:
		m.agent.Session().ClearPendingConfirmation()
		m.appendLine(dimStyle.Render("Previous confirmation cancelled. Processing new request..."))
		return nil, false
	}
}

// executePendingAction performs the action a confirmed pending confirmation
// carries, keyed by its type.
func (m *model) executePendingAction(pending *session.PendingConfirmation) tea.Cmd {
	switch pending.Action["type"] {
	case "delete_file":
		return m.deleteFileCmd(pending.Action["path"])
	case "commit":
		return m.commitCmd("")
	case "fix":
		return m.fixCmd()
	default:
		m.appendLine(dimStyle.Render("Nothing to do."))
		return nil
	}
}

// resize recomputes the layout after a terminal size change.
func (m *model) resize(width, height int) {
	m.width = width
	m.height = height

	viewportHeight := m.viewportHeight()
	if !m.ready {
		m.viewport = newViewport(width, viewportHeight)
		m.viewport.SetContent(m.transcript.String())
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.input.Width = width - 6
	m.viewport.GotoBottom()
}

// viewportHeight is the terminal height minus the fixed chrome: header,
// input box, status bar, and the optional loading line.
func (m *model) viewportHeight() int {
	chrome := headerHeight + inputHeight + statusHeight
	if m.busy {
		chrome++
	}
	height := m.height - chrome
	if height < minViewportHeight {
		height = minViewportHeight
	}
	return height
}
