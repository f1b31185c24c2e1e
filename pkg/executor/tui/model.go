package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/types"
)

// model represents the state of the chat interface. It owns the transcript,
// the input line, and the bookkeeping that decides how the next submitted
// input is interpreted.
type model struct {
	// Bubble Tea components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Engine integration
	agent  *agent.CodingAgent
	events chan *types.AgentEvent

	// Transcript content rendered into the viewport
	transcript strings.Builder

	// Layout
	width  int
	height int
	ready  bool

	// Busy state while an engine call runs in the background
	busy        bool
	busyMessage string

	// confirmID is set while the risk gate is blocked waiting for the user
	// to approve an action. It takes precedence over all other input.
	confirmID string

	// Last outputs available to /copy
	lastDiff  string
	lastReply string

	shouldQuit bool
}

// Internal messages produced by background engine calls.
type (
	// agentEventMsg wraps one event from the engine's event stream.
	agentEventMsg struct {
		event *types.AgentEvent
	}

	// classifiedMsg carries the intent classification of a user message.
	// A classification error falls through to a full agent loop.
	classifiedMsg struct {
		input  string
		intent *types.Intent
		err    error
	}

	// loopDoneMsg reports a finished agent loop run.
	loopDoneMsg struct {
		result *agent.LoopResult
		err    error
	}

	// verifyDoneMsg reports a verification. postRun marks verifications
	// that follow a loop run and should offer a commit or a fix.
	verifyDoneMsg struct {
		result  *types.VerificationResult
		postRun bool
	}

	// fixDoneMsg reports a reflect-and-fix cycle.
	fixDoneMsg struct {
		report *agent.FixReport
		err    error
	}

	// commitDoneMsg reports a commit attempt.
	commitDoneMsg struct {
		report *agent.CommitReport
	}

	// functionDoneMsg carries the rendered output of a dispatched function
	// such as status, repo_summary, or read_file.
	functionDoneMsg struct {
		output string
		isErr  bool
		quit   bool
	}
)

// newModel builds the initial model around a constructed agent. The event
// channel is the same one the agent emits on; the executor forwards it into
// the program.
func newModel(codingAgent *agent.CodingAgent, events chan *types.AgentEvent) model {
	input := textinput.New()
	input.Placeholder = "Describe a task, or /help for commands"
	input.Prompt = "> "
	input.PromptStyle = userStyle
	input.Focus()
	input.CharLimit = 0

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = actionStyle

	return model{
		input:   input,
		spinner: s,
		agent:   codingAgent,
		events:  events,
	}
}

// Init starts the spinner and the input blink.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// appendLine adds one already-styled line to the transcript and scrolls the
// viewport to the bottom.
func (m *model) appendLine(line string) {
	m.transcript.WriteString(line)
	m.transcript.WriteString("\n")
	if m.ready {
		m.viewport.SetContent(m.transcript.String())
		m.viewport.GotoBottom()
	}
}

// appendBlock adds a multi-line block followed by a blank separator line.
func (m *model) appendBlock(block string) {
	m.appendLine(block)
	m.appendLine("")
}

// appendUser echoes the submitted input into the transcript.
func (m *model) appendUser(input string) {
	m.appendLine(userStyle.Render("> " + input))
}

// setBusy flips the loading indicator on with a message.
func (m *model) setBusy(message string) {
	m.busy = true
	m.busyMessage = message
}

// clearBusy flips the loading indicator off.
func (m *model) clearBusy() {
	m.busy = false
	m.busyMessage = ""
}
