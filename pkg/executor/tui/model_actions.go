package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/craftd/anvil/pkg/session"
	"github.com/craftd/anvil/pkg/types"
)

// classifyCmd sends the input to the intent classifier in the background.
func (m *model) classifyCmd(input string) tea.Cmd {
	m.setBusy("Reading your intent...")
	sessionContext := m.sessionContext()
	client := m.agent.Client()
	return func() tea.Msg {
		intent, err := client.ClassifyIntent(context.Background(), input, sessionContext)
		return classifiedMsg{input: input, intent: intent, err: err}
	}
}

// sessionContext summarizes recent activity for the classifier: the types of
// the last three executed actions.
func (m *model) sessionContext() string {
	actions := m.agent.Session().Actions()
	if len(actions) == 0 {
		return ""
	}
	if len(actions) > 3 {
		actions = actions[len(actions)-3:]
	}
	names := make([]string, 0, len(actions))
	for _, record := range actions {
		names = append(names, string(record.Type))
	}
	return "Recent actions: " + strings.Join(names, ", ")
}

// dispatchIntent routes a classified intent. Classification failures fall
// through to a full agent loop on the original input.
func (m *model) dispatchIntent(msg classifiedMsg) tea.Cmd {
	if msg.err != nil {
		m.appendLine(dimStyle.Render("Could not classify intent, starting agent loop..."))
		return m.loopCmd(msg.input)
	}

	intent := msg.intent
	if intent.Reasoning != "" {
		m.appendLine(dimStyle.Render(intent.Reasoning))
	}

	switch intent.Type {
	case types.IntentFunctionCall:
		return m.runFunction(intent.FunctionName, intent)

	case types.IntentCompoundRequest:
		m.appendLine(dimStyle.Render(fmt.Sprintf("Executing %d actions...", len(intent.FunctionSequence))))
		cmds := make([]tea.Cmd, 0, len(intent.FunctionSequence))
		for _, name := range intent.FunctionSequence {
			if cmd := m.runFunction(name, intent); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return tea.Sequence(cmds...)

	case types.IntentClarificationNeeded:
		m.appendBlock(questionStyle.Render("? " + intent.ClarificationQuestion))
		action := map[string]string{"action": msg.input}
		for key, value := range intent.PendingAction {
			action[key] = value
		}
		m.agent.Session().SetPendingConfirmation(&session.PendingConfirmation{
			Question: intent.ClarificationQuestion,
			Action:   action,
		})
		return nil

	default:
		return m.loopCmd(msg.input)
	}
}

// runFunction dispatches one classified function call.
func (m *model) runFunction(name types.FunctionType, intent *types.Intent) tea.Cmd {
	switch name {
	case types.FunctionCommit:
		return m.commitCmd("")

	case types.FunctionVerify:
		return m.verifyCmd(false)

	case types.FunctionStatus:
		m.appendBlock(renderStatus(m.agent.Status()))
		m.lastReply = renderStatus(m.agent.Status())
		return nil

	case types.FunctionRepoSummary:
		workspace := m.agent.Workspace()
		return func() tea.Msg {
			summary, err := buildRepoSummary(workspace)
			if err != nil {
				return functionDoneMsg{output: fmt.Sprintf("Repository summary failed: %v", err), isErr: true}
			}
			return functionDoneMsg{output: summary}
		}

	case types.FunctionReadFile:
		if intent.FilePath == "" {
			m.appendLine(errorStyle.Render("No file path provided. Try: show me <filename>"))
			return nil
		}
		return m.readFileCmd(intent.FilePath)

	case types.FunctionQuit:
		return func() tea.Msg {
			return functionDoneMsg{output: dimStyle.Render("Goodbye."), quit: true}
		}

	default:
		m.appendLine(errorStyle.Render(fmt.Sprintf("Unknown function: %s", name)))
		return nil
	}
}

// loopCmd runs the full agent loop for a task in the background. Progress
// arrives on the event channel while this runs.
func (m *model) loopCmd(task string) tea.Cmd {
	m.setBusy(randomLoadingMessage())
	agentRef := m.agent
	return func() tea.Msg {
		result, err := agentRef.RunLoop(context.Background(), task)
		return loopDoneMsg{result: result, err: err}
	}
}

// verifyCmd runs verification in the background. postRun verifications chain
// into the commit-or-fix offer.
func (m *model) verifyCmd(postRun bool) tea.Cmd {
	m.setBusy("Running verification...")
	agentRef := m.agent
	return func() tea.Msg {
		result := agentRef.VerifyChanges(context.Background())
		return verifyDoneMsg{result: result, postRun: postRun}
	}
}

// fixCmd runs a reflect-and-fix cycle in the background.
func (m *model) fixCmd() tea.Cmd {
	m.setBusy("Reflecting on failures...")
	agentRef := m.agent
	return func() tea.Msg {
		report, err := agentRef.ReflectAndFix(context.Background(), 3)
		return fixDoneMsg{report: report, err: err}
	}
}

// commitCmd commits the working tree in the background. An empty message
// lets the engine derive one from the plan goal.
func (m *model) commitCmd(message string) tea.Cmd {
	m.setBusy("Committing changes...")
	agentRef := m.agent
	return func() tea.Msg {
		report := agentRef.CommitChanges(context.Background(), message)
		return commitDoneMsg{report: report}
	}
}

// deleteFileCmd deletes a file through the sandboxed adapter after the user
// confirmed the pending deletion.
func (m *model) deleteFileCmd(path string) tea.Cmd {
	fsTool := m.agent.FS()
	return func() tea.Msg {
		result := fsTool.Delete(path)
		if !result.Success {
			return functionDoneMsg{output: "✗ " + result.Message, isErr: true}
		}
		return functionDoneMsg{output: successStyle.Render("✓ " + result.Message)}
	}
}

// readFileCmd reads a workspace file and renders it with syntax highlighting.
func (m *model) readFileCmd(path string) tea.Cmd {
	fsTool := m.agent.FS()
	return func() tea.Msg {
		result := fsTool.Read(path)
		if !result.Success {
			return functionDoneMsg{output: result.Message, isErr: true}
		}
		content, _ := result.Data.(string)
		lines := strings.Count(content, "\n")
		if content != "" && !strings.HasSuffix(content, "\n") {
			lines++
		}
		var b strings.Builder
		b.WriteString(headerStyle.Render(path))
		b.WriteString("\n")
		b.WriteString(highlightSource(path, content))
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d lines, %d bytes", lines, len(content))))
		return functionDoneMsg{output: b.String()}
	}
}

// handleLoopDone renders a finished loop run and chains into verification
// when any step executed.
func (m *model) handleLoopDone(msg loopDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.appendBlock(errorStyle.Render(fmt.Sprintf("Agent loop failed: %v", msg.err)))
		return nil
	}

	result := msg.result
	summary := fmt.Sprintf("Loop finished: %d iteration(s), %d step(s), %d self-correction(s)",
		result.Iterations, result.StepsExecuted, result.SelfCorrections)
	if result.Success {
		m.appendLine(successStyle.Render(summary))
	} else {
		m.appendLine(errorStyle.Render(summary))
	}
	m.lastReply = summary

	if result.StepsExecuted == 0 {
		m.appendBlock(dimStyle.Render("No steps were executed."))
		return nil
	}
	return m.verifyCmd(true)
}

// handleVerifyDone renders a verification result. After a loop run it offers
// a commit on pass and an automatic fix on failure, through the pending
// confirmation mechanism.
func (m *model) handleVerifyDone(msg verifyDoneMsg) {
	result := msg.result
	m.appendBlock(renderVerification(result))
	m.lastReply = result.Summary

	if !msg.postRun {
		return
	}

	if result.Passed() {
		m.offerConfirmation("Commit changes?", "commit")
	} else {
		m.offerConfirmation("Attempt to fix issues automatically?", "fix")
	}
}

// handleFixDone renders a reflect-and-fix outcome and offers a commit when
// the fix succeeded.
func (m *model) handleFixDone(msg fixDoneMsg) {
	if msg.err != nil {
		m.appendBlock(errorStyle.Render(fmt.Sprintf("Fix failed: %v", msg.err)))
		return
	}

	report := msg.report
	if report.Success {
		m.appendLine(successStyle.Render(fmt.Sprintf("Issues fixed in %d attempt(s)", report.Attempts)))
		m.offerConfirmation("Commit changes?", "commit")
		return
	}
	m.appendBlock(errorStyle.Render(report.Message))
}

// handleCommitDone renders a commit outcome.
func (m *model) handleCommitDone(msg commitDoneMsg) {
	report := msg.report
	if !report.Success {
		m.appendBlock(dimStyle.Render(report.Message))
		return
	}
	m.appendLine(successStyle.Render("✓ Committed: " + report.SHA))
	m.appendBlock(dimStyle.Render("Artifacts saved to " + m.agent.Session().ArtifactsDir()))
}

// offerConfirmation stores a typed yes/no offer as the session's pending
// confirmation and renders the question.
func (m *model) offerConfirmation(question, actionType string) {
	m.agent.Session().SetPendingConfirmation(&session.PendingConfirmation{
		Question: question,
		Action:   map[string]string{"type": actionType},
	})
	m.appendBlock(questionStyle.Render("? " + question + " (yes/no)"))
}
