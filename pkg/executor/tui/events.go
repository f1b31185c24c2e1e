package tui

import (
	"fmt"

	"github.com/craftd/anvil/pkg/types"
)

// handleAgentEvent renders one event from the engine's event stream into the
// transcript. Events arrive while a loop runs in the background, so every
// handler only touches model state.
func (m *model) handleAgentEvent(event *types.AgentEvent) {
	switch event.Type {
	case types.EventTypePlanStart:
		m.appendLine(dimStyle.Render("Planning: " + event.Content))

	case types.EventTypePlanReady:
		steps := 0
		if n, ok := event.Metadata["steps"].(int); ok {
			steps = n
		}
		m.appendLine(actionStyle.Render(fmt.Sprintf("Plan ready: %s (%d steps)", event.Content, steps)))

	case types.EventTypeIterationStart:
		m.appendLine(dimStyle.Render(fmt.Sprintf("── iteration %d ──", event.Iteration)))

	case types.EventTypeActionStart:
		m.appendLine(actionStyle.Render("→ " + describeAction(event.Action)))

	case types.EventTypeActionResult:
		if event.Result == nil {
			return
		}
		if event.Result.Success {
			m.appendLine(resultStyle.Render("  " + event.Result.Message))
		} else {
			m.appendLine(errorStyle.Render("  ✗ " + event.Result.Message))
		}
		if event.Result.Diff != "" {
			m.lastDiff = event.Result.Diff
		}

	case types.EventTypeObservation:
		if event.Observation != nil && !event.Observation.Success {
			m.appendLine(dimStyle.Render("  observed: " + string(event.Observation.ErrorType)))
		}

	case types.EventTypeSelfCorrection:
		m.appendLine(questionStyle.Render("Self-correcting: ") + dimStyle.Render(truncateLine(event.Content, 120)))

	case types.EventTypeConfirmationRequest:
		m.confirmID = event.ConfirmationID
		m.appendBlock(questionStyle.Render("? " + event.Content + " (yes/no)"))

	case types.EventTypeConfirmationResult:
		if timedOut, ok := event.Metadata["timed_out"].(bool); ok && timedOut {
			m.confirmID = ""
			m.appendLine(dimStyle.Render("Confirmation timed out, treated as a denial."))
		}

	case types.EventTypeVerification:
		if event.Verification != nil {
			if event.Verification.Passed() {
				m.appendLine(successStyle.Render("  verify: " + event.Verification.Summary))
			} else {
				m.appendLine(errorStyle.Render("  verify: " + event.Verification.Summary))
			}
		}

	case types.EventTypeCommit:
		sha := ""
		if s, ok := event.Metadata["sha"].(string); ok {
			sha = s
		}
		m.appendLine(successStyle.Render("Committed " + sha))

	case types.EventTypeRunComplete:
		// The loopDoneMsg renders the final summary; the terminal event
		// only marks the stream boundary.

	case types.EventTypeMessage:
		m.appendLine(resultStyle.Render(event.Content))

	case types.EventTypeError:
		if event.Error != nil {
			m.appendLine(errorStyle.Render("Error: " + event.Error.Error()))
		}
	}
}

// describeAction is the one-line transcript form of an action about to run.
func describeAction(action *types.Action) string {
	if action == nil {
		return "(unknown action)"
	}
	switch action.Type {
	case types.ActionFSWrite, types.ActionFSEdit, types.ActionFSInsertLines, types.ActionFSDelete:
		return fmt.Sprintf("%s %s", action.Type, actionArg(action, "path"))
	case types.ActionShellRun:
		return fmt.Sprintf("%s %s", action.Type, truncateLine(actionArg(action, "command"), 80))
	case types.ActionDepsInstall:
		return fmt.Sprintf("%s %s", action.Type, actionArg(action, "language"))
	case types.ActionGitCheckout:
		return fmt.Sprintf("%s %s", action.Type, actionArg(action, "branch"))
	default:
		return string(action.Type)
	}
}

// actionArg extracts a string argument, tolerating missing keys and
// non-string values.
func actionArg(action *types.Action, key string) string {
	if action.Args == nil {
		return ""
	}
	value, _ := action.Args[key].(string)
	return value
}
