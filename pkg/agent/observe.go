package agent

import (
	"strings"

	"github.com/craftd/anvil/pkg/types"
)

// errorRule maps a marker substring to an inferred error category. Rules
// are evaluated in order; the first match wins.
type errorRule struct {
	marker    string
	errorType types.ErrorType
}

// errorRules is the classification table for failure messages. Adapters
// and subprocesses report failures as opaque text, so classification is a
// deliberate substring scan rather than typed error inspection.
var errorRules = []errorRule{
	{"import", types.ErrorTypeImport},
	{"syntax", types.ErrorTypeSyntax},
	{"not found", types.ErrorTypeFileNotFound},
	{"does not exist", types.ErrorTypeFileNotFound},
	{"permission", types.ErrorTypePermission},
}

// Observe derives a structured observation from an action and its
// execution result. The derivation is deterministic: the same action and
// result always produce the same observation.
func Observe(action *types.Action, result types.ExecutionResult) *types.Observation {
	obs := &types.Observation{
		ActionType: action.Type,
		Success:    result.Success,
		Message:    result.Message,
		CanRetry:   true,
	}

	if !result.Success {
		obs.ErrorType = classifyError(result.Message)
		if obs.ErrorType == types.ErrorTypePermission {
			obs.CanRetry = false
		}
	}

	// Only filesystem actions carry an affected path worth reporting.
	if action.Type.IsFilesystem() {
		if path, ok := action.Args["path"].(string); ok && path != "" {
			obs.AffectedFiles = append(obs.AffectedFiles, path)
		}
	}

	if result.Success {
		obs.Diff = result.Diff
		obs.ContextUpdate = contextUpdate(action)
	}

	return obs
}

// classifyError scans a failure message against the rule table,
// case-insensitively, in priority order.
func classifyError(message string) types.ErrorType {
	lower := strings.ToLower(message)
	for _, rule := range errorRules {
		if strings.Contains(lower, rule.marker) {
			return rule.errorType
		}
	}
	return types.ErrorTypeUnknown
}

// contextUpdate describes how a successful action changed file state, so
// the loop knows which files to re-read before the next planning round.
func contextUpdate(action *types.Action) map[string]string {
	path, _ := action.Args["path"].(string)
	if path == "" {
		return nil
	}

	switch action.Type {
	case types.ActionFSWrite:
		return map[string]string{types.ContextFileCreated: path}
	case types.ActionFSEdit, types.ActionFSInsertLines:
		return map[string]string{types.ContextFileModified: path}
	case types.ActionFSDelete:
		return map[string]string{types.ContextFileDeleted: path}
	}
	return nil
}
