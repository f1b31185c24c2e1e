package types

import "fmt"

// IntentType classifies what the user wants from a chat message.
type IntentType string

const (
	IntentFunctionCall        IntentType = "function_call"        // Direct dispatch to a single built-in function.
	IntentCompoundRequest     IntentType = "compound_request"     // An ordered sequence of built-in functions.
	IntentClarificationNeeded IntentType = "clarification_needed" // The agent must ask before acting.
	IntentPlanRequired        IntentType = "plan_required"        // A full plan/execute loop is needed.
)

// FunctionType enumerates the built-in functions the chat front end can
// dispatch without planning.
type FunctionType string

const (
	FunctionCommit      FunctionType = "commit"
	FunctionVerify      FunctionType = "verify"
	FunctionStatus      FunctionType = "status"
	FunctionRepoSummary FunctionType = "repo_summary"
	FunctionReadFile    FunctionType = "read_file"
	FunctionQuit        FunctionType = "quit"
)

// Intent is the classifier's structured reading of a user message.
type Intent struct {
	Type                  IntentType        `json:"type"`
	Confidence            float64           `json:"confidence"`
	FunctionName          FunctionType      `json:"function_name,omitempty"`
	FunctionSequence      []FunctionType    `json:"function_sequence,omitempty"`
	FilePath              string            `json:"file_path,omitempty"`
	ClarificationQuestion string            `json:"clarification_question,omitempty"`
	PendingAction         map[string]string `json:"pending_action,omitempty"`
	Reasoning             string            `json:"reasoning"`
}

// Validate checks that the intent is internally consistent.
func (i *Intent) Validate() error {
	switch i.Type {
	case IntentFunctionCall, IntentCompoundRequest, IntentClarificationNeeded, IntentPlanRequired:
	default:
		return fmt.Errorf("unknown intent type: %s", i.Type)
	}

	if i.Confidence < 0.0 || i.Confidence > 1.0 {
		return fmt.Errorf("confidence %.2f out of range [0.0, 1.0]", i.Confidence)
	}

	if i.Type == IntentFunctionCall && i.FunctionName == "" {
		return fmt.Errorf("function_call intent requires a function name")
	}

	if i.Type == IntentCompoundRequest && len(i.FunctionSequence) == 0 {
		return fmt.Errorf("compound_request intent requires a function sequence")
	}

	return nil
}
