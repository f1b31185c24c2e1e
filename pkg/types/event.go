package types

// AgentEventType defines the type of event emitted by the engine while a
// run is in progress.
type AgentEventType string

const (
	EventTypePlanStart           AgentEventType = "plan_start"           // EventTypePlanStart indicates planning has begun for the current goal.
	EventTypePlanReady           AgentEventType = "plan_ready"           // EventTypePlanReady carries the plan produced by the planner.
	EventTypeIterationStart      AgentEventType = "iteration_start"      // EventTypeIterationStart indicates a new loop iteration is beginning.
	EventTypeActionStart         AgentEventType = "action_start"         // EventTypeActionStart indicates an action is about to execute.
	EventTypeActionResult        AgentEventType = "action_result"        // EventTypeActionResult carries the normalized result of an action.
	EventTypeObservation         AgentEventType = "observation"          // EventTypeObservation carries the classified observation of a result.
	EventTypeSelfCorrection      AgentEventType = "self_correction"      // EventTypeSelfCorrection indicates a reflect-and-fix attempt started.
	EventTypeConfirmationRequest AgentEventType = "confirmation_request" // EventTypeConfirmationRequest asks the front end to approve an action.
	EventTypeConfirmationResult  AgentEventType = "confirmation_result"  // EventTypeConfirmationResult reports how a confirmation was resolved.
	EventTypeVerification        AgentEventType = "verification"         // EventTypeVerification carries a verification result.
	EventTypeCommit              AgentEventType = "commit"               // EventTypeCommit reports a version-control commit.
	EventTypeRunComplete         AgentEventType = "run_complete"         // EventTypeRunComplete indicates the loop reached a terminal outcome.
	EventTypeMessage             AgentEventType = "message"              // EventTypeMessage carries free-form text for the transcript.
	EventTypeError               AgentEventType = "error"                // EventTypeError indicates an error occurred during the run.
)

// AgentEvent is one event on the engine's event stream. Front ends render
// events as they arrive; the engine never blocks on a full channel (events
// are dropped when no consumer keeps up).
type AgentEvent struct {
	// Type indicates the kind of event.
	Type AgentEventType

	// Content holds text content for transcript-style events.
	Content string

	// Iteration is the 1-based loop iteration, where applicable.
	Iteration int

	// Action is the action being executed (for action events).
	Action *Action

	// Result is the execution result (for action result events).
	Result *ExecutionResult

	// Observation is the classified observation (for observation events).
	Observation *Observation

	// Verification is the verification result (for verification events).
	Verification *VerificationResult

	// ConfirmationID identifies a pending confirmation request/response.
	ConfirmationID string

	// Approved reports the confirmation outcome (for confirmation results).
	Approved bool

	// Error contains error information for error events.
	Error error

	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}
}

// NewPlanStartEvent creates a plan start event.
func NewPlanStartEvent(goal string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypePlanStart,
		Content:  goal,
		Metadata: make(map[string]interface{}),
	}
}

// NewPlanReadyEvent creates a plan ready event carrying the step count.
func NewPlanReadyEvent(plan *Plan) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypePlanReady,
		Content:  plan.Goal,
		Metadata: map[string]interface{}{"steps": len(plan.Steps)},
	}
}

// NewIterationStartEvent creates an iteration start event.
func NewIterationStartEvent(iteration int) *AgentEvent {
	return &AgentEvent{
		Type:      EventTypeIterationStart,
		Iteration: iteration,
		Metadata:  make(map[string]interface{}),
	}
}

// NewActionStartEvent creates an action start event.
func NewActionStartEvent(action *Action) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeActionStart,
		Action:   action,
		Content:  action.Rationale,
		Metadata: make(map[string]interface{}),
	}
}

// NewActionResultEvent creates an action result event.
func NewActionResultEvent(action *Action, result *ExecutionResult) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeActionResult,
		Action:   action,
		Result:   result,
		Content:  result.Message,
		Metadata: make(map[string]interface{}),
	}
}

// NewObservationEvent creates an observation event.
func NewObservationEvent(obs *Observation) *AgentEvent {
	return &AgentEvent{
		Type:        EventTypeObservation,
		Observation: obs,
		Content:     obs.Message,
		Metadata:    make(map[string]interface{}),
	}
}

// NewSelfCorrectionEvent creates a self-correction event.
func NewSelfCorrectionEvent(analysis string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeSelfCorrection,
		Content:  analysis,
		Metadata: make(map[string]interface{}),
	}
}

// NewConfirmationRequestEvent creates a confirmation request event.
func NewConfirmationRequestEvent(id, reason string, action *Action) *AgentEvent {
	return &AgentEvent{
		Type:           EventTypeConfirmationRequest,
		ConfirmationID: id,
		Content:        reason,
		Action:         action,
		Metadata:       make(map[string]interface{}),
	}
}

// NewConfirmationResultEvent creates a confirmation result event.
func NewConfirmationResultEvent(id string, approved bool) *AgentEvent {
	return &AgentEvent{
		Type:           EventTypeConfirmationResult,
		ConfirmationID: id,
		Approved:       approved,
		Metadata:       make(map[string]interface{}),
	}
}

// NewVerificationEvent creates a verification event.
func NewVerificationEvent(result *VerificationResult) *AgentEvent {
	return &AgentEvent{
		Type:         EventTypeVerification,
		Verification: result,
		Content:      result.Summary,
		Metadata:     make(map[string]interface{}),
	}
}

// NewCommitEvent creates a commit event carrying the short sha.
func NewCommitEvent(sha, message string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeCommit,
		Content:  message,
		Metadata: map[string]interface{}{"sha": sha},
	}
}

// NewRunCompleteEvent creates a run complete event.
func NewRunCompleteEvent(success bool, summary string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeRunComplete,
		Content:  summary,
		Approved: success,
		Metadata: make(map[string]interface{}),
	}
}

// NewMessageEvent creates a transcript message event.
func NewMessageEvent(content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessage,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// IsTerminal returns true if this event ends a run.
func (e *AgentEvent) IsTerminal() bool {
	return e.Type == EventTypeRunComplete
}
