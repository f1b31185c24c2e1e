package types

import "fmt"

// ActionType identifies the kind of mutation an action performs.
// The set is closed: the executor dispatches over exactly these values and
// treats anything else as an unknown action type.
type ActionType string

const (
	ActionFSWrite       ActionType = "fs_write"        // ActionFSWrite writes (or overwrites) a whole file.
	ActionFSEdit        ActionType = "fs_edit"         // ActionFSEdit replaces the first occurrence of a literal substring.
	ActionFSInsertLines ActionType = "fs_insert_lines" // ActionFSInsertLines performs deterministic line-number indexed edits.
	ActionFSDelete      ActionType = "fs_delete"       // ActionFSDelete soft-deletes a file into the trash directory.
	ActionShellRun      ActionType = "shell_run"       // ActionShellRun executes an allowlisted shell command.
	ActionDepsInstall   ActionType = "deps_install"    // ActionDepsInstall installs packages for a detected language.
	ActionGitCheckout   ActionType = "git_checkout"    // ActionGitCheckout switches (or creates) a git branch.
)

// IsFilesystem reports whether the action type mutates files directly.
// Only filesystem actions contribute affected-file paths to observations.
func (t ActionType) IsFilesystem() bool {
	switch t {
	case ActionFSWrite, ActionFSEdit, ActionFSInsertLines, ActionFSDelete:
		return true
	}
	return false
}

// Action is one atomic operation produced by the planner. Actions are
// immutable once created and consumed exactly once per loop iteration.
type Action struct {
	Type        ActionType             `json:"type"`
	Rationale   string                 `json:"rationale"`
	Args        map[string]interface{} `json:"args"`
	TargetFiles []string               `json:"target_files,omitempty"`
	RiskScore   float64                `json:"risk_score"`
}

// Validate checks the structural invariants of an action.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionFSWrite, ActionFSEdit, ActionFSInsertLines, ActionFSDelete,
		ActionShellRun, ActionDepsInstall, ActionGitCheckout:
	default:
		return fmt.Errorf("unknown action type: %s", a.Type)
	}

	if a.RiskScore < 0.0 || a.RiskScore > 1.0 {
		return fmt.Errorf("risk score %.2f out of range [0.0, 1.0]", a.RiskScore)
	}

	return nil
}

// Plan is an ordered, goal-tagged sequence of actions. Plans are replaced
// rather than mutated; the only permitted in-place change is truncating the
// step list to an iteration budget.
type Plan struct {
	Goal            string   `json:"goal"`
	Steps           []Action `json:"steps"`
	ExpectedOutcome string   `json:"expected_outcome"`
	RollbackHint    string   `json:"rollback_hint,omitempty"`
}

// Validate checks the plan and every contained action.
func (p *Plan) Validate() error {
	if p.Goal == "" {
		return fmt.Errorf("plan goal is required")
	}

	for i := range p.Steps {
		if err := p.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return nil
}

// Truncate limits the plan to at most n steps. A zero or negative n leaves
// the plan unchanged.
func (p *Plan) Truncate(n int) {
	if n > 0 && len(p.Steps) > n {
		p.Steps = p.Steps[:n]
	}
}

// ExecutionResult is the normalized outcome of executing one action.
// Adapters fold every failure into a result value; the orchestration loop
// never sees an adapter panic or a raw error.
type ExecutionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Diff    string      `json:"diff,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
