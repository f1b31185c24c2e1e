package types

import (
	"testing"
)

func TestActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{
			name:    "valid write action",
			action:  Action{Type: ActionFSWrite, Rationale: "create file", Args: map[string]interface{}{"path": "a.txt"}, RiskScore: 0.1},
			wantErr: false,
		},
		{
			name:    "risk score at lower bound",
			action:  Action{Type: ActionShellRun, RiskScore: 0.0},
			wantErr: false,
		},
		{
			name:    "risk score at upper bound",
			action:  Action{Type: ActionFSDelete, RiskScore: 1.0},
			wantErr: false,
		},
		{
			name:    "risk score above range",
			action:  Action{Type: ActionFSWrite, RiskScore: 1.1},
			wantErr: true,
		},
		{
			name:    "risk score below range",
			action:  Action{Type: ActionFSWrite, RiskScore: -0.1},
			wantErr: true,
		},
		{
			name:    "unknown action type",
			action:  Action{Type: ActionType("fs_truncate"), RiskScore: 0.1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestActionTypeIsFilesystem(t *testing.T) {
	fsTypes := []ActionType{ActionFSWrite, ActionFSEdit, ActionFSInsertLines, ActionFSDelete}
	for _, at := range fsTypes {
		if !at.IsFilesystem() {
			t.Errorf("IsFilesystem() = false for %s, want true", at)
		}
	}

	otherTypes := []ActionType{ActionShellRun, ActionDepsInstall, ActionGitCheckout}
	for _, at := range otherTypes {
		if at.IsFilesystem() {
			t.Errorf("IsFilesystem() = true for %s, want false", at)
		}
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{
			name: "valid plan",
			plan: Plan{
				Goal: "add greeting",
				Steps: []Action{
					{Type: ActionFSWrite, RiskScore: 0.1},
				},
				ExpectedOutcome: "greeting exists",
			},
			wantErr: false,
		},
		{
			name:    "missing goal",
			plan:    Plan{Steps: []Action{{Type: ActionFSWrite, RiskScore: 0.1}}},
			wantErr: true,
		},
		{
			name: "invalid step risk",
			plan: Plan{
				Goal:  "bad step",
				Steps: []Action{{Type: ActionFSWrite, RiskScore: 2.0}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanTruncate(t *testing.T) {
	mkPlan := func(n int) Plan {
		steps := make([]Action, n)
		for i := range steps {
			steps[i] = Action{Type: ActionShellRun, RiskScore: 0.1}
		}
		return Plan{Goal: "g", Steps: steps}
	}

	tests := []struct {
		name      string
		steps     int
		limit     int
		wantSteps int
	}{
		{name: "truncates above limit", steps: 5, limit: 3, wantSteps: 3},
		{name: "keeps below limit", steps: 2, limit: 3, wantSteps: 2},
		{name: "zero limit is no-op", steps: 4, limit: 0, wantSteps: 4},
		{name: "negative limit is no-op", steps: 4, limit: -1, wantSteps: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mkPlan(tt.steps)
			p.Truncate(tt.limit)
			if len(p.Steps) != tt.wantSteps {
				t.Errorf("Truncate(%d) left %d steps, want %d", tt.limit, len(p.Steps), tt.wantSteps)
			}
		})
	}
}

func TestIntentValidate(t *testing.T) {
	tests := []struct {
		name    string
		intent  Intent
		wantErr bool
	}{
		{
			name:    "function call with name",
			intent:  Intent{Type: IntentFunctionCall, Confidence: 0.9, FunctionName: FunctionVerify},
			wantErr: false,
		},
		{
			name:    "function call without name",
			intent:  Intent{Type: IntentFunctionCall, Confidence: 0.9},
			wantErr: true,
		},
		{
			name:    "compound request without sequence",
			intent:  Intent{Type: IntentCompoundRequest, Confidence: 0.8},
			wantErr: true,
		},
		{
			name: "compound request with sequence",
			intent: Intent{
				Type:             IntentCompoundRequest,
				Confidence:       0.8,
				FunctionSequence: []FunctionType{FunctionVerify, FunctionCommit},
			},
			wantErr: false,
		},
		{
			name:    "plan required",
			intent:  Intent{Type: IntentPlanRequired, Confidence: 1.0},
			wantErr: false,
		},
		{
			name:    "confidence out of range",
			intent:  Intent{Type: IntentPlanRequired, Confidence: 1.5},
			wantErr: true,
		},
		{
			name:    "unknown type",
			intent:  Intent{Type: IntentType("guess"), Confidence: 0.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
