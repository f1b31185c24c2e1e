package agent

import (
	"testing"

	"github.com/craftd/anvil/pkg/types"
)

func writeAction(path string) *types.Action {
	return &types.Action{
		Type:      types.ActionFSWrite,
		Rationale: "create a file",
		Args:      map[string]interface{}{"path": path, "content": "x"},
		RiskScore: 0.1,
	}
}

func TestObserve_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		errorType types.ErrorType
		canRetry  bool
	}{
		{"import failure", "ImportError: no module named requests", types.ErrorTypeImport, true},
		{"syntax failure", "SyntaxError: invalid syntax on line 3", types.ErrorTypeSyntax, true},
		{"missing file", "file not found: src/app.py", types.ErrorTypeFileNotFound, true},
		{"missing path", "path does not exist", types.ErrorTypeFileNotFound, true},
		{"permission denied", "Permission denied writing file", types.ErrorTypePermission, false},
		{"mixed case", "PERMISSION DENIED", types.ErrorTypePermission, false},
		{"unrecognized", "something exploded", types.ErrorTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := writeAction("src/app.py")
			result := types.ExecutionResult{Success: false, Message: tt.message}

			obs := Observe(action, result)
			if obs.Success {
				t.Fatal("Observation of a failed result must not report success")
			}
			if obs.ErrorType != tt.errorType {
				t.Errorf("Expected %s, got %s", tt.errorType, obs.ErrorType)
			}
			if obs.CanRetry != tt.canRetry {
				t.Errorf("Expected CanRetry=%v, got %v", tt.canRetry, obs.CanRetry)
			}
		})
	}
}

func TestObserve_RuleOrderPrefersEarlierMarker(t *testing.T) {
	action := writeAction("a.py")
	result := types.ExecutionResult{
		Success: false,
		Message: "import failed: module file not found",
	}

	obs := Observe(action, result)
	if obs.ErrorType != types.ErrorTypeImport {
		t.Errorf("Expected ImportError from the earlier rule, got %s", obs.ErrorType)
	}
}

func TestObserve_SuccessCarriesNoErrorType(t *testing.T) {
	action := writeAction("a.py")
	result := types.ExecutionResult{
		Success: true,
		Message: "File written successfully: a.py",
		Diff:    "+hello",
	}

	obs := Observe(action, result)
	if !obs.Success {
		t.Fatal("Expected success")
	}
	if obs.ErrorType != "" {
		t.Errorf("Successful observation must not carry an error type, got %s", obs.ErrorType)
	}
	if !obs.CanRetry {
		t.Error("Successful observation should remain retryable")
	}
	if obs.Diff != "+hello" {
		t.Errorf("Expected diff carried through, got %q", obs.Diff)
	}
}

func TestObserve_FailureDropsDiff(t *testing.T) {
	action := writeAction("a.py")
	result := types.ExecutionResult{Success: false, Message: "boom", Diff: "+x"}

	obs := Observe(action, result)
	if obs.Diff != "" {
		t.Errorf("Failed observation must not carry a diff, got %q", obs.Diff)
	}
}

func TestObserve_AffectedFiles(t *testing.T) {
	fsAction := writeAction("src/util.py")
	obs := Observe(fsAction, types.ExecutionResult{Success: true, Message: "ok"})
	if len(obs.AffectedFiles) != 1 || obs.AffectedFiles[0] != "src/util.py" {
		t.Errorf("Expected affected file src/util.py, got %v", obs.AffectedFiles)
	}

	shellAction := &types.Action{
		Type: types.ActionShellRun,
		Args: map[string]interface{}{"command": "pytest"},
	}
	obs = Observe(shellAction, types.ExecutionResult{Success: true, Message: "ok"})
	if len(obs.AffectedFiles) != 0 {
		t.Errorf("Shell actions carry no affected files, got %v", obs.AffectedFiles)
	}
}

func TestObserve_ContextUpdate(t *testing.T) {
	tests := []struct {
		name       string
		actionType types.ActionType
		key        string
	}{
		{"write creates", types.ActionFSWrite, types.ContextFileCreated},
		{"edit modifies", types.ActionFSEdit, types.ContextFileModified},
		{"insert modifies", types.ActionFSInsertLines, types.ContextFileModified},
		{"delete removes", types.ActionFSDelete, types.ContextFileDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := &types.Action{
				Type: tt.actionType,
				Args: map[string]interface{}{"path": "pkg/x.go"},
			}
			obs := Observe(action, types.ExecutionResult{Success: true, Message: "ok"})
			if obs.ContextUpdate[tt.key] != "pkg/x.go" {
				t.Errorf("Expected %s=pkg/x.go, got %v", tt.key, obs.ContextUpdate)
			}
		})
	}
}

func TestObserve_NoContextUpdateOnFailure(t *testing.T) {
	action := writeAction("a.py")
	obs := Observe(action, types.ExecutionResult{Success: false, Message: "boom"})
	if obs.ContextUpdate != nil {
		t.Errorf("Failed action must not produce a context update, got %v", obs.ContextUpdate)
	}
}

func TestObserve_NonFileActionHasNoContextUpdate(t *testing.T) {
	action := &types.Action{
		Type: types.ActionShellRun,
		Args: map[string]interface{}{"command": "pytest"},
	}
	obs := Observe(action, types.ExecutionResult{Success: true, Message: "ok"})
	if obs.ContextUpdate != nil {
		t.Errorf("Shell action must not produce a context update, got %v", obs.ContextUpdate)
	}
}
