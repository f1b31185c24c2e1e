package types

// ErrorType is the heuristic failure category inferred from a result
// message. Classification is an ordered substring scan, not exception
// introspection: the adapters only ever expose opaque message strings.
type ErrorType string

const (
	ErrorTypeImport       ErrorType = "ImportError"
	ErrorTypeSyntax       ErrorType = "SyntaxError"
	ErrorTypeFileNotFound ErrorType = "FileNotFoundError"
	ErrorTypePermission   ErrorType = "PermissionError"
	ErrorTypeUnknown      ErrorType = "UnknownError"
)

// Observation is the classified, retry-aware interpretation of an action's
// execution result. Derived deterministically from the action plus its
// result; persisted only as part of the session action log.
type Observation struct {
	ActionType    ActionType        `json:"action_type"`
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	ErrorType     ErrorType         `json:"error_type,omitempty"`
	AffectedFiles []string          `json:"affected_files,omitempty"`
	Diff          string            `json:"diff,omitempty"`
	CanRetry      bool              `json:"can_retry"`
	ContextUpdate map[string]string `json:"context_update,omitempty"`
}

// Context update keys describing how an observation changed file state.
const (
	ContextFileCreated  = "file_created"
	ContextFileModified = "file_modified"
	ContextFileDeleted  = "file_deleted"
)

// VerificationResult is the outcome of a lint/type/test verification pass.
type VerificationResult struct {
	Status       string   `json:"status"`
	LintErrors   []string `json:"lint_errors,omitempty"`
	TypeErrors   []string `json:"type_errors,omitempty"`
	FailingTests []string `json:"failing_tests,omitempty"`
	Summary      string   `json:"summary"`
}

// Verification status values.
const (
	VerifyPass = "pass"
	VerifyFail = "fail"
)

// Passed reports whether the verification succeeded.
func (v *VerificationResult) Passed() bool {
	return v.Status == VerifyPass
}

// ReflectionResult is the reflector's analysis of a failure together with
// a bounded fix plan.
type ReflectionResult struct {
	Analysis string `json:"analysis"`
	FixPlan  Plan   `json:"fix_plan"`
}
