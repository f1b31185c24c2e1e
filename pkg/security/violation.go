// Package security defines the safety constraint violations shared by the
// workspace guard and the tool adapters.
package security

import "fmt"

// Violation represents a safety constraint failure. Adapters convert
// violations into failed execution results rather than propagating them,
// so the orchestration loop always receives a value it can branch on.
type Violation struct {
	Type    ViolationType
	Message string
	Details map[string]interface{}
}

func (v *Violation) Error() string {
	return fmt.Sprintf("safety violation (%s): %s", v.Type, v.Message)
}

// ViolationType identifies the kind of constraint that was violated
type ViolationType string

const (
	ViolationPath             ViolationType = "path"
	ViolationAllowlist        ViolationType = "allowlist"
	ViolationDangerousPattern ViolationType = "dangerous_pattern"
	ViolationFileSize         ViolationType = "file_size"
	ViolationArgument         ViolationType = "argument"
)
