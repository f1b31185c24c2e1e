// Package approval decides which actions and plans run unattended and which
// need a human. The Gate scores risk from independent triggers; the Manager
// carries a required confirmation to the front end and back.
package approval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/craftd/anvil/pkg/types"
)

// DefaultAutoApproveMax is the risk score at or below which actions run
// without confirmation.
const DefaultAutoApproveMax = 0.3

// DefaultDeleteFileMax is the number of deletions a plan may contain before
// it needs confirmation.
const DefaultDeleteFileMax = 3

// DefaultDangerousPatterns flag shell commands that always need a human.
// These are matched case-insensitively and are deliberately broader than the
// shell adapter's hard rejections: the gate asks, the adapter refuses.
var DefaultDangerousPatterns = []string{
	`\brm\s+-rf`,
	`\bsudo\b`,
	`curl.*\|.*bash`,
	`wget.*\|.*bash`,
}

// Decision is the gate's verdict on an action or plan.
type Decision struct {
	Approved             bool    `json:"approved"`
	RiskScore            float64 `json:"risk_score"`
	Reason               string  `json:"reason"`
	RequiresConfirmation bool    `json:"requires_confirmation"`
}

// Gate assesses risk and decides whether user confirmation is required.
type Gate struct {
	autoApproveMax float64
	deleteFileMax  int
	patterns       []*regexp.Regexp
}

// NewGate creates a gate with the given thresholds. Empty patterns select
// the defaults.
func NewGate(autoApproveMax float64, deleteFileMax int, patterns []string) (*Gate, error) {
	if len(patterns) == 0 {
		patterns = DefaultDangerousPatterns
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid dangerous pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}

	return &Gate{
		autoApproveMax: autoApproveMax,
		deleteFileMax:  deleteFileMax,
		patterns:       compiled,
	}, nil
}

// AssessPlan scores a whole plan. The triggers are independent: any one of a
// too-risky step, too many deletions, or a dangerous shell command demands
// confirmation, and all matching reasons are reported together.
func (g *Gate) AssessPlan(plan *types.Plan) Decision {
	if len(plan.Steps) == 0 {
		return Decision{
			Approved:             false,
			RiskScore:            0.0,
			Reason:               "Plan has no steps",
			RequiresConfirmation: false,
		}
	}

	maxRisk := 0.0
	deleteCount := 0
	dangerousShell := false
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.RiskScore > maxRisk {
			maxRisk = step.RiskScore
		}
		if step.Type == types.ActionFSDelete {
			deleteCount++
		}
		if step.Type == types.ActionShellRun && g.isDangerous(commandArg(step)) {
			dangerousShell = true
		}
	}

	var reasons []string
	if maxRisk > g.autoApproveMax {
		reasons = append(reasons, fmt.Sprintf("High risk action (score: %.2f)", maxRisk))
	}
	if deleteCount > g.deleteFileMax {
		reasons = append(reasons, fmt.Sprintf("Too many file deletions (%d)", deleteCount))
	}
	if dangerousShell {
		reasons = append(reasons, "Dangerous shell command detected")
	}

	if len(reasons) == 0 {
		return Decision{
			Approved:             true,
			RiskScore:            maxRisk,
			Reason:               "Low risk, auto-approved",
			RequiresConfirmation: false,
		}
	}

	return Decision{
		Approved:             false,
		RiskScore:            maxRisk,
		Reason:               strings.Join(reasons, "; "),
		RequiresConfirmation: true,
	}
}

// AssessAction scores a single action.
func (g *Gate) AssessAction(action *types.Action) Decision {
	risk := action.RiskScore

	if action.Type == types.ActionFSDelete {
		return Decision{
			Approved:             risk <= g.autoApproveMax,
			RiskScore:            risk,
			Reason:               "File deletion",
			RequiresConfirmation: risk > g.autoApproveMax,
		}
	}

	if action.Type == types.ActionShellRun && g.isDangerous(commandArg(action)) {
		elevated := risk
		if elevated < 0.8 {
			elevated = 0.8
		}
		return Decision{
			Approved:             false,
			RiskScore:            elevated,
			Reason:               "Dangerous shell command",
			RequiresConfirmation: true,
		}
	}

	approved := risk <= g.autoApproveMax
	return Decision{
		Approved:             approved,
		RiskScore:            risk,
		Reason:               "Standard risk assessment",
		RequiresConfirmation: !approved,
	}
}

// AverageRisk reports the mean step risk of a plan. It is informational
// only; gating always keys off the maximum.
func AverageRisk(plan *types.Plan) float64 {
	if len(plan.Steps) == 0 {
		return 0.0
	}
	total := 0.0
	for i := range plan.Steps {
		total += plan.Steps[i].RiskScore
	}
	return total / float64(len(plan.Steps))
}

func (g *Gate) isDangerous(command string) bool {
	for _, re := range g.patterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func commandArg(action *types.Action) string {
	command, _ := action.Args["command"].(string)
	return command
}
