package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftd/anvil/pkg/agent/approval"
	"github.com/craftd/anvil/pkg/types"
)

// ExecuteReport summarizes one ExecutePlan call.
type ExecuteReport struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Steps   []types.ExecutionResult `json:"steps"`
	Diffs   []string                `json:"diffs,omitempty"`
}

// FixReport summarizes a reflect-and-fix cycle.
type FixReport struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// CommitReport summarizes a commit attempt.
type CommitReport struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SHA     string `json:"sha,omitempty"`
}

// Plan generates a full plan for a user message: the message joins the
// conversation, context is retrieved once, and the planner's result becomes
// the session's current plan.
func (a *CodingAgent) Plan(ctx context.Context, userMessage string) (*types.Plan, error) {
	a.state.AddMessage(types.RoleUser, userMessage)
	a.emitEvent(types.NewPlanStartEvent(userMessage))

	snippets := a.retriever.Retrieve(ctx, userMessage)

	plan, err := a.client.Plan(ctx, a.state.Messages(), snippets)
	if err != nil {
		return nil, err
	}

	a.state.SetPlan(plan)
	a.emitEvent(types.NewPlanReadyEvent(plan))
	agentLog.Infof("Planned %d steps for goal: %s", len(plan.Steps), plan.Goal)

	return plan, nil
}

// PlanNextSteps asks the planner for at most maxSteps follow-up actions
// given what has already executed. The request is framed as a system message
// summarizing the last five actions, and the returned plan is truncated to
// the step budget.
func (a *CodingAgent) PlanNextSteps(ctx context.Context, contextBuf []types.ContextSnippet, maxSteps int) (*types.Plan, error) {
	goal := "Continue working"
	if plan := a.state.Plan(); plan != nil {
		goal = plan.Goal
	}

	actions := a.state.Actions()
	if len(actions) > 5 {
		actions = actions[len(actions)-5:]
	}
	completed := make([]string, 0, len(actions))
	for _, record := range actions {
		message := record.Result.Message
		if message == "" {
			message = "done"
		}
		completed = append(completed, fmt.Sprintf("- %s: %s", record.Type, message))
	}
	summary := "(none yet)"
	if len(completed) > 0 {
		summary = strings.Join(completed, "\n")
	}

	prompt := fmt.Sprintf(`
Current task: %s

Actions completed so far:
%s

Based on what's been done, plan the next %d steps ONLY.
Consider:
- What has already succeeded
- What the current state of the codebase is
- What's the most important next action

Return a plan with AT MOST %d steps.
`, goal, summary, maxSteps, maxSteps)

	a.state.AddMessage(types.RoleSystem, prompt)

	plan, err := a.client.Plan(ctx, a.state.Messages(), contextBuf)
	if err != nil {
		return nil, err
	}

	plan.Truncate(maxSteps)
	return plan, nil
}

// ExecutePlan runs every step of a plan in order, stopping at the first
// failure. The plan is assessed by the risk gate first; a decision requiring
// confirmation goes through the confirmation manager, which auto-denies when
// confirmations are disabled. Results and diffs are recorded in the session.
func (a *CodingAgent) ExecutePlan(ctx context.Context, plan *types.Plan, dryRun bool) *ExecuteReport {
	decision := a.gate.AssessPlan(plan)
	agentLog.Infof("Plan risk: max %.2f, avg %.2f (%s)", decision.RiskScore, approval.AverageRisk(plan), decision.Reason)
	if !decision.Approved {
		if !decision.RequiresConfirmation {
			return &ExecuteReport{Message: fmt.Sprintf("Plan rejected: %s", decision.Reason)}
		}

		granted, timedOut := a.approvals.RequestConfirmation(ctx, decision.Reason, nil)
		if !granted {
			reason := decision.Reason
			if timedOut {
				reason = fmt.Sprintf("%s (confirmation timed out)", reason)
			}
			agentLog.Infof("Plan execution refused: %s", reason)
			return &ExecuteReport{Message: fmt.Sprintf("Plan rejected: %s", reason)}
		}
	}

	report := &ExecuteReport{Success: true}
	for i := range plan.Steps {
		action := &plan.Steps[i]
		a.emitEvent(types.NewActionStartEvent(action))

		result := a.executor.Execute(ctx, action, dryRun)
		a.state.AddActionResult(action.Type, result)
		if result.Diff != "" {
			a.state.AddDiff(result.Diff)
			report.Diffs = append(report.Diffs, result.Diff)
		}
		report.Steps = append(report.Steps, result)
		a.emitEvent(types.NewActionResultEvent(action, &result))

		if !result.Success {
			report.Success = false
			report.Message = result.Message
			break
		}
	}

	return report
}

// VerifyChanges runs the verifier and records the result in the session.
func (a *CodingAgent) VerifyChanges(ctx context.Context) *types.VerificationResult {
	result := a.verifier.Verify(ctx)
	a.state.AddVerification(result)
	a.emitEvent(types.NewVerificationEvent(result))
	agentLog.Infof("Verification: %s", result.Summary)
	return result
}

// ReflectAndFix verifies the workspace and, while verification fails, asks
// the reflector for a fix plan and executes it. Each failed fix attempt ends
// the cycle; running out of retries reports exhaustion. A reflector error
// aborts immediately.
func (a *CodingAgent) ReflectAndFix(ctx context.Context, maxRetries int) (*FixReport, error) {
	plan := a.state.Plan()
	if plan == nil {
		return &FixReport{Message: "No plan to reflect on"}, nil
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		verification := a.VerifyChanges(ctx)
		if verification.Passed() {
			return &FixReport{Success: true, Message: "Verification passed", Attempts: attempt}, nil
		}

		reflection, err := a.client.Reflect(ctx, plan, verification, a.state.Diffs())
		if err != nil {
			return nil, fmt.Errorf("reflection failed: %w", err)
		}
		a.emitEvent(types.NewSelfCorrectionEvent(reflection.Analysis))

		fixReport := a.ExecutePlan(ctx, &reflection.FixPlan, false)
		if !fixReport.Success {
			return &FixReport{
				Message:  fmt.Sprintf("Fix attempt %d failed", attempt),
				Attempts: attempt,
			}, nil
		}
	}

	return &FixReport{
		Message:  fmt.Sprintf("Max retries (%d) exceeded", maxRetries),
		Attempts: maxRetries,
	}, nil
}

// CommitChanges commits the working tree. An empty message defaults to the
// current goal; session artifacts are saved once the commit succeeds.
func (a *CodingAgent) CommitChanges(ctx context.Context, message string) *CommitReport {
	if message == "" {
		if plan := a.state.Plan(); plan != nil {
			message = fmt.Sprintf("%s\n\nGenerated by anvil", plan.Goal)
		} else {
			message = "Agent changes"
		}
	}

	result := a.vcsTool.Commit(ctx, message)
	if result.Success {
		if err := a.state.SaveArtifacts(); err != nil {
			agentLog.Warnf("Failed to save session artifacts: %v", err)
		}
		a.emitEvent(types.NewCommitEvent(result.Data, message))
	}

	return &CommitReport{Success: result.Success, Message: result.Message, SHA: result.Data}
}

// Status reports the session, plan, and execution counters.
func (a *CodingAgent) Status() map[string]interface{} {
	status := map[string]interface{}{
		"session":          a.state.Summary(),
		"has_plan":         false,
		"plan_goal":        "",
		"actions_executed": len(a.state.Actions()),
		"diffs_count":      len(a.state.Diffs()),
	}
	if plan := a.state.Plan(); plan != nil {
		status["has_plan"] = true
		status["plan_goal"] = plan.Goal
	}
	return status
}
