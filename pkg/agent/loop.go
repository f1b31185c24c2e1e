package agent

import (
	"context"
	"fmt"

	"github.com/craftd/anvil/pkg/types"
)

// maxFixSteps bounds how many actions of a fix plan may run per correction.
const maxFixSteps = 2

// StepResult is one executed step in a loop run.
type StepResult struct {
	Step       int              `json:"step"`
	ActionType types.ActionType `json:"action_type"`
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Diff       string           `json:"diff,omitempty"`
}

// LoopResult reports how a full loop run went.
type LoopResult struct {
	Success         bool                 `json:"success"`
	Iterations      int                  `json:"iterations"`
	StepsExecuted   int                  `json:"steps_executed"`
	Steps           []StepResult         `json:"steps"`
	Observations    []*types.Observation `json:"observations"`
	SelfCorrections int                  `json:"self_corrections"`
}

// RunLoop executes a task with the iterative plan, execute, observe, replan
// cycle. The first iteration runs the initial plan's leading steps; later
// iterations replan incrementally from what has executed. The loop ends
// early when a batch comes back empty or verification passes, and aborts on
// a non-retryable failure or a failed self-correction.
func (a *CodingAgent) RunLoop(ctx context.Context, userMessage string) (*LoopResult, error) {
	a.state.AddMessage(types.RoleUser, userMessage)
	a.emitEvent(types.NewPlanStartEvent(userMessage))
	agentLog.Infof("Loop starting: %s", userMessage)

	contextBuf := a.retriever.Retrieve(ctx, userMessage)

	initialPlan, err := a.client.Plan(ctx, a.state.Messages(), contextBuf)
	if err != nil {
		a.emitEvent(types.NewErrorEvent(err))
		return nil, fmt.Errorf("initial planning failed: %w", err)
	}
	a.state.SetPlan(initialPlan)
	a.emitEvent(types.NewPlanReadyEvent(initialPlan))

	result := &LoopResult{Success: true}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		result.Iterations = iteration + 1
		a.emitEvent(types.NewIterationStartEvent(result.Iterations))

		var batch []types.Action
		if iteration == 0 {
			batch = initialPlan.Steps
			if len(batch) > a.stepsPerIteration {
				batch = batch[:a.stepsPerIteration]
			}
		} else {
			nextPlan, err := a.PlanNextSteps(ctx, contextBuf, a.stepsPerIteration)
			if err != nil {
				a.emitEvent(types.NewErrorEvent(err))
				return nil, fmt.Errorf("incremental planning failed: %w", err)
			}
			batch = nextPlan.Steps
		}

		if len(batch) == 0 {
			// Planner has nothing left to do.
			break
		}

		if aborted := a.executeBatch(ctx, batch, &contextBuf, result); aborted {
			result.Success = false
			return a.finishLoop(result), nil
		}

		verification := a.VerifyChanges(ctx)
		if verification.Passed() {
			result.Success = true
			break
		}
	}

	return a.finishLoop(result), nil
}

// finishLoop emits the terminal event and logs the outcome.
func (a *CodingAgent) finishLoop(result *LoopResult) *LoopResult {
	summary := fmt.Sprintf("%d iterations, %d steps executed, %d self-corrections",
		result.Iterations, result.StepsExecuted, result.SelfCorrections)
	a.emitEvent(types.NewRunCompleteEvent(result.Success, summary))
	agentLog.Infof("Loop finished (success=%v): %s", result.Success, summary)
	return result
}

// executeBatch runs one iteration's actions. Each action is executed,
// observed, and recorded; failures trigger self-correction when retryable.
// It reports true when the run must abort.
func (a *CodingAgent) executeBatch(ctx context.Context, batch []types.Action, contextBuf *[]types.ContextSnippet, result *LoopResult) bool {
	for i := range batch {
		action := &batch[i]
		a.emitEvent(types.NewActionStartEvent(action))

		execResult := a.executor.Execute(ctx, action, a.dryRun)
		observation := Observe(action, execResult)

		result.Steps = append(result.Steps, StepResult{
			Step:       result.StepsExecuted + 1,
			ActionType: action.Type,
			Success:    observation.Success,
			Message:    observation.Message,
			Diff:       observation.Diff,
		})
		result.Observations = append(result.Observations, observation)
		result.StepsExecuted++

		a.state.AddActionResult(action.Type, execResult)
		if observation.Diff != "" {
			a.state.AddDiff(observation.Diff)
		}

		a.emitEvent(types.NewActionResultEvent(action, &execResult))
		a.emitEvent(types.NewObservationEvent(observation))

		if !observation.Success {
			if !observation.CanRetry {
				agentLog.Warnf("Non-retryable failure (%s): %s", observation.ErrorType, observation.Message)
				return true
			}
			if a.selfCorrect(ctx, observation, contextBuf, result) {
				return true
			}
			continue
		}

		if len(observation.ContextUpdate) > 0 {
			a.refreshContext(observation.AffectedFiles, contextBuf)
		}
	}

	return false
}

// selfCorrect reflects on a retryable failure and executes the fix plan.
// Only the leading fix actions run: the first success ends the correction
// and seeds the context buffer, the first failure aborts the run. An empty
// fix plan lets the batch continue. Reports true when the run must abort.
func (a *CodingAgent) selfCorrect(ctx context.Context, failure *types.Observation, contextBuf *[]types.ContextSnippet, result *LoopResult) bool {
	report := &types.VerificationResult{Status: types.VerifyFail, Summary: failure.Message}

	reflection, err := a.client.Reflect(ctx, a.state.Plan(), report, a.state.Diffs())
	if err != nil {
		agentLog.Errorf("Reflection failed: %v", err)
		a.emitEvent(types.NewErrorEvent(err))
		return true
	}

	if len(reflection.FixPlan.Steps) == 0 {
		// Nothing actionable came back; the batch carries on.
		return false
	}

	result.SelfCorrections++
	a.emitEvent(types.NewSelfCorrectionEvent(reflection.Analysis))

	fixSteps := reflection.FixPlan.Steps
	if len(fixSteps) > maxFixSteps {
		fixSteps = fixSteps[:maxFixSteps]
	}

	for i := range fixSteps {
		fixAction := &fixSteps[i]
		a.emitEvent(types.NewActionStartEvent(fixAction))

		fixResult := a.executor.Execute(ctx, fixAction, a.dryRun)
		a.emitEvent(types.NewActionResultEvent(fixAction, &fixResult))

		if !fixResult.Success {
			agentLog.Warnf("Fix action failed: %s", fixResult.Message)
			return true
		}

		fixObservation := Observe(fixAction, fixResult)
		result.Observations = append(result.Observations, fixObservation)
		a.emitEvent(types.NewObservationEvent(fixObservation))

		if len(fixObservation.ContextUpdate) > 0 {
			path := "fix"
			if len(fixObservation.AffectedFiles) > 0 {
				path = fixObservation.AffectedFiles[0]
			}
			*contextBuf = append(*contextBuf, types.ContextSnippet{
				Path:    path,
				Content: fmt.Sprintf("Fixed: %s", fixObservation.Message),
			})
		}
		break
	}

	return false
}

// refreshContext re-reads changed files and refreshes their context buffer
// entries so the next planning round sees current content. Unreadable files
// are skipped.
func (a *CodingAgent) refreshContext(paths []string, contextBuf *[]types.ContextSnippet) {
	for _, path := range paths {
		read := a.fsTool.Read(path)
		if !read.Success {
			continue
		}
		content, ok := read.Data.(string)
		if !ok || content == "" {
			continue
		}

		updated := false
		for i := range *contextBuf {
			if (*contextBuf)[i].Path == path {
				(*contextBuf)[i].Content = content
				updated = true
				break
			}
		}
		if !updated {
			*contextBuf = append(*contextBuf, types.ContextSnippet{Path: path, Content: content})
		}
	}
}
