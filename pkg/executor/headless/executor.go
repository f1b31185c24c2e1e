package headless

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/tools/vcs"
	"github.com/craftd/anvil/pkg/types"
)

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"
)

// eventBuffer sizes the event channel between the engine and the consumer.
const eventBuffer = 128

// Executor runs one task to completion without user interaction. The loop
// runs with confirmations disabled, so anything the risk gate would put to
// a user is denied instead.
type Executor struct {
	config    *Config
	agent     *agent.CodingAgent
	logger    *Logger
	artifacts *ArtifactWriter
	events    chan *types.AgentEvent

	// Execution state
	startTime time.Time
	summary   *ExecutionSummary
}

// NewExecutor creates a headless executor. The agent is constructed here
// from the validated config: read-only mode maps to dry-run, and loop
// bounds and verify overrides are passed through.
func NewExecutor(provider llm.Provider, config *Config) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	events := make(chan *types.AgentEvent, eventBuffer)

	opts := []agent.Option{
		agent.WithConfirmations(false),
		agent.WithEventChannel(events),
		agent.WithMaxIterations(config.Loop.MaxIterations),
		agent.WithStepsPerIteration(config.Loop.StepsPerIteration),
		agent.WithVerifyCommands(config.verifyConfig()),
	}
	if config.Mode == ModeReadOnly {
		opts = append(opts, agent.WithDryRun(true))
	}

	ag, err := agent.New(config.WorkspaceDir, llm.NewClient(provider), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	outputDir := filepath.Join(ag.Workspace(), config.Artifacts.OutputDir)

	return &Executor{
		config:    config,
		agent:     ag,
		logger:    NewLogger(parseLogLevel(config.Logging.Verbosity)),
		artifacts: NewArtifactWriter(outputDir, config.Artifacts),
		events:    events,
		summary: &ExecutionSummary{
			Task:   config.Task,
			Mode:   config.Mode,
			Status: "running",
		},
	}, nil
}

// Agent returns the underlying engine, mostly for tests.
func (e *Executor) Agent() *agent.CodingAgent {
	return e.agent
}

// Summary returns the execution summary built so far.
func (e *Executor) Summary() *ExecutionSummary {
	return e.summary
}

// Run executes the configured task once and writes run artifacts. It
// returns an error only when the run failed; partial success (task done
// but verification failing) returns nil.
func (e *Executor) Run(ctx context.Context) error {
	e.startTime = time.Now()
	e.summary.StartTime = e.startTime
	e.summary.SessionID = e.agent.Session().SessionID()

	e.logger.Header("ANVIL HEADLESS RUN")
	e.logger.Infof("Task: %s", e.config.Task)
	e.logger.Infof("Workspace: %s", e.agent.Workspace())
	if e.config.Mode == ModeReadOnly {
		e.logger.Warningf("Read-only mode: actions are simulated, nothing is written")
	}

	consumerDone := make(chan struct{})
	go e.consumeEvents(consumerDone)

	if err := e.prepareBranch(ctx); err != nil {
		e.stopConsumer(consumerDone)
		return e.fail(err)
	}

	result, err := e.agent.RunLoop(ctx, e.config.Task)
	if err != nil {
		e.stopConsumer(consumerDone)
		return e.fail(fmt.Errorf("run failed: %w", err))
	}

	verification := e.agent.VerifyChanges(ctx)
	e.recordResult(result, verification)

	if e.shouldCommit() {
		e.commitChanges(ctx)
	}

	e.stopConsumer(consumerDone)
	return e.finalize()
}

// stopConsumer closes the event channel and waits for the consumer to
// drain it. The engine absorbs sends on the closed channel, so ordering
// against late events is not a concern.
func (e *Executor) stopConsumer(done <-chan struct{}) {
	close(e.events)
	<-done
}

// consumeEvents renders engine events as log output until the channel
// closes. Logging is best-effort; metrics come from the loop result, not
// from this stream.
func (e *Executor) consumeEvents(done chan<- struct{}) {
	defer close(done)
	for event := range e.events {
		switch event.Type {
		case types.EventTypePlanStart:
			e.logger.Section("Planning")
		case types.EventTypePlanReady:
			steps, _ := event.Metadata["steps"].(int)
			e.logger.Successf("Plan ready: %d steps", steps)
		case types.EventTypeIterationStart:
			e.logger.Step(fmt.Sprintf("Iteration %d", event.Iteration))
		case types.EventTypeActionStart:
			if event.Action != nil {
				e.logger.Action(string(event.Action.Type), event.Action.Rationale)
			}
		case types.EventTypeActionResult:
			if event.Result != nil && !event.Result.Success {
				e.logger.Verbosef("Action failed: %s", event.Result.Message)
			}
		case types.EventTypeObservation:
			if obs := event.Observation; obs != nil && obs.Success && len(obs.AffectedFiles) > 0 && obs.Diff != "" {
				added, removed := diffLineCounts(obs.Diff)
				e.logger.FileModified(obs.AffectedFiles[0], added, removed)
			}
		case types.EventTypeSelfCorrection:
			e.logger.SelfCorrection(event.Content)
		case types.EventTypeVerification:
			if event.Verification != nil {
				e.logger.Verification(event.Verification.Passed(), event.Verification.Summary)
			}
		case types.EventTypeCommit:
			e.logger.GitOperation("commit", event.Content)
		case types.EventTypeError:
			if event.Error != nil {
				e.logger.Errorf("%v", event.Error)
			}
		case types.EventTypeRunComplete:
			e.logger.Verbosef("Run complete: %s", event.Content)
		default:
			e.logger.Debugf("Event: %s", event.Type)
		}
	}
}

// prepareBranch creates and checks out the run branch when auto-commit is
// on. A dirty workspace is a warning, not an error: pending changes end up
// in the run's commit, which is what a CI caller usually wants.
func (e *Executor) prepareBranch(ctx context.Context) error {
	if e.config.Mode != ModeWrite || !e.config.Git.AutoCommit {
		return nil
	}

	vcsTool := e.agent.VCS()
	if err := vcsTool.EnsureRepo(ctx); err != nil {
		return fmt.Errorf("failed to prepare repository: %w", err)
	}

	if err := vcsTool.CheckClean(ctx); err != nil {
		e.logger.Warningf("Workspace has uncommitted changes; they will be included in the auto-commit")
	}

	if e.config.Git.AuthorName != "" {
		if err := vcsTool.SetAuthor(ctx, e.config.Git.AuthorName, e.config.Git.AuthorEmail); err != nil {
			return fmt.Errorf("failed to configure commit author: %w", err)
		}
	}

	branch := e.config.Git.Branch
	if branch == "" {
		branch = vcs.GenerateBranchName("anvil/" + taskSlug(e.config.Task))
	}

	result := vcsTool.CheckoutBranch(ctx, branch, true)
	if !result.Success {
		// A configured branch may exist already; try a plain checkout.
		result = vcsTool.CheckoutBranch(ctx, branch, false)
	}
	if !result.Success {
		return fmt.Errorf("failed to check out branch '%s': %s", branch, result.Message)
	}

	e.logger.GitOperation(fmt.Sprintf("checked out %s", branch), "")
	e.summary.GitInfo = &GitInfo{Branch: branch}
	return nil
}

// recordResult folds the loop result and final verification into the
// summary: file stats, metrics, and the run status.
func (e *Executor) recordResult(result *agent.LoopResult, verification *types.VerificationResult) {
	tracker := NewChangeTracker()
	// Dry-run actions report the files they would have touched; only count
	// modifications when the agent actually wrote.
	if !e.agent.DryRun() {
		for _, obs := range result.Observations {
			tracker.Record(obs)
		}
	}

	e.summary.FilesModified = tracker.Files()
	e.summary.Steps = result.Steps
	e.summary.Verification = verification

	added, removed := tracker.Totals()
	e.summary.Metrics = ExecutionMetrics{
		FilesModified:     len(e.summary.FilesModified),
		TotalLinesAdded:   added,
		TotalLinesRemoved: removed,
		Iterations:        result.Iterations,
		StepsExecuted:     result.StepsExecuted,
		SelfCorrections:   result.SelfCorrections,
	}

	switch {
	case !result.Success:
		e.summary.Status = statusFailed
		e.summary.Error = lastFailureMessage(result)
	case !verification.Passed():
		e.summary.Status = statusPartialSuccess
		e.summary.Error = verification.Summary
	default:
		e.summary.Status = statusSuccess
	}
}

// shouldCommit reports whether the run outcome allows an auto-commit.
func (e *Executor) shouldCommit() bool {
	if e.config.Mode != ModeWrite || !e.config.Git.AutoCommit {
		return false
	}
	switch e.summary.Status {
	case statusSuccess:
		return true
	case statusPartialSuccess:
		return e.config.Git.CommitOnVerifyFail
	}
	return false
}

// commitChanges commits through the engine so session artifacts are saved
// alongside the commit. Commit problems degrade to warnings; the task
// itself already succeeded.
func (e *Executor) commitChanges(ctx context.Context) {
	changed, err := e.agent.VCS().ChangedFiles(ctx)
	if err != nil {
		e.logger.Warningf("Could not check for changes: %v", err)
		return
	}
	if len(changed) == 0 {
		e.logger.Infof("No changes to commit")
		return
	}

	message := e.config.Git.CommitMessage
	if message == "" {
		message = fmt.Sprintf("chore: %s\n\nAutomated change from an anvil headless run", e.config.Task)
	}

	report := e.agent.CommitChanges(ctx, message)
	if !report.Success {
		e.logger.Warningf("Commit failed: %s", report.Message)
		return
	}

	if e.summary.GitInfo == nil {
		e.summary.GitInfo = &GitInfo{}
	}
	e.summary.GitInfo.CommitHash = report.SHA
	e.summary.GitInfo.CommitMessage = message
}

// finalize stamps timing, writes artifacts, prints the summary, and maps
// the status to the process outcome.
func (e *Executor) finalize() error {
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.startTime)

	e.writeArtifacts()
	e.logger.Summary(e.summary.Status, e.summary)

	if e.summary.Status == statusFailed {
		return fmt.Errorf("run failed: %s", e.summary.Error)
	}
	return nil
}

// fail marks the execution as failed, still writes artifacts, and returns
// the error unchanged.
func (e *Executor) fail(err error) error {
	e.summary.Status = statusFailed
	e.summary.Error = err.Error()
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.startTime)

	e.writeArtifacts()
	e.logger.Summary(e.summary.Status, e.summary)
	return err
}

func (e *Executor) writeArtifacts() {
	if !e.config.Artifacts.Enabled {
		return
	}
	if err := e.artifacts.WriteAll(e.summary); err != nil {
		e.logger.Warningf("Failed to write artifacts: %v", err)
		return
	}
	e.logger.Verbosef("Artifacts written to %s", e.artifacts.OutputDir())
}

// lastFailureMessage finds the message of the last failed step.
func lastFailureMessage(result *agent.LoopResult) string {
	for i := len(result.Steps) - 1; i >= 0; i-- {
		if !result.Steps[i].Success {
			return result.Steps[i].Message
		}
	}
	return "task did not complete"
}

// taskSlug reduces a task description to a short branch-safe fragment.
func taskSlug(task string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(task) {
		if b.Len() >= 40 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "task"
	}
	return slug
}
