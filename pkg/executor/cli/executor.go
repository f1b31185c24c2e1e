// Package cli provides a plain line-based executor for the Anvil engine.
// It serves terminals where the TUI is unwanted or unavailable: input is
// read line by line, engine events render as plain log output, and the
// same intent classification and confirmation flow as the TUI applies.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/craftd/anvil/pkg/agent"
//	    "github.com/craftd/anvil/pkg/executor/cli"
//	    "github.com/craftd/anvil/pkg/llm"
//	    "github.com/craftd/anvil/pkg/types"
//	)
//
//	func main() {
//	    events := make(chan *types.AgentEvent, 128)
//	    ag, err := agent.New(".", llm.NewClient(provider),
//	        agent.WithEventChannel(events),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    executor := cli.NewExecutor(ag, events)
//	    if err := executor.Run(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/agent/approval"
	"github.com/craftd/anvil/pkg/session"
	"github.com/craftd/anvil/pkg/types"
	"github.com/craftd/anvil/pkg/ui"
)

var (
	affirmatives = []string{"yes", "y", "confirm", "ok", "sure"}
	negatives    = []string{"no", "n", "cancel", "abort"}
)

// Executor is a line-based executor for the engine. It owns the prompt
// loop; the engine runs tasks on a background goroutine while events are
// rendered as they arrive.
type Executor struct {
	agent  *agent.CodingAgent
	events chan *types.AgentEvent
	reader *bufio.Reader
	writer io.Writer

	// lines carries trimmed input lines from the reader goroutine;
	// readErr delivers the terminal read error (EOF included) once.
	lines   chan string
	readErr chan error
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// NewExecutor creates a new plain executor for the given engine. The
// events channel must be the one the engine emits on.
func NewExecutor(codingAgent *agent.CodingAgent, events chan *types.AgentEvent, opts ...ExecutorOption) *Executor {
	e := &Executor{
		agent:   codingAgent,
		events:  events,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
		lines:   make(chan string),
		readErr: make(chan error, 1),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run starts the prompt loop. It returns when the user exits, input ends,
// or the context is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.printWelcome()

	go e.readLines()

	for {
		fmt.Fprint(e.writer, "\n> ")

		select {
		case <-ctx.Done():
			fmt.Fprintln(e.writer, "\nGoodbye.")
			return ctx.Err()

		case err := <-e.readErr:
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(e.writer, "\nGoodbye.")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)

		case input := <-e.lines:
			quit := e.handleInput(ctx, input)
			if quit {
				return nil
			}
		}
	}
}

// readLines feeds trimmed input lines to the prompt loop until the reader
// fails. The final partial line before EOF still counts.
func (e *Executor) readLines() {
	for {
		line, err := e.reader.ReadString('\n')
		if err != nil {
			if line != "" {
				e.lines <- strings.TrimSpace(line)
			}
			e.readErr <- err
			return
		}
		e.lines <- strings.TrimSpace(line)
	}
}

func (e *Executor) printWelcome() {
	fmt.Fprint(e.writer, ui.GenerateASCIIArt("ANVIL"))
	fmt.Fprintln(e.writer)
	fmt.Fprintf(e.writer, "\nWorkspace: %s\n", e.agent.Workspace())
	if e.agent.DryRun() {
		fmt.Fprintln(e.writer, "Dry-run: actions are simulated")
	}
	fmt.Fprintln(e.writer, "Describe a task, or type /help for commands. Type 'exit' to quit.")
}

// handleInput interprets one submitted line. The order matches the TUI:
// an unresolved pending confirmation is answered first, then slash
// commands, and only then does the input go to intent classification.
// It reports whether the executor should quit.
func (e *Executor) handleInput(ctx context.Context, input string) bool {
	if input == "" {
		return false
	}

	if input == "exit" || input == "quit" {
		fmt.Fprintln(e.writer, "Goodbye.")
		return true
	}

	if pending := e.agent.Session().PendingConfirmation(); pending != nil {
		if e.resolvePendingConfirmation(ctx, input, pending) {
			return false
		}
		// The new input replaces the stale confirmation and is processed
		// as a fresh request below.
	}

	if name, args, ok := parseSlashCommand(input); ok {
		return e.runSlashCommand(ctx, name, args)
	}

	return e.dispatch(ctx, input)
}

// resolvePendingConfirmation handles input while a pending confirmation
// is outstanding. An affirmative answer executes the stored action, a
// negative answer cancels it, and anything else cancels it and reports
// false so the input is processed as a new request.
func (e *Executor) resolvePendingConfirmation(ctx context.Context, input string, pending *session.PendingConfirmation) bool {
	switch {
	case isAffirmative(input):
		e.agent.Session().ClearPendingConfirmation()
		e.executePendingAction(ctx, pending)
		return true

	case isNegative(input):
		e.agent.Session().ClearPendingConfirmation()
		fmt.Fprintln(e.writer, "Cancelled.")
		return true

	default:
		e.agent.Session().ClearPendingConfirmation()
		fmt.Fprintln(e.writer, "Previous confirmation cancelled. Processing new request...")
		return false
	}
}

// executePendingAction performs the action a confirmed pending
// confirmation carries, keyed by its type.
func (e *Executor) executePendingAction(ctx context.Context, pending *session.PendingConfirmation) {
	switch pending.Action["type"] {
	case "delete_file":
		result := e.agent.FS().Delete(pending.Action["path"])
		if result.Success {
			fmt.Fprintf(e.writer, "✓ %s\n", result.Message)
		} else {
			fmt.Fprintf(e.writer, "✗ %s\n", result.Message)
		}
	case "commit":
		e.commit(ctx, "")
	case "fix":
		e.fix(ctx)
	default:
		fmt.Fprintln(e.writer, "Nothing to do.")
	}
}

// dispatch classifies the input and routes the intent. Classification
// failures fall through to a full agent loop on the original input.
func (e *Executor) dispatch(ctx context.Context, input string) bool {
	intent, err := e.agent.Client().ClassifyIntent(ctx, input, e.sessionContext())
	if err != nil {
		fmt.Fprintln(e.writer, "Could not classify intent, starting agent loop...")
		e.runTask(ctx, input)
		return false
	}

	if intent.Reasoning != "" {
		fmt.Fprintln(e.writer, intent.Reasoning)
	}

	switch intent.Type {
	case types.IntentFunctionCall:
		return e.runFunction(ctx, intent.FunctionName, intent)

	case types.IntentCompoundRequest:
		fmt.Fprintf(e.writer, "Executing %d actions...\n", len(intent.FunctionSequence))
		for _, name := range intent.FunctionSequence {
			if quit := e.runFunction(ctx, name, intent); quit {
				return true
			}
		}
		return false

	case types.IntentClarificationNeeded:
		fmt.Fprintf(e.writer, "? %s (yes/no)\n", intent.ClarificationQuestion)
		action := map[string]string{"action": input}
		for key, value := range intent.PendingAction {
			action[key] = value
		}
		e.agent.Session().SetPendingConfirmation(&session.PendingConfirmation{
			Question: intent.ClarificationQuestion,
			Action:   action,
		})
		return false

	default:
		e.runTask(ctx, input)
		return false
	}
}

// sessionContext summarizes recent activity for the classifier: the types
// of the last three executed actions.
func (e *Executor) sessionContext() string {
	actions := e.agent.Session().Actions()
	if len(actions) == 0 {
		return ""
	}
	if len(actions) > 3 {
		actions = actions[len(actions)-3:]
	}
	names := make([]string, 0, len(actions))
	for _, record := range actions {
		names = append(names, string(record.Type))
	}
	return "Recent actions: " + strings.Join(names, ", ")
}

// runFunction dispatches one classified function call. It reports whether
// the executor should quit.
func (e *Executor) runFunction(ctx context.Context, name types.FunctionType, intent *types.Intent) bool {
	switch name {
	case types.FunctionCommit:
		e.commit(ctx, "")

	case types.FunctionVerify:
		e.verify(ctx, false)

	case types.FunctionStatus:
		e.printStatus()

	case types.FunctionRepoSummary:
		e.printRepoSummary()

	case types.FunctionReadFile:
		if intent.FilePath == "" {
			fmt.Fprintln(e.writer, "No file path provided. Try: show me <filename>")
			return false
		}
		e.printFile(intent.FilePath)

	case types.FunctionQuit:
		fmt.Fprintln(e.writer, "Goodbye.")
		return true

	default:
		fmt.Fprintf(e.writer, "Unknown function: %s\n", name)
	}
	return false
}

// runTask runs the full agent loop for a task. The loop runs on a
// background goroutine; this goroutine renders events and answers
// risk-gate confirmations until the loop finishes.
func (e *Executor) runTask(ctx context.Context, task string) {
	type loopOutcome struct {
		result *agent.LoopResult
		err    error
	}
	done := make(chan loopOutcome, 1)
	go func() {
		result, err := e.agent.RunLoop(ctx, task)
		done <- loopOutcome{result: result, err: err}
	}()

	for {
		select {
		case event := <-e.events:
			e.renderEvent(event)
			if event.Type == types.EventTypeConfirmationRequest {
				e.awaitApproval(ctx, event.ConfirmationID)
			}

		case outcome := <-done:
			e.drainEvents()
			if outcome.err != nil {
				fmt.Fprintf(e.writer, "Agent loop failed: %v\n", outcome.err)
				return
			}
			e.renderLoopResult(outcome.result)
			if outcome.result.StepsExecuted > 0 {
				e.verify(ctx, true)
			}
			return
		}
	}
}

// awaitApproval blocks on the next input line while the engine is waiting
// on a risk-gate confirmation. Anything but an explicit affirmative counts
// as a denial. A confirmation result arriving first means the request was
// resolved without us (policy or timeout).
func (e *Executor) awaitApproval(ctx context.Context, confirmationID string) {
	fmt.Fprint(e.writer, "Approve? (yes/no) ")

	for {
		select {
		case <-ctx.Done():
			e.agent.Approvals().HandleResponse(&approval.Response{
				ConfirmationID: confirmationID,
				Granted:        false,
			})
			return

		case event := <-e.events:
			if event.Type == types.EventTypeConfirmationResult && event.ConfirmationID == confirmationID {
				fmt.Fprintln(e.writer, "\nConfirmation expired; the action was denied.")
				return
			}
			e.renderEvent(event)

		case input := <-e.lines:
			granted := isAffirmative(input)
			e.agent.Approvals().HandleResponse(&approval.Response{
				ConfirmationID: confirmationID,
				Granted:        granted,
			})
			if granted {
				fmt.Fprintln(e.writer, "Approved.")
			} else {
				fmt.Fprintln(e.writer, "Denied.")
			}
			return
		}
	}
}

// drainEvents renders whatever is still buffered without blocking.
func (e *Executor) drainEvents() {
	for {
		select {
		case event := <-e.events:
			e.renderEvent(event)
		default:
			return
		}
	}
}

// renderEvent prints one engine event as plain output. Confirmation
// results are reported where the response is handled, and the run
// completion summary comes from the loop result, so both stay silent
// here.
func (e *Executor) renderEvent(event *types.AgentEvent) {
	switch event.Type {
	case types.EventTypePlanStart:
		fmt.Fprintln(e.writer, "Planning...")

	case types.EventTypePlanReady:
		steps, _ := event.Metadata["steps"].(int)
		fmt.Fprintf(e.writer, "Plan ready: %d step(s)\n", steps)

	case types.EventTypeIterationStart:
		fmt.Fprintf(e.writer, "-- Iteration %d --\n", event.Iteration)

	case types.EventTypeActionStart:
		if event.Action != nil {
			fmt.Fprintf(e.writer, "» %s: %s\n", event.Action.Type, firstLine(event.Action.Rationale))
		}

	case types.EventTypeActionResult:
		if event.Result != nil && !event.Result.Success {
			fmt.Fprintf(e.writer, "  failed: %s\n", firstLine(event.Result.Message))
		}

	case types.EventTypeObservation:
		if obs := event.Observation; obs != nil && obs.Success && len(obs.AffectedFiles) > 0 {
			fmt.Fprintf(e.writer, "  modified %s\n", obs.AffectedFiles[0])
		}

	case types.EventTypeSelfCorrection:
		fmt.Fprintf(e.writer, "Self-correction: %s\n", firstLine(event.Content))

	case types.EventTypeConfirmationRequest:
		fmt.Fprintf(e.writer, "\n! %s\n", event.Content)
		if event.Action != nil {
			fmt.Fprintf(e.writer, "  %s\n", describeAction(event.Action))
		}

	case types.EventTypeVerification:
		if event.Verification != nil {
			fmt.Fprintf(e.writer, "Verification: %s\n", event.Verification.Summary)
		}

	case types.EventTypeCommit:
		fmt.Fprintf(e.writer, "Committed: %s\n", firstLine(event.Content))

	case types.EventTypeMessage:
		fmt.Fprintln(e.writer, event.Content)

	case types.EventTypeError:
		if event.Error != nil {
			fmt.Fprintf(e.writer, "Error: %v\n", event.Error)
		}
	}
}

// renderLoopResult prints the loop summary the way the TUI does.
func (e *Executor) renderLoopResult(result *agent.LoopResult) {
	summary := fmt.Sprintf("Loop finished: %d iteration(s), %d step(s), %d self-correction(s)",
		result.Iterations, result.StepsExecuted, result.SelfCorrections)
	if result.Success {
		fmt.Fprintf(e.writer, "✓ %s\n", summary)
	} else {
		fmt.Fprintf(e.writer, "✗ %s\n", summary)
	}
	if result.StepsExecuted == 0 {
		fmt.Fprintln(e.writer, "No steps were executed.")
	}
}

// verify runs verification and prints the result. After a loop run it
// offers a commit on pass and an automatic fix on failure, through the
// session's pending-confirmation mechanism.
func (e *Executor) verify(ctx context.Context, postRun bool) {
	fmt.Fprintln(e.writer, "Running verification...")
	result := e.agent.VerifyChanges(ctx)
	e.printVerification(result)

	if !postRun {
		return
	}

	if result.Passed() {
		e.offerConfirmation("Commit changes?", "commit")
	} else {
		e.offerConfirmation("Attempt to fix issues automatically?", "fix")
	}
}

// offerConfirmation stores a pending confirmation and prints its question.
// The next input line answers it.
func (e *Executor) offerConfirmation(question, actionType string) {
	e.agent.Session().SetPendingConfirmation(&session.PendingConfirmation{
		Question: question,
		Action:   map[string]string{"type": actionType},
	})
	fmt.Fprintf(e.writer, "? %s (yes/no)\n", question)
}

func (e *Executor) commit(ctx context.Context, message string) {
	fmt.Fprintln(e.writer, "Committing changes...")
	report := e.agent.CommitChanges(ctx, message)
	if report.Success {
		fmt.Fprintf(e.writer, "✓ %s", report.Message)
		if report.SHA != "" {
			fmt.Fprintf(e.writer, " (%s)", report.SHA)
		}
		fmt.Fprintln(e.writer)
	} else {
		fmt.Fprintf(e.writer, "✗ %s\n", report.Message)
	}
}

func (e *Executor) fix(ctx context.Context) {
	fmt.Fprintln(e.writer, "Reflecting on failures...")
	report, err := e.agent.ReflectAndFix(ctx, 3)
	if err != nil {
		fmt.Fprintf(e.writer, "Fix failed: %v\n", err)
		return
	}

	if report.Success {
		fmt.Fprintf(e.writer, "✓ %s (%d attempt(s))\n", report.Message, report.Attempts)
		e.offerConfirmation("Commit changes?", "commit")
	} else {
		fmt.Fprintf(e.writer, "✗ %s (%d attempt(s))\n", report.Message, report.Attempts)
	}
}

// printStatus formats the engine's status map as an aligned block.
func (e *Executor) printStatus() {
	status := e.agent.Status()
	fmt.Fprintln(e.writer, "Session status")

	if sessionInfo, ok := status["session"].(map[string]interface{}); ok {
		if id, ok := sessionInfo["session_id"].(string); ok {
			fmt.Fprintf(e.writer, "  %-18s %s\n", "Session", id)
		}
	}
	if hasPlan, ok := status["has_plan"].(bool); ok {
		fmt.Fprintf(e.writer, "  %-18s %v\n", "Has plan", hasPlan)
	}
	if goal, ok := status["plan_goal"].(string); ok && goal != "" {
		fmt.Fprintf(e.writer, "  %-18s %s\n", "Goal", goal)
	}
	fmt.Fprintf(e.writer, "  %-18s %v\n", "Actions executed", status["actions_executed"])
	fmt.Fprintf(e.writer, "  %-18s %v\n", "Diffs recorded", status["diffs_count"])
}

// printVerification formats a verification result with its failure lists.
func (e *Executor) printVerification(result *types.VerificationResult) {
	if result.Passed() {
		fmt.Fprintln(e.writer, "✓ Verification passed")
	} else {
		fmt.Fprintln(e.writer, "✗ Verification failed")
	}
	fmt.Fprintln(e.writer, result.Summary)

	printIssues := func(label string, issues []string) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(e.writer, "%s:\n", label)
		for _, issue := range issues {
			fmt.Fprintf(e.writer, "  %s\n", firstLine(issue))
		}
	}
	printIssues("Lint errors", result.LintErrors)
	printIssues("Type errors", result.TypeErrors)
	printIssues("Failing tests", result.FailingTests)
}

// printFile prints a workspace file through the sandboxed adapter.
func (e *Executor) printFile(path string) {
	result := e.agent.FS().Read(path)
	if !result.Success {
		fmt.Fprintln(e.writer, result.Message)
		return
	}

	content, _ := result.Data.(string)
	fmt.Fprintf(e.writer, "--- %s ---\n", path)
	fmt.Fprint(e.writer, content)
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(e.writer)
	}
}

// printRepoSummary reports file and line counts for the workspace,
// skipping hidden and dependency directories.
func (e *Executor) printRepoSummary() {
	root := e.agent.Workspace()
	totalFiles := 0
	totalLines := 0

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		totalFiles++
		if content, readErr := os.ReadFile(path); readErr == nil {
			totalLines += strings.Count(string(content), "\n")
		}
		return nil
	})

	fmt.Fprintf(e.writer, "Repository: %s\n", root)
	fmt.Fprintf(e.writer, "  %-18s %d\n", "Files", totalFiles)
	fmt.Fprintf(e.writer, "  %-18s %d\n", "Lines", totalLines)
}

// parseSlashCommand splits "/name arg..." input. Non-slash input reports
// ok=false.
func parseSlashCommand(input string) (string, []string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

// runSlashCommand executes one slash command. It reports whether the
// executor should quit.
func (e *Executor) runSlashCommand(ctx context.Context, name string, args []string) bool {
	switch name {
	case "status":
		e.printStatus()

	case "verify":
		e.verify(ctx, false)

	case "commit":
		e.commit(ctx, strings.Join(args, " "))

	case "fix":
		e.fix(ctx)

	case "help":
		e.printHelp()

	case "quit", "exit":
		fmt.Fprintln(e.writer, "Goodbye.")
		return true

	default:
		fmt.Fprintf(e.writer, "Unknown command: /%s (try /help)\n", name)
	}
	return false
}

func (e *Executor) printHelp() {
	fmt.Fprintln(e.writer, "Commands:")
	fmt.Fprintln(e.writer, "  /status          Show session status")
	fmt.Fprintln(e.writer, "  /verify          Run lint, type, and test checks")
	fmt.Fprintln(e.writer, "  /commit [msg]    Commit the working tree")
	fmt.Fprintln(e.writer, "  /fix             Reflect on failures and attempt fixes")
	fmt.Fprintln(e.writer, "  /help            Show this help")
	fmt.Fprintln(e.writer, "  /quit            Exit")
	fmt.Fprintln(e.writer, "Anything else is read as a task or question for the agent.")
}

// describeAction renders an action compactly for confirmation prompts.
func describeAction(action *types.Action) string {
	parts := []string{string(action.Type)}
	for _, key := range []string{"path", "command", "branch"} {
		if value, ok := action.Args[key].(string); ok && value != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", key, value))
			break
		}
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func isAffirmative(input string) bool {
	return containsFold(affirmatives, input)
}

func isNegative(input string) bool {
	return containsFold(negatives, input)
}

func containsFold(words []string, input string) bool {
	for _, word := range words {
		if strings.EqualFold(word, input) {
			return true
		}
	}
	return false
}
