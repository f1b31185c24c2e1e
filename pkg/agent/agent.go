// Package agent implements the iterative orchestration engine: planning,
// gated execution, observation, and bounded self-correction over a sandboxed
// workspace. The CodingAgent owns the tool adapters and session state for
// one run; front ends drive it through the operation methods and watch the
// event channel.
package agent

import (
	"fmt"
	"time"

	"github.com/craftd/anvil/pkg/agent/approval"
	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/logging"
	"github.com/craftd/anvil/pkg/retrieval"
	"github.com/craftd/anvil/pkg/security/workspace"
	"github.com/craftd/anvil/pkg/session"
	"github.com/craftd/anvil/pkg/tools/deps"
	"github.com/craftd/anvil/pkg/tools/fs"
	"github.com/craftd/anvil/pkg/tools/shell"
	"github.com/craftd/anvil/pkg/tools/vcs"
	"github.com/craftd/anvil/pkg/types"
	"github.com/craftd/anvil/pkg/verify"
)

var agentLog *logging.Logger

func init() {
	var err error
	agentLog, err = logging.NewLogger("agent")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		agentLog.Warnf("Failed to initialize agent logger, using stderr fallback: %v", err)
	}
}

// Loop bounds applied when no option overrides them.
const (
	DefaultMaxIterations     = 10
	DefaultStepsPerIteration = 3
)

// DefaultApprovalTimeout bounds how long a confirmation request waits for
// the user before counting as denied.
const DefaultApprovalTimeout = 5 * time.Minute

// CodingAgent coordinates the plan, execute, observe, reflect loop for one
// workspace. It is single-threaded per run: operations block until done and
// progress is reported on the optional event channel.
type CodingAgent struct {
	client *llm.Client

	// Sandbox and tool adapters
	guard     *workspace.Guard
	fsTool    *fs.Tool
	shellTool *shell.Tool
	depsTool  *deps.Tool
	vcsTool   *vcs.Tool
	executor  *Executor
	retriever *retrieval.Retriever
	verifier  *verify.Verifier

	// Approval system
	gate      *approval.Gate
	approvals *approval.Manager

	state *session.State

	// Loop configuration
	maxIterations     int
	stepsPerIteration int
	dryRun            bool
	confirmations     bool

	// Adapter configuration, consumed during construction
	allowlist         []string
	maxFileSize       int64
	shellTimeout      time.Duration
	autoApproveMax    float64
	deleteFileMax     int
	dangerousPatterns []string
	retrievalMaxFiles int
	retrievalMaxBytes int
	verifyConfig      verify.Config
	approvalTimeout   time.Duration

	events chan *types.AgentEvent
}

// Option configures a CodingAgent during construction.
type Option func(*CodingAgent)

// WithMaxIterations sets the outer loop iteration budget.
func WithMaxIterations(max int) Option {
	return func(a *CodingAgent) {
		if max > 0 {
			a.maxIterations = max
		}
	}
}

// WithStepsPerIteration sets how many actions each iteration may execute.
func WithStepsPerIteration(steps int) Option {
	return func(a *CodingAgent) {
		if steps > 0 {
			a.stepsPerIteration = steps
		}
	}
}

// WithAllowlist overrides the shell executable allowlist.
func WithAllowlist(executables []string) Option {
	return func(a *CodingAgent) {
		a.allowlist = executables
	}
}

// WithRiskLimits overrides the approval gate thresholds. A nil patterns
// slice keeps the default dangerous-pattern set.
func WithRiskLimits(autoApproveMax float64, deleteFileMax int, patterns []string) Option {
	return func(a *CodingAgent) {
		a.autoApproveMax = autoApproveMax
		a.deleteFileMax = deleteFileMax
		a.dangerousPatterns = patterns
	}
}

// WithRetrievalLimits bounds context retrieval per planning round.
func WithRetrievalLimits(maxFiles, maxBytes int) Option {
	return func(a *CodingAgent) {
		a.retrievalMaxFiles = maxFiles
		a.retrievalMaxBytes = maxBytes
	}
}

// WithVerifyCommands overrides the verifier's lint and test commands.
func WithVerifyCommands(cfg verify.Config) Option {
	return func(a *CodingAgent) {
		a.verifyConfig = cfg
	}
}

// WithEventChannel sets the channel loop progress is emitted on. Without
// one the agent runs silently.
func WithEventChannel(events chan *types.AgentEvent) Option {
	return func(a *CodingAgent) {
		a.events = events
	}
}

// WithConfirmations controls whether gate decisions that require
// confirmation are put to the user. When disabled they are auto-denied,
// which is the headless behavior.
func WithConfirmations(enabled bool) Option {
	return func(a *CodingAgent) {
		a.confirmations = enabled
	}
}

// WithDryRun makes every execution a no-op description of what would run.
func WithDryRun(enabled bool) Option {
	return func(a *CodingAgent) {
		a.dryRun = enabled
	}
}

// WithShellTimeout caps shell command runtime.
func WithShellTimeout(timeout time.Duration) Option {
	return func(a *CodingAgent) {
		a.shellTimeout = timeout
	}
}

// WithMaxFileSize bounds file reads and writes in bytes.
func WithMaxFileSize(size int64) Option {
	return func(a *CodingAgent) {
		a.maxFileSize = size
	}
}

// WithApprovalTimeout sets how long confirmation requests wait.
func WithApprovalTimeout(timeout time.Duration) Option {
	return func(a *CodingAgent) {
		if timeout > 0 {
			a.approvalTimeout = timeout
		}
	}
}

// New creates a CodingAgent rooted at repoRoot. The workspace guard, tool
// adapters, approval gate, and session state are constructed here; options
// only adjust configuration.
func New(repoRoot string, client *llm.Client, opts ...Option) (*CodingAgent, error) {
	a := &CodingAgent{
		client:            client,
		maxIterations:     DefaultMaxIterations,
		stepsPerIteration: DefaultStepsPerIteration,
		confirmations:     true,
		allowlist:         shell.DefaultAllowlist,
		maxFileSize:       fs.DefaultMaxFileSize,
		shellTimeout:      shell.DefaultMaxTimeout,
		autoApproveMax:    approval.DefaultAutoApproveMax,
		deleteFileMax:     approval.DefaultDeleteFileMax,
		retrievalMaxFiles: retrieval.DefaultMaxFiles,
		retrievalMaxBytes: retrieval.DefaultMaxBytes,
		verifyConfig:      verify.DefaultConfig(),
		approvalTimeout:   DefaultApprovalTimeout,
	}

	for _, opt := range opts {
		opt(a)
	}

	guard, err := workspace.NewGuard(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace guard: %w", err)
	}
	a.guard = guard

	gate, err := approval.NewGate(a.autoApproveMax, a.deleteFileMax, a.dangerousPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval gate: %w", err)
	}
	a.gate = gate

	root := guard.WorkspaceDir()
	a.fsTool = fs.NewTool(guard, a.maxFileSize)
	a.shellTool = shell.NewTool(guard, a.allowlist, a.shellTimeout)
	a.depsTool = deps.NewTool(root)
	a.vcsTool = vcs.NewTool(root)
	a.executor = NewExecutor(a.fsTool, a.shellTool, a.depsTool, a.vcsTool)
	a.retriever = retrieval.NewRetriever(root, a.retrievalMaxFiles, a.retrievalMaxBytes)
	a.verifier = verify.NewVerifier(root, a.verifyConfig)

	state, err := session.NewState(session.NewSessionID(), root)
	if err != nil {
		return nil, fmt.Errorf("failed to create session state: %w", err)
	}
	a.state = state

	a.approvals = approval.NewManager(a.approvalTimeout, a.emitEvent)
	if !a.confirmations {
		// Headless runs resolve every confirmation as a denial.
		a.approvals.SetPolicy(func(action *types.Action, reason string) (bool, bool) {
			agentLog.Infof("Auto-denied confirmation: %s", reason)
			return false, true
		})
	}

	agentLog.Infof("Agent created for workspace %s (session %s, dry_run=%v)",
		root, state.SessionID(), a.dryRun)

	return a, nil
}

// Session returns the state for the current run.
func (a *CodingAgent) Session() *session.State {
	return a.state
}

// Approvals returns the confirmation manager front ends answer through.
func (a *CodingAgent) Approvals() *approval.Manager {
	return a.approvals
}

// Client returns the planner client, for intent classification by chat
// front ends.
func (a *CodingAgent) Client() *llm.Client {
	return a.client
}

// FS returns the filesystem adapter for direct reads by front ends.
func (a *CodingAgent) FS() *fs.Tool {
	return a.fsTool
}

// VCS returns the version control adapter.
func (a *CodingAgent) VCS() *vcs.Tool {
	return a.vcsTool
}

// Workspace returns the resolved workspace root.
func (a *CodingAgent) Workspace() string {
	return a.guard.WorkspaceDir()
}

// DryRun reports whether executions are simulated.
func (a *CodingAgent) DryRun() bool {
	return a.dryRun
}

// emitEvent delivers an event to the configured channel without ever
// blocking the run. Events are dropped when no consumer keeps up, and a
// send on a closed channel is absorbed.
func (a *CodingAgent) emitEvent(event *types.AgentEvent) {
	if a.events == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			agentLog.Warnf("Recovered from panic in emitEvent (likely closed channel): %v", r)
		}
	}()
	select {
	case a.events <- event:
	default:
		agentLog.Debugf("Event channel full, dropping %s event", event.Type)
	}
}
