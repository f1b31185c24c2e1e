package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/anvil/pkg/agent"
	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/session"
	"github.com/craftd/anvil/pkg/types"
)

// scriptedProvider replays canned responses in call order.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Complete(_ context.Context, _ []*types.Message) (*types.Message, error) {
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", i+1)
	}
	return types.NewMessage(types.RoleAssistant, p.responses[i]), nil
}

func (p *scriptedProvider) StreamCompletion(_ context.Context, _ []*types.Message) (<-chan *llm.StreamChunk, error) {
	chunks := make(chan *llm.StreamChunk)
	close(chunks)
	return chunks, nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "scripted", Provider: "test"}
}

func (p *scriptedProvider) GetModel() string   { return "scripted" }
func (p *scriptedProvider) GetBaseURL() string { return "" }
func (p *scriptedProvider) GetAPIKey() string  { return "" }

// newTestExecutor builds an executor over a fresh engine in a temp
// workspace, with input fed from a string and output captured.
func newTestExecutor(t *testing.T, provider llm.Provider, input string) (*Executor, *bytes.Buffer, *agent.CodingAgent) {
	t.Helper()
	dir := t.TempDir()
	events := make(chan *types.AgentEvent, 128)

	ag, err := agent.New(dir, llm.NewClient(provider), agent.WithEventChannel(events))
	require.NoError(t, err)

	var out bytes.Buffer
	executor := NewExecutor(ag, events,
		WithReader(strings.NewReader(input)),
		WithWriter(&out),
	)
	return executor, &out, ag
}

func TestRun_ExitCommand(t *testing.T) {
	executor, out, _ := newTestExecutor(t, &scriptedProvider{}, "exit\n")

	err := executor.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Workspace:")
	assert.Contains(t, out.String(), "Goodbye.")
}

func TestRun_EOFEndsCleanly(t *testing.T) {
	executor, out, _ := newTestExecutor(t, &scriptedProvider{}, "")

	err := executor.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Goodbye.")
}

func TestRun_SlashHelp(t *testing.T) {
	executor, out, _ := newTestExecutor(t, &scriptedProvider{}, "/help\nexit\n")

	require.NoError(t, executor.Run(context.Background()))

	assert.Contains(t, out.String(), "/commit")
	assert.Contains(t, out.String(), "/verify")
}

func TestRun_SlashStatus(t *testing.T) {
	executor, out, _ := newTestExecutor(t, &scriptedProvider{}, "/status\nexit\n")

	require.NoError(t, executor.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Session status")
	assert.Contains(t, output, "Actions executed")
}

func TestRun_UnknownSlashCommand(t *testing.T) {
	executor, out, _ := newTestExecutor(t, &scriptedProvider{}, "/bogus\nexit\n")

	require.NoError(t, executor.Run(context.Background()))
	assert.Contains(t, out.String(), "Unknown command: /bogus")
}

func TestRun_FunctionCallIntentDispatches(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"type": "function_call", "confidence": 0.9, "function_name": "status", "reasoning": "User asked for status"}`,
	}}
	executor, out, _ := newTestExecutor(t, provider, "how are things going\nexit\n")

	require.NoError(t, executor.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "User asked for status")
	assert.Contains(t, output, "Session status")
}

func TestRun_QuitIntentEndsLoop(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"type": "function_call", "confidence": 0.95, "function_name": "quit", "reasoning": ""}`,
	}}
	executor, out, _ := newTestExecutor(t, provider, "bye\n")

	require.NoError(t, executor.Run(context.Background()))
	assert.Contains(t, out.String(), "Goodbye.")
}

func TestRun_PlanRequiredRunsLoop(t *testing.T) {
	planJSON := `{
  "goal": "create hello.py",
  "steps": [
    {"type": "fs_write", "rationale": "write the file", "args": {"path": "hello.py", "content": "print('hello')\n"}, "risk_score": 0.1}
  ],
  "expected_outcome": "file exists"
}`
	provider := &scriptedProvider{responses: []string{
		`{"type": "plan_required", "confidence": 0.9, "reasoning": "This needs a plan"}`,
		planJSON,
	}}
	executor, out, ag := newTestExecutor(t, provider, "create hello.py\nexit\n")

	require.NoError(t, executor.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Plan ready: 1 step(s)")
	assert.Contains(t, output, "Loop finished: 1 iteration(s), 1 step(s)")

	content, err := os.ReadFile(filepath.Join(ag.Workspace(), "hello.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hello')\n", string(content))
}

func TestRun_ClassificationFailureFallsBackToLoop(t *testing.T) {
	// The classifier response is not JSON, so dispatch falls back to a
	// full loop; the loop's plan request then gets garbage too and the
	// loop reports the failure without killing the REPL.
	provider := &scriptedProvider{responses: []string{
		"not json", "still not json",
	}}
	executor, out, _ := newTestExecutor(t, provider, "do something\nexit\n")

	require.NoError(t, executor.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Could not classify intent")
	assert.Contains(t, output, "Agent loop failed")
	assert.Contains(t, output, "Goodbye.")
}

func TestRun_PendingConfirmationNegative(t *testing.T) {
	executor, out, ag := newTestExecutor(t, &scriptedProvider{}, "no\nexit\n")
	ag.Session().SetPendingConfirmation(&session.PendingConfirmation{
		Question: "Delete junk.txt?",
		Action:   map[string]string{"type": "delete_file", "path": "junk.txt"},
	})

	require.NoError(t, executor.Run(context.Background()))

	assert.Contains(t, out.String(), "Cancelled.")
	assert.Nil(t, ag.Session().PendingConfirmation())
}

func TestRun_PendingDeleteConfirmed(t *testing.T) {
	executor, out, ag := newTestExecutor(t, &scriptedProvider{}, "yes\nexit\n")

	target := filepath.Join(ag.Workspace(), "junk.txt")
	require.NoError(t, os.WriteFile(target, []byte("scratch\n"), 0o644))

	ag.Session().SetPendingConfirmation(&session.PendingConfirmation{
		Question: "Delete junk.txt?",
		Action:   map[string]string{"type": "delete_file", "path": "junk.txt"},
	})

	require.NoError(t, executor.Run(context.Background()))

	assert.Contains(t, out.String(), "✓")
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		input    string
		name     string
		args     []string
		expectOK bool
	}{
		{"/status", "status", []string{}, true},
		{"/commit fix the bug", "commit", []string{"fix", "the", "bug"}, true},
		{"plain text", "", nil, false},
		{"/", "", nil, false},
	}

	for _, tt := range tests {
		name, args, ok := parseSlashCommand(tt.input)
		assert.Equal(t, tt.expectOK, ok, tt.input)
		if !tt.expectOK {
			continue
		}
		assert.Equal(t, tt.name, name, tt.input)
		assert.Equal(t, tt.args, args, tt.input)
	}
}

func TestDescribeAction(t *testing.T) {
	action := &types.Action{
		Type: types.ActionShellRun,
		Args: map[string]interface{}{"command": "pytest -q"},
	}
	assert.Equal(t, "shell_run command=pytest -q", describeAction(action))

	bare := &types.Action{Type: types.ActionFSDelete, Args: map[string]interface{}{}}
	assert.Equal(t, "fs_delete", describeAction(bare))
}
