package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/anvil/pkg/types"
)

// fakeProvider returns a canned response and records every Complete call.
type fakeProvider struct {
	response string
	err      error
	calls    [][]*types.Message
}

func (f *fakeProvider) Complete(_ context.Context, messages []*types.Message) (*types.Message, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return nil, f.err
	}
	return types.NewMessage(types.RoleAssistant, f.response), nil
}

func (f *fakeProvider) StreamCompletion(_ context.Context, _ []*types.Message) (<-chan *StreamChunk, error) {
	chunks := make(chan *StreamChunk)
	close(chunks)
	return chunks, nil
}

func (f *fakeProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Name: "fake-model", Provider: "fake"}
}

func (f *fakeProvider) GetModel() string   { return "fake-model" }
func (f *fakeProvider) GetBaseURL() string { return "" }
func (f *fakeProvider) GetAPIKey() string  { return "" }

// samplingProvider also implements SamplingCloner and records the
// parameters it was cloned with.
type samplingProvider struct {
	fakeProvider
	cloned      bool
	temperature float64
	maxTokens   int
}

func (s *samplingProvider) CloneWithSampling(temperature float64, maxTokens int) Provider {
	s.cloned = true
	s.temperature = temperature
	s.maxTokens = maxTokens
	return s
}

func validPlanJSON() string {
	return `{
  "goal": "add a smoke test",
  "steps": [
    {
      "type": "fs_write",
      "rationale": "create the test file",
      "args": {"path": "test_smoke.py", "content": "def test_smoke(): pass"},
      "target_files": ["test_smoke.py"],
      "risk_score": 0.1
    }
  ],
  "expected_outcome": "pytest collects one new test"
}`
}

func TestPlan_MessageLayout(t *testing.T) {
	provider := &fakeProvider{response: validPlanJSON()}
	client := NewClient(provider)

	plan, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "add a smoke test please"}},
		[]types.ContextSnippet{{Path: "main.py", Content: "print(1)"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "add a smoke test", plan.Goal)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, types.ActionFSWrite, plan.Steps[0].Type)

	require.Len(t, provider.calls, 1)
	sent := provider.calls[0]
	require.Len(t, sent, 3)

	assert.Equal(t, types.RoleSystem, sent[0].Role)
	assert.Equal(t, plannerSystemPrompt, sent[0].Content)

	assert.Equal(t, types.RoleUser, sent[1].Role)
	assert.True(t, strings.HasPrefix(sent[1].Content, "<repository_context>\n"), "context message should open the wrapper tag")
	assert.True(t, strings.HasSuffix(sent[1].Content, "\n</repository_context>"), "context message should close the wrapper tag")
	assert.Contains(t, sent[1].Content, "--- main.py ---\nprint(1)")

	assert.Equal(t, types.RoleUser, sent[2].Role)
	assert.Equal(t, "add a smoke test please", sent[2].Content)
}

func TestPlan_ParsesWrappedJSON(t *testing.T) {
	provider := &fakeProvider{
		response: "<thinking>the user wants a test</thinking>\n```json\n" + validPlanJSON() + "\n```",
	}
	client := NewClient(provider)

	plan, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "add a smoke test"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "add a smoke test", plan.Goal)
}

func TestPlan_ParseErrorIncludesContent(t *testing.T) {
	provider := &fakeProvider{response: "I cannot help with that."}
	client := NewClient(provider)

	_, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "do something"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse plan from LLM:")
	assert.Contains(t, err.Error(), "\n\nContent: I cannot help with that.")
}

func TestPlan_ValidationFailureSameErrorShape(t *testing.T) {
	// Decodes fine but fails schema validation: the goal is missing.
	provider := &fakeProvider{response: `{"steps": []}`}
	client := NewClient(provider)

	_, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "do something"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse plan from LLM:")
	assert.Contains(t, err.Error(), `{"steps": []}`)
}

func TestPlan_ProviderErrorWrapped(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	client := NewClient(provider)

	_, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "do something"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPlan_EmptyStepsIsValid(t *testing.T) {
	// A planner may legitimately decide nothing needs doing.
	provider := &fakeProvider{response: `{"goal": "nothing to do", "steps": [], "expected_outcome": "no change"}`}
	client := NewClient(provider)

	plan, err := client.Plan(context.Background(),
		[]types.Message{{Role: types.RoleUser, Content: "noop"}}, nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Steps)
}

func TestReflect_PromptCarriesFailureArtifacts(t *testing.T) {
	provider := &fakeProvider{
		response: `{"analysis": "the import is missing", "fix_plan": {"goal": "add the import", "steps": []}}`,
	}
	client := NewClient(provider)

	original := &types.Plan{Goal: "rename helper", Steps: []types.Action{}}
	verification := &types.VerificationResult{
		Status:       types.VerifyFail,
		FailingTests: []string{"test_helper failed"},
		Summary:      "Found 1 issues",
	}

	reflection, err := client.Reflect(context.Background(), original, verification, []string{"diff --git a/x b/x"})
	require.NoError(t, err)
	assert.Equal(t, "the import is missing", reflection.Analysis)
	assert.Equal(t, "add the import", reflection.FixPlan.Goal)

	require.Len(t, provider.calls, 1)
	sent := provider.calls[0]
	require.Len(t, sent, 2)

	assert.Equal(t, types.RoleSystem, sent[0].Role)
	assert.Equal(t, reflectorSystemPrompt, sent[0].Content)

	prompt := sent[1].Content
	assert.Contains(t, prompt, "The following plan was executed:")
	assert.Contains(t, prompt, "rename helper")
	assert.Contains(t, prompt, "test_helper failed")
	assert.Contains(t, prompt, "diff --git a/x b/x")
	assert.Contains(t, prompt, "minimal fix plan (1-3 actions maximum)")
}

func TestClassifyIntent_UsesSamplingOverrides(t *testing.T) {
	provider := &samplingProvider{
		fakeProvider: fakeProvider{
			response: `{"type": "plan_required", "confidence": 0.95, "reasoning": "needs code changes"}`,
		},
	}
	client := NewClient(provider)

	intent, err := client.ClassifyIntent(context.Background(), "refactor the parser", "")
	require.NoError(t, err)
	assert.Equal(t, types.IntentPlanRequired, intent.Type)

	assert.True(t, provider.cloned, "classifier should request a sampling clone")
	assert.Equal(t, 0.0, provider.temperature)
	assert.Equal(t, 512, provider.maxTokens)

	require.Len(t, provider.calls, 1)
	sent := provider.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, intentSystemPrompt, sent[0].Content)
	assert.Contains(t, sent[1].Content, "refactor the parser")
	assert.Contains(t, sent[1].Content, "No prior context")
}

func TestClassifyIntent_WorksWithoutSamplingCloner(t *testing.T) {
	provider := &fakeProvider{
		response: `{"type": "function_call", "confidence": 0.9, "function_name": "verify", "reasoning": "explicit request"}`,
	}
	client := NewClient(provider)

	intent, err := client.ClassifyIntent(context.Background(), "run the checks", "Recent actions: fs_write")
	require.NoError(t, err)
	assert.Equal(t, types.IntentFunctionCall, intent.Type)
	assert.Equal(t, types.FunctionVerify, intent.FunctionName)

	require.Len(t, provider.calls, 1)
	assert.Contains(t, provider.calls[0][1].Content, "Recent actions: fs_write")
}

func TestClassifyIntent_RejectsUnknownType(t *testing.T) {
	provider := &fakeProvider{
		response: `{"type": "mystery", "confidence": 0.5, "reasoning": "?"}`,
	}
	client := NewClient(provider)

	_, err := client.ClassifyIntent(context.Background(), "hm", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse intent from LLM:")
}

func TestFormatContext_TruncatesToTokenBudget(t *testing.T) {
	client := NewClient(&fakeProvider{}, WithContextTokenBudget(40))
	if client.tok == nil {
		t.Skip("tokenizer unavailable")
	}

	snippets := []types.ContextSnippet{
		{Path: "a.py", Content: strings.Repeat("alpha ", 10)},
		{Path: "b.py", Content: strings.Repeat("beta ", 200)},
		{Path: "c.py", Content: "gamma"},
	}

	formatted := client.formatContext(snippets)
	assert.Contains(t, formatted, "--- a.py ---", "first snippet always survives")
	assert.NotContains(t, formatted, "--- b.py ---", "oversized snippet should be dropped")
}
