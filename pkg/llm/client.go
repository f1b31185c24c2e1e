package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/craftd/anvil/pkg/llm/tokenizer"
	"github.com/craftd/anvil/pkg/logging"
	"github.com/craftd/anvil/pkg/types"
)

// Sampling overrides for intent classification: cheap and deterministic.
const (
	intentMaxTokens   = 512
	intentTemperature = 0.0
)

// Client turns provider completions into structured planning outputs.
// It owns the system prompts, repository-context formatting, and the
// JSON extraction/validation between raw model text and typed results.
type Client struct {
	provider           Provider
	logger             *logging.Logger
	tok                *tokenizer.Tokenizer
	contextTokenBudget int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger attaches a debug logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithContextTokenBudget caps the repository context by token count.
// Snippets past the budget are dropped, never truncated mid-file. Zero
// means no cap.
func WithContextTokenBudget(tokens int) ClientOption {
	return func(c *Client) {
		c.contextTokenBudget = tokens
	}
}

// NewClient creates a structured-output client on top of a provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{provider: provider}
	for _, opt := range opts {
		opt(c)
	}

	// Token counting is best-effort; without it context budgeting is skipped.
	tok, err := tokenizer.New()
	if err == nil {
		c.tok = tok
	} else if c.logger != nil {
		c.logger.Warnf("tokenizer unavailable, context budgeting disabled: %v", err)
	}

	return c
}

// Provider returns the underlying LLM provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Plan asks the model for an executable plan given the conversation and
// repository context. The context is sent as the first user message,
// wrapped in repository_context tags.
func (c *Client) Plan(ctx context.Context, messages []types.Message, snippets []types.ContextSnippet) (*types.Plan, error) {
	contextStr := c.formatContext(snippets)

	providerMessages := make([]*types.Message, 0, len(messages)+2)
	providerMessages = append(providerMessages,
		types.NewMessage(types.RoleSystem, plannerSystemPrompt),
		types.NewMessage(types.RoleUser, fmt.Sprintf("<repository_context>\n%s\n</repository_context>", contextStr)),
	)
	for i := range messages {
		providerMessages = append(providerMessages, &messages[i])
	}

	if c.logger != nil {
		c.logger.Debugf("planning: %d context snippets, %d conversation messages", len(snippets), len(messages))
	}

	response, err := c.provider.Complete(ctx, providerMessages)
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}

	var plan types.Plan
	if err := c.decode(response.Content, &plan); err != nil {
		return nil, planParseError("plan", err, response.Content)
	}
	if err := plan.Validate(); err != nil {
		return nil, planParseError("plan", err, response.Content)
	}
	return &plan, nil
}

// Reflect asks the model to analyze a failed run and produce a minimal
// fix plan.
func (c *Client) Reflect(ctx context.Context, originalPlan *types.Plan, verification *types.VerificationResult, diffs []string) (*types.ReflectionResult, error) {
	planJSON, err := json.MarshalIndent(originalPlan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan: %w", err)
	}
	verificationJSON, err := json.MarshalIndent(verification, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verification result: %w", err)
	}

	providerMessages := []*types.Message{
		types.NewMessage(types.RoleSystem, reflectorSystemPrompt),
		types.NewMessage(types.RoleUser, buildReflectionPrompt(string(planJSON), string(verificationJSON), diffs)),
	}

	response, err := c.provider.Complete(ctx, providerMessages)
	if err != nil {
		return nil, fmt.Errorf("reflection request failed: %w", err)
	}

	var reflection types.ReflectionResult
	if err := c.decode(response.Content, &reflection); err != nil {
		return nil, planParseError("reflection", err, response.Content)
	}
	if err := reflection.FixPlan.Validate(); err != nil {
		return nil, planParseError("reflection", err, response.Content)
	}
	return &reflection, nil
}

// ClassifyIntent asks the model to classify a chat message. Providers
// supporting sampling overrides run this deterministically with a small
// token budget.
func (c *Client) ClassifyIntent(ctx context.Context, userInput, sessionContext string) (*types.Intent, error) {
	provider := c.provider
	if cloner, ok := provider.(SamplingCloner); ok {
		provider = cloner.CloneWithSampling(intentTemperature, intentMaxTokens)
	}

	providerMessages := []*types.Message{
		types.NewMessage(types.RoleSystem, intentSystemPrompt),
		types.NewMessage(types.RoleUser, buildIntentPrompt(userInput, sessionContext)),
	}

	response, err := provider.Complete(ctx, providerMessages)
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}

	var intent types.Intent
	if err := c.decode(response.Content, &intent); err != nil {
		return nil, planParseError("intent", err, response.Content)
	}
	if err := intent.Validate(); err != nil {
		return nil, planParseError("intent", err, response.Content)
	}
	return &intent, nil
}

// decode extracts and unmarshals a JSON object from raw model output.
func (c *Client) decode(content string, v interface{}) error {
	return json.Unmarshal([]byte(ExtractJSON(content)), v)
}

// planParseError surfaces the model's raw content alongside the parse
// failure so the user can see what came back.
func planParseError(kind string, err error, content string) error {
	return fmt.Errorf("Failed to parse %s from LLM: %v\n\nContent: %s", kind, err, content)
}

// formatContext renders snippets as "--- path ---" sections. When a token
// budget is set, snippets past the budget are dropped whole; at least one
// snippet is always kept.
func (c *Client) formatContext(snippets []types.ContextSnippet) string {
	var parts []string
	used := 0

	for _, snippet := range snippets {
		part := fmt.Sprintf("--- %s ---\n%s", snippet.Path, snippet.Content)

		if c.tok != nil {
			tokens := c.tok.CountTokens(part)
			if c.contextTokenBudget > 0 && len(parts) > 0 && used+tokens > c.contextTokenBudget {
				if c.logger != nil {
					c.logger.Debugf("context token budget %d reached, dropping %s and %d later snippets",
						c.contextTokenBudget, snippet.Path, len(snippets)-len(parts)-1)
				}
				break
			}
			used += tokens
		}

		parts = append(parts, part)
	}

	if c.tok != nil && c.logger != nil {
		c.logger.Debugf("repository context: %d snippets, ~%d tokens", len(parts), used)
	}

	return strings.Join(parts, "\n\n")
}
