// Package llm provides abstractions for LLM provider integration and the
// structured-output client the planning loop talks to.
//
// Example usage:
//
//	provider, err := anthropic.NewProvider(
//	    os.Getenv("ANTHROPIC_API_KEY"),
//	    anthropic.WithModel("claude-3-5-sonnet-20241022"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := llm.NewClient(provider)
//	plan, err := client.Plan(ctx, messages, snippets)
package llm

import (
	"context"

	"github.com/craftd/anvil/pkg/types"
)

// ModelCloner is an optional interface that LLM providers can implement to
// support lightweight per-call model overrides without constructing a full
// second provider. The returned provider shares credentials and transport with
// the original but directs calls to the given model.
type ModelCloner interface {
	CloneWithModel(model string) Provider
}

// SamplingCloner is an optional interface for per-call sampling overrides.
// Intent classification wants deterministic, cheap completions (temperature 0,
// small token budget) while planning wants the configured defaults; providers
// implementing this interface let one configured provider serve both. The
// returned provider shares credentials and transport with the original.
type SamplingCloner interface {
	CloneWithSampling(temperature float64, maxTokens int) Provider
}

// Provider defines the interface for LLM integrations.
//
// Providers handle API communication with LLM services and return simple
// StreamChunk instances. This keeps providers focused on transport concerns;
// structured-output parsing and prompt construction live in the Client, and
// orchestration lives in the agent layer. The separation lets providers be
// reused outside the agent and tested independently of planning logic.
type Provider interface {
	// StreamCompletion sends messages to the LLM and streams back response
	// chunks.
	//
	// The returned channel emits StreamChunk instances:
	// - First chunk typically has Role set (e.g., "assistant")
	// - Subsequent chunks contain Content deltas
	// - Final chunk has Finished=true
	// - Error chunks have Error set
	//
	// The channel is closed when streaming completes or an error occurs.
	// Callers should continue reading until the channel is closed.
	//
	// Returns an error only if streaming cannot be initiated (e.g., invalid
	// configuration, network unavailable). Stream-time errors are sent as
	// StreamChunk instances with Error set.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the LLM and returns the full response.
	//
	// This is the non-streaming path used by structured-output calls. It
	// returns the assistant's response message or an error.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the LLM model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string

	// GetAPIKey returns the API key being used for authentication.
	GetAPIKey() string
}
