// Package anthropic implements the llm.Provider interface on top of the
// official Anthropic SDK.
//
// Example usage:
//
//	provider, err := anthropic.NewProvider(
//	    os.Getenv("ANTHROPIC_API_KEY"),
//	    anthropic.WithModel("claude-3-5-sonnet-20241022"),
//	)
package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/llm/parser"
	"github.com/craftd/anvil/pkg/types"
)

const (
	// DefaultBaseURL is the standard Anthropic API base URL.
	DefaultBaseURL = "https://api.anthropic.com"

	defaultModel       = "claude-3-5-sonnet-20241022"
	defaultTemperature = 0.1
	defaultMaxTokens   = 4096
	defaultTimeout     = 60 * time.Second
)

// Provider implements the LLM provider interface for the Anthropic API.
type Provider struct {
	client      anthropic.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	modelInfo   *types.ModelInfo
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL, for proxies or compatible gateways.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature sent with each request.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// WithMaxTokens caps the number of output tokens per completion.
func WithMaxTokens(maxTokens int) ProviderOption {
	return func(p *Provider) {
		p.maxTokens = maxTokens
	}
}

// WithTimeout bounds each API request.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = timeout
	}
}

// NewProvider creates a new Anthropic provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the ANTHROPIC_API_KEY
// environment variable. If no base URL is provided via WithBaseURL, the
// ANTHROPIC_BASE_URL environment variable is checked before falling back
// to the standard endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (provide via parameter or ANTHROPIC_API_KEY environment variable)")
	}

	p := &Provider{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       defaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		timeout:     defaultTimeout,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("ANTHROPIC_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = p.buildClient()
	p.modelInfo = p.buildModelInfo()
	return p, nil
}

func (p *Provider) buildClient() anthropic.Client {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithRequestTimeout(p.timeout),
	}
	if p.baseURL != DefaultBaseURL {
		clientOpts = append(clientOpts, option.WithBaseURL(p.baseURL))
	}
	return anthropic.NewClient(clientOpts...)
}

func (p *Provider) buildModelInfo() *types.ModelInfo {
	info := &types.ModelInfo{
		Name:              p.model,
		Provider:          "anthropic",
		SupportsStreaming: true,
		MaxTokens:         p.maxTokens,
		Metadata:          make(map[string]interface{}),
	}
	if p.baseURL != DefaultBaseURL {
		info.Metadata["base_url"] = p.baseURL
	}
	return info
}

// CloneWithModel returns a shallow copy of p configured to use the given
// model. The clone shares the underlying API client with the original. It
// implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	clone.modelInfo = clone.buildModelInfo()
	return &clone
}

// CloneWithSampling returns a shallow copy of p with the given sampling
// parameters. It implements llm.SamplingCloner.
func (p *Provider) CloneWithSampling(temperature float64, maxTokens int) llm.Provider {
	clone := *p
	clone.temperature = temperature
	if maxTokens > 0 {
		clone.maxTokens = maxTokens
	}
	clone.modelInfo = clone.buildModelInfo()
	return &clone
}

// buildParams converts our messages into a request, lifting system
// messages into the dedicated system field the API requires.
func (p *Provider) buildParams(messages []*types.Message) anthropic.MessageNewParams {
	var systemParts []string
	converted := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case types.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(p.maxTokens),
		Temperature: anthropic.Float(p.temperature),
		Messages:    converted,
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n\n")},
		}
	}
	return params
}

// Complete sends messages to the API and returns the full response.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(messages))
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return &types.Message{
		Role:    types.RoleAssistant,
		Content: content.String(),
	}, nil
}

// StreamCompletion sends messages to the API and streams back response
// chunks. The returned channel is closed when streaming completes or an
// error occurs.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(messages))

	chunks := make(chan *llm.StreamChunk, 10)
	go p.stream(ctx, stream, chunks)
	return chunks, nil
}

// eventStream is the part of the SDK stream the goroutine consumes.
type eventStream interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

func (p *Provider) stream(ctx context.Context, events eventStream, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer events.Close()

	send := func(chunk *llm.StreamChunk) bool {
		if chunk == nil {
			return true
		}
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			chunks <- &llm.StreamChunk{Error: ctx.Err()}
			return false
		}
	}

	thinkingParser := parser.NewThinkingParser()
	role := ""

	for events.Next() {
		event := events.Current()

		switch ev := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			role = string(ev.Message.Role)
			if !send(&llm.StreamChunk{Role: role}) {
				return
			}

		case anthropic.ContentBlockDeltaEvent:
			delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok {
				continue
			}
			thinking, message := thinkingParser.Parse(delta.Text)
			if thinking != nil {
				thinking.Role = role
				if !send(thinking) {
					return
				}
			}
			if message != nil {
				message.Role = role
				if !send(message) {
					return
				}
			}

		case anthropic.MessageStopEvent:
			thinking, message := thinkingParser.Flush()
			if !send(thinking) || !send(message) {
				return
			}
			if !send(&llm.StreamChunk{Finished: true}) {
				return
			}
		}
	}

	if err := events.Err(); err != nil {
		chunks <- &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}
	}
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// GetAPIKey returns the API key being used.
func (p *Provider) GetAPIKey() string {
	return p.apiKey
}
