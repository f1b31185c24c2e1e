// Package openai implements the llm.Provider interface against
// OpenAI-compatible chat completion APIs.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "os"
//
//	    "github.com/craftd/anvil/pkg/llm/openai"
//	    "github.com/craftd/anvil/pkg/types"
//	)
//
//	func main() {
//	    provider, err := openai.NewProvider(
//	        os.Getenv("OPENAI_API_KEY"),
//	        openai.WithModel("gpt-4o"),
//	    )
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    messages := []*types.Message{
//	        types.NewMessage(types.RoleUser, "Hello!"),
//	    }
//
//	    reply, err := provider.Complete(context.Background(), messages)
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(reply.Content)
//	}
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/llm/parser"
	"github.com/craftd/anvil/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the standard OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultModel       = "gpt-4o"
	defaultTemperature = 0.1
	defaultMaxTokens   = 4096
)

// Provider implements the LLM provider interface for OpenAI-compatible APIs.
type Provider struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
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

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
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

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY
// environment variable. If no base URL is provided via WithBaseURL, the
// OPENAI_BASE_URL environment variable is checked before falling back to
// the standard endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		httpClient:  &http.Client{},
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       defaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Options take precedence over the environment for the base URL.
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.modelInfo = p.buildModelInfo()
	return p, nil
}

func (p *Provider) buildModelInfo() *types.ModelInfo {
	info := &types.ModelInfo{
		Name:              p.model,
		Provider:          "openai",
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
// model. The clone shares the HTTP client, API key, and base URL with the
// original. It implements llm.ModelCloner.
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

// StreamCompletion sends messages to the API and streams back response
// chunks. The returned channel is closed when streaming completes or an
// error occurs.
//
// The implementation reads SSE events over raw HTTP rather than through
// the SDK streaming client, which tolerates the comment lines and format
// variations some OpenAI-compatible servers emit.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.stream(ctx, resp, chunks)
	return chunks, nil
}

func (p *Provider) sendStreamRequest(ctx context.Context, messages []*types.Message) (*http.Response, error) {
	reqBody := map[string]interface{}{
		"model":       p.model,
		"messages":    toChatMessages(messages),
		"stream":      true,
		"temperature": p.temperature,
		"max_tokens":  p.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// sseEvent is the subset of the chat completion chunk format we consume.
type sseEvent struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *Provider) stream(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	// send delivers a chunk unless the context is cancelled first.
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
	flushParser := func() bool {
		thinking, message := thinkingParser.Flush()
		return send(thinking) && send(message)
	}

	scanner := bufio.NewScanner(resp.Body)
	firstChunk := true

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			if flushParser() {
				send(&llm.StreamChunk{Finished: true})
			}
			return
		}

		var event sseEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue // skip malformed chunks
		}
		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		role := ""
		if firstChunk && choice.Delta.Role != "" {
			role = choice.Delta.Role
			firstChunk = false
		}

		if choice.Delta.Content != "" {
			thinking, message := thinkingParser.Parse(choice.Delta.Content)
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
		}

		if choice.FinishReason != nil && *choice.FinishReason == "stop" {
			if !send(&llm.StreamChunk{Role: role, Finished: true}) {
				return
			}
		} else if role != "" {
			if !send(&llm.StreamChunk{Role: role}) {
				return
			}
		}
	}

	if !flushParser() {
		return
	}
	if err := scanner.Err(); err != nil {
		chunks <- &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}
	}
}

// Complete sends messages to the API and returns the full response.
//
// It accumulates the stream into a single message. Thinking content is
// presentation only and is excluded from the accumulated response.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	var content string
	var role string

	for chunk := range stream {
		if chunk.IsError() {
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		if chunk.IsThinking() {
			continue
		}
		content += chunk.Content
	}

	if role == "" {
		role = string(types.RoleAssistant)
	}

	return &types.Message{
		Role:    types.MessageRole(role),
		Content: content,
	}, nil
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

// toChatMessages converts our message format to the SDK's chat completion
// message union.
func toChatMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case types.RoleUser:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		case types.RoleAssistant:
			chatMessages = append(chatMessages, openai.AssistantMessage(msg.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}

	return chatMessages
}
