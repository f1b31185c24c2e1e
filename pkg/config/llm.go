package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the LLM settings section
	SectionIDLLM = "llm"

	// ProviderAnthropic selects the Anthropic Messages API backend
	ProviderAnthropic = "anthropic"
	// ProviderOpenAI selects the OpenAI chat completions backend
	ProviderOpenAI = "openai"

	// Default values for LLM settings
	defaultProvider       = ProviderAnthropic
	defaultModel          = "claude-3-5-sonnet-20241022"
	defaultTemperature    = 0.1
	defaultMaxTokens      = 4096
	defaultTimeoutSeconds = 60
)

// LLMSection manages LLM provider configuration settings.
type LLMSection struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
	mu             sync.RWMutex
}

// NewLLMSection creates a new LLM section with default settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{
		Provider:       defaultProvider,
		Model:          defaultModel,
		BaseURL:        "",
		APIKey:         "",
		Temperature:    defaultTemperature,
		MaxTokens:      defaultMaxTokens,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Title returns the section title.
func (s *LLMSection) Title() string {
	return "LLM Settings"
}

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "Configure the LLM backend used for planning and reflection. Provider is 'anthropic' or 'openai'; API keys may also come from ANTHROPIC_API_KEY or OPENAI_API_KEY."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"provider":        s.Provider,
		"model":           s.Model,
		"base_url":        s.BaseURL,
		"api_key":         s.APIKey,
		"temperature":     s.Temperature,
		"max_tokens":      s.MaxTokens,
		"timeout_seconds": s.TimeoutSeconds,
	}
}

// SetData updates the configuration from the provided data.
func (s *LLMSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "provider":
			if provider, ok := value.(string); ok {
				s.Provider = provider
			} else {
				return fmt.Errorf("invalid value type for provider: expected string, got %T", value)
			}

		case "model":
			if model, ok := value.(string); ok {
				s.Model = model
			} else {
				return fmt.Errorf("invalid value type for model: expected string, got %T", value)
			}

		case "base_url":
			if baseURL, ok := value.(string); ok {
				s.BaseURL = baseURL
			} else {
				return fmt.Errorf("invalid value type for base_url: expected string, got %T", value)
			}

		case "api_key":
			if apiKey, ok := value.(string); ok {
				s.APIKey = apiKey
			} else {
				return fmt.Errorf("invalid value type for api_key: expected string, got %T", value)
			}

		case "temperature":
			temperature, ok := floatValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for temperature: expected number, got %T", value)
			}
			s.Temperature = temperature

		case "max_tokens":
			maxTokens, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for max_tokens: expected number, got %T", value)
			}
			s.MaxTokens = maxTokens

		case "timeout_seconds":
			timeout, ok := intValue(value)
			if !ok {
				return fmt.Errorf("invalid value type for timeout_seconds: expected number, got %T", value)
			}
			s.TimeoutSeconds = timeout

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Provider != ProviderAnthropic && s.Provider != ProviderOpenAI {
		return fmt.Errorf("provider must be '%s' or '%s', got '%s'", ProviderAnthropic, ProviderOpenAI, s.Provider)
	}

	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", s.Temperature)
	}

	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}

	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", s.TimeoutSeconds)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = defaultProvider
	s.Model = defaultModel
	s.BaseURL = ""
	s.APIKey = ""
	s.Temperature = defaultTemperature
	s.MaxTokens = defaultMaxTokens
	s.TimeoutSeconds = defaultTimeoutSeconds
}

// GetProvider returns the configured provider name.
func (s *LLMSection) GetProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Provider
}

// SetProvider sets the provider name.
func (s *LLMSection) SetProvider(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = provider
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// SetModel sets the model name.
func (s *LLMSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// SetBaseURL sets the base URL.
func (s *LLMSection) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = baseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// SetAPIKey sets the API key.
func (s *LLMSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}

// GetTemperature returns the sampling temperature.
func (s *LLMSection) GetTemperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Temperature
}

// GetMaxTokens returns the maximum output token budget per request.
func (s *LLMSection) GetMaxTokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxTokens
}

// GetTimeoutSeconds returns the per-request timeout in seconds.
func (s *LLMSection) GetTimeoutSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TimeoutSeconds
}

// floatValue coerces a config value to float64. JSON decoding produces
// float64 for every number; values set from code may be int.
func floatValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// intValue coerces a config value to int.
func intValue(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
