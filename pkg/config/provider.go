package config

import (
	"fmt"
	"os"
	"time"

	"github.com/craftd/anvil/pkg/llm"
	"github.com/craftd/anvil/pkg/llm/anthropic"
	"github.com/craftd/anvil/pkg/llm/openai"
)

// BuildProvider creates an LLM provider based on configuration precedence:
// CLI flags > Environment variables > Config file > Defaults.
//
// Empty CLI values mean "not set". The provider name defaults to anthropic;
// model, base URL, temperature, and token limits fall through to the
// backend's own defaults when unresolved.
func BuildProvider(cliProvider, cliModel, cliBaseURL, cliAPIKey string) (llm.Provider, error) {
	llmConfig := GetLLM()

	providerName := cliProvider
	if providerName == "" && llmConfig != nil {
		providerName = llmConfig.GetProvider()
	}
	if providerName == "" {
		providerName = ProviderAnthropic
	}
	if providerName != ProviderAnthropic && providerName != ProviderOpenAI {
		return nil, fmt.Errorf("unknown LLM provider '%s' (expected '%s' or '%s')", providerName, ProviderAnthropic, ProviderOpenAI)
	}

	apiKeyEnv := "ANTHROPIC_API_KEY"
	baseURLEnv := "ANTHROPIC_BASE_URL"
	if providerName == ProviderOpenAI {
		apiKeyEnv = "OPENAI_API_KEY"
		baseURLEnv = "OPENAI_BASE_URL"
	}

	// Fall back to environment variables if CLI values are empty
	finalAPIKey := cliAPIKey
	if finalAPIKey == "" {
		finalAPIKey = os.Getenv(apiKeyEnv)
	}
	finalBaseURL := cliBaseURL
	if finalBaseURL == "" {
		finalBaseURL = os.Getenv(baseURLEnv)
	}
	finalModel := cliModel

	// Fall back to config file if still empty
	if llmConfig != nil {
		if finalModel == "" {
			finalModel = llmConfig.GetModel()
		}
		if finalBaseURL == "" {
			finalBaseURL = llmConfig.GetBaseURL()
		}
		if finalAPIKey == "" {
			finalAPIKey = llmConfig.GetAPIKey()
		}
	}

	if finalAPIKey == "" {
		return nil, fmt.Errorf("API key is required. Set %s, use the -api-key flag, or configure llm.api_key in ~/.anvil/config.json", apiKeyEnv)
	}

	if providerName == ProviderOpenAI {
		providerOpts := []openai.ProviderOption{}
		if finalModel != "" {
			providerOpts = append(providerOpts, openai.WithModel(finalModel))
		}
		if finalBaseURL != "" {
			providerOpts = append(providerOpts, openai.WithBaseURL(finalBaseURL))
		}
		if llmConfig != nil {
			providerOpts = append(providerOpts,
				openai.WithTemperature(llmConfig.GetTemperature()),
				openai.WithMaxTokens(llmConfig.GetMaxTokens()),
			)
		}

		provider, err := openai.NewProvider(finalAPIKey, providerOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return provider, nil
	}

	providerOpts := []anthropic.ProviderOption{}
	if finalModel != "" {
		providerOpts = append(providerOpts, anthropic.WithModel(finalModel))
	}
	if finalBaseURL != "" {
		providerOpts = append(providerOpts, anthropic.WithBaseURL(finalBaseURL))
	}
	if llmConfig != nil {
		providerOpts = append(providerOpts,
			anthropic.WithTemperature(llmConfig.GetTemperature()),
			anthropic.WithMaxTokens(llmConfig.GetMaxTokens()),
			anthropic.WithTimeout(time.Duration(llmConfig.GetTimeoutSeconds())*time.Second),
		)
	}

	provider, err := anthropic.NewProvider(finalAPIKey, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}
