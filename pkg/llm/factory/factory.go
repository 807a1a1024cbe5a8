package factory

import (
	"ai-codereview-be/pkg/llm"
	"ai-codereview-be/pkg/llm/ollama"
	"ai-codereview-be/pkg/llm/openrouter"
	"fmt"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case ProviderOllama:
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case ProviderOpenRouter, "":
		return openrouter.NewProvider(apiKey, baseURL, modelName, nil), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
