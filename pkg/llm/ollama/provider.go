// Package ollama calls a local Ollama server's chat endpoint. No API key is involved.
package ollama

import (
	"ai-codereview-be/pkg/llm"
	"context"
	"errors"
	"net/http"
	"strings"
)

const DefaultBaseURL = "http://localhost:11434"

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client:    &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   map[string]any  `json:"format,omitempty"` // raw JSON schema
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Model: o.ModelName}, opts...)

	req := ollamaChatRequest{
		Model:    options.Model,
		Messages: toOllamaMessages(history),
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}
	if options.Schema != nil {
		req.Format = options.Schema.Schema
	}

	var resp ollamaChatResponse
	if err := llm.PostJSON(ctx, o.Client, "ollama", o.BaseURL+"/api/chat", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", errors.New("ollama: " + resp.Error)
	}
	return resp.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// Ollama knows "assistant" where some histories say "model"
func toOllamaMessages(history []llm.Message) []ollamaMessage {
	out := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		out[i] = ollamaMessage{Role: role, Content: msg.Content}
	}
	return out
}
