package route

import (
	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/config"
	"ai-codereview-be/pkg/llm/factory"
)

const (
	RoleOpenAIReviewer       = "openai-reviewer"
	RoleGeminiReviewer       = "gemini-reviewer"
	RoleAnthropicAdjudicator = "anthropic-adjudicator"
	RoleWriter               = "writer"
)

// Route addresses one logical LLM role
type Route struct {
	Name          string
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	CredentialEnv string
}

// Routes is the full set of roles a run needs
type Routes struct {
	OpenAIReviewer       Route
	GeminiReviewer       Route
	AnthropicAdjudicator Route
	Writer               Route
}

// Resolve maps the models config onto one route per role
func Resolve(cfg config.ModelsConfig) Routes {
	build := func(name string, rc config.RoleConfig) Route {
		r := Route{
			Name:          name,
			Provider:      factory.ProviderOpenRouter,
			Model:         rc.Model,
			APIKey:        rc.APIKey,
			BaseURL:       rc.BaseURL,
			CredentialEnv: rc.KeyEnv,
		}
		if cfg.Backend == config.BackendOllama {
			r.Provider = factory.ProviderOllama
			r.BaseURL = cfg.OllamaBaseURL
		}
		return r
	}

	return Routes{
		OpenAIReviewer:       build(RoleOpenAIReviewer, cfg.OpenAIReviewer),
		GeminiReviewer:       build(RoleGeminiReviewer, cfg.GeminiReviewer),
		AnthropicAdjudicator: build(RoleAnthropicAdjudicator, cfg.AnthropicAdjudicator),
		Writer:               build(RoleWriter, cfg.Writer),
	}
}

// Reviewers returns the three routes the review pipeline calls, in call order
func (r Routes) Reviewers() []Route {
	return []Route{r.OpenAIReviewer, r.GeminiReviewer, r.AnthropicAdjudicator}
}

// All returns every route, reviewers first
func (r Routes) All() []Route {
	return append(r.Reviewers(), r.Writer)
}

// RequiresCredential is false for local backends
func (r Route) RequiresCredential() bool {
	return r.Provider != factory.ProviderOllama
}

// Validate fails fast when a route that needs a key has none
func (r Route) Validate() error {
	if !r.RequiresCredential() || r.APIKey != "" {
		return nil
	}
	return &apperror.MissingCredentialError{Role: r.Name, Model: r.Model, EnvKey: r.CredentialEnv}
}

// ValidateAll checks routes in order and stops at the first failure
func ValidateAll(routes ...Route) error {
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
