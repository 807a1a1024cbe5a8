package config

import (
	"log"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Models   ModelsConfig
	Review   ReviewConfig
	Call     CallConfig
	Tracing  TracingConfig
	SMTP     SMTPConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string // empty disables run history persistence
}

// ModelsConfig holds per-role model ids, credentials and endpoints
type ModelsConfig struct {
	Backend           string // "openrouter" or "ollama"
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OllamaBaseURL     string

	OpenAIReviewer       RoleConfig
	GeminiReviewer       RoleConfig
	AnthropicAdjudicator RoleConfig
	Writer               RoleConfig
}

// RoleConfig is the resolved model/credential/endpoint triple for one logical role
type RoleConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	KeyEnv  string // env key that would supply APIKey, used in remediation hints
}

type ReviewConfig struct {
	ReviewerRulesFile string
	WriterRulesFile   string
	WorkspaceRoot     string
	MaxReviewCycles   int
	BudgetPolicy      string // "enforce" or "advisory"
	Concurrency       int
	RunTimeout        time.Duration
}

// CallConfig bounds every structured model call
type CallConfig struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// SMTPConfig enables run report mails when Host and NotifyTo are both set
type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	NotifyTo   string
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.NotifyTo != ""
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

const (
	BackendOpenRouter = "openrouter"
	BackendOllama     = "ollama"

	BudgetPolicyEnforce  = "enforce"
	BudgetPolicyAdvisory = "advisory"

	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Load resolves configuration from the given env files (".env" when none are
// given), then the process environment, then hard-coded defaults.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	fileLayer, err := NewFileSource(envFiles...)
	if err != nil {
		log.Println("Note: .env file not found, using system environment")
	}
	return FromResolver(NewResolver(fileLayer, EnvSource{}))
}

// FromResolver builds a Config from an explicit resolver. Tests use it with map sources.
func FromResolver(r *Resolver) *Config {
	openRouterKey := r.String("OPENROUTER_API_KEY", "")
	openRouterURL := r.String("OPENROUTER_BASE_URL", defaultOpenRouterBaseURL)

	role := func(modelKey, modelDefault, keyEnv, urlEnv string) RoleConfig {
		return RoleConfig{
			Model:   r.String(modelKey, modelDefault),
			APIKey:  r.String(keyEnv, openRouterKey),
			BaseURL: r.String(urlEnv, openRouterURL),
			KeyEnv:  keyEnv,
		}
	}

	return &Config{
		App: AppConfig{
			Port:               r.String("APP_PORT", "3000"),
			Environment:        r.String("GO_ENV", "development"),
			LogFilePath:        r.String("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: r.String("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            r.String("NATS_URL", ""),
			RedisURL:           r.String("REDIS_URL", ""),
			JWTSecret:          r.String("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: r.String("DB_CONNECTION_STRING", ""),
		},
		Models: ModelsConfig{
			Backend:              strings.ToLower(r.String("LLM_BACKEND", BackendOpenRouter)),
			OpenRouterAPIKey:     openRouterKey,
			OpenRouterBaseURL:    openRouterURL,
			OllamaBaseURL:        r.String("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIReviewer:       role("OPENAI_REVIEWER_MODEL", "openai/gpt-5.2-codex", "OPENAI_REVIEWER_API_KEY", "OPENAI_REVIEWER_BASE_URL"),
			GeminiReviewer:       role("GEMINI_REVIEWER_MODEL", "google/gemini-3-flash-preview", "GEMINI_API_KEY", "GEMINI_BASE_URL"),
			AnthropicAdjudicator: role("ANTHROPIC_COLLATOR_MODEL", "anthropic/claude-opus-4.6", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"),
			Writer:               role("WRITER_MODEL", "anthropic/claude-opus-4.6", "WRITER_API_KEY", "WRITER_BASE_URL"),
		},
		Review: ReviewConfig{
			ReviewerRulesFile: r.String("REVIEWER_RULES_FILE", "rules/review_rules.md"),
			WriterRulesFile:   r.String("WRITER_RULES_FILE", "rules/writer_rules.md"),
			WorkspaceRoot:     r.String("WORKSPACE_ROOT", ""),
			MaxReviewCycles:   r.Int("MAX_REVIEW_CYCLES", 2),
			BudgetPolicy:      strings.ToLower(r.String("REVIEW_BUDGET_POLICY", BudgetPolicyEnforce)),
			Concurrency:       r.Int("REVIEW_CONCURRENCY", 4),
			RunTimeout:        r.Duration("RUN_TIMEOUT", 30*time.Minute),
		},
		Call: CallConfig{
			Timeout:        r.Duration("LLM_CALL_TIMEOUT", 3*time.Minute),
			MaxAttempts:    r.Int("LLM_MAX_ATTEMPTS", 3),
			InitialBackoff: r.Duration("LLM_INITIAL_BACKOFF", time.Second),
			MaxBackoff:     r.Duration("LLM_MAX_BACKOFF", 20*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:  r.Bool("OTEL_ENABLED", false),
			Endpoint: r.String("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		SMTP: SMTPConfig{
			Host:       r.String("SMTP_HOST", ""),
			Port:       r.Int("SMTP_PORT", 587),
			Email:      r.String("SMTP_EMAIL", ""),
			Password:   r.String("SMTP_PASSWORD", ""),
			SenderName: r.String("SMTP_SENDER_NAME", "Code Review"),
			NotifyTo:   r.String("RUN_REPORT_EMAIL", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
