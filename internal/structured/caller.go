// Package structured issues one schema-constrained model call and decodes the
// answer into a Go value.
//
// A call either yields a value that passes the target type's validate tags or
// fails. Transport faults are retried with exponential backoff, each attempt
// bounded by its own timeout. A successful answer that carries no usable
// payload is never retried and never defaulted.
package structured

import (
	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/pkg/llm"
	"ai-codereview-be/pkg/llm/factory"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Temperature 0 keeps reviewer and writer answers as repeatable as the backend allows
const defaultTemperature = 0.0

// Caller is what the pipelines depend on
type Caller interface {
	Call(ctx context.Context, r route.Route, prompt string, out any) error
}

// ProviderFactory builds the backend for a route
type ProviderFactory func(r route.Route) (llm.LLMProvider, error)

// DefaultProviderFactory dispatches on the route's provider name
func DefaultProviderFactory(r route.Route) (llm.LLMProvider, error) {
	return factory.NewLLMProvider(r.Provider, r.Model, r.BaseURL, r.APIKey)
}

type caller struct {
	providers ProviderFactory
	cfg       config.CallConfig
	validate  *validator.Validate
	schemas   *schemaCache
	logger    logger.ILogger
}

func NewCaller(cfg config.CallConfig, providers ProviderFactory, logger logger.ILogger) Caller {
	if providers == nil {
		providers = DefaultProviderFactory
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &caller{
		providers: providers,
		cfg:       cfg,
		validate:  validator.New(),
		schemas:   newSchemaCache(),
		logger:    logger,
	}
}

func (c *caller) Call(ctx context.Context, r route.Route, prompt string, out any) error {
	if err := r.Validate(); err != nil {
		return err
	}

	ctx, span := otel.Tracer("structured").Start(ctx, "structured.Call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.route", r.Name),
		attribute.String("llm.model", r.Model),
		attribute.String("llm.provider", r.Provider),
	)

	schema, err := c.schemas.forValue(out)
	if err != nil {
		return fmt.Errorf("derive output schema for %s: %w", r.Name, err)
	}

	provider, err := c.providers(r)
	if err != nil {
		return fmt.Errorf("build provider for %s: %w", r.Name, err)
	}

	var (
		attempts   int
		payloadErr error
	)

	operation := func() (struct{}, error) {
		attempts++
		c.logger.Info("LLM", "Attempting structured call", map[string]interface{}{
			"route":   r.Name,
			"model":   r.Model,
			"attempt": attempts,
		})

		raw, err := c.attempt(ctx, provider, r, prompt, schema)
		if err != nil {
			if ctx.Err() != nil || llm.IsPermanent(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			c.logger.Warn("LLM", "Structured call attempt failed", map[string]interface{}{
				"route":   r.Name,
				"attempt": attempts,
				"error":   err.Error(),
			})
			return struct{}{}, err
		}

		if perr := c.decode(raw, out); perr != nil {
			payloadErr = &apperror.NoStructuredPayloadError{Role: r.Name, Model: r.Model, Reason: perr.reason, Err: perr.err}
			return struct{}{}, backoff.Permanent(payloadErr)
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
	)

	span.SetAttributes(attribute.Int("llm.attempts", attempts))

	if payloadErr != nil {
		span.RecordError(payloadErr)
		span.SetStatus(codes.Error, "no structured payload")
		c.logger.Error("LLM", "Model returned no structured payload", map[string]interface{}{
			"route": r.Name,
			"model": r.Model,
			"error": payloadErr.Error(),
		})
		return payloadErr
	}

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("structured call for %s aborted: %w", r.Name, ctxErr)
		}
		c.logger.Error("LLM", "Structured call failed", map[string]interface{}{
			"route":    r.Name,
			"model":    r.Model,
			"attempts": attempts,
			"error":    err.Error(),
		})
		return &apperror.TransportError{Role: r.Name, Model: r.Model, Attempts: attempts, Err: err}
	}

	c.logger.Info("LLM", "Successfully completed structured call", map[string]interface{}{
		"route":    r.Name,
		"model":    r.Model,
		"attempts": attempts,
	})
	return nil
}

func (c *caller) attempt(ctx context.Context, provider llm.LLMProvider, r route.Route, prompt string, schema *namedSchema) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return provider.Generate(ctx, prompt,
		llm.WithModel(r.Model),
		llm.WithTemperature(defaultTemperature),
		llm.WithSchema(schema.name, schema.schema),
	)
}

func (c *caller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		b.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		b.MaxInterval = c.cfg.MaxBackoff
	}
	return b
}

type payloadError struct {
	reason string
	err    error
}

func (c *caller) decode(raw string, out any) *payloadError {
	body := stripFence(raw)
	if body == "" {
		return &payloadError{reason: "empty response"}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &payloadError{reason: "response is not valid JSON", err: err}
	}
	if err := c.validate.Struct(out); err != nil {
		return &payloadError{reason: "response does not match schema", err: err}
	}
	return nil
}

// stripFence removes a surrounding ```json fence some local models add
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
