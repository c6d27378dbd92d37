package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptlab",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of AI completion requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptlab",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of AI completion failures",
	}, []string{"model", "operation"})

	aiRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptlab",
		Subsystem: "ai",
		Name:      "request_retries_total",
		Help:      "Number of retried AI completion attempts",
	}, []string{"model"})
)

const (
	generateTemperature = 0.1
	evaluateTemperature = 0.3
	generateMaxTokens   = 1024
	evaluateMaxTokens   = 2048
)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	RetryDelay  time.Duration
	OrgContext  string
	Logger      zerolog.Logger
}

// OpenAIClient implements Client against the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
	sleep  func(time.Duration)
}

// NewOpenAIClient builds a new client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/promptlab-dev/promptlab-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_client").Logger(),
		sleep:  time.Sleep,
	}, nil
}

// GenerateUseCases asks the model for four department use cases and extracts
// them from the free-text reply. The post-condition of the extractor holds
// regardless of model compliance: the slice always has four entries.
func (c *OpenAIClient) GenerateUseCases(parent context.Context, input UseCaseInput) ([]string, error) {
	ctx, span := c.tracer.Start(parent, "openai.generate_use_cases", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("department", input.Department),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   generateMaxTokens,
		Temperature: generateTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: useCaseSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUseCasePrompt(input, c.cfg.OrgContext)},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(c.cfg.Model, "generate").Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(c.cfg.Model, "generate").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai generate use cases: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(c.cfg.Model, "generate").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	useCases := ExtractUseCases(content, input.Department)
	span.SetAttributes(attribute.Int("use_case_count", len(useCases)))

	return useCases, nil
}

// EvaluatePrompt scores the prompt against the rubric. Rate limited and
// transient upstream failures are retried up to MaxAttempts; unparsable model
// output degrades to the fixed fallback result rather than an error.
func (c *OpenAIClient) EvaluatePrompt(parent context.Context, input EvaluationInput) (EvaluationResult, error) {
	ctx, span := c.tracer.Start(parent, "openai.evaluate_prompt", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   evaluateMaxTokens,
		Temperature: evaluateTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluationSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildEvaluationPrompt(input)},
		},
	}

	start := time.Now()
	content, err := c.completeWithRetry(ctx, request)
	aiDuration.WithLabelValues(c.cfg.Model, "evaluate").Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(c.cfg.Model, "evaluate").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluationResult{}, fmt.Errorf("openai evaluate prompt: %w", err)
	}

	result := ExtractEvaluation(content)
	span.SetAttributes(attribute.Float64("score", result.Score))

	return result, nil
}

// completeWithRetry performs the chat completion with the bounded retry
// policy: 429 responses back off attempt*RetryDelay, transport failures wait a
// flat RetryDelay, and any other upstream rejection fails immediately.
func (c *OpenAIClient) completeWithRetry(ctx context.Context, request openai.ChatCompletionRequest) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, request)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("no choices returned from openai")
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		lastErr = err
		status := httpStatusFromError(err)

		switch {
		case status == http.StatusTooManyRequests:
			if attempt < c.cfg.MaxAttempts {
				aiRetries.WithLabelValues(c.cfg.Model).Inc()
				c.logger.Warn().Int("attempt", attempt).Msg("rate limited by openai, backing off")
				c.sleep(time.Duration(attempt) * c.cfg.RetryDelay)
			}
		case status != 0:
			return "", err
		default:
			if attempt < c.cfg.MaxAttempts {
				aiRetries.WithLabelValues(c.cfg.Model).Inc()
				c.logger.Warn().Err(err).Int("attempt", attempt).Msg("openai request failed, retrying")
				c.sleep(c.cfg.RetryDelay)
			}
		}
	}

	return "", lastErr
}

func httpStatusFromError(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	return 0
}
