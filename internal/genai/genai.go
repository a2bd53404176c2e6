// Package genai provides the model-call client used by all PersonaPipe
// generation stages, wrapping the OpenAI API with retry, backoff and a
// process-wide minimum spacing between outbound calls.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// Default client settings.
const (
	DefaultModel          = "gpt-4o"
	DefaultMaxRetries     = 3
	DefaultMinInterval    = time.Second
	DefaultRequestTimeout = 60 * time.Second
)

// ErrEmptyResponse is returned when the API reports success but no text came
// back. An empty completion is a failure condition, not a valid result.
var ErrEmptyResponse = errors.New("empty response from model")

const systemPrompt = "You are a helpful assistant that generates realistic synthetic data for personal apps. Always respond with valid JSON when requested."

// chatService defines the minimal interface for chat completions, allowing
// tests to inject fakes.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey         string
	Model          string
	MaxRetries     int
	MinInterval    time.Duration
	RequestTimeout time.Duration
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the model identifier used for all calls.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxRetries sets the number of attempts per call.
func WithMaxRetries(n int) Option {
	return func(o *Opts) { o.MaxRetries = n }
}

// WithMinInterval sets the minimum spacing enforced between outbound calls.
func WithMinInterval(d time.Duration) Option {
	return func(o *Opts) { o.MinInterval = d }
}

// WithRequestTimeout sets the per-attempt request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) { o.RequestTimeout = d }
}

// Client wraps the OpenAI ChatCompletion service. All runs sharing one
// Client instance share its throttle; independent clients throttle
// independently.
type Client struct {
	chat       chatService
	model      string
	maxRetries int
	timeout    time.Duration
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient initializes a new GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not set via options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:          DefaultModel,
		MaxRetries:     DefaultMaxRetries,
		MinInterval:    DefaultMinInterval,
		RequestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:       &cli.Chat.Completions,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.RequestTimeout,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		sleep:      sleepContext,
	}, nil
}

// Generate produces text for the given prompt. It retries transient
// failures with exponential backoff: rate-limit failures back off in
// minute-scale increments, other API failures in second-scale increments.
// After exhausting retries the last error is returned.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("throttle wait interrupted: %w", err)
		}

		slog.Debug("GenAI Generate attempt", "attempt", attempt+1, "max_retries", c.maxRetries, "model", c.model)
		text, err := c.complete(ctx, prompt, temperature, maxTokens)
		if err == nil {
			slog.Debug("GenAI Generate succeeded", "chars", len(text))
			return text, nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}

		delay := backoffDelay(attempt, isRateLimited(err))
		slog.Warn("GenAI Generate attempt failed, backing off", "attempt", attempt+1, "delay", delay, "error", err)
		if serr := c.sleep(ctx, delay); serr != nil {
			return "", fmt.Errorf("backoff interrupted: %w", serr)
		}
	}
	slog.Error("GenAI Generate exhausted retries", "attempts", c.maxRetries, "error", lastErr)
	return "", lastErr
}

// complete performs one completion attempt under the request timeout.
func (c *Client) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.New(reqCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// backoffDelay computes the exponential backoff before the next attempt.
// Rate-limit failures wait in minutes, everything else in seconds.
func backoffDelay(attempt int, rateLimited bool) time.Duration {
	unit := time.Second
	if rateLimited {
		unit = time.Minute
	}
	return time.Duration(1<<attempt) * unit
}

// isRateLimited reports whether the error is a rate-limit-class API failure.
func isRateLimited(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
