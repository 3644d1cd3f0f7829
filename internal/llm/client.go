// Package llm is the OpenAI-compatible implementation of the assistant's
// oracle. Every provider call goes through a circuit breaker so a failing
// endpoint is skipped quickly instead of stalling each chat request.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/assistant"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

const systemPrompt = "You are an expert restaurant recommender. Help users find the perfect restaurant " +
	"by considering their preferences, occasion, and needs. Be conversational and provide detailed, " +
	"personalized recommendations."

// Config holds configuration for creating a Client.
type Config struct {
	Endpoint string // Base URL, e.g. "https://api.openai.com/v1"
	Model    string
	APIKey   string

	BreakerThreshold uint32        // consecutive failures before the breaker opens
	BreakerTimeout   time.Duration // how long the breaker stays open
}

const (
	DefaultEndpoint         = "https://api.openai.com/v1"
	DefaultModel            = "gpt-3.5-turbo-0125"
	DefaultBreakerThreshold = 5
	DefaultBreakerTimeout   = 30 * time.Second
)

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	api     *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger
	now     func() time.Time
}

var _ assistant.Oracle = (*Client)(nil)

// NewClient validates cfg and builds a client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = DefaultModel
	}
	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = DefaultBreakerThreshold
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = DefaultBreakerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("llm")

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller that went away says nothing about the provider.
		IsSuccessful: func(err error) bool {
			var cb *callbackError
			return err == nil || errors.Is(err, context.Canceled) || errors.As(err, &cb)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		model:   mdl,
		breaker: breaker,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// BreakerState reports the circuit breaker state for health output.
func (c *Client) BreakerState() string { return c.breaker.State().String() }

func (c *Client) messages(req assistant.ClassifyRequest) []openai.ChatCompletionMessage {
	sys := systemPrompt + " Today's date is " + c.now().UTC().Format("2006-01-02") + "."
	if !req.Authenticated {
		sys += " The user is not logged in."
	}
	out := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == assistant.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Text})
}

// Classify asks the model to either call one of the assistant functions or
// answer in prose. Only the first tool call is used.
func (c *Client) Classify(ctx context.Context, req assistant.ClassifyRequest) (*assistant.Classification, error) {
	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		return c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:      c.model,
			Messages:   c.messages(req),
			Tools:      Tools(),
			ToolChoice: "auto",
		})
	})
	if err != nil {
		c.logger.Error("classify request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, ClassifyError(err)
	}
	resp := res.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, newError(ErrorTypeResponse, "no choices in response", false, nil, 0)
	}

	msg := resp.Choices[0].Message
	out := &assistant.Classification{Reply: msg.Content}
	if len(msg.ToolCalls) > 0 {
		out.Function = msg.ToolCalls[0].Function.Name
		out.Arguments = msg.ToolCalls[0].Function.Arguments
	}

	c.logger.Info("classify request completed",
		zap.String("function", out.Function),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// callbackError carries an error returned by the caller's onDelta.
type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// StreamReply streams a prose answer. onDelta is called for every non-empty
// content chunk; an error from it aborts the stream.
func (c *Client) StreamReply(ctx context.Context, req assistant.ClassifyRequest, onDelta func(string) error) (string, error) {
	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: c.messages(req),
			Stream:   true,
		})
		if err != nil {
			return "", err
		}
		defer stream.Close()

		var sb strings.Builder
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			if err != nil {
				return sb.String(), err
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			sb.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return sb.String(), &callbackError{err: err}
			}
		}
	})
	if err != nil {
		var cb *callbackError
		if errors.As(err, &cb) {
			return "", cb.err
		}
		c.logger.Error("stream failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", ClassifyError(err)
	}
	full, _ := res.(string)
	c.logger.Info("stream completed", zap.Int("content_length", len(full)), zap.Duration("elapsed", time.Since(start)))
	return full, nil
}

// SynthesizeRestaurants asks the model for n plausible restaurants matching
// q. Records the model gets wrong are left for the catalog to reject.
func (c *Client) SynthesizeRestaurants(ctx context.Context, q assistant.SearchIntent, n int) ([]model.Restaurant, error) {
	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) {
		return c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You are a restaurant database expert. Provide realistic restaurant data in JSON format."},
				{Role: openai.ChatMessageRoleUser, Content: synthesisPrompt(q, n)},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
	})
	if err != nil {
		c.logger.Error("synthesize request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, ClassifyError(err)
	}
	resp := res.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, newError(ErrorTypeResponse, "no choices in response", false, nil, 0)
	}

	list, err := ParseRestaurants(resp.Choices[0].Message.Content, n)
	if err != nil {
		return nil, newError(ErrorTypeResponse, "unparseable restaurant data", false, err, 0)
	}
	c.logger.Info("synthesized restaurants", zap.Int("count", len(list)), zap.Duration("elapsed", time.Since(start)))
	return list, nil
}
