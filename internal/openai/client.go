package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/movewise/internal/retry"
)

const (
	// DefaultChatModel is used when no model is configured
	DefaultChatModel = openai.GPT4oMini
	defaultTimeout   = 60 * time.Second
)

var (
	// ErrEmptyPrompt is returned when the user prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrEmptyResponse is returned when the model returns no content
	ErrEmptyResponse = errors.New("model returned no content")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// ChatRequest is a single system+user exchange.
type ChatRequest struct {
	System      string
	User        string
	JSON        bool
	Temperature float32
}

// ChatAPI defines the provider calls the client needs
type ChatAPI interface {
	CreateChat(ctx context.Context, req ChatRequest) (string, error)
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(string) error) error
}

type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, baseURL, model string) *OpenAIAdapter {
	if model == "" {
		model = DefaultChatModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (a *OpenAIAdapter) request(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if req.JSON {
		r.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return r
}

// CreateChat calls the chat completions endpoint
func (a *OpenAIAdapter) CreateChat(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(req, false))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamChat streams the completion, handing each non-empty delta to onDelta
func (a *OpenAIAdapter) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string) error) error {
	stream, err := a.client.CreateChatCompletionStream(ctx, a.request(req, true))
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := onDelta(delta); err != nil {
				return err
			}
		}
	}
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   retry.Policy
}

// Client wraps the chat API with timeouts and bounded retries
type Client struct {
	api     ChatAPI
	timeout time.Duration
	retry   retry.Policy
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey, Retry: retry.DefaultPolicy()})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return newClient(NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, cfg.Model), cfg)
}

func newClient(api ChatAPI, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{api: api, timeout: timeout, retry: cfg.Retry}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Complete returns the full completion text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyPrompt
	}
	return retry.Do(ctx, c.retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		content, err := c.api.CreateChat(callCtx, ChatRequest{System: system, User: user, Temperature: 0.7})
		if err != nil {
			return "", fmt.Errorf("failed to create chat completion: %w", err)
		}
		if strings.TrimSpace(content) == "" {
			return "", ErrEmptyResponse
		}
		return content, nil
	})
}

// CompleteJSON requests a JSON object and decodes it into out, which must be a non-nil
// pointer. A malformed object counts as a failed attempt. Each attempt decodes into a
// fresh value, so out is written once, from the accepted response only.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	if strings.TrimSpace(user) == "" {
		return ErrEmptyPrompt
	}
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return &json.InvalidUnmarshalError{Type: reflect.TypeOf(out)}
	}

	decoded, err := retry.Do(ctx, c.retry, func(ctx context.Context) (reflect.Value, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		content, err := c.api.CreateChat(callCtx, ChatRequest{System: system, User: user, JSON: true, Temperature: 0.2})
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to create chat completion: %w", err)
		}
		fresh := reflect.New(target.Type().Elem())
		if err := json.Unmarshal([]byte(content), fresh.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid json from model: %w", err)
		}
		return fresh, nil
	})
	if err != nil {
		return err
	}
	target.Elem().Set(decoded.Elem())
	return nil
}

// Stream forwards deltas to onChunk and returns the accumulated text.
// Only a stream that fails before its first delta is retried.
func (c *Client) Stream(ctx context.Context, system, user string, onChunk func(string) error) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyPrompt
	}
	var sb strings.Builder
	_, err := retry.Do(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := c.api.StreamChat(callCtx, ChatRequest{System: system, User: user, Temperature: 0.7}, func(delta string) error {
			sb.WriteString(delta)
			if onChunk != nil {
				return onChunk(delta)
			}
			return nil
		})
		if err != nil {
			err = fmt.Errorf("failed to stream chat completion: %w", err)
			if sb.Len() > 0 {
				return struct{}{}, retry.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return sb.String(), err
}
