package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/okian/timeforge/pkg/logger"
)

// OpenAI suggests slots through an OpenAI compatible chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	log    logger.Logger
}

// OpenAIOption configures the OpenAI suggester.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL    string
	maxRetries int
	log        logger.Logger
}

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) OpenAIOption {
	return func(c *openAIConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the suggester logger.
func WithLogger(l logger.Logger) OpenAIOption {
	return func(c *openAIConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewOpenAI returns a suggester using apiKey and model.
func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrDisabled
	}
	cfg := openAIConfig{maxRetries: 2}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get().Named("suggest")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		base := cfg.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAI{client: &client, model: model, log: cfg.log}, nil
}

// Suggest sends the prompt for req and decodes the answer.
func (o *OpenAI) Suggest(ctx context.Context, req Request) (Result, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return Result{}, err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, ErrEmptyResponse
	}

	res, err := Decode(resp.Choices[0].Message.Content)
	if err != nil {
		o.log.Warn(ctx, "undecodable suggestion", logger.String("model", o.model), logger.Error(err))
		return Result{}, err
	}
	return res, nil
}
