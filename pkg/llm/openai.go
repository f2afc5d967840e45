package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions configures the OpenAI completer.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// Temperature is only sent when positive; reasoning models reject it.
	Temperature float64
}

// OpenAI completes requests with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAI creates an OpenAI completer using the official client.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAI {
	var opts OpenAIOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(clientOpts...)
	return &OpenAI{client: &client, opts: opts}
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               req.Model,
		MaxCompletionTokens: openai.Int(maxTokens(req)),
	}
	if o.opts.Temperature > 0 {
		params.Temperature = openai.Float(o.opts.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai %s: no choices returned: %w", req.Model, ErrEmptyCompletion)
	}

	ch0 := resp.Choices[0]
	if strings.TrimSpace(ch0.Message.Content) == "" {
		return Response{}, fmt.Errorf("openai %s (finish %s): %w", req.Model, ch0.FinishReason, ErrEmptyCompletion)
	}

	return Response{
		Text:       ch0.Message.Content,
		Model:      resp.Model,
		StopReason: ch0.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
