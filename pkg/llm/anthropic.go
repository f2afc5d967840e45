package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicOptions configures the Anthropic completer.
type AnthropicOptions struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	Temperature float64
}

// Anthropic completes requests with the Claude Messages API.
type Anthropic struct {
	client *anthropic.Client
	opts   AnthropicOptions
}

// NewAnthropic creates an Anthropic completer using the official client.
// The SDK's automatic retries are disabled: a failed call fails the step.
func NewAnthropic(optFns ...func(o *AnthropicOptions)) *Anthropic {
	var opts AnthropicOptions
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

	client := anthropic.NewClient(clientOpts...)
	return &Anthropic{client: &client, opts: opts}
}

// Complete implements Completer.
func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens(req),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if a.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(a.opts.Temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, fmt.Errorf("anthropic %s: %w", req.Model, ErrEmptyCompletion)
	}

	return Response{
		Text:       text.String(),
		Model:      string(resp.Model),
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
