package llm

import (
	"context"
	"errors"
)

// Request is a single-turn completion: a system prompt and one user message.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the text of a completion.
type Response struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// DefaultMaxTokens caps a completion when the request does not.
const DefaultMaxTokens = 8192

// ErrEmptyCompletion is returned when the provider answered with no text.
var ErrEmptyCompletion = errors.New("empty completion")

func maxTokens(req Request) int64 {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}
