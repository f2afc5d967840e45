// Package search implements ports.Searcher over the Tavily web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// DefaultEndpoint is the Tavily search API.
const DefaultEndpoint = "https://api.tavily.com/search"

// MaxContentChars truncates each hit's content before it reaches a prompt.
const MaxContentChars = 5000

// ErrMissingAPIKey is returned by Search when no key is configured.
var ErrMissingAPIKey = errors.New("tavily api key is not set")

// Tavily searches the web through the Tavily API.
type Tavily struct {
	apiKey   string
	endpoint string
	depth    string
	client   *http.Client
}

// Option configures a Tavily client.
type Option func(*Tavily)

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) Option {
	return func(t *Tavily) {
		t.endpoint = url
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tavily) {
		t.client = c
	}
}

// WithDepth sets the search depth ("basic" or "advanced").
func WithDepth(depth string) Option {
	return func(t *Tavily) {
		t.depth = depth
	}
}

// NewTavily creates a client. Requests use "advanced" depth and ask for raw
// page content, which gives the researcher more to summarise.
func NewTavily(apiKey string, opts ...Option) *Tavily {
	t := &Tavily{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		depth:    "advanced",
		client:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type searchRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	IncludeImages     bool   `json:"include_images"`
}

type searchResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search implements ports.Searcher.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error) {
	if t.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(searchRequest{
		Query:             query,
		MaxResults:        maxResults,
		SearchDepth:       t.depth,
		IncludeAnswer:     true,
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	hits := make([]domain.SearchHit, 0, len(out.Results))
	for _, r := range out.Results {
		if len(hits) == maxResults {
			break
		}
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		hits = append(hits, domain.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Content: truncate(content, MaxContentChars),
			Score:   r.Score,
		})
	}
	return hits, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
