// Package exa adapts the Exa web search API to the relocation source model.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/movewise/internal/domain"
	"github.com/cloo-solutions/movewise/internal/retry"
)

const (
	DefaultBaseURL = "https://api.exa.ai"
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 512
)

// ErrNoAPIKey is returned when the client is used without credentials.
var ErrNoAPIKey = errors.New("exa api key not set")

// SearchType selects the provider's relevance mode.
type SearchType string

const (
	SearchTypeNeural  SearchType = "neural"
	SearchTypeKeyword SearchType = "keyword"
)

// SearchOptions are the per-call knobs the relocation pipeline uses.
type SearchOptions struct {
	NumResults         int
	Type               SearchType
	StartPublishedDate string
	IncludeDomains     []string
	ExcludeDomains     []string
	// MaxCharacters > 0 requests page text capped at that length.
	MaxCharacters int
}

// SearchProviderError is the only error Search returns.
type SearchProviderError struct {
	Query      string
	StatusCode int
	Err        error
}

func (e *SearchProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search provider returned %d for %q: %v", e.StatusCode, e.Query, e.Err)
	}
	return fmt.Sprintf("search provider failed for %q: %v", e.Query, e.Err)
}

func (e *SearchProviderError) Unwrap() error {
	return e.Err
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   retry.Policy
}

// Client calls POST /search.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   retry.Policy
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		retry:   cfg.Retry,
	}
}

type searchRequest struct {
	Query              string          `json:"query"`
	NumResults         int             `json:"numResults,omitempty"`
	Type               SearchType      `json:"type,omitempty"`
	StartPublishedDate string          `json:"startPublishedDate,omitempty"`
	IncludeDomains     []string        `json:"includeDomains,omitempty"`
	ExcludeDomains     []string        `json:"excludeDomains,omitempty"`
	Contents           *searchContents `json:"contents,omitempty"`
}

type searchContents struct {
	Text searchText `json:"text"`
}

type searchText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate"`
	Author        string   `json:"author"`
	Score         *float64 `json:"score"`
	Text          string   `json:"text"`
}

// Search returns results in provider order. Failures are always *SearchProviderError.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SourceRecord, error) {
	if c.apiKey == "" {
		return nil, &SearchProviderError{Query: query, Err: ErrNoAPIKey}
	}

	body := searchRequest{
		Query:              query,
		NumResults:         opts.NumResults,
		Type:               opts.Type,
		StartPublishedDate: opts.StartPublishedDate,
		IncludeDomains:     opts.IncludeDomains,
		ExcludeDomains:     opts.ExcludeDomains,
	}
	if opts.MaxCharacters > 0 {
		body.Contents = &searchContents{Text: searchText{MaxCharacters: opts.MaxCharacters}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &SearchProviderError{Query: query, Err: err}
	}

	records, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]domain.SourceRecord, error) {
		return c.do(ctx, query, payload)
	})
	if err != nil {
		var spe *SearchProviderError
		if errors.As(err, &spe) {
			return nil, spe
		}
		return nil, &SearchProviderError{Query: query, Err: err}
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, query string, payload []byte) ([]domain.SourceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(&SearchProviderError{Query: query, Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &SearchProviderError{Query: query, Err: fmt.Errorf("http POST: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchProviderError{Query: query, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		spe := &SearchProviderError{Query: query, StatusCode: resp.StatusCode, Err: errors.New(truncate(string(raw), maxErrorBody))}
		if !retryableStatus(resp.StatusCode) {
			return nil, retry.Permanent(spe)
		}
		return nil, spe
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, retry.Permanent(&SearchProviderError{Query: query, Err: fmt.Errorf("json unmarshal: %w", err)})
	}

	records := make([]domain.SourceRecord, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		records = append(records, domain.SourceRecord{
			Title:         r.Title,
			URL:           r.URL,
			Text:          r.Text,
			Snippet:       snippet(r.Text),
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
			Author:        r.Author,
		})
	}
	return records, nil
}

func snippet(text string) string {
	if text == "" {
		return ""
	}
	return domain.Excerpt(text, domain.SnippetLength)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
