// Package sdk provides a thin HTTP client for a running cognimark
// retrieval server. For in-process embedding use the root package instead.
package sdk

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
)

// ErrNotFound is returned for 404 responses (unknown source).
var ErrNotFound = errors.New("sdk: not found")

// APIError carries the structured error payload of a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdk: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to the cognimark HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the server at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// SearchItem is one fused result.
type SearchItem struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	URL        string            `json:"url,omitempty"`
	Score      float64           `json:"score"`
	Source     string            `json:"source"`
	Strategies []string          `json:"strategies"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchMetadata reports how the search was executed.
type SearchMetadata struct {
	SourcesQueried  []string       `json:"sources_queried"`
	KeywordHits     map[string]int `json:"keyword_hits,omitempty"`
	VectorHits      map[string]int `json:"vector_hits,omitempty"`
	VectorDegraded  bool           `json:"vector_degraded"`
	DegradedSources []string       `json:"degraded_sources,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query    string         `json:"query"`
	Total    int            `json:"total"`
	Results  []SearchItem   `json:"results"`
	Context  string         `json:"context"`
	Metadata SearchMetadata `json:"metadata"`
}

// RebuildResponse summarizes one rebuild pass.
type RebuildResponse struct {
	SourcesRebuilt []string          `json:"sources_rebuilt"`
	RecordsIndexed map[string]int    `json:"records_indexed"`
	DurationsMs    map[string]int64  `json:"durations_ms"`
	Failures       map[string]string `json:"failures,omitempty"`
}

// SourceStatus is the per-source slice of a status response.
type SourceStatus struct {
	Name            string   `json:"name"`
	CollectionName  string   `json:"collection_name"`
	TriggerKeywords []string `json:"trigger_keywords"`
	IndexedCount    int      `json:"indexed_count"`
	LastBuiltAt     string   `json:"last_built_at,omitempty"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Sources []SourceStatus `json:"sources"`
}

// Search runs a hybrid search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/search", req, &resp)
	return resp, err
}

// Rebuild recomputes the vector index for one source, or all sources when
// sourceName is empty.
func (c *Client) Rebuild(ctx context.Context, sourceName string) (RebuildResponse, error) {
	var resp RebuildResponse
	var body any
	if sourceName != "" {
		body = map[string]string{"source": sourceName}
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/rebuild", body, &resp)
	return resp, err
}

// Status reports per-source index state.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/status", nil, &resp)
	return resp, err
}

// Healthy reports whether the server answers /healthz with 200.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false, fmt.Errorf("sdk: build request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("sdk: healthz: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sdk: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("sdk: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("sdk: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		if res.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("sdk: decode response: %w", err)
	}
	return nil
}
