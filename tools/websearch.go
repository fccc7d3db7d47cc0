// Web Search Tool.
//
// Information Hiding:
// - Search endpoint, auth and HTTP client details hidden
// - Response handling abstracted (JSON passes through, text is wrapped)

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/richinex/relay/llm"
)

const (
	defaultSearchResults = 5
	maxSearchBodyBytes   = 1 << 20
)

// SearchConfig configures the web_search tool's backing endpoint. The
// endpoint receives GET ?q=<query>&count=<n>.
type SearchConfig struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"apiKey"`
	MaxResults  int    `yaml:"maxResults"`
	TimeoutSecs int    `yaml:"timeoutSecs"`
}

// WebSearchInput is the argument object for the web_search tool.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"Search terms."`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results (default 5)."`
}

// WebSearchTool queries a web search endpoint.
type WebSearchTool struct {
	client *http.Client
	cfg    SearchConfig
}

// NewWebSearchTool creates the web_search tool.
func NewWebSearchTool(cfg SearchConfig) *WebSearchTool {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultSearchResults
	}
	return &WebSearchTool{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
	}
}

// Schema returns the tool definition.
func (t *WebSearchTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "web_search",
		Description: "Search the web and return the top results.",
		Parameters:  GenerateSchema[WebSearchInput](),
	}
}

// Execute runs the search.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var in WebSearchInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if t.cfg.Endpoint == "" {
		return nil, fmt.Errorf("web search is not configured")
	}

	limit := in.MaxResults
	if limit <= 0 || limit > t.cfg.MaxResults {
		limit = t.cfg.MaxResults
	}

	u, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", in.Query)
	q.Set("count", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("search timed out")
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	if gjson.ValidBytes(body) {
		return json.RawMessage(body), nil
	}
	return map[string]any{"query": in.Query, "text": string(body)}, nil
}
