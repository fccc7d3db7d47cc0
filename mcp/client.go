// Package mcp provides a remote tool server client.
//
// Remote tool servers speak JSON-RPC 2.0 over HTTP POST. Responses arrive
// either as a single JSON body or as a server-sent-event stream of data
// lines, each holding one envelope; the last envelope wins.
//
// Information Hiding:
// - HTTP transport, auth headers and timeouts hidden
// - JSON-RPC envelope and SSE framing hidden
// - Request ID generation hidden

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client issues JSON-RPC requests to one remote tool server.
// Safe for concurrent use.
type Client struct {
	endpoint string
	headers  map[string]string
	bearer   string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its timeout takes precedence
// over the server config.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// rpcRequest is a JSON-RPC request to a remote tool server.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// rpcResponse is a JSON-RPC response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error envelope returned by the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("remote tool error %d: %s", e.Code, e.Message)
}

// ToolInfo describes a tool available on the remote server. Servers use
// either inputSchema or parameters for the argument schema.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolSchema converts the listing entry to the model-facing schema.
// A missing or unreadable schema becomes an empty object schema.
func (t ToolInfo) ToolSchema() llm.ToolSchema {
	raw := t.InputSchema
	if len(raw) == 0 || string(raw) == "null" {
		raw = t.Parameters
	}

	var params map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &params)
	}
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return llm.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

// toolsListResult is the object form of a tools/list result.
type toolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// NewClient creates a client for the given server.
func NewClient(cfg ServerConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("remote tool server url is required")
	}

	c := &Client{
		endpoint: cfg.URL,
		headers:  cfg.Headers,
		bearer:   cfg.BearerToken,
		http:     &http.Client{Timeout: cfg.Timeout()},
		logger:   logging.Named("mcp"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the server URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListTools returns every tool the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]llm.ToolSchema, error) {
	result, err := c.call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	infos, err := parseToolList(result)
	if err != nil {
		return nil, err
	}

	schemas := make([]llm.ToolSchema, 0, len(infos))
	for _, info := range infos {
		if info.Name == "" {
			continue
		}
		schemas = append(schemas, info.ToolSchema())
	}
	return schemas, nil
}

// CallTool calls a tool and returns its result verbatim.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}
	return c.call(ctx, "tools/call", params)
}

func parseToolList(result json.RawMessage) ([]ToolInfo, error) {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var infos []ToolInfo
		if err := json.Unmarshal(trimmed, &infos); err != nil {
			return nil, fmt.Errorf("failed to parse tools list: %w", err)
		}
		return infos, nil
	}

	var list toolsListResult
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}
	return list.Tools, nil
}

// call sends a JSON-RPC request and returns the result.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	request := rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}

	reqJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if c.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("rpc call",
		"method", method,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, truncate(string(body), 200))
	}

	envelope, err := decodeEnvelope(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, envelope.Error
	}
	if len(envelope.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return envelope.Result, nil
}

// decodeEnvelope reads a single JSON envelope or the last envelope of an
// event stream.
func decodeEnvelope(contentType string, body []byte) (*rpcResponse, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/event-stream" || looksLikeSSE(body) {
		return decodeSSEEnvelope(body)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &envelope, nil
}

func decodeSSEEnvelope(body []byte) (*rpcResponse, error) {
	dec := newSSEDecoder(bytes.NewReader(body))
	var last *rpcResponse
	for {
		data, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event stream: %w", err)
		}

		var envelope rpcResponse
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}
		if envelope.Result == nil && envelope.Error == nil {
			continue
		}
		last = &envelope
	}
	if last == nil {
		return nil, errors.New("event stream contained no response envelope")
	}
	return last, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
