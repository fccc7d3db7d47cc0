package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
)

// Executor runs one tool call. Failures are returned as errors; turning
// them into model-visible payloads is the caller's job.
type Executor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// RemoteClient is the subset of the remote tool client used here.
type RemoteClient interface {
	ListTools(ctx context.Context) ([]llm.ToolSchema, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// RemoteClientFactory opens a client for a server config.
type RemoteClientFactory func(cfg mcp.ServerConfig) (RemoteClient, error)

// DefaultRemoteClientFactory builds HTTP JSON-RPC clients.
func DefaultRemoteClientFactory(cfg mcp.ServerConfig) (RemoteClient, error) {
	return mcp.NewClient(cfg)
}

// Deps are the collaborators executors draw on.
type Deps struct {
	Registry *Registry
	Searcher retrieval.Searcher
	Remote   RemoteClientFactory
	TenantID string
}

// NewExecutor builds the executor for d. Unknown types and missing
// configuration fail here, before any call is attempted.
func NewExecutor(d Dispatch, deps Deps) (Executor, error) {
	switch d.Type {
	case TypeBuiltIn:
		if deps.Registry == nil {
			return nil, errs.New(errs.CodeToolConfig, "built-in tool registry is not configured")
		}
		return &builtInExecutor{registry: deps.Registry}, nil

	case TypeRetrieval:
		if d.Config.Retrieval == nil {
			return nil, errs.New(errs.CodeToolConfig, "retrieval tool has no source configuration")
		}
		if deps.Searcher == nil {
			return nil, errs.New(errs.CodeToolConfig, "retrieval searcher is not configured")
		}
		return &retrievalExecutor{searcher: deps.Searcher, cfg: *d.Config.Retrieval, tenantID: deps.TenantID}, nil

	case TypeMCP:
		if d.Config.Server == nil || d.Config.Server.URL == "" {
			return nil, errs.New(errs.CodeToolConfig, "remote tool has no server configuration")
		}
		factory := deps.Remote
		if factory == nil {
			factory = DefaultRemoteClientFactory
		}
		client, err := factory(*d.Config.Server)
		if err != nil {
			return nil, errs.Wrap(errs.CodeToolConfig, err, "failed to create remote tool client")
		}
		return &remoteExecutor{
			client: client,
			retry:  RetryPolicy{MaxAttempts: d.Config.Server.Retries + 1},
		}, nil

	case TypeLocal:
		return &localExecutor{cfg: d.Config.Local}, nil

	default:
		return nil, errs.Newf(errs.CodeToolConfig, "unknown tool type %q", d.Type)
	}
}

// Dispatcher routes tool calls to executors.
type Dispatcher struct {
	deps   Deps
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(deps Deps, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Named("dispatch")
	}
	if deps.Remote == nil {
		deps.Remote = DefaultRemoteClientFactory
	}
	return &Dispatcher{deps: deps, logger: logger}
}

// Dispatch executes call using the routing metadata d.
func (r *Dispatcher) Dispatch(ctx context.Context, call llm.ToolCall, d Dispatch) (any, error) {
	exec, err := NewExecutor(d, r.deps)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := exec.Execute(ctx, call.Name, call.Arguments)
	r.logger.Debug("tool executed",
		"tool", call.Name,
		"type", string(d.Type),
		"call_id", call.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", err == nil)
	return result, err
}

type builtInExecutor struct {
	registry *Registry
}

func (e *builtInExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		return nil, errs.Newf(errs.CodeUnknownBuiltInTool, "unknown built-in tool %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultToolTimeout)
	defer cancel()
	return tool.Execute(ctx, args)
}

type localExecutor struct {
	cfg *LocalConfig
}

func (e *localExecutor) Execute(_ context.Context, name string, _ json.RawMessage) (any, error) {
	if e.cfg != nil && e.cfg.Command != "" {
		return nil, errs.Newf(errs.CodeNotImplemented, "local tool %q (%s): local process execution is not implemented", name, e.cfg.Command)
	}
	return nil, errs.Newf(errs.CodeNotImplemented, "local tool %q: local process execution is not implemented", name)
}
