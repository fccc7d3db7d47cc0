package agent

import (
	"context"
	"log/slog"

	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/internal/metrics"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/tools"
)

// ProviderResolver resolves a model id to an adapter for a tenant.
type ProviderResolver interface {
	Resolve(ctx context.Context, tenantID, modelID string) (llm.Provider, error)
}

// RunRequest is one execution request.
type RunRequest struct {
	TenantID string
	Agent    Config
	History  []llm.Message
	Input    string
	// Stream, when set, receives every chunk and selects the streaming
	// loop. The caller closes it after Run returns.
	Stream chan<- llm.StreamChunk
}

// Service composes provider resolution, tool context construction and the
// execution loop.
type Service struct {
	resolver ProviderResolver
	builder  *tools.Builder
	deps     tools.Deps
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithServiceMetrics sets the metrics recorder handed to every agent.
func WithServiceMetrics(m *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a service. deps supplies the executors' collaborators;
// its TenantID is overwritten per request.
func NewService(resolver ProviderResolver, builder *tools.Builder, deps tools.Deps, opts ...ServiceOption) *Service {
	s := &Service{
		resolver: resolver,
		builder:  builder,
		deps:     deps,
		logger:   logging.Named("agent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToolContext resolves the agent's model and returns the tool set it would
// be offered.
func (s *Service) ToolContext(ctx context.Context, tenantID string, cfg Config) (tools.Context, error) {
	provider, err := s.resolver.Resolve(ctx, tenantID, cfg.Model)
	if err != nil {
		return tools.Context{}, err
	}
	return s.builder.Build(ctx, provider.SupportsTools(), cfg.Tools, cfg.Sources)
}

// Run executes one request. Configuration errors surface before any vendor
// call is made.
func (s *Service) Run(ctx context.Context, req RunRequest) (Result, error) {
	provider, err := s.resolver.Resolve(ctx, req.TenantID, req.Agent.Model)
	if err != nil {
		return Result{}, err
	}

	toolCtx, err := s.builder.Build(ctx, provider.SupportsTools(), req.Agent.Tools, req.Agent.Sources)
	if err != nil {
		return Result{}, err
	}

	deps := s.deps
	deps.TenantID = req.TenantID

	a := New(req.Agent, provider, toolCtx, tools.NewDispatcher(deps, s.logger),
		WithLogger(s.logger),
		WithMetrics(s.metrics))

	s.logger.Debug("execution started",
		"agent", req.Agent.Name,
		"tenant", req.TenantID,
		"provider", provider.ProviderType(),
		"tools", len(toolCtx.Schemas),
		"stream", req.Stream != nil)

	if req.Stream != nil {
		return a.ExecuteStream(ctx, req.History, req.Input, req.Stream)
	}
	return a.Execute(ctx, req.History, req.Input)
}
