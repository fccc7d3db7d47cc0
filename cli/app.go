// Application wiring for CLI commands.
//
// Information Hiding:
// - Settings, agent file and storage setup hidden
// - Provider resolution and tool dependency wiring hidden
// - Metrics endpoint lifecycle hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/richinex/relay/agent"
	"github.com/richinex/relay/config"
	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/internal/metrics"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
	"github.com/richinex/relay/storage"
	"github.com/richinex/relay/tools"
)

// DefaultAgentName is used when no agent file selects one.
const DefaultAgentName = "assistant"

// Options holds CLI execution options.
type Options struct {
	Provider   string
	ConfigPath string
	// MCPConfigPath names a JSON mcpServers file whose servers are attached
	// to the selected agent.
	MCPConfigPath string
	AgentName     string
	TenantID      string
	Stream        bool
	MetricsAddr   string
	Verbose       bool
}

// App holds everything a command needs to run agents.
type App struct {
	Settings config.Settings
	Agents   *agent.Collection
	Store    *storage.Store
	Index    *retrieval.Index
	Registry *tools.Registry
	Service  *agent.Service
	Metrics  *metrics.Recorder

	opts    Options
	servers *mcp.Config
	logger  *slog.Logger
	stop    context.CancelFunc
}

// Setup loads settings and the optional agent file, opens storage and
// wires the execution service. Callers must Close the returned App.
func Setup(ctx context.Context, opts Options) (*App, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		settings.Log.Level = "debug"
	}
	if err := logging.Init(settings.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := logging.Named("cli")

	file := &config.File{}
	if opts.ConfigPath != "" {
		if file, err = config.LoadFile(opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(ctx, storage.Config{
		Driver:    settings.Storage.Driver,
		DSN:       settings.Storage.DSN,
		SecretKey: settings.Storage.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &App{
		Settings: settings,
		Store:    store,
		Index:    retrieval.NewIndex(),
		opts:     opts,
		logger:   logger,
	}

	if opts.MCPConfigPath != "" {
		if app.servers, err = mcp.LoadConfig(opts.MCPConfigPath); err != nil {
			app.Close()
			return nil, err
		}
	}

	if err := app.loadSources(file); err != nil {
		app.Close()
		return nil, err
	}

	if app.Metrics, err = metrics.New(nil); err != nil {
		app.Close()
		return nil, err
	}
	if opts.MetricsAddr != "" {
		app.serveMetrics(opts.MetricsAddr)
	}

	if app.Registry, err = tools.WithDefaults(tools.BuiltInOptions{Search: file.Search}); err != nil {
		app.Close()
		return nil, err
	}

	// The configured model must resolve even when no catalog entry names it.
	models := append([]llm.ModelInfo{{
		ID:            settings.LLM.Model,
		Provider:      settings.LLM.Provider,
		SupportsTools: true,
		MaxTokens:     settings.LLM.MaxTokens,
	}}, file.ModelInfos()...)

	resolver := llm.NewResolver(
		llm.StaticCatalog(models...),
		llm.ChainCredentials{store, llm.EnvCredentials{}},
		llm.WithDefaultMaxTokens(settings.LLM.MaxTokens),
		llm.WithDefaultTemperature(settings.LLM.Temperature),
		llm.WithResolverLogger(logging.Named("llm")),
	)

	builder := tools.NewBuilder(app.Registry, tools.WithBuilderLogger(logging.Named("tools")))
	deps := tools.Deps{
		Registry: app.Registry,
		Searcher: app.Index,
		Remote:   tools.DefaultRemoteClientFactory,
	}
	app.Service = agent.NewService(resolver, builder, deps,
		agent.WithServiceLogger(logging.Named("agent")),
		agent.WithServiceMetrics(app.Metrics))

	app.Agents = file.Collection()
	if app.Agents.Len() == 0 {
		app.Agents.Add(defaultAgent(settings))
	}
	return app, nil
}

// defaultAgent offers the built-in tools on the configured model.
func defaultAgent(settings config.Settings) *agent.Builder {
	return agent.NewBuilder(DefaultAgentName).
		Description("General assistant with built-in tools").
		SystemPrompt("You are a helpful assistant. Answer questions clearly and concisely. Use tools when they help.").
		Model(settings.LLM.Model).
		BuiltIn("calculator", "current_datetime").
		MaxRounds(settings.Agent.MaxRounds).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(settings.LLM.Temperature)
}

// loadSources indexes every source that points at local files. Shared
// sources are visible to every tenant.
func (a *App) loadSources(file *config.File) error {
	seen := make(map[string]bool)
	load := func(src retrieval.Source) error {
		if src.Path == "" || seen[src.ID] {
			return nil
		}
		seen[src.ID] = true
		n, err := a.Index.AddPath("", src.ID, src.Path)
		if err != nil {
			return err
		}
		a.logger.Debug("source indexed", "source", src.ID, "path", src.Path, "chunks", n)
		return nil
	}

	for _, src := range file.Sources {
		if err := load(src); err != nil {
			return err
		}
	}
	for _, cfg := range file.Agents {
		for _, src := range cfg.Sources {
			if err := load(src); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *App) serveMetrics(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	go func() {
		if err := a.Metrics.StartServer(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)
}

// Agent returns the selected agent: the named one, the only one, or the
// default agent. Servers from the remote tool config are attached to it.
func (a *App) Agent() (agent.Config, error) {
	name := a.opts.AgentName
	if name == "" {
		if list := a.Agents.List(); len(list) == 1 {
			name = list[0].Name
		} else {
			name = DefaultAgentName
		}
	}
	cfg, ok := a.Agents.Get(name)
	if !ok {
		return agent.Config{}, fmt.Errorf("unknown agent %q (use 'relay agents' to list)", name)
	}
	if a.servers != nil {
		cfg.Tools = append([]tools.Descriptor(nil), cfg.Tools...)
		for _, server := range a.servers.Names() {
			sc := a.servers.MCPServers[server]
			cfg.Tools = append(cfg.Tools, tools.Descriptor{Type: tools.TypeMCP, Name: server, Server: &sc})
		}
	}
	return cfg, nil
}

// Close releases storage, stops the metrics endpoint and flushes logs.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
	_ = logging.Sync()
}
