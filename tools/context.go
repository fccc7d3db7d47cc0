// Tool context construction.
//
// Information Hiding:
// - Remote tool discovery (one tools/list per server) hidden
// - Retrieval source to virtual tool mapping hidden
// - Name deduplication policy hidden

package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/retrieval"
)

// Context is the tool set offered to the model for one request.
type Context struct {
	// Schemas lists tool definitions in registration order.
	Schemas []llm.ToolSchema
	// Dispatch maps each tool name to its routing metadata.
	Dispatch map[string]Dispatch
}

// Empty reports whether no tools are available.
func (c Context) Empty() bool {
	return len(c.Schemas) == 0
}

// Lookup returns the routing metadata for name.
func (c Context) Lookup(name string) (Dispatch, bool) {
	d, ok := c.Dispatch[name]
	return d, ok
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRemoteClientFactory sets how remote servers are contacted.
func WithRemoteClientFactory(f RemoteClientFactory) BuilderOption {
	return func(b *Builder) { b.remote = f }
}

// WithBuilderLogger sets the logger.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// Builder assembles a Context from an agent's attached tools and
// retrieval sources.
type Builder struct {
	registry *Registry
	remote   RemoteClientFactory
	logger   *slog.Logger
}

// NewBuilder creates a builder resolving built-ins from registry.
func NewBuilder(registry *Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		remote:   DefaultRemoteClientFactory,
		logger:   logging.Named("tools"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the tool context. When supportsTools is false the result
// is empty and no remote server is contacted. The first registration of a
// name wins; later ones are dropped. A remote server whose listing fails
// is logged and skipped.
func (b *Builder) Build(ctx context.Context, supportsTools bool, descriptors []Descriptor, sources []retrieval.Source) (Context, error) {
	out := Context{Dispatch: make(map[string]Dispatch)}
	if !supportsTools {
		return out, nil
	}

	register := func(schema llm.ToolSchema, d Dispatch) {
		if _, exists := out.Dispatch[schema.Name]; exists {
			b.logger.Debug("duplicate tool name dropped", "tool", schema.Name, "type", string(d.Type))
			return
		}
		out.Schemas = append(out.Schemas, schema)
		out.Dispatch[schema.Name] = d
	}

	for i, desc := range descriptors {
		switch desc.Type {
		case TypeBuiltIn:
			tool, ok := b.registry.Get(desc.Name)
			if !ok {
				b.logger.Warn("unknown built-in tool skipped", "tool", desc.Name)
				continue
			}
			register(tool.Schema(), Dispatch{Type: TypeBuiltIn})

		case TypeMCP:
			if desc.Server == nil || desc.Server.URL == "" {
				return Context{}, errs.Newf(errs.CodeToolConfig, "tool %d (%s): remote server url is required", i, desc.Name)
			}
			schemas, err := b.listRemote(ctx, desc)
			if err != nil {
				if ctx.Err() != nil {
					return Context{}, ctx.Err()
				}
				b.logger.Warn("remote tool listing failed, skipping server",
					"server", desc.Name,
					"url", desc.Server.URL,
					"error", err)
				continue
			}
			server := *desc.Server
			for _, schema := range schemas {
				register(schema, Dispatch{Type: TypeMCP, Config: DispatchConfig{Server: &server}})
			}

		case TypeLocal:
			if desc.Schema == nil || desc.Schema.Name == "" {
				return Context{}, errs.Newf(errs.CodeToolConfig, "tool %d (%s): local tool needs a schema", i, desc.Name)
			}
			register(*desc.Schema, Dispatch{Type: TypeLocal, Config: DispatchConfig{Local: desc.Local}})

		default:
			return Context{}, errs.Newf(errs.CodeToolConfig, "tool %d (%s): unknown tool type %q", i, desc.Name, desc.Type)
		}
	}

	for _, src := range sources {
		src = src.WithDefaults()
		name := RetrievalToolName(src.Name, src.ID)
		register(queryToolSchema(name, retrievalDescription(src)), Dispatch{
			Type: TypeRetrieval,
			Config: DispatchConfig{Retrieval: &RetrievalConfig{
				SourceID:       src.ID,
				TopK:           src.TopK,
				Threshold:      src.Threshold,
				EmbeddingModel: src.EmbeddingModel,
			}},
		})
	}

	return out, nil
}

func (b *Builder) listRemote(ctx context.Context, desc Descriptor) ([]llm.ToolSchema, error) {
	client, err := b.remote(*desc.Server)
	if err != nil {
		return nil, err
	}
	return client.ListTools(ctx)
}

func retrievalDescription(src retrieval.Source) string {
	label := src.Name
	if label == "" {
		label = src.ID
	}
	if src.Description != "" {
		return fmt.Sprintf("Search the %s knowledge source: %s", label, src.Description)
	}
	return fmt.Sprintf("Search the %s knowledge source for relevant passages.", label)
}
