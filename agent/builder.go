// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"
	"sort"

	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
	"github.com/richinex/relay/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	config Config
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{config: Config{Name: name}}
}

// Description sets the agent's description.
func (b *Builder) Description(description string) *Builder {
	b.config.Description = description
	return b
}

// SystemPrompt sets the agent's system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// Model sets the catalog model id.
func (b *Builder) Model(model string) *Builder {
	b.config.Model = model
	return b
}

// BuiltIn attaches built-in tools by name.
func (b *Builder) BuiltIn(names ...string) *Builder {
	for _, name := range names {
		b.config.Tools = append(b.config.Tools, tools.Descriptor{Type: tools.TypeBuiltIn, Name: name})
	}
	return b
}

// Server attaches every tool of a remote tool server.
func (b *Builder) Server(name string, cfg mcp.ServerConfig) *Builder {
	b.config.Tools = append(b.config.Tools, tools.Descriptor{Type: tools.TypeMCP, Name: name, Server: &cfg})
	return b
}

// Tool attaches a raw descriptor.
func (b *Builder) Tool(d tools.Descriptor) *Builder {
	b.config.Tools = append(b.config.Tools, d)
	return b
}

// Source attaches a retrieval source.
func (b *Builder) Source(src retrieval.Source) *Builder {
	b.config.Sources = append(b.config.Sources, src)
	return b
}

// MaxRounds sets the round limit.
func (b *Builder) MaxRounds(n int) *Builder {
	b.config.MaxRounds = n
	return b
}

// Temperature sets the sampling temperature.
func (b *Builder) Temperature(t float64) *Builder {
	b.config.Temperature = &t
	return b
}

// MaxTokens sets the per-round output limit.
func (b *Builder) MaxTokens(n int) *Builder {
	b.config.MaxTokens = n
	return b
}

// Build creates the agent configuration.
func (b *Builder) Build() Config {
	config := b.config
	config.Tools = append([]tools.Descriptor(nil), b.config.Tools...)
	config.Sources = append([]retrieval.Source(nil), b.config.Sources...)

	if config.Description == "" {
		config.Description = fmt.Sprintf("Agent: %s", config.Name)
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = fmt.Sprintf(
			"You are an agent named %s. Use available tools to complete tasks.",
			config.Name,
		)
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultMaxRounds
	}
	return config
}

// Name returns the builder's agent name.
func (b *Builder) Name() string {
	return b.config.Name
}

// ToolCount returns the number of tool descriptors attached.
func (b *Builder) ToolCount() int {
	return len(b.config.Tools)
}

// Collection manages multiple agent configurations.
type Collection struct {
	configs map[string]Config
}

// NewCollection creates an empty agent collection.
func NewCollection() *Collection {
	return &Collection{
		configs: make(map[string]Config),
	}
}

// Add adds an agent from a builder.
func (c *Collection) Add(builder *Builder) *Collection {
	return c.AddConfig(builder.Build())
}

// AddConfig adds a pre-built config, replacing one with the same name.
func (c *Collection) AddConfig(config Config) *Collection {
	c.configs[config.Name] = config
	return c
}

// Get returns the named agent.
func (c *Collection) Get(name string) (Config, bool) {
	cfg, ok := c.configs[name]
	return cfg, ok
}

// Len returns the number of agents.
func (c *Collection) Len() int {
	return len(c.configs)
}

// AgentInfo describes an agent's basic information.
type AgentInfo struct {
	Name        string
	Description string
	Model       string
}

// List returns agent names and descriptions sorted by name.
func (c *Collection) List() []AgentInfo {
	result := make([]AgentInfo, 0, len(c.configs))
	for _, cfg := range c.configs {
		result = append(result, AgentInfo{
			Name:        cfg.Name,
			Description: cfg.Description,
			Model:       cfg.Model,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
