// Agent configuration types.
//
// Information Hiding:
// - Configuration validation logic hidden
// - Default values hidden

package agent

import (
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/retrieval"
	"github.com/richinex/relay/tools"
)

// DefaultMaxRounds bounds the provider round trips of one execution.
const DefaultMaxRounds = 5

// Config holds agent configuration.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string `yaml:"name"`

	// Description explains what this agent does.
	Description string `yaml:"description,omitempty"`

	// SystemPrompt guides the agent's behavior.
	SystemPrompt string `yaml:"systemPrompt"`

	// Model is the catalog model id the agent runs on.
	Model string `yaml:"model"`

	// Tools attached to this agent.
	Tools []tools.Descriptor `yaml:"tools,omitempty"`

	// Sources are retrieval sources exposed as search tools.
	Sources []retrieval.Source `yaml:"sources,omitempty"`

	// MaxRounds bounds the loop; zero means DefaultMaxRounds.
	MaxRounds int `yaml:"maxRounds,omitempty"`

	Temperature *float64       `yaml:"temperature,omitempty"`
	MaxTokens   int            `yaml:"maxTokens,omitempty"`
	ToolChoice  llm.ToolChoice `yaml:"toolChoice,omitempty"`
}

// DefaultConfig returns a basic agent configuration.
func DefaultConfig() Config {
	return Config{
		Name:         "assistant",
		Description:  "A general-purpose assistant",
		SystemPrompt: "You are a helpful assistant.",
		Model:        llm.ModelOpenAIGPT4oMini,
		MaxRounds:    DefaultMaxRounds,
	}
}

// HasTools returns true if the agent has tools or retrieval sources attached.
func (c *Config) HasTools() bool {
	return len(c.Tools) > 0 || len(c.Sources) > 0
}

// Rounds returns the effective round limit.
func (c *Config) Rounds() int {
	if c.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return c.MaxRounds
}
