// Agent file support.
//
// An agent file declares models, remote tool servers, retrieval sources and
// agents in one YAML document:
//
//	models:
//	  - id: llama3.1
//	    provider: ollama
//	    supportsTools: true
//	mcpServers:
//	  github:
//	    url: https://tools.example.com/rpc
//	    bearerToken: ghp_...
//	sources:
//	  - id: faq
//	    name: Support FAQ
//	search:
//	  endpoint: https://search.example.com/api
//	agents:
//	  - name: support
//	    model: gpt-4o-mini
//	    systemPrompt: You answer support questions.
//	    tools:
//	      - type: builtin
//	        name: calculator
//	      - type: mcp
//	        name: github
//	    sources:
//	      - id: faq

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/richinex/relay/agent"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
	"github.com/richinex/relay/tools"
)

// File is a parsed agent file.
type File struct {
	Models     []ModelEntry                `yaml:"models"`
	MCPServers map[string]mcp.ServerConfig `yaml:"mcpServers"`
	Sources    []retrieval.Source          `yaml:"sources"`
	Search     tools.SearchConfig          `yaml:"search"`
	Agents     []agent.Config              `yaml:"agents"`
}

// ModelEntry adds or overrides a catalog model.
type ModelEntry struct {
	ID            string `yaml:"id"`
	Provider      string `yaml:"provider"`
	SupportsTools bool   `yaml:"supportsTools"`
	MaxTokens     int    `yaml:"maxTokens"`
}

// LoadFile reads and resolves an agent file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes an agent file. Remote tool descriptors that name a server
// without inline settings take them from mcpServers; agent sources that
// carry only an id take the rest from sources.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, server := range f.MCPServers {
		if server.URL == "" {
			return nil, fmt.Errorf("server %q: url is required", name)
		}
	}
	for i, m := range f.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("model %d: id is required", i)
		}
		if _, err := llm.ParseProviderType(m.Provider); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.ID, err)
		}
	}

	sources := make(map[string]retrieval.Source, len(f.Sources))
	for _, src := range f.Sources {
		sources[src.ID] = src
	}

	seen := make(map[string]bool, len(f.Agents))
	for i := range f.Agents {
		a := &f.Agents[i]
		if a.Name == "" {
			return nil, fmt.Errorf("agent %d: name is required", i)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("agent %q: defined more than once", a.Name)
		}
		seen[a.Name] = true

		for j := range a.Tools {
			d := &a.Tools[j]
			if d.Type != tools.TypeMCP || d.Server != nil {
				continue
			}
			server, ok := f.MCPServers[d.Name]
			if !ok {
				return nil, fmt.Errorf("agent %q: unknown server %q", a.Name, d.Name)
			}
			d.Server = &server
		}
		for j, src := range a.Sources {
			if full, ok := sources[src.ID]; ok && src.Name == "" {
				a.Sources[j] = full
			}
		}
	}

	return &f, nil
}

// ModelInfos returns the default models followed by the file's entries.
// Later entries override earlier ones with the same id.
func (f *File) ModelInfos() []llm.ModelInfo {
	models := llm.DefaultModels()
	for _, m := range f.Models {
		pt, _ := llm.ParseProviderType(m.Provider)
		models = append(models, llm.ModelInfo{
			ID:            m.ID,
			Provider:      pt,
			SupportsTools: m.SupportsTools,
			MaxTokens:     m.MaxTokens,
		})
	}
	return models
}

// Catalog returns the default models overlaid with the file's entries.
func (f *File) Catalog() *llm.Catalog {
	return llm.StaticCatalog(f.ModelInfos()...)
}

// Collection returns the file's agents.
func (f *File) Collection() *agent.Collection {
	c := agent.NewCollection()
	for _, cfg := range f.Agents {
		c.AddConfig(cfg)
	}
	return c
}
