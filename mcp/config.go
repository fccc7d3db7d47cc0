// Remote tool server configuration file support.
//
// Uses the familiar mcpServers layout, keyed by server name, with HTTP
// endpoints instead of commands:
//
//	{
//	  "mcpServers": {
//	    "github": {
//	      "url": "https://tools.example.com/rpc",
//	      "bearerToken": "ghp_...",
//	      "headers": {"X-Org": "acme"}
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Config represents the remote server configuration file format.
type Config struct {
	MCPServers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ServerConfig represents a single remote tool server.
type ServerConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BearerToken    string            `json:"bearerToken,omitempty" yaml:"bearerToken,omitempty"`
	TimeoutSeconds int               `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
	// Retries is the number of extra attempts for tools/call.
	Retries int `json:"retries,omitempty" yaml:"retries,omitempty"`
}

// Timeout returns the configured request timeout, or the default.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// LoadConfig loads remote server configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, server := range config.MCPServers {
		if server.URL == "" {
			return nil, fmt.Errorf("server %q: url is required", name)
		}
	}

	return &config, nil
}

// Names returns the configured server names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
