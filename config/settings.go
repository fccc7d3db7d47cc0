// Package config provides application settings loaded from environment
// variables and from a YAML agent file.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/richinex/relay/agent"
	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
)

// Settings holds all application configuration.
type Settings struct {
	LLM     LLMConfig
	Agent   AgentConfig
	Log     logging.Config
	Storage StorageConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    llm.ProviderType
	Model       string
	MaxTokens   int
	Temperature float64
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxRounds int
}

// StorageConfig selects the conversation and credential database.
type StorageConfig struct {
	Driver string
	DSN    string
	// SecretKey seals stored API keys. Empty disables credential storage.
	SecretKey string
}

// New creates settings for the specified provider, loading values from environment variables.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	if maxTokens <= 0 {
		return Settings{}, fmt.Errorf("invalid value for LLM_MAX_TOKENS: must be positive")
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxRounds, err := getEnvInt("AGENT_MAX_ROUNDS", agent.DefaultMaxRounds)
	if err != nil {
		return Settings{}, err
	}

	logFormat := getEnv("RELAY_LOG_FORMAT", "text")
	if f := strings.ToLower(logFormat); f != "text" && f != "json" {
		return Settings{}, fmt.Errorf("invalid value for RELAY_LOG_FORMAT: %q", logFormat)
	}

	driver := getEnv("RELAY_DB_DRIVER", "sqlite3")
	if driver != "sqlite3" && driver != "mysql" {
		return Settings{}, fmt.Errorf("invalid value for RELAY_DB_DRIVER: %q", driver)
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    pt,
			Model:       ModelFor(pt),
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxRounds: maxRounds,
		},
		Log: logging.Config{
			Level:  getEnv("RELAY_LOG_LEVEL", "info"),
			Format: logFormat,
			File:   logging.FileConfig{Path: os.Getenv("RELAY_LOG_FILE")},
		},
		Storage: StorageConfig{
			Driver:    driver,
			DSN:       getEnv("RELAY_DB_DSN", "relay.db"),
			SecretKey: os.Getenv("RELAY_SECRET_KEY"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider llm.ProviderType) (string, error) {
	env := provider.EnvVar()
	if env == "" {
		return "", fmt.Errorf("provider %s has no API key variable", provider)
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", env)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking <VENDOR>_MODEL first.
func ModelFor(provider llm.ProviderType) string {
	if val := os.Getenv(strings.ToUpper(provider.String()) + "_MODEL"); val != "" {
		return val
	}
	return provider.DefaultModel()
}

// SupportedProviders returns the names of providers with an adapter.
func SupportedProviders() []string {
	var result []string
	for _, m := range llm.DefaultModels() {
		result = append(result, m.Provider.String())
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
