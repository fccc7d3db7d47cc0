// LLM Provider Factory - Ergonomic builder-first API for creating LLM providers.
//
// Quick Start:
//
//	// Simplest: use defaults, read API key from environment
//	openai, err := llm.ProviderOpenAI.FromEnv()
//	claude, err := llm.ProviderAnthropic.FromEnv()
//
//	// OpenAI-compatible vendors reuse the OpenAI adapter with their own base URL
//	groq, err := llm.ProviderGroq.Model("llama-3.3-70b-versatile").FromEnv()
//
//	// Full configuration
//	custom, err := llm.ProviderAnthropic.
//	    Model(llm.ModelAnthropicClaudeSonnet4).
//	    MaxTokens(8192).
//	    Temperature(0.3).
//	    FromEnv()
//
// Services that resolve providers per tenant use Resolver instead.

package llm

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/richinex/relay/internal/errs"
)

// ProviderType represents known LLM vendors.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider (OpenAI-compatible).
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
	// ProviderGroq is the Groq provider (OpenAI-compatible).
	ProviderGroq
	// ProviderMistral is the Mistral provider (OpenAI-compatible).
	ProviderMistral
	// ProviderOpenRouter is the OpenRouter gateway (OpenAI-compatible).
	ProviderOpenRouter
	// ProviderOllama is a local Ollama server (OpenAI-compatible).
	ProviderOllama
	// ProviderBedrock is recognized but has no adapter.
	ProviderBedrock
	// ProviderCohere is recognized but has no adapter.
	ProviderCohere
	// ProviderVertex is recognized but has no adapter.
	ProviderVertex
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	case ProviderGroq:
		return "groq"
	case ProviderMistral:
		return "mistral"
	case ProviderOpenRouter:
		return "openrouter"
	case ProviderOllama:
		return "ollama"
	case ProviderBedrock:
		return "bedrock"
	case ProviderCohere:
		return "cohere"
	case ProviderVertex:
		return "vertex"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderMistral:
		return "MISTRAL_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderOllama:
		return "OLLAMA_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash2
	case ProviderGroq:
		return "llama-3.3-70b-versatile"
	case ProviderMistral:
		return "mistral-large-latest"
	case ProviderOpenRouter:
		return "openai/gpt-4o"
	case ProviderOllama:
		return "llama3.1"
	default:
		return ""
	}
}

// BaseURL returns the API base URL for OpenAI-compatible vendors, or "" to
// use the SDK default.
func (p ProviderType) BaseURL() string {
	switch p {
	case ProviderDeepSeek:
		return "https://api.deepseek.com/v1"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderMistral:
		return "https://api.mistral.ai/v1"
	case ProviderOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderOllama:
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}

// Implemented reports whether an adapter exists for this vendor.
func (p ProviderType) Implemented() bool {
	switch p {
	case ProviderBedrock, ProviderCohere, ProviderVertex:
		return false
	}
	return p.String() != "unknown"
}

// openAICompatible reports whether the vendor speaks the Chat Completions dialect.
func (p ProviderType) openAICompatible() bool {
	switch p {
	case ProviderOpenAI, ProviderDeepSeek, ProviderGroq, ProviderMistral, ProviderOpenRouter, ProviderOllama:
		return true
	}
	return false
}

// keyOptional reports whether the vendor accepts requests without an API key.
func (p ProviderType) keyOptional() bool {
	return p == ProviderOllama
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "groq":
		return ProviderGroq, nil
	case "mistral":
		return ProviderMistral, nil
	case "openrouter":
		return ProviderOpenRouter, nil
	case "ollama":
		return ProviderOllama, nil
	case "bedrock":
		return ProviderBedrock, nil
	case "cohere":
		return ProviderCohere, nil
	case "vertex":
		return ProviderVertex, nil
	default:
		return 0, errs.Wrap(errs.CodeProviderNotFound, fmt.Errorf("unknown provider: %s", s), "provider not found")
	}
}

// ProviderConfig holds everything needed to construct an adapter.
type ProviderConfig struct {
	Type          ProviderType
	APIKey        string
	BaseURL       string // overrides the vendor default
	Model         string // default model when requests leave it empty
	MaxTokens     int
	Temperature   *float64
	SupportsTools bool
	HTTPClient    *http.Client
}

func (c ProviderConfig) model() string {
	if c.Model != "" {
		return c.Model
	}
	return c.Type.DefaultModel()
}

func (c ProviderConfig) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return c.Type.BaseURL()
}

// NewProvider builds the adapter for cfg.Type.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch {
	case cfg.Type.openAICompatible():
		return NewOpenAIProvider(cfg), nil
	case cfg.Type == ProviderAnthropic:
		return NewAnthropicProvider(cfg), nil
	case cfg.Type == ProviderGemini:
		return NewGeminiProvider(cfg), nil
	case !cfg.Type.Implemented() && cfg.Type.String() != "unknown":
		return nil, errs.Newf(errs.CodeProviderUnsupported, "provider %s is not supported", cfg.Type)
	default:
		return nil, errs.Newf(errs.CodeProviderNotFound, "unknown provider type: %v", cfg.Type)
	}
}

// FromEnv creates a provider with defaults, reading API key from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	cfg ProviderConfig
}

// NewProviderBuilder creates a new builder for the given provider.
// Tool support defaults to on.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		cfg: ProviderConfig{Type: providerType, SupportsTools: true},
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.cfg.Model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens int) *ProviderBuilder {
	b.cfg.MaxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float64) *ProviderBuilder {
	b.cfg.Temperature = &temp
	return b
}

// BaseURL overrides the vendor endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.cfg.BaseURL = url
	return b
}

// Tools sets whether tool schemas are sent with requests.
func (b *ProviderBuilder) Tools(enabled bool) *ProviderBuilder {
	b.cfg.SupportsTools = enabled
	return b
}

// HTTPClient sets the HTTP client used by the vendor SDK.
func (b *ProviderBuilder) HTTPClient(client *http.Client) *ProviderBuilder {
	b.cfg.HTTPClient = client
	return b
}

// FromEnv builds the provider, reading API key from environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.cfg.Type.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" && !b.cfg.Type.keyOptional() {
		return nil, errs.Newf(errs.CodeProviderNotConfigured,
			"%s: %s environment variable not set", b.cfg.Type, envVar)
	}
	return b.APIKey(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	cfg := b.cfg
	cfg.APIKey = key
	return NewProvider(cfg)
}

// Model identifier constants for commonly used models.

// OpenAI model identifiers
const (
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	ModelOpenAIO3Mini    = "o3-mini"
)

// Anthropic model identifiers
const (
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeOpus45  = "claude-opus-4-5-20251101"
)

// DeepSeek model identifiers
const (
	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// Gemini model identifiers
const (
	ModelGeminiFlash2 = "gemini-2.0-flash"
	ModelGeminiPro25  = "gemini-2.5-pro"
)
