// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion, including streamed tool calls
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide vendor wire formats while exposing
// a consistent interface for chat completions.
type Provider interface {
	// ChatCompletion sends one request and returns the complete turn.
	ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatCompletionStream streams one turn, sending chunks to the provided channel
	// as they are read. Tool calls are sent once, complete. The final chunk has Done set.
	// The caller owns the channel and closes it after the call returns.
	// Returns token usage when the vendor reports it.
	ChatCompletionStream(ctx context.Context, req ChatRequest, chunks chan<- StreamChunk) (*Usage, error)

	// SupportsTools reports whether tool schemas may be attached to requests.
	SupportsTools() bool

	// ProviderType returns the vendor name (for logging/debugging).
	ProviderType() string
}

// send delivers a chunk unless the context is cancelled first.
func send(ctx context.Context, chunks chan<- StreamChunk, chunk StreamChunk) error {
	select {
	case chunks <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
