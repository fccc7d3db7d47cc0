// Package storage provides conversation storage abstraction.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between SQLite and MySQL without API changes
// - Each storage implementation encapsulates its own data structures and protocols

package storage

import (
	"context"

	"github.com/richinex/relay/llm"
)

// ConversationStorage defines the interface for storing conversation history.
type ConversationStorage interface {
	// Save replaces the conversation history of a session.
	Save(ctx context.Context, sessionID string, history []llm.Message) error

	// Load loads conversation history for a session.
	// Returns empty slice (not nil) if session doesn't exist.
	// Returns error only for storage failures (I/O errors, etc.), not missing sessions.
	Load(ctx context.Context, sessionID string) ([]llm.Message, error)

	// Delete deletes conversation history for a session.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all session IDs, most recently updated first.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists checks if a session exists.
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// Verify Store implements both storage contracts.
var (
	_ ConversationStorage  = (*Store)(nil)
	_ llm.CredentialSource = (*Store)(nil)
)
