// Package storage provides SQL conversation and credential storage.
//
// Information Hiding:
// - Connection management hidden behind Store
// - Schema and dialect details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/relay/llm"
)

// Config selects and tunes the database.
type Config struct {
	// Driver is "sqlite3" (default) or "mysql".
	Driver string
	// DSN is a file path for sqlite3 or a go-sql-driver DSN for mysql.
	DSN string
	// SecretKey seals stored API keys. Credential writes fail without it.
	SecretKey string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements ConversationStorage and llm.CredentialSource on
// database/sql. Thread-safe: sql.DB handles connection pooling and
// concurrent access.
type Store struct {
	db      *sql.DB
	dialect dialect
	sealer  *sealer
	now     func() time.Time
}

// Open opens or creates the database and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := prepareDSN(d, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}

	switch {
	case d.name == "sqlite3" && strings.Contains(dsn, ":memory:"):
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	case d.name == "mysql":
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else if d.name == "mysql" {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.name, err)
	}

	store := &Store{db: db, dialect: d, now: time.Now}
	if cfg.SecretKey != "" {
		if store.sealer, err = newSealer(cfg.SecretKey); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := store.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(secretKey string) (*Store, error) {
	return Open(context.Background(), Config{Driver: "sqlite3", DSN: ":memory:", SecretKey: secretKey})
}

// prepareDSN creates the parent directory of a sqlite file and validates a
// mysql DSN.
func prepareDSN(d dialect, dsn string) (string, error) {
	switch d.name {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid MySQL DSN: %w", err)
		}
		return cfg.FormatDSN(), nil
	default:
		if dsn == "" {
			return "", fmt.Errorf("sqlite database path is empty")
		}
		if dsn == ":memory:" {
			return "file::memory:?_foreign_keys=on", nil
		}
		path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_foreign_keys=on"
		}
		return dsn, nil
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// NewSession creates an empty session for tenantID and returns its id.
func (s *Store) NewSession(ctx context.Context, tenantID string) (string, error) {
	id := uuid.NewString()
	if err := s.ensureSession(ctx, s.db, id, tenantID); err != nil {
		return "", err
	}
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) ensureSession(ctx context.Context, db execer, sessionID, tenantID string) error {
	now := s.now().Unix()
	if _, err := db.ExecContext(ctx, s.dialect.ensureSession, sessionID, tenantID, now, now); err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// Save saves conversation history for a session.
func (s *Store) Save(ctx context.Context, sessionID string, history []llm.Message) error {
	// Start transaction
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	if err := s.ensureSession(ctx, tx, sessionID, ""); err != nil {
		return err
	}

	// Clear existing messages for this session
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, message_index, role, content, name, tool_call_id, tool_calls)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		var toolCalls any
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls: %w", err)
			}
			toolCalls = string(data)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, i, msg.Role, msg.Content, msg.Name, msg.ToolCallID, toolCalls); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	// Update session timestamp
	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE session_id = ?",
		s.now().Unix(), sessionID); err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Append adds messages to the end of a session's history.
func (s *Store) Append(ctx context.Context, sessionID string, messages ...llm.Message) error {
	history, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Save(ctx, sessionID, append(history, messages...))
}

// Load loads conversation history for a session.
// Returns empty slice if session doesn't exist.
func (s *Store) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, name, tool_call_id, tool_calls
		FROM messages WHERE session_id = ? ORDER BY message_index ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []llm.Message{} // Start with empty slice, not nil
	for rows.Next() {
		var msg llm.Message
		var toolCalls sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Name, &msg.ToolCallID, &toolCalls); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("invalid tool calls in database: %w", err)
			}
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Delete deletes conversation history for a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return tx.Commit()
}

// ListSessions lists all session IDs.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM sessions ORDER BY updated_at DESC, session_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{} // Start with empty slice, not nil
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// Exists checks if a session exists.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE session_id = ?",
		sessionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return count > 0, nil
}
