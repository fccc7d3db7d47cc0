package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/llm"
)

func newTestStore(t *testing.T, secret string) *Store {
	t.Helper()
	store, err := NewSqliteInMemory(secret)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveAndLoad(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	messages := []llm.Message{
		llm.SystemMessage("be brief"),
		llm.UserMessage("what is 2+2?"),
		llm.AssistantToolCallMessage("", []llm.ToolCall{
			{ID: "call_1", Name: "calculator", Arguments: json.RawMessage(`{"expression":"2+2"}`)},
		}),
		llm.ToolResultMessage("call_1", "calculator", `{"result":4}`),
		llm.AssistantMessage("4"),
	}

	if err := store.Save(ctx, "test-session", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != len(messages) {
		t.Fatalf("expected %d messages, got %d", len(messages), len(loaded))
	}
	for i := range messages {
		if loaded[i].Role != messages[i].Role || loaded[i].Content != messages[i].Content {
			t.Errorf("message %d: got %+v, want %+v", i, loaded[i], messages[i])
		}
	}

	calls := loaded[2].ToolCalls
	if len(calls) != 1 || calls[0].ID != "call_1" || calls[0].Name != "calculator" {
		t.Fatalf("tool calls not restored: %+v", calls)
	}
	if string(calls[0].Arguments) != `{"expression":"2+2"}` {
		t.Errorf("arguments = %s", calls[0].Arguments)
	}
	if loaded[3].ToolCallID != "call_1" || loaded[3].Name != "calculator" {
		t.Errorf("tool result metadata lost: %+v", loaded[3])
	}
	if err := llm.ValidateConversation(loaded); err != nil {
		t.Errorf("restored history invalid: %v", err)
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	if err := store.Save(ctx, "s", []llm.Message{llm.UserMessage("a"), llm.AssistantMessage("b")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, "s", []llm.Message{llm.UserMessage("c")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Content != "c" {
		t.Fatalf("expected replaced history, got %+v", loaded)
	}
}

func TestStoreAppend(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	if err := store.Append(ctx, "s", llm.UserMessage("hi")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, "s", llm.AssistantMessage("hello"), llm.UserMessage("bye")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, _ := store.Load(ctx, "s")
	if len(loaded) != 3 || loaded[2].Content != "bye" {
		t.Fatalf("unexpected history: %+v", loaded)
	}
}

func TestStoreLoadNonexistentSession(t *testing.T) {
	store := newTestStore(t, "")

	loaded, err := store.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", loaded)
	}
}

func TestStoreDeleteAndExists(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	if err := store.Save(ctx, "s", []llm.Message{llm.UserMessage("x")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err := store.Exists(ctx, "s")
	if err != nil || !exists {
		t.Fatalf("expected session to exist, got %v, %v", exists, err)
	}

	if err := store.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err = store.Exists(ctx, "s")
	if err != nil || exists {
		t.Fatalf("expected session to be gone, got %v, %v", exists, err)
	}
	loaded, _ := store.Load(ctx, "s")
	if len(loaded) != 0 {
		t.Errorf("messages survived delete: %+v", loaded)
	}
}

func TestStoreListSessions(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	id, err := store.NewSession(ctx, "acme")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := store.Save(ctx, "other", []llm.Message{llm.UserMessage("x")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %v", sessions)
	}
	found := false
	for _, s := range sessions {
		if s == id {
			found = true
		}
	}
	if !found {
		t.Errorf("new session %s not listed in %v", id, sessions)
	}
}

func TestStoreFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relay.db")
	ctx := context.Background()

	store, err := Open(ctx, Config{Driver: "sqlite3", DSN: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Save(ctx, "s", []llm.Message{llm.UserMessage("persisted")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	store.Close()

	reopened, err := Open(ctx, Config{Driver: "sqlite3", DSN: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Content != "persisted" {
		t.Fatalf("unexpected history after reopen: %+v", loaded)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{Driver: "postgres", DSN: "x"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := Open(ctx, Config{Driver: "mysql", DSN: "not a dsn"}); err == nil {
		t.Error("expected error for malformed mysql dsn")
	}
	if _, err := Open(ctx, Config{Driver: "sqlite3"}); err == nil {
		t.Error("expected error for empty sqlite path")
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	store := newTestStore(t, "test-secret")
	ctx := context.Background()

	cred := llm.Credential{APIKey: "sk-tenant", BaseURL: "https://proxy.example", Active: true}
	if err := store.PutCredential(ctx, "acme", llm.ProviderOpenAI, cred); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}

	got, err := store.Credential(ctx, "acme", llm.ProviderOpenAI)
	if err != nil {
		t.Fatalf("Credential failed: %v", err)
	}
	if got != cred {
		t.Errorf("got %+v, want %+v", got, cred)
	}

	// Upsert replaces the key.
	cred.APIKey = "sk-rotated"
	if err := store.PutCredential(ctx, "acme", llm.ProviderOpenAI, cred); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}
	got, _ = store.Credential(ctx, "acme", llm.ProviderOpenAI)
	if got.APIKey != "sk-rotated" {
		t.Errorf("expected rotated key, got %q", got.APIKey)
	}

	if err := store.SetCredentialActive(ctx, "acme", llm.ProviderOpenAI, false); err != nil {
		t.Fatalf("SetCredentialActive failed: %v", err)
	}
	got, _ = store.Credential(ctx, "acme", llm.ProviderOpenAI)
	if got.Active {
		t.Error("expected inactive credential")
	}
}

func TestCredentialKeySealed(t *testing.T) {
	store := newTestStore(t, "test-secret")
	ctx := context.Background()

	if err := store.PutCredential(ctx, "acme", llm.ProviderAnthropic, llm.Credential{APIKey: "sk-plain", Active: true}); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}

	var stored string
	if err := store.db.QueryRowContext(ctx, "SELECT api_key FROM credentials").Scan(&stored); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if stored == "sk-plain" {
		t.Fatal("api key stored in plaintext")
	}

	other, err := newSealer("another-secret")
	if err != nil {
		t.Fatalf("newSealer failed: %v", err)
	}
	if _, err := other.open(stored); err == nil {
		t.Error("expected open with wrong key to fail")
	}
}

func TestCredentialMissing(t *testing.T) {
	store := newTestStore(t, "test-secret")
	ctx := context.Background()

	_, err := store.Credential(ctx, "acme", llm.ProviderGemini)
	if errs.CodeOf(err) != errs.CodeProviderNotConfigured {
		t.Fatalf("expected provider not configured, got %v", err)
	}
	if err := store.SetCredentialActive(ctx, "acme", llm.ProviderGemini, true); errs.CodeOf(err) != errs.CodeProviderNotConfigured {
		t.Fatalf("expected provider not configured, got %v", err)
	}
}

func TestCredentialChainFallsThrough(t *testing.T) {
	store := newTestStore(t, "test-secret")
	ctx := context.Background()

	env := llm.EnvCredentials{Getenv: func(key string) string {
		if key == "OPENAI_API_KEY" {
			return "sk-env"
		}
		return ""
	}}
	chain := llm.ChainCredentials{store, env}

	got, err := chain.Credential(ctx, "acme", llm.ProviderOpenAI)
	if err != nil {
		t.Fatalf("chain failed: %v", err)
	}
	if got.APIKey != "sk-env" {
		t.Errorf("expected env fallback, got %q", got.APIKey)
	}

	if err := store.PutCredential(ctx, "acme", llm.ProviderOpenAI, llm.Credential{APIKey: "sk-db", Active: true}); err != nil {
		t.Fatalf("PutCredential failed: %v", err)
	}
	got, _ = chain.Credential(ctx, "acme", llm.ProviderOpenAI)
	if got.APIKey != "sk-db" {
		t.Errorf("expected stored credential first, got %q", got.APIKey)
	}
}

func TestPutCredentialRequiresSecret(t *testing.T) {
	store := newTestStore(t, "")
	err := store.PutCredential(context.Background(), "acme", llm.ProviderOpenAI, llm.Credential{APIKey: "k"})
	if err == nil {
		t.Fatal("expected error without secret key")
	}
}
