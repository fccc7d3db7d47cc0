package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
)

func TestDispatchBuiltIn(t *testing.T) {
	d := NewDispatcher(Deps{Registry: testRegistry(t)}, logging.Discard())

	result, err := d.Dispatch(context.Background(),
		llm.ToolCall{ID: "c1", Name: "calculator", Arguments: json.RawMessage(`{"expression":"(2 + 3) * 4"}`)},
		Dispatch{Type: TypeBuiltIn})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.(map[string]any)["result"]; got != 20.0 {
		t.Errorf("expected 20, got %v", got)
	}

	_, err = d.Dispatch(context.Background(),
		llm.ToolCall{ID: "c2", Name: "teleport", Arguments: json.RawMessage(`{}`)},
		Dispatch{Type: TypeBuiltIn})
	if !errors.Is(err, ErrUnknownBuiltInTool) {
		t.Errorf("expected ErrUnknownBuiltInTool, got %v", err)
	}
}

func TestDispatchRetrieval(t *testing.T) {
	var gotOpts retrieval.Options
	searcher := retrieval.SearcherFunc(func(_ context.Context, query string, opts retrieval.Options) ([]retrieval.Chunk, error) {
		gotOpts = opts
		if query == "nothing" {
			return nil, nil
		}
		return []retrieval.Chunk{{ID: "1", Content: "Refunds take 5 days.", Similarity: 0.9, SourceID: "faq"}}, nil
	})
	d := NewDispatcher(Deps{Searcher: searcher, TenantID: "t1"}, logging.Discard())
	route := Dispatch{Type: TypeRetrieval, Config: DispatchConfig{Retrieval: &RetrievalConfig{SourceID: "faq", TopK: 3, Threshold: 0.6}}}

	result, err := d.Dispatch(context.Background(),
		llm.ToolCall{Name: "search_faq", Arguments: json.RawMessage(`{"query":"refund"}`)}, route)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := result.(retrieval.Result)
	if r.Query != "refund" || len(r.Results) != 1 || !strings.Contains(r.Text, "Refunds take 5 days.") {
		t.Errorf("unexpected result %+v", r)
	}
	if gotOpts.TopK != 3 || gotOpts.Threshold != 0.6 || gotOpts.TenantID != "t1" || gotOpts.SourceIDs[0] != "faq" {
		t.Errorf("unexpected options %+v", gotOpts)
	}

	result, err = d.Dispatch(context.Background(),
		llm.ToolCall{Name: "search_faq", Arguments: json.RawMessage(`{"query":"nothing"}`)}, route)
	if err != nil {
		t.Fatalf("expected no-results payload, got error %v", err)
	}
	data, _ := json.Marshal(result)
	if string(data) != `{"query":"nothing","results":[],"message":"No relevant results found."}` {
		t.Errorf("unexpected no-results payload %s", data)
	}

	if _, err := d.Dispatch(context.Background(), llm.ToolCall{Name: "search_faq", Arguments: json.RawMessage(`{}`)}, route); err == nil {
		t.Error("expected error for missing query")
	}
}

func TestDispatchRemoteVerbatim(t *testing.T) {
	remote := &fakeRemote{result: json.RawMessage(`{"content":[{"type":"text","text":"42"}]}`)}
	d := NewDispatcher(Deps{Remote: remoteFactory(map[string]*fakeRemote{"http://a": remote})}, logging.Discard())

	result, err := d.Dispatch(context.Background(),
		llm.ToolCall{Name: "answer", Arguments: json.RawMessage(`{}`)},
		Dispatch{Type: TypeMCP, Config: DispatchConfig{Server: &mcp.ServerConfig{URL: "http://a"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := result.(json.RawMessage)
	if !ok || string(raw) != `{"content":[{"type":"text","text":"42"}]}` {
		t.Errorf("expected verbatim result, got %v", result)
	}
}

func TestDispatchRemoteOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{"ok":true}}`)
	}))
	defer srv.Close()

	d := NewDispatcher(Deps{}, logging.Discard())
	result, err := d.Dispatch(context.Background(),
		llm.ToolCall{Name: "ping", Arguments: json.RawMessage(`{}`)},
		Dispatch{Type: TypeMCP, Config: DispatchConfig{Server: &mcp.ServerConfig{URL: srv.URL}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.(json.RawMessage)) != `{"ok":true}` {
		t.Errorf("unexpected result %s", result)
	}
}

func TestDispatchLocalNotImplemented(t *testing.T) {
	d := NewDispatcher(Deps{}, logging.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(context.Background(), llm.ToolCall{Name: "script"}, Dispatch{Type: TypeLocal})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("local execution did not fail fast")
	}
}

func TestLocalExecutorNamesCommand(t *testing.T) {
	exec, err := NewExecutor(Dispatch{Type: TypeLocal, Config: DispatchConfig{Local: &LocalConfig{Command: "./lint.sh"}}}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = exec.Execute(context.Background(), "lint", nil)
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if !strings.Contains(err.Error(), "./lint.sh") {
		t.Errorf("expected command in error, got %q", err)
	}
}

func TestNewExecutorConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		d    Dispatch
		deps Deps
	}{
		{"unknown type", Dispatch{Type: "plugin"}, Deps{}},
		{"retrieval without config", Dispatch{Type: TypeRetrieval}, Deps{Searcher: retrieval.Static(nil)}},
		{"retrieval without searcher", Dispatch{Type: TypeRetrieval, Config: DispatchConfig{Retrieval: &RetrievalConfig{SourceID: "s"}}}, Deps{}},
		{"remote without server", Dispatch{Type: TypeMCP}, Deps{}},
		{"built-in without registry", Dispatch{Type: TypeBuiltIn}, Deps{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExecutor(tt.d, tt.deps); !errors.Is(err, ErrToolConfig) {
				t.Errorf("expected ErrToolConfig, got %v", err)
			}
		})
	}
}
