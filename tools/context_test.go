package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
	"github.com/richinex/relay/retrieval"
)

type fakeRemote struct {
	tools   []llm.ToolSchema
	listErr error
	result  json.RawMessage
	callErr error
	calls   int
	lists   int
}

func (f *fakeRemote) ListTools(context.Context) ([]llm.ToolSchema, error) {
	f.lists++
	return f.tools, f.listErr
}

func (f *fakeRemote) CallTool(_ context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.result, nil
}

func remoteFactory(servers map[string]*fakeRemote) RemoteClientFactory {
	return func(cfg mcp.ServerConfig) (RemoteClient, error) {
		r, ok := servers[cfg.URL]
		if !ok {
			return nil, errors.New("no such server")
		}
		return r, nil
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := WithDefaults(BuiltInOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return reg
}

func schemaNames(schemas []llm.ToolSchema) []string {
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	return names
}

func TestBuildFirstRegistrationWins(t *testing.T) {
	servers := map[string]*fakeRemote{
		"http://a": {tools: []llm.ToolSchema{
			{Name: "calculator", Description: "remote calculator"},
			{Name: "get_issue"},
		}},
		"http://b": {tools: []llm.ToolSchema{{Name: "get_issue", Description: "second"}}},
	}
	b := NewBuilder(testRegistry(t),
		WithRemoteClientFactory(remoteFactory(servers)),
		WithBuilderLogger(logging.Discard()))

	tc, err := b.Build(context.Background(), true, []Descriptor{
		{Type: TypeBuiltIn, Name: "calculator"},
		{Type: TypeMCP, Name: "a", Server: &mcp.ServerConfig{URL: "http://a"}},
		{Type: TypeMCP, Name: "b", Server: &mcp.ServerConfig{URL: "http://b"}},
		{Type: TypeBuiltIn, Name: "calculator"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := schemaNames(tc.Schemas)
	if len(names) != 2 || names[0] != "calculator" || names[1] != "get_issue" {
		t.Fatalf("unexpected tools %v", names)
	}
	if d, _ := tc.Lookup("calculator"); d.Type != TypeBuiltIn {
		t.Errorf("expected built-in calculator to win, got %+v", d)
	}
	d, _ := tc.Lookup("get_issue")
	if d.Type != TypeMCP || d.Config.Server.URL != "http://a" {
		t.Errorf("expected first server to win, got %+v", d)
	}
	if len(tc.Dispatch) != len(tc.Schemas) {
		t.Errorf("schemas and dispatch out of sync: %d vs %d", len(tc.Schemas), len(tc.Dispatch))
	}
}

func TestBuildRetrievalToolName(t *testing.T) {
	b := NewBuilder(testRegistry(t), WithBuilderLogger(logging.Discard()))
	tc, err := b.Build(context.Background(), true, nil, []retrieval.Source{
		{ID: "abc-123", Name: "My FAQ!"},
		{ID: "Docs.V2", Name: "!!!"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := schemaNames(tc.Schemas)
	if len(names) != 2 || names[0] != "search_my_faq_abc-123" || names[1] != "search_docs_v2" {
		t.Fatalf("unexpected names %v", names)
	}

	d, _ := tc.Lookup("search_my_faq_abc-123")
	if d.Type != TypeRetrieval || d.Config.Retrieval.SourceID != "abc-123" {
		t.Fatalf("unexpected dispatch %+v", d)
	}
	if d.Config.Retrieval.TopK != retrieval.DefaultTopK || d.Config.Retrieval.Threshold != retrieval.DefaultThreshold {
		t.Errorf("expected default limits, got %+v", d.Config.Retrieval)
	}
	if req, _ := tc.Schemas[0].Parameters["required"].([]any); len(req) != 1 || req[0] != "query" {
		t.Errorf("expected query to be required, got %v", tc.Schemas[0].Parameters)
	}
}

func TestBuildSkipsFailedListing(t *testing.T) {
	servers := map[string]*fakeRemote{
		"http://down": {listErr: errors.New("connection refused")},
		"http://up":   {tools: []llm.ToolSchema{{Name: "ping"}}},
	}
	b := NewBuilder(testRegistry(t),
		WithRemoteClientFactory(remoteFactory(servers)),
		WithBuilderLogger(logging.Discard()))

	tc, err := b.Build(context.Background(), true, []Descriptor{
		{Type: TypeMCP, Name: "down", Server: &mcp.ServerConfig{URL: "http://down"}},
		{Type: TypeMCP, Name: "up", Server: &mcp.ServerConfig{URL: "http://up"}},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names := schemaNames(tc.Schemas); len(names) != 1 || names[0] != "ping" {
		t.Errorf("unexpected tools %v", names)
	}
}

func TestBuildWithoutToolSupport(t *testing.T) {
	remote := &fakeRemote{tools: []llm.ToolSchema{{Name: "ping"}}}
	b := NewBuilder(testRegistry(t),
		WithRemoteClientFactory(remoteFactory(map[string]*fakeRemote{"http://a": remote})),
		WithBuilderLogger(logging.Discard()))

	tc, err := b.Build(context.Background(), false, []Descriptor{
		{Type: TypeBuiltIn, Name: "calculator"},
		{Type: TypeMCP, Server: &mcp.ServerConfig{URL: "http://a"}},
	}, []retrieval.Source{{ID: "s"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tc.Empty() || len(tc.Dispatch) != 0 {
		t.Errorf("expected empty context, got %+v", tc)
	}
	if remote.lists != 0 {
		t.Error("expected no remote listing for a model without tool support")
	}
}

func TestBuildRejectsBadDescriptors(t *testing.T) {
	b := NewBuilder(testRegistry(t), WithBuilderLogger(logging.Discard()))

	tests := []struct {
		name string
		desc Descriptor
	}{
		{"unknown type", Descriptor{Type: "plugin", Name: "x"}},
		{"remote without server", Descriptor{Type: TypeMCP, Name: "x"}},
		{"local without schema", Descriptor{Type: TypeLocal, Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), true, []Descriptor{tt.desc}, nil)
			if !errors.Is(err, ErrToolConfig) {
				t.Errorf("expected ErrToolConfig, got %v", err)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My FAQ!", "my_faq"},
		{"abc-123", "abc-123"},
		{"  Spaces   and__under ", "spaces_and_under"},
		{"a---b", "a-b"},
		{"--x--", "x"},
		{"Ünïcode Docs", "n_code_docs"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
