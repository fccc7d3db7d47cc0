package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCalculator(t *testing.T) {
	calc := NewCalculatorTool()

	tests := []struct {
		expression string
		want       float64
	}{
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"sqrt(16.0) + pow(2.0, 3.0)", 12},
		{"2 * pi", 2 * 3.141592653589793},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			args, _ := json.Marshal(CalculatorInput{Expression: tt.expression})
			out, err := calc.Execute(context.Background(), args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := out.(map[string]any)["result"].(float64); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	calc := NewCalculatorTool()

	for _, args := range []string{
		`{"expression":""}`,
		`{"expression":"2 +"}`,
		`{"expression":"1 / 0"}`,
		`{"expression":"\"text\""}`,
		`not json`,
	} {
		if _, err := calc.Execute(context.Background(), json.RawMessage(args)); err == nil {
			t.Errorf("expected error for %s", args)
		}
	}
}

func TestDateTime(t *testing.T) {
	fixed := time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)
	tool := &DateTimeTool{now: func() time.Time { return fixed }}

	out, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]any)
	if m["date"] != "2024-03-15" || m["time"] != "22:30:00" || m["weekday"] != "Friday" || m["timezone"] != "UTC" {
		t.Errorf("unexpected result %v", m)
	}
	if m["unix"] != fixed.Unix() {
		t.Errorf("unexpected unix %v", m["unix"])
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"timezone":"Asia/Tokyo"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m := out.(map[string]any); m["date"] != "2024-03-16" || m["timezone"] != "Asia/Tokyo" {
		t.Errorf("unexpected zoned result %v", m)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"timezone":"Mars/Olympus"}`)); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("q") == "plain" {
			fmt.Fprint(w, "just text")
			return
		}
		fmt.Fprintf(w, `{"q":%q,"count":%q}`, q.Get("q"), q.Get("count"))
	}))
	defer srv.Close()

	tool := NewWebSearchTool(SearchConfig{Endpoint: srv.URL, APIKey: "secret", MaxResults: 3})

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"go generics","max_results":10}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw := string(out.(json.RawMessage)); raw != `{"q":"go generics","count":"3"}` {
		t.Errorf("unexpected body %s", raw)
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"query":"plain"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m := out.(map[string]any); m["text"] != "just text" {
		t.Errorf("unexpected wrapped result %v", m)
	}

	unauthorized := NewWebSearchTool(SearchConfig{Endpoint: srv.URL})
	if _, err := unauthorized.Execute(context.Background(), json.RawMessage(`{"query":"x"}`)); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected HTTP 401 error, got %v", err)
	}
}

func TestWebSearchNotConfigured(t *testing.T) {
	tool := NewWebSearchTool(SearchConfig{})
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"x"}`))
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected not configured error, got %v", err)
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[WebSearchInput]()
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema)
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("expected $schema to be stripped")
	}
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["query"]; !ok {
		t.Errorf("expected query property, got %v", props)
	}
}

func TestRegistryDefaults(t *testing.T) {
	reg := testRegistry(t)
	names := reg.Names()
	if len(names) != 3 || names[0] != "calculator" || names[1] != "current_datetime" || names[2] != "web_search" {
		t.Fatalf("unexpected built-ins %v", names)
	}
	if err := reg.Register(NewCalculatorTool()); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
