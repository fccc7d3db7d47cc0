package jsonx

import (
	"encoding/json"
	"testing"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"object", `{"a":1}`, true},
		{"padded object", "  {\"a\": [1, 2]}\n", true},
		{"empty object", `{}`, true},
		{"partial", `{"a":`, false},
		{"array", `[1,2]`, false},
		{"scalar", `42`, false},
		{"string", `"x"`, false},
		{"empty", ``, false},
		{"trailing garbage", `{"a":1}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseObject(tt.in)
			if ok != tt.ok {
				t.Errorf("ParseObject(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
		})
	}
}

func TestFinalizeObjectEmptyBuffer(t *testing.T) {
	raw, ok := FinalizeObject("  ")
	if !ok {
		t.Fatal("expected empty buffer to finalize")
	}
	if string(raw) != "{}" {
		t.Errorf("expected {}, got %s", raw)
	}
	if _, ok := FinalizeObject(`{"a"`); ok {
		t.Error("expected partial buffer to stay unparsed")
	}
}

func TestString(t *testing.T) {
	raw := json.RawMessage(`{"query":"refund policy","k":3}`)
	if got := String(raw, "query"); got != "refund policy" {
		t.Errorf("unexpected query %q", got)
	}
	if got := String(raw, "missing"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestMarshal(t *testing.T) {
	got, err := Marshal(map[string]any{"result": 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"result":4}` {
		t.Errorf("unexpected output %s", got)
	}

	raw, err := Marshal(json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != `{"content":[{"type":"text","text":"ok"}]}` {
		t.Errorf("expected raw passthrough, got %s", raw)
	}

	if _, err := Marshal(json.RawMessage(`{bad`)); err == nil {
		t.Error("expected error for invalid raw JSON")
	}
}
