package llm

import (
	"encoding/json"
	"testing"
)

func TestAccumulatorEmitsOnceForEverySplit(t *testing.T) {
	args := `{"expression": "2 + 2", "note": "a {brace} inside"}`

	// Every two- and three-way split of the argument text.
	for i := 0; i <= len(args); i++ {
		for j := i; j <= len(args); j++ {
			fragments := []string{args[:i], args[i:j], args[j:]}

			acc := NewToolCallAccumulator()
			acc.Open(0, "call_abc", "calculator")

			var emitted []ToolCall
			for _, f := range fragments {
				if tc, ok := acc.Append(0, f); ok {
					emitted = append(emitted, tc)
				}
			}
			emitted = append(emitted, acc.Flush()...)

			if len(emitted) != 1 {
				t.Fatalf("split (%d,%d): expected 1 emission, got %d", i, j, len(emitted))
			}
			if string(emitted[0].Arguments) != args {
				t.Fatalf("split (%d,%d): unexpected arguments %s", i, j, emitted[0].Arguments)
			}
			if emitted[0].ID != "call_abc" || emitted[0].Name != "calculator" {
				t.Fatalf("split (%d,%d): unexpected call %+v", i, j, emitted[0])
			}
		}
	}
}

func TestAccumulatorIgnoresFragmentsAfterEmission(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Open(0, "id", "f")
	if _, ok := acc.Append(0, `{"a":1}`); !ok {
		t.Fatal("expected emission")
	}
	if _, ok := acc.Append(0, `{"b":2}`); ok {
		t.Error("expected no second emission")
	}
	if _, ok := acc.Finish(0); ok {
		t.Error("expected Finish after emission to be a no-op")
	}
	if got := acc.Flush(); len(got) != 0 {
		t.Errorf("expected empty flush, got %v", got)
	}
}

func TestAccumulatorDropsUnparseableBuffer(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Open(0, "id", "f")
	acc.Append(0, `{"a": `)
	if _, ok := acc.Finish(0); ok {
		t.Fatal("expected partial JSON to be dropped")
	}
	if acc.Pending() != 0 {
		t.Errorf("expected no pending calls, got %d", acc.Pending())
	}
}

func TestAccumulatorEmptyBufferIsEmptyObject(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Open(3, "", "current_datetime")
	tc, ok := acc.Finish(3)
	if !ok {
		t.Fatal("expected call without arguments to be emitted")
	}
	if string(tc.Arguments) != "{}" {
		t.Errorf("expected {}, got %s", tc.Arguments)
	}
	if tc.ID != "call_3_current_datetime" {
		t.Errorf("unexpected synthesized id %q", tc.ID)
	}
}

func TestAccumulatorFlushOrdersByIndex(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Open(2, "c", "third")
	acc.Open(0, "a", "first")
	acc.Open(1, "b", "second")
	acc.Append(2, `{"x":`)
	acc.Append(2, `3}`) // emitted immediately
	acc.Append(0, `{"x":1`)
	acc.Append(1, `{"x":2`)

	got := acc.Flush()
	// Indices 0 and 1 never closed their braces.
	if len(got) != 0 {
		t.Fatalf("expected nothing parseable, got %v", got)
	}

	acc = NewToolCallAccumulator()
	acc.Open(1, "b", "second")
	acc.Open(0, "a", "first")
	got = acc.Flush()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected flush order: %+v", got)
	}
}

func TestAccumulatorOpenKeepsFirstIdentity(t *testing.T) {
	acc := NewToolCallAccumulator()
	acc.Open(0, "call_1", "search")
	acc.Open(0, "", "")
	tc, ok := acc.Append(0, `{"q":"x"}`)
	if !ok {
		t.Fatal("expected emission")
	}
	var args map[string]string
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.ID != "call_1" || tc.Name != "search" || args["q"] != "x" {
		t.Errorf("unexpected call %+v", tc)
	}
}
