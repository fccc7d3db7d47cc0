// Package jsonx provides JSON helpers for tool-call arguments.
//
// Models stream tool arguments as text fragments; these helpers decide when
// a buffer has become a complete JSON object and read single fields out of
// argument payloads without a full decode.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseObject reports whether text is a complete, valid JSON object and
// returns it as a raw message. Arrays, scalars and partial text are rejected.
func ParseObject(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, false
	}
	if !gjson.Valid(trimmed) {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

// FinalizeObject is ParseObject for a buffer that will receive no more
// fragments. An empty buffer stands for a call without arguments.
func FinalizeObject(text string) (json.RawMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return json.RawMessage("{}"), true
	}
	return ParseObject(text)
}

// String returns the string field at path, or "" when absent.
func String(raw json.RawMessage, path string) string {
	return gjson.GetBytes(raw, path).String()
}

// Compact removes insignificant whitespace; invalid input is returned as-is.
func Compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// Marshal serialises v for a tool-result message. Raw messages and byte
// slices holding valid JSON pass through verbatim.
func Marshal(v any) (string, error) {
	switch val := v.(type) {
	case json.RawMessage:
		if gjson.ValidBytes(val) {
			return string(val), nil
		}
		return "", fmt.Errorf("invalid raw JSON value")
	case nil:
		return "null", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(data), nil
}
