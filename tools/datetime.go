package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/richinex/relay/llm"
)

// DateTimeInput is the argument object for the current_datetime tool.
type DateTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA time zone such as Europe/Berlin. Defaults to UTC."`
}

// DateTimeTool reports the current date and time.
type DateTimeTool struct {
	now func() time.Time
}

// NewDateTimeTool creates the current_datetime tool.
func NewDateTimeTool() *DateTimeTool {
	return &DateTimeTool{now: time.Now}
}

// Schema returns the tool definition.
func (t *DateTimeTool) Schema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "current_datetime",
		Description: "Get the current date and time, optionally in a given time zone.",
		Parameters:  GenerateSchema[DateTimeInput](),
	}
}

// Execute returns the current time.
func (t *DateTimeTool) Execute(_ context.Context, args json.RawMessage) (any, error) {
	var in DateTimeInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	loc := time.UTC
	if in.Timezone != "" {
		l, err := time.LoadLocation(in.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown time zone %q", in.Timezone)
		}
		loc = l
	}

	now := t.now().In(loc)
	return map[string]any{
		"iso":      now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04:05"),
		"weekday":  now.Weekday().String(),
		"timezone": loc.String(),
		"unix":     now.Unix(),
	}, nil
}
