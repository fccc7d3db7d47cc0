// Package agent provides the tool-calling execution loop.
//
// Contains the types reported by an execution.
package agent

import (
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/tools"
)

// State is a step of the execution state machine.
type State string

const (
	StateIdle         State = "idle"
	StateRequesting   State = "requesting"
	StateHasToolCalls State = "has_tool_calls"
	StateExecuting    State = "executing"
	StateFinished     State = "finished"
)

// FinishReasonMaxRounds is reported when the round limit ends the loop.
const FinishReasonMaxRounds = "max_rounds"

// ToolCallRecord contains metrics about one tool invocation.
type ToolCallRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       tools.Type `json:"type"`
	Round      int        `json:"round"`
	DurationMs int64      `json:"duration_ms"`
	Success    bool       `json:"success"`
}

// Result is the outcome of one execution.
type Result struct {
	// Content is the last content produced by the model.
	Content string
	// Messages is the full conversation log, seed messages included.
	Messages []llm.Message
	// Usage is the sum of every round's usage.
	Usage llm.Usage
	// Rounds is the number of provider round trips made.
	Rounds       int
	FinishReason string
	ToolCalls    []ToolCallRecord
	State        State
}

// NewMessages returns the messages appended after the seed conversation.
func (r Result) NewMessages(seed int) []llm.Message {
	if seed >= len(r.Messages) {
		return nil
	}
	return r.Messages[seed:]
}
