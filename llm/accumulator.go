package llm

import (
	"sort"
	"strings"

	"github.com/richinex/relay/internal/jsonx"
)

// pendingCall is one tool call whose arguments are still arriving.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// ToolCallAccumulator rebuilds streamed tool calls from argument fragments.
//
// Vendors stream arguments as text keyed by a per-turn index. The buffer is
// parsed after every fragment and the call is emitted the first time it holds
// a complete JSON object, so each index is emitted at most once regardless of
// how the text was split. A buffer that never parses is dropped.
//
// Not safe for concurrent use; one accumulator serves one stream.
type ToolCallAccumulator struct {
	calls   map[int]*pendingCall
	emitted map[int]bool
}

// NewToolCallAccumulator creates an empty accumulator.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{
		calls:   make(map[int]*pendingCall),
		emitted: make(map[int]bool),
	}
}

// Open records the id and name for index. Empty values never overwrite
// values already seen, since vendors send them only on the first fragment.
func (a *ToolCallAccumulator) Open(index int, id, name string) {
	pc := a.pending(index)
	if id != "" {
		pc.id = id
	}
	if name != "" {
		pc.name = name
	}
}

// Append adds an argument fragment for index and returns the call if the
// buffer has just become a complete JSON object.
func (a *ToolCallAccumulator) Append(index int, fragment string) (ToolCall, bool) {
	if a.emitted[index] {
		return ToolCall{}, false
	}
	pc := a.pending(index)
	pc.args.WriteString(fragment)
	if fragment == "" {
		return ToolCall{}, false
	}
	raw, ok := jsonx.ParseObject(pc.args.String())
	if !ok {
		return ToolCall{}, false
	}
	return a.emit(index, pc, raw)
}

// Finish makes the final parse attempt for index and closes it.
func (a *ToolCallAccumulator) Finish(index int) (ToolCall, bool) {
	if a.emitted[index] {
		return ToolCall{}, false
	}
	pc, ok := a.calls[index]
	if !ok {
		return ToolCall{}, false
	}
	raw, ok := jsonx.FinalizeObject(pc.args.String())
	if !ok {
		a.emitted[index] = true
		delete(a.calls, index)
		return ToolCall{}, false
	}
	return a.emit(index, pc, raw)
}

// Flush finishes every open index in ascending order and returns the calls
// that parsed.
func (a *ToolCallAccumulator) Flush() []ToolCall {
	indices := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var out []ToolCall
	for _, idx := range indices {
		if tc, ok := a.Finish(idx); ok {
			out = append(out, tc)
		}
	}
	return out
}

// Pending returns the number of indices not yet emitted or dropped.
func (a *ToolCallAccumulator) Pending() int {
	return len(a.calls)
}

func (a *ToolCallAccumulator) pending(index int) *pendingCall {
	pc, ok := a.calls[index]
	if !ok {
		pc = &pendingCall{}
		a.calls[index] = pc
	}
	return pc
}

func (a *ToolCallAccumulator) emit(index int, pc *pendingCall, raw []byte) (ToolCall, bool) {
	a.emitted[index] = true
	delete(a.calls, index)
	id := pc.id
	if id == "" {
		id = SynthesizeToolCallID(pc.name, index)
	}
	return ToolCall{ID: id, Name: pc.name, Arguments: raw}, true
}
