package llm

import (
	"github.com/richinex/relay/internal/errs"
)

// ErrInvalidConversation is returned when a message list breaks the
// tool-call pairing rules. Compare with errors.Is.
var ErrInvalidConversation = errs.New(errs.CodeInvalidConversation, "invalid conversation")

// ValidateConversation checks the ordering invariants every adapter relies on:
// roles are known, and each tool message answers a call id emitted by an
// earlier assistant message in the same list.
func ValidateConversation(messages []Message) error {
	emitted := make(map[string]bool)

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser:
		case RoleAssistant:
			for _, tc := range msg.ToolCalls {
				if tc.ID == "" {
					return errs.Newf(errs.CodeInvalidConversation,
						"message %d: assistant tool call %q has no id", i, tc.Name)
				}
				emitted[tc.ID] = true
			}
		case RoleTool:
			if msg.ToolCallID == "" {
				return errs.Newf(errs.CodeInvalidConversation,
					"message %d: tool message has no tool_call_id", i)
			}
			if !emitted[msg.ToolCallID] {
				return errs.Newf(errs.CodeInvalidConversation,
					"message %d: tool_call_id %q does not match any preceding assistant tool call", i, msg.ToolCallID)
			}
		default:
			return errs.Newf(errs.CodeInvalidConversation, "message %d: unknown role %q", i, msg.Role)
		}
	}
	return nil
}
