// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - System prompt side channel and tool_result blocks
// - Streaming via official SDK, with input_json deltas reassembled per block

package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/richinex/relay/internal/jsonx"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client        anthropic.Client
	model         string
	maxTokens     int64
	temperature   *float64
	supportsTools bool
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg ProviderConfig) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if baseURL := cfg.baseURL(); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicProvider{
		client:        anthropic.NewClient(opts...),
		model:         cfg.model(),
		maxTokens:     maxTokens,
		temperature:   cfg.Temperature,
		supportsTools: cfg.SupportsTools,
	}
}

// ProviderType returns the vendor name.
func (p *AnthropicProvider) ProviderType() string {
	return ProviderAnthropic.String()
}

// SupportsTools reports whether tool schemas are sent with requests.
func (p *AnthropicProvider) SupportsTools() bool {
	return p.supportsTools
}

// ChatCompletion sends a chat completion request.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	message, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return ChatResponse{}, providerError(p.ProviderType(), err, "chat completion")
	}

	out := ChatResponse{
		FinishReason: string(message.StopReason),
		Usage: Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Content += variant.Text
		case anthropic.ToolUseBlock:
			inputJSON, err := json.Marshal(variant.Input)
			if err != nil {
				continue
			}
			args, ok := jsonx.FinalizeObject(string(inputJSON))
			if !ok {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}
	out.ToolCalls = NormalizeToolCalls(out.ToolCalls)
	return out, nil
}

// ChatCompletionStream streams a chat completion.
func (p *AnthropicProvider) ChatCompletionStream(ctx context.Context, req ChatRequest, chunks chan<- StreamChunk) (*Usage, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))
	defer stream.Close()

	state := newAnthropicStreamState()
	for stream.Next() {
		var out []StreamChunk

		switch event := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			state.messageStart(int(event.Message.Usage.InputTokens))
		case anthropic.ContentBlockStartEvent:
			block := event.ContentBlock
			state.blockStart(int(event.Index), block.Type, block.ID, block.Name)
		case anthropic.ContentBlockDeltaEvent:
			switch delta := event.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				out = state.text(delta.Text)
			case anthropic.InputJSONDelta:
				out = state.inputJSON(int(event.Index), delta.PartialJSON)
			}
		case anthropic.ContentBlockStopEvent:
			out = state.blockStop(int(event.Index))
		case anthropic.MessageDeltaEvent:
			state.messageDelta(int(event.Usage.OutputTokens), string(event.Delta.StopReason))
		case anthropic.MessageStopEvent:
			out = state.messageStop()
		}

		for _, chunk := range out {
			if err := send(ctx, chunks, chunk); err != nil {
				return state.result(), err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return state.result(), providerError(p.ProviderType(), err, "stream")
	}

	for _, chunk := range state.messageStop() {
		if err := send(ctx, chunks, chunk); err != nil {
			return state.result(), err
		}
	}
	return state.result(), nil
}

func (p *AnthropicProvider) buildParams(req ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	messages, systemPrompt := convertToAnthropicMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}
	if t := firstFloat(req.Temperature, p.temperature); t != nil {
		params.Temperature = anthropic.Float(*t)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if p.supportsTools && len(req.Tools) > 0 {
		params.Tools = convertToAnthropicTools(req.Tools)
		if choice, ok := anthropicToolChoice(req.ToolChoice); ok {
			params.ToolChoice = choice
		}
	}
	return params
}

// anthropicStreamState tracks one streamed message. Tool-use blocks are
// opened on content_block_start and closed on content_block_stop.
type anthropicStreamState struct {
	acc        *ToolCallAccumulator
	usage      Usage
	hasUsage   bool
	stopReason string
	done       bool
}

func newAnthropicStreamState() *anthropicStreamState {
	return &anthropicStreamState{acc: NewToolCallAccumulator()}
}

func (s *anthropicStreamState) messageStart(inputTokens int) {
	s.usage.InputTokens = inputTokens
	s.hasUsage = true
}

func (s *anthropicStreamState) blockStart(index int, blockType, id, name string) {
	if blockType == "tool_use" {
		s.acc.Open(index, id, name)
	}
}

func (s *anthropicStreamState) text(text string) []StreamChunk {
	if text == "" {
		return nil
	}
	return []StreamChunk{{Content: text}}
}

func (s *anthropicStreamState) inputJSON(index int, fragment string) []StreamChunk {
	if call, ok := s.acc.Append(index, fragment); ok {
		return []StreamChunk{{ToolCall: &call}}
	}
	return nil
}

func (s *anthropicStreamState) blockStop(index int) []StreamChunk {
	if call, ok := s.acc.Finish(index); ok {
		return []StreamChunk{{ToolCall: &call}}
	}
	return nil
}

func (s *anthropicStreamState) messageDelta(outputTokens int, stopReason string) {
	s.usage.OutputTokens = outputTokens
	s.hasUsage = true
	if stopReason != "" {
		s.stopReason = stopReason
	}
}

func (s *anthropicStreamState) messageStop() []StreamChunk {
	if s.done {
		return nil
	}
	s.done = true
	var out []StreamChunk
	for _, call := range s.acc.Flush() {
		out = append(out, StreamChunk{ToolCall: &call})
	}
	return append(out, StreamChunk{Done: true, FinishReason: s.stopReason})
}

func (s *anthropicStreamState) result() *Usage {
	if !s.hasUsage {
		return nil
	}
	usage := s.usage
	return &usage
}

// convertToAnthropicMessages converts messages to Anthropic format.
// System messages are joined and returned separately. Consecutive tool
// results are grouped into a single user message.
func convertToAnthropicMessages(messages []Message) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var systemParts []string
	lastWasToolResult := false

	for _, msg := range messages {
		isToolResult := false

		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
				break
			}
			content := anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
			}
			if msg.Content != "" {
				content.Content = append(content.Content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range NormalizeToolCalls(msg.ToolCalls) {
				var input map[string]any
				_ = json.Unmarshal(tc.Arguments, &input)
				if input == nil {
					input = map[string]any{}
				}
				content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			anthropicMessages = append(anthropicMessages, content)
		case RoleTool:
			isToolResult = true
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			if lastWasToolResult {
				last := &anthropicMessages[len(anthropicMessages)-1]
				last.Content = append(last.Content, block)
			} else {
				anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
			}
		}

		lastWasToolResult = isToolResult
	}

	return anthropicMessages, strings.Join(systemParts, "\n\n")
}

// convertToAnthropicTools converts tool schemas to Anthropic format.
func convertToAnthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		// Extract properties and required from the full schema
		properties, _ := t.Parameters["properties"].(map[string]any)
		if properties == nil {
			properties = map[string]any{}
		}

		toolParam := anthropic.ToolParam{
			Name: t.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   requiredFields(t.Parameters),
			},
		}
		if t.Description != "" {
			toolParam.Description = anthropic.String(t.Description)
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

func anthropicToolChoice(choice ToolChoice) (anthropic.ToolChoiceUnionParam, bool) {
	switch choice {
	case "":
		return anthropic.ToolChoiceUnionParam{}, false
	case ToolChoiceAuto:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}, true
	case ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}, true
	case ToolChoiceRequired:
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}, true
	default:
		return anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: string(choice)},
		}, true
	}
}

// requiredFields reads "required" from a schema decoded either from JSON
// ([]any) or built in Go ([]string).
func requiredFields(params map[string]any) []string {
	switch req := params["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
