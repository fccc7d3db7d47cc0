// OpenAI-family Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication (one base URL per compatible vendor)
// - Request/response format for OpenAI Chat Completions API
// - Streaming via go-openai library, with tool-call fragments reassembled per index

package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/relay/internal/jsonx"
)

// OpenAIProvider implements the Provider interface for OpenAI and every
// vendor speaking the same Chat Completions dialect.
type OpenAIProvider struct {
	client        *openai.Client
	vendor        ProviderType
	model         string
	maxTokens     int
	temperature   *float64
	supportsTools bool
}

// NewOpenAIProvider creates a new OpenAI-family provider.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL := cfg.baseURL(); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIProvider{
		client:        openai.NewClientWithConfig(clientCfg),
		vendor:        cfg.Type,
		model:         cfg.model(),
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		supportsTools: cfg.SupportsTools,
	}
}

// ProviderType returns the vendor name.
func (p *OpenAIProvider) ProviderType() string {
	return p.vendor.String()
}

// SupportsTools reports whether tool schemas are sent with requests.
func (p *OpenAIProvider) SupportsTools() bool {
	return p.supportsTools
}

// ChatCompletion sends a chat completion request.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return ChatResponse{}, providerError(p.ProviderType(), err, "chat completion")
	}

	out := ChatResponse{
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.FinishReason = string(choice.FinishReason)
	for i, tc := range choice.Message.ToolCalls {
		args, ok := jsonx.FinalizeObject(tc.Function.Arguments)
		if !ok {
			continue
		}
		id := tc.ID
		if id == "" {
			id = SynthesizeToolCallID(tc.Function.Name, i)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

// ChatCompletionStream streams a chat completion.
func (p *OpenAIProvider) ChatCompletionStream(ctx context.Context, req ChatRequest, chunks chan<- StreamChunk) (*Usage, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, providerError(p.ProviderType(), err, "stream creation")
	}
	defer stream.Close()

	state := newOpenAIStreamState()
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return state.usage, providerError(p.ProviderType(), err, "stream recv")
		}
		for _, chunk := range state.handle(response) {
			if err := send(ctx, chunks, chunk); err != nil {
				return state.usage, err
			}
		}
	}

	for _, chunk := range state.finish() {
		if err := send(ctx, chunks, chunk); err != nil {
			return state.usage, err
		}
	}
	return state.usage, nil
}

func (p *OpenAIProvider) buildRequest(req ChatRequest, stream bool) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	out := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  convertToOpenAIMessages(req.Messages),
		MaxTokens: maxTokens,
	}
	if t := firstFloat(req.Temperature, p.temperature); t != nil {
		out.Temperature = float32(*t)
	}
	if req.TopP != nil {
		out.TopP = float32(*req.TopP)
	}
	if p.supportsTools && len(req.Tools) > 0 {
		out.Tools = convertToOpenAITools(req.Tools)
		if choice := openAIToolChoice(req.ToolChoice); choice != nil {
			out.ToolChoice = choice
		}
	}
	if stream {
		out.Stream = true
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

// openAIStreamState turns stream responses into chunks. Kept free of I/O so
// the fragment handling can be driven directly.
type openAIStreamState struct {
	acc      *ToolCallAccumulator
	usage    *Usage
	finished bool

	// Slot tracking for vendors that omit the delta index.
	slot   int
	slotID string
	opened bool
}

func newOpenAIStreamState() *openAIStreamState {
	return &openAIStreamState{acc: NewToolCallAccumulator()}
}

func (s *openAIStreamState) handle(resp openai.ChatCompletionStreamResponse) []StreamChunk {
	// Usage arrives on a trailing response with no choices
	if resp.Usage != nil {
		s.usage = &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	var out []StreamChunk
	choice := resp.Choices[0]
	if choice.Delta.Content != "" {
		out = append(out, StreamChunk{Content: choice.Delta.Content})
	}
	for pos, tc := range choice.Delta.ToolCalls {
		index := s.slotFor(pos, tc)
		s.acc.Open(index, tc.ID, tc.Function.Name)
		if call, ok := s.acc.Append(index, tc.Function.Arguments); ok {
			out = append(out, StreamChunk{ToolCall: &call})
		}
	}
	if choice.FinishReason != "" && !s.finished {
		out = append(out, s.done(string(choice.FinishReason))...)
	}
	return out
}

// slotFor returns the accumulator index of a tool-call delta. Without a
// vendor index, a new id or a second call in the same delta opens the next
// slot; fragments without an id continue the current one.
func (s *openAIStreamState) slotFor(pos int, tc openai.ToolCall) int {
	if tc.Index != nil {
		return *tc.Index
	}
	switch {
	case !s.opened:
		s.opened = true
	case tc.ID != "" && tc.ID != s.slotID, tc.ID == "" && pos > 0:
		s.slot++
	}
	if tc.ID != "" {
		s.slotID = tc.ID
	}
	return s.slot
}

// finish closes a stream that ended without a finish reason.
func (s *openAIStreamState) finish() []StreamChunk {
	if s.finished {
		return nil
	}
	return s.done(string(openai.FinishReasonStop))
}

func (s *openAIStreamState) done(reason string) []StreamChunk {
	s.finished = true
	var out []StreamChunk
	for _, call := range s.acc.Flush() {
		out = append(out, StreamChunk{ToolCall: &call})
	}
	return append(out, StreamChunk{Done: true, FinishReason: reason})
}

// convertToOpenAIMessages maps tool results to tool messages keyed by call id
// and assistant tool calls to tool_calls entries.
func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		for _, tc := range NormalizeToolCalls(msg.ToolCalls) {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}

		if msg.Role == RoleTool {
			oaiMsg.ToolCallID = msg.ToolCallID
		}

		result[i] = oaiMsg
	}
	return result
}

// convertToOpenAITools converts tool schemas to OpenAI format.
func convertToOpenAITools(tools []ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func openAIToolChoice(choice ToolChoice) any {
	switch choice {
	case "":
		return nil
	case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired:
		return string(choice)
	default:
		return openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: string(choice)},
		}
	}
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
