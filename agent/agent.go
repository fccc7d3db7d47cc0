// Tool-calling execution loop.
//
// All agent execution goes through this module.
//
// Information Hiding:
// - Round state machine internals hidden
// - Provider communication (blocking and streaming) hidden
// - Concurrent tool execution coordination hidden
// - Usage accounting hidden

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/richinex/relay/internal/jsonx"
	"github.com/richinex/relay/internal/logging"
	"github.com/richinex/relay/internal/metrics"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/tools"
)

// ToolDispatcher executes one tool call using its routing metadata.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call llm.ToolCall, d tools.Dispatch) (any, error)
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Agent) { a.metrics = m }
}

// Agent runs the tool-calling loop for one configuration, provider and tool
// context. It holds no per-execution state and may run concurrently.
type Agent struct {
	config     Config
	provider   llm.Provider
	tools      tools.Context
	dispatcher ToolDispatcher
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// New creates an agent.
func New(config Config, provider llm.Provider, toolCtx tools.Context, dispatcher ToolDispatcher, opts ...Option) *Agent {
	a := &Agent{
		config:     config,
		provider:   provider,
		tools:      toolCtx,
		dispatcher: dispatcher,
		logger:     logging.Named("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Execute runs the loop to completion with blocking provider calls.
func (a *Agent) Execute(ctx context.Context, history []llm.Message, input string) (Result, error) {
	return a.run(ctx, history, input, a.complete)
}

// ExecuteStream runs the loop with streaming provider calls, forwarding
// every chunk to chunks as it is produced. The caller owns chunks and closes
// it after ExecuteStream returns.
func (a *Agent) ExecuteStream(ctx context.Context, history []llm.Message, input string, chunks chan<- llm.StreamChunk) (Result, error) {
	return a.run(ctx, history, input, func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return a.stream(ctx, req, chunks)
	})
}

// roundFunc performs one provider round trip.
type roundFunc func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)

func (a *Agent) run(ctx context.Context, history []llm.Message, input string, round roundFunc) (Result, error) {
	result := Result{State: StateIdle, Messages: a.seed(history, input)}
	useTools := a.provider.SupportsTools() && !a.tools.Empty()
	maxRounds := a.config.Rounds()

	for result.Rounds < maxRounds {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := llm.ValidateConversation(result.Messages); err != nil {
			return result, err
		}

		result.State = StateRequesting
		req := a.request(result.Messages, useTools)

		start := time.Now()
		resp, err := round(ctx, req)
		a.metrics.ProviderRequest(a.provider.ProviderType(), time.Since(start), err == nil)
		result.Rounds++
		a.metrics.Round()
		if err != nil {
			return result, fmt.Errorf("round %d: %w", result.Rounds, err)
		}

		result.Usage = result.Usage.Add(resp.Usage)
		a.metrics.Tokens(a.provider.ProviderType(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		result.Content = resp.Content
		result.FinishReason = resp.FinishReason

		if !useTools || len(resp.ToolCalls) == 0 {
			result.Messages = append(result.Messages, llm.AssistantMessage(resp.Content))
			result.State = StateFinished
			return result, nil
		}

		result.State = StateHasToolCalls
		calls := llm.NormalizeToolCalls(resp.ToolCalls)
		result.Messages = append(result.Messages, llm.AssistantToolCallMessage(resp.Content, calls))

		result.State = StateExecuting
		messages, records := a.executeTools(ctx, calls, result.Rounds)
		result.Messages = append(result.Messages, messages...)
		result.ToolCalls = append(result.ToolCalls, records...)
	}

	a.logger.Info("round limit reached",
		"agent", a.config.Name,
		"rounds", result.Rounds)
	result.FinishReason = FinishReasonMaxRounds
	result.State = StateFinished
	return result, nil
}

func (a *Agent) seed(history []llm.Message, input string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	if a.config.SystemPrompt != "" {
		messages = append(messages, llm.SystemMessage(a.config.SystemPrompt))
	}
	messages = append(messages, history...)
	return append(messages, llm.UserMessage(input))
}

func (a *Agent) request(messages []llm.Message, useTools bool) llm.ChatRequest {
	req := llm.ChatRequest{
		Model:       a.config.Model,
		Messages:    append([]llm.Message(nil), messages...),
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	}
	if useTools {
		req.Tools = a.tools.Schemas
		req.ToolChoice = a.config.ToolChoice
	}
	return req
}

func (a *Agent) complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return a.provider.ChatCompletion(ctx, req)
}

// streamResult holds the result of a streaming call.
type streamResult struct {
	usage *llm.Usage
	err   error
}

// stream forwards one streamed round and rebuilds its response. Tool calls
// are keyed by id; the first call seen for an id is kept.
func (a *Agent) stream(ctx context.Context, req llm.ChatRequest, out chan<- llm.StreamChunk) (llm.ChatResponse, error) {
	chunks := make(chan llm.StreamChunk, 64)

	resultCh := make(chan streamResult, 1)
	go func() {
		defer close(chunks)
		usage, err := a.provider.ChatCompletionStream(ctx, req, chunks)
		resultCh <- streamResult{usage: usage, err: err}
	}()

	var resp llm.ChatResponse
	var content []byte
	seen := make(map[string]bool)
	var forwardErr error

	for chunk := range chunks {
		if forwardErr != nil {
			continue
		}
		content = append(content, chunk.Content...)
		if chunk.ToolCall != nil && !seen[chunk.ToolCall.ID] {
			seen[chunk.ToolCall.ID] = true
			resp.ToolCalls = append(resp.ToolCalls, *chunk.ToolCall)
		}
		if chunk.Done {
			resp.FinishReason = chunk.FinishReason
		}

		select {
		case out <- chunk:
		case <-ctx.Done():
			forwardErr = ctx.Err()
		}
	}

	result := <-resultCh
	if result.err != nil {
		return resp, result.err
	}
	if forwardErr != nil {
		return resp, forwardErr
	}

	resp.Content = string(content)
	if result.usage != nil {
		resp.Usage = *result.usage
	}
	return resp, nil
}

// executeTools runs every call of a round concurrently and waits for all of
// them. Failures become {"error": message} payloads; no call cancels another.
// Messages come back in call order.
func (a *Agent) executeTools(ctx context.Context, calls []llm.ToolCall, round int) ([]llm.Message, []ToolCallRecord) {
	messages := make([]llm.Message, len(calls))
	records := make([]ToolCallRecord, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			start := time.Now()
			d, content, err := a.executeTool(ctx, call)

			records[i] = ToolCallRecord{
				ID:         call.ID,
				Name:       call.Name,
				Type:       d.Type,
				Round:      round,
				DurationMs: time.Since(start).Milliseconds(),
				Success:    err == nil,
			}
			a.metrics.ToolCall(string(d.Type), err == nil)

			if err != nil {
				a.logger.Warn("tool call failed",
					"agent", a.config.Name,
					"tool", call.Name,
					"call_id", call.ID,
					"error", err)
				content = errorPayload(err)
			}
			messages[i] = llm.ToolResultMessage(call.ID, call.Name, content)
			return nil
		})
	}
	_ = g.Wait()

	return messages, records
}

func (a *Agent) executeTool(ctx context.Context, call llm.ToolCall) (tools.Dispatch, string, error) {
	d, ok := a.tools.Lookup(call.Name)
	if !ok {
		return d, "", fmt.Errorf("tool %q is not available", call.Name)
	}

	value, err := a.dispatcher.Dispatch(ctx, call, d)
	if err != nil {
		return d, "", err
	}

	content, err := jsonx.Marshal(value)
	if err != nil {
		return d, "", err
	}
	return d, content, nil
}

func errorPayload(err error) string {
	payload, mErr := jsonx.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error":"tool failed"}`
	}
	return payload
}
