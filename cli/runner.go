// Command execution for CLI commands.
//
// Information Hiding:
// - Session handling and history persistence hidden
// - Streaming output hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/richinex/relay/agent"
	"github.com/richinex/relay/internal/jsonx"
	"github.com/richinex/relay/llm"
)

// RunTask executes a single input with the selected agent.
func (a *App) RunTask(ctx context.Context, input string, out io.Writer) error {
	cfg, err := a.Agent()
	if err != nil {
		return err
	}

	result, err := a.execute(ctx, cfg, nil, input, out)
	if err != nil {
		return err
	}
	if !a.opts.Stream {
		fmt.Fprintf(out, "%s\n", result.Content)
	}
	a.printSummary(out, result)
	return nil
}

// Chat starts an interactive session. History is persisted per session;
// an empty sessionID starts a new one.
func (a *App) Chat(ctx context.Context, sessionID string, in io.Reader, out io.Writer) error {
	cfg, err := a.Agent()
	if err != nil {
		return err
	}

	if sessionID == "" {
		if sessionID, err = a.Store.NewSession(ctx, a.opts.TenantID); err != nil {
			return err
		}
	}

	history, err := a.Store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) > 0 {
		fmt.Fprintf(out, "Resuming session '%s' (%d messages)\n\n", sessionID, len(history))
	} else {
		fmt.Fprintf(out, "Session '%s'\n\n", sessionID)
	}

	fmt.Fprintf(out, "Chat with %s agent. Type 'exit' to quit.\n\n", cfg.Name)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		result, err := a.execute(ctx, cfg, history, input, out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "\nError: %v\n\n", err)
			continue
		}
		if a.opts.Stream {
			fmt.Fprintln(out)
		} else {
			fmt.Fprintf(out, "\n%s\n\n", result.Content)
		}

		history = conversation(result.Messages)
		if err := a.Store.Save(ctx, sessionID, history); err != nil {
			a.logger.Warn("failed to save history", "session", sessionID, "error", err)
		}
	}

	return scanner.Err()
}

// execute runs one request, printing content as it arrives when
// streaming is enabled.
func (a *App) execute(ctx context.Context, cfg agent.Config, history []llm.Message, input string, out io.Writer) (agent.Result, error) {
	req := agent.RunRequest{
		TenantID: a.opts.TenantID,
		Agent:    cfg,
		History:  history,
		Input:    input,
	}
	if !a.opts.Stream {
		return a.Service.Run(ctx, req)
	}

	chunks := make(chan llm.StreamChunk, 64)
	req.Stream = chunks
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range chunks {
			if chunk.Content != "" {
				fmt.Fprint(out, chunk.Content)
			}
			if chunk.ToolCall != nil && a.opts.Verbose {
				fmt.Fprintf(out, "\n[tool] %s %s\n", chunk.ToolCall.Name, chunk.ToolCall.Arguments)
			}
		}
	}()

	result, err := a.Service.Run(ctx, req)
	close(chunks)
	<-done
	fmt.Fprintln(out)
	return result, err
}

// conversation drops the system prompt so it is not stored with the
// session; the agent adds it back on every run.
func conversation(messages []llm.Message) []llm.Message {
	if len(messages) > 0 && messages[0].Role == llm.RoleSystem {
		messages = messages[1:]
	}
	return append([]llm.Message(nil), messages...)
}

func (a *App) printSummary(out io.Writer, result agent.Result) {
	if !a.opts.Verbose {
		return
	}
	fmt.Fprintln(out, "\n--- Summary ---")
	for _, call := range result.ToolCalls {
		status := "ok"
		if !call.Success {
			status = "error"
		}
		fmt.Fprintf(out, "[round %d] %s (%s) %dms %s\n", call.Round, call.Name, call.Type, call.DurationMs, status)
	}
	fmt.Fprintf(out, "Rounds: %d  Finish: %s\n", result.Rounds, result.FinishReason)
	fmt.Fprintf(out, "Tokens: %d in, %d out\n", result.Usage.InputTokens, result.Usage.OutputTokens)
}

// ListTools prints the tool set the selected agent would be offered.
func (a *App) ListTools(ctx context.Context, out io.Writer, verbose bool) error {
	cfg, err := a.Agent()
	if err != nil {
		return err
	}

	toolCtx, err := a.Service.ToolContext(ctx, a.opts.TenantID, cfg)
	if err != nil {
		return err
	}
	if toolCtx.Empty() {
		fmt.Fprintf(out, "Agent %s has no tools (or its model does not support tools).\n", cfg.Name)
		return nil
	}

	fmt.Fprintf(out, "Tools for %s:\n\n", cfg.Name)
	for _, schema := range toolCtx.Schemas {
		d, _ := toolCtx.Lookup(schema.Name)
		fmt.Fprintf(out, "  %s [%s]\n", schema.Name, d.Type)
		fmt.Fprintf(out, "    %s\n", schema.Description)
		if verbose && len(schema.Parameters) > 0 {
			params, err := jsonx.Marshal(schema.Parameters)
			if err == nil {
				fmt.Fprintf(out, "    Parameters: %s\n", params)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

// ListAgents prints the configured agents.
func (a *App) ListAgents(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tDESCRIPTION")
	for _, info := range a.Agents.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, info.Model, info.Description)
	}
	_ = w.Flush()
}

// ListSessions prints stored session ids, most recent first.
func (a *App) ListSessions(ctx context.Context, out io.Writer) error {
	sessions, err := a.Store.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, id := range sessions {
		fmt.Fprintln(out, id)
	}
	return nil
}

// SetCredential stores a sealed API key for the tenant.
func (a *App) SetCredential(ctx context.Context, provider, apiKey, baseURL string) error {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return err
	}
	return a.Store.PutCredential(ctx, a.opts.TenantID, pt, llm.Credential{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Active:  true,
	})
}
