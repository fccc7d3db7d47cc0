// Package main provides the relay CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/relay/cli"
)

var opts cli.Options

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "Run tool-using LLM agents across vendors",
		Long: `A CLI for running agents that call built-in tools, remote tool servers
and retrieval sources through one execution loop, on any supported vendor.

Agents, models, tool servers and sources can be declared in a YAML file
passed with --config. Without one, a default assistant runs on the model
selected by --provider and <VENDOR>_MODEL.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.Provider, "provider", "p", "openai", "Default LLM provider (openai, anthropic, deepseek, gemini, groq, mistral, openrouter, ollama)")
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to agent file (YAML)")
	rootCmd.PersistentFlags().StringVar(&opts.MCPConfigPath, "mcp-config", "", "Path to remote tool server config (JSON mcpServers)")
	rootCmd.PersistentFlags().StringVarP(&opts.AgentName, "agent", "a", "", "Agent to use")
	rootCmd.PersistentFlags().StringVarP(&opts.TenantID, "tenant", "t", "", "Tenant whose credentials and sources are used")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd(ctx))
	rootCmd.AddCommand(chatCmd(ctx))
	rootCmd.AddCommand(toolsCmd(ctx))
	rootCmd.AddCommand(agentsCmd(ctx))
	rootCmd.AddCommand(sessionsCmd(ctx))
	rootCmd.AddCommand(credentialsCmd(ctx))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp sets up the application for the duration of fn.
func withApp(ctx context.Context, fn func(app *cli.App) error) error {
	app, err := cli.Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func runCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Execute one request with an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				return app.RunTask(ctx, args[0], cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Stream, "stream", "s", false, "Stream content as it is generated")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func chatCmd(ctx context.Context) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session. History is stored in the database
configured by RELAY_DB_DRIVER and RELAY_DB_DSN; pass --session to resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				return app.Chat(ctx, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to resume")
	cmd.Flags().BoolVarP(&opts.Stream, "stream", "s", false, "Stream content as it is generated")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func toolsCmd(ctx context.Context) *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				return app.ListTools(ctx, cmd.OutOrStdout(), verboseTools)
			})
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose-tools", "V", false, "Show tool parameters")

	return cmd
}

func agentsCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				app.ListAgents(cmd.OutOrStdout())
				return nil
			})
		},
	}
}

func sessionsCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				return app.ListSessions(ctx, cmd.OutOrStdout())
			})
		},
	}
}

func credentialsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage stored tenant credentials",
	}

	var baseURL string
	set := &cobra.Command{
		Use:   "set [provider] [api-key]",
		Short: "Store an API key for the tenant (requires RELAY_SECRET_KEY)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, func(app *cli.App) error {
				if err := app.SetCredential(ctx, args[0], args[1], baseURL); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %s credential for tenant %q\n", args[0], opts.TenantID)
				return nil
			})
		},
	}
	set.Flags().StringVar(&baseURL, "base-url", "", "Override the vendor endpoint")

	cmd.AddCommand(set)
	return cmd
}
