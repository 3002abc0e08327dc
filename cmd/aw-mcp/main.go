// aw-mcp exposes AgentWallet agents, wallets and ACP jobs as MCP tools, so
// an MCP-compatible AI host can drive jobs on behalf of its agents.
//
// Example host configuration:
//
//	{
//	  "mcpServers": {
//	    "agentwallet": {
//	      "command": "/path/to/aw-mcp",
//	      "env": {"AGENTWALLET_API_KEY": "aw_live_..."}
//	    }
//	  }
//	}
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentwallet/agentwallet-go/internal/mcpbridge"
	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var (
	apiKey  string
	baseURL string
	debug   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aw-mcp",
	Short: "MCP bridge for AgentWallet",
	Long: `aw-mcp is a stdio MCP server exposing AgentWallet tools to any
MCP-compatible AI host. It lists and creates agents, reads wallet balances,
and drives ACP jobs through negotiate, fund, deliver and evaluate.

All logging goes to stderr so it does not interfere with the protocol.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("AGENTWALLET_API_KEY"), "API key (env AGENTWALLET_API_KEY)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", envOr("AGENTWALLET_BASE_URL", client.DefaultBaseURL), "API base URL (env AGENTWALLET_BASE_URL)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log each API request")
}

func run(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := []client.Option{client.WithBaseURL(baseURL)}
	if debug {
		opts = append(opts, client.WithLogger(logger.Named("client")))
	}
	c, err := client.New(apiKey, opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	tools, err := mcpbridge.NewToolRegistry(c)
	if err != nil {
		return err
	}
	server := mcpbridge.NewServer(os.Stdout, tools, logger)

	names := make([]string, 0, len(tools.Definitions()))
	for _, d := range tools.Definitions() {
		names = append(names, d.Name)
	}
	logger.Info("AgentWallet MCP bridge ready",
		zap.String("base_url", baseURL),
		zap.String("tools", strings.Join(names, ", ")),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return server.Serve(ctx, os.Stdin)
}

// newLogger writes to stderr; stdout carries the protocol.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
