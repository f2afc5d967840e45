package main

import (
	"github.com/spf13/cobra"

	"github.com/markgewhite/agentic-essay-writer/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the run API described by /openapi.yaml, with server-sent events for
step progress and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Serve(ctx, serveOptions(cmd))
	},
}

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes essay writing as MCP tools and resources, so AI agents can start,
step and read runs.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		baseURL, _ := cmd.Flags().GetString("base-url")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.ServeMCP(ctx, cli.MCPOptions{
			ServeOptions: serveOptions(cmd),
			Transport:    transport,
			BaseURL:      baseURL,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default server.addr, :8080)")
	mcpCmd.Flags().String("addr", "", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE endpoint")
}

func serveOptions(cmd *cobra.Command) cli.ServeOptions {
	g := globals(cmd)
	addr, _ := cmd.Flags().GetString("addr")
	return cli.ServeOptions{
		ConfigPath: g.config,
		Addr:       addr,
		Offline:    g.offline,
		Debug:      g.debug,
	}
}
