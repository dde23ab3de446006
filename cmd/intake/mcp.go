package main

import (
	"fmt"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/cli"
	"github.com/aretw0/intake/pkg/adapters/mcp"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long:  `Exposes the flow as MCP tools (start_flow, flow_turn, get_session) over stdio or SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		eng, closeStore, err := cli.BuildEngine(cmd.Context(), cfg, logger, observability.LogHooks(logger))
		if err != nil {
			return err
		}
		defer closeStore()

		srv := mcp.NewServer(eng, intake.Version, mcp.WithLogger(logger))

		addr, _ := cmd.Flags().GetString("sse")
		if addr == "" {
			return srv.ServeStdio()
		}
		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost%s", addr)
		}
		return srv.ServeSSE(cmd.Context(), addr, baseURL)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("sse", "", "Serve over SSE on this address instead of stdio (e.g. :8081)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised by the SSE transport")
}
