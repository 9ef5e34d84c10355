package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	vqcmcp "github.com/visionqc/visionqc/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the visionqc MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the visionqc MCP server on stdio",
	Long: `Start the visionqc MCP server on stdio transport.

A live feed runs for the lifetime of the server, so the statistics and alerts
change between calls just as they do on the dashboard. Tools: get_stats,
list_alerts, list_inspections, get_session, get_report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Session == nil {
			return fmt.Errorf("session not initialized")
		}

		feed := newLiveFeed(nil)
		defer feed.Close()

		deps := vqcmcp.Deps{
			Stats:   feed.sim,
			Alerts:  feed.queue,
			History: History,
			Session: Session,
			Reports: Reports,
		}
		srv := vqcmcp.NewServer(deps, appVersion)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		feed.serveMetrics(ctx, metricsAddr)
		feed.start()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
