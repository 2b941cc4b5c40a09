package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmallory/revu/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run the Model Context Protocol server over stdin/stdout.

Exposes review generation and session history as MCP tools
for use from MCP-capable clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		prov, err := getProvider()
		if err != nil {
			// Review generation tools will report not_configured;
			// session lookup tools still work.
			ui.VerboseLog("provider unavailable: %v", err)
			prov = nil
		}

		return mcp.NewServer(s, prov).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
