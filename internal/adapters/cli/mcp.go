package cli

import (
	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/adapters/mcp"
)

func newMCPCommand(env envFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the document tools over MCP on stdio",
		Long: `Serve the document tools over the Model Context Protocol on stdio.

Example client configuration:
  {
    "mcpServers": {
      "docqa": {"command": "/path/to/docqa", "args": ["mcp"]}
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, release, err := env(cmd)
			if err != nil {
				return err
			}
			defer release()

			server, err := mcp.NewServer(e.Session, e.TopK)
			if err != nil {
				return err
			}
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
