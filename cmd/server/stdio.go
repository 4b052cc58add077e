package main

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newStdioCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Run the MCP server over stdio",
		Long: `Run the dairy nutrition tools as an MCP server on stdin and stdout.

Backend credentials come from FEED_API_KEY or from FEED_API_EMAIL and
FEED_API_PIN. Logs are written to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if a.client == nil {
				return errors.New("stdio mode needs FEED_API_KEY or FEED_API_EMAIL and FEED_API_PIN")
			}
			a.logger.Info("serving mcp over stdio")
			return a.buildServer(a.client).Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
