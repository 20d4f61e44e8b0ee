package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: `Start a Model Context Protocol (MCP) server on stdio.

Tools:
- add_note: Create a note for a user
- list_notes: List a user's notes, most recently updated first
- get_note: Fetch one of a user's notes
- update_note: Replace the content of a user's note
- delete_note: Delete a user's note
- search_notes: Semantic search over a user's notes

Resources:
- notes://stats: Note count and active search strategy

Example client configuration:
{
  "mcpServers": {
    "semantic-notes": {
      "command": "semantic-notes",
      "args": ["mcp"],
      "env": {"HF_TOKEN": "hf_..."}
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	notesServer := mcp.NewNotesServer(svc, Version)

	logger.Info("MCP server ready. Listening on stdio...")
	if err := notesServer.Serve(); err != nil && !errors.Is(err, io.EOF) {
		logger.Error("MCP server error: %v", err)
		return err
	}

	logger.Info("MCP server shutting down")
	return nil
}
