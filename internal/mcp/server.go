package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/streed/semantic-notes/internal/constants"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/services"
)

// NotesServer exposes the note services as MCP tools. Every tool is scoped
// by a required user_id.
type NotesServer struct {
	services  *services.Services
	mcpServer *server.MCPServer
}

// NewNotesServer creates the MCP server and registers its tools and resources.
func NewNotesServer(svc *services.Services, version string) *NotesServer {
	ns := &NotesServer{services: svc}

	ns.mcpServer = server.NewMCPServer(
		"semantic-notes",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)

	ns.registerTools()
	ns.registerResources()

	return ns
}

// Serve runs the MCP server over stdin/stdout until the client disconnects.
func (s *NotesServer) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// userIDParam is the owner argument shared by every tool.
func userIDParam() mcp.ToolOption {
	return mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Owner of the notes"),
	)
}

func (s *NotesServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a note and compute its semantic embedding"),
		userIDParam(),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The content of the note"),
		),
	), s.handleAddNote)

	s.mcpServer.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List a user's notes, most recently updated first"),
		userIDParam(),
	), s.handleListNotes)

	s.mcpServer.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Get a single note by ID"),
		userIDParam(),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
	), s.handleGetNote)

	s.mcpServer.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the content of a note the user owns"),
		userIDParam(),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to update"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("New content for the note"),
		),
	), s.handleUpdateNote)

	s.mcpServer.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note the user owns"),
		userIDParam(),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("The ID of the note to delete"),
		),
	), s.handleDeleteNote)

	s.mcpServer.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Semantic search over a user's notes ranked by cosine similarity"),
		userIDParam(),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("match_threshold",
			mcp.Description(fmt.Sprintf("Minimum similarity (default: %g)", constants.DefaultMatchThreshold)),
		),
		mcp.WithNumber("match_count",
			mcp.Description(fmt.Sprintf("Maximum number of results (default: %d)", constants.DefaultMatchCount)),
		),
	), s.handleSearchNotes)
}

func (s *NotesServer) registerResources() {
	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Note count and active search strategy"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)
}

func (s *NotesServer) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_note")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}

	note, err := s.services.Notes.Create(ctx, userID, content)
	if err != nil {
		return nil, toolError("add_note", err, "Failed to create note")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note created successfully with ID: %d", note.ID)), nil
}

func (s *NotesServer) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_notes")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}

	notes, err := s.services.Notes.List(ctx, userID)
	if err != nil {
		return nil, toolError("list_notes", err, "Failed to fetch notes")
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n\n", len(notes))
	for _, note := range notes {
		fmt.Fprintf(&b, "[ID: %d] updated %s\n%s\n\n",
			note.ID, note.UpdatedAt.Format("2006-01-02 15:04:05"),
			truncateString(note.Content, constants.PreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleGetNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_note")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}
	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	note, err := s.services.Notes.Get(ctx, int64(id), userID)
	if err != nil {
		return nil, toolError("get_note", err, "Failed to fetch note")
	}

	return mcp.NewToolResultText(fmt.Sprintf("ID: %d\nCreated: %s\nUpdated: %s\n\n%s",
		note.ID,
		note.CreatedAt.Format("2006-01-02 15:04:05"),
		note.UpdatedAt.Format("2006-01-02 15:04:05"),
		note.Content)), nil
}

func (s *NotesServer) handleUpdateNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: update_note")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}
	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}
	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}

	note, err := s.services.Notes.Update(ctx, int64(id), userID, content)
	if err != nil {
		return nil, toolError("update_note", err, "Failed to update note")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note %d updated successfully", note.ID)), nil
}

func (s *NotesServer) handleDeleteNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: delete_note")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}
	id, err := request.RequireInt("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	deleted, err := s.services.Notes.Delete(ctx, int64(id), userID)
	if err != nil {
		return nil, toolError("delete_note", err, "Failed to delete note")
	}
	if !deleted {
		return mcp.NewToolResultText(fmt.Sprintf("No note %d found for %s", id, userID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Note %d deleted successfully", id)), nil
}

// handleSearchNotes falls back to the configured defaults for a missing
// match_threshold or match_count.
func (s *NotesServer) handleSearchNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: search_notes")

	userID, err := request.RequireString("user_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'user_id': %w", err)
	}
	query, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'query': %w", err)
	}

	defaults := s.services.Search.Defaults()
	threshold := request.GetFloat("match_threshold", defaults.Threshold)
	count := request.GetInt("match_count", defaults.Count)

	results, err := s.services.Search.Search(ctx, userID, query, &threshold, &count)
	if err != nil {
		return nil, toolError("search_notes", err, "Failed to search notes")
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. [ID: %d] similarity %.3f\n   %s\n\n",
			i+1, r.ID, r.Similarity, truncateString(r.Content, constants.PreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleStats(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://stats")

	count, err := s.services.Notes.Count(ctx)
	if err != nil {
		return nil, toolError("notes://stats", err, "Failed to read statistics")
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"total_notes":     count,
		"search_strategy": s.services.Search.StrategyName(),
	}, "", "  ")
	if err != nil {
		return nil, toolError("notes://stats", err, "Failed to read statistics")
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// toolError passes caller mistakes through and replaces everything else with
// message. The underlying error is only logged.
func toolError(tool string, err error, message string) error {
	if interrors.IsClientError(err) {
		return err
	}
	if errors.Is(err, interrors.ErrNoteNotFound) {
		return interrors.ErrNoteNotFound
	}
	logger.Error("MCP %s: %s: %v", tool, message, err)
	return errors.New(message)
}

// truncateString shortens s to at most maxLen runes.
func truncateString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
