package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/streed/semantic-notes/internal/config"
	"github.com/streed/semantic-notes/internal/database"
	"github.com/streed/semantic-notes/internal/embeddings/embeddingstest"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/models"
	"github.com/streed/semantic-notes/internal/search"
	"github.com/streed/semantic-notes/internal/services"
)

const dim = 8

func setupTestServer(t *testing.T) (*NotesServer, *embeddingstest.Fake) {
	t.Helper()
	tempDir := t.TempDir()
	cfg := config.Default()
	cfg.DataDirectory = tempDir
	cfg.DatabasePath = filepath.Join(tempDir, "test.db")
	cfg.VectorDimensions = dim

	db, err := database.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := models.NewNoteRepository(db.Conn())
	provider := embeddingstest.New(dim)
	engine := search.NewEngine(provider, search.NewScanStrategy(repo, dim))
	return NewNotesServer(services.NewServices(cfg, repo, provider, engine), "test"), provider
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNoteToolsRoundTrip(t *testing.T) {
	s, provider := setupTestServer(t)
	ctx := context.Background()
	provider.Vectors["buy milk"] = embeddingstest.Axis(dim, 0)
	provider.Vectors["dairy"] = embeddingstest.Axis(dim, 0)

	result, err := s.handleAddNote(ctx, callRequest("add_note", map[string]interface{}{
		"user_id": "u1", "content": "buy milk",
	}))
	if err != nil {
		t.Fatalf("add_note error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "ID: 1") {
		t.Errorf("unexpected add_note result: %s", resultText(t, result))
	}

	result, err = s.handleSearchNotes(ctx, callRequest("search_notes", map[string]interface{}{
		"user_id": "u1", "query": "dairy",
	}))
	if err != nil {
		t.Fatalf("search_notes error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "buy milk") {
		t.Errorf("search did not find note: %s", resultText(t, result))
	}

	result, err = s.handleSearchNotes(ctx, callRequest("search_notes", map[string]interface{}{
		"user_id": "u2", "query": "dairy",
	}))
	if err != nil {
		t.Fatalf("search_notes error: %v", err)
	}
	if resultText(t, result) != "No matching notes found." {
		t.Errorf("other owner should see nothing, got: %s", resultText(t, result))
	}

	if _, err := s.handleUpdateNote(ctx, callRequest("update_note", map[string]interface{}{
		"user_id": "u2", "id": float64(1), "content": "hijack",
	})); err == nil {
		t.Error("update by a foreign owner should fail")
	}

	result, err = s.handleGetNote(ctx, callRequest("get_note", map[string]interface{}{
		"user_id": "u1", "id": float64(1),
	}))
	if err != nil {
		t.Fatalf("get_note error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "buy milk") {
		t.Errorf("content changed: %s", resultText(t, result))
	}

	result, err = s.handleDeleteNote(ctx, callRequest("delete_note", map[string]interface{}{
		"user_id": "u1", "id": float64(1),
	}))
	if err != nil {
		t.Fatalf("delete_note error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "deleted") {
		t.Errorf("unexpected delete result: %s", resultText(t, result))
	}

	result, err = s.handleListNotes(ctx, callRequest("list_notes", map[string]interface{}{"user_id": "u1"}))
	if err != nil {
		t.Fatalf("list_notes error: %v", err)
	}
	if resultText(t, result) != "No notes found." {
		t.Errorf("expected empty list, got: %s", resultText(t, result))
	}
}

func TestToolsRequireUserID(t *testing.T) {
	s, _ := setupTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{"add_note", s.handleAddNote, map[string]interface{}{"content": "x"}},
		{"list_notes", s.handleListNotes, map[string]interface{}{}},
		{"search_notes", s.handleSearchNotes, map[string]interface{}{"query": "x"}},
		{"delete_note", s.handleDeleteNote, map[string]interface{}{"id": float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.handler(ctx, callRequest(tt.name, tt.args)); err == nil {
				t.Error("expected an error without user_id")
			}
		})
	}
}

func TestToolsHideProviderErrors(t *testing.T) {
	s, provider := setupTestServer(t)
	ctx := context.Background()
	provider.Err = errors.New("provider returned status 503: upstream overloaded")

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{"add_note", s.handleAddNote, map[string]interface{}{"user_id": "u1", "content": "x"}, "Failed to create note"},
		{"update_note", s.handleUpdateNote, map[string]interface{}{"user_id": "u1", "id": float64(1), "content": "x"}, "Failed to update note"},
		{"search_notes", s.handleSearchNotes, map[string]interface{}{"user_id": "u1", "query": "x"}, "Failed to search notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.handler(ctx, callRequest(tt.name, tt.args))
			if err == nil {
				t.Fatal("expected an error")
			}
			if err.Error() != tt.want {
				t.Errorf("got %q, want %q", err.Error(), tt.want)
			}
			if strings.Contains(err.Error(), "503") || strings.Contains(err.Error(), "embedding") {
				t.Errorf("provider details leaked: %q", err.Error())
			}
		})
	}
}

func TestToolsPassClientErrorsThrough(t *testing.T) {
	s, provider := setupTestServer(t)

	_, err := s.handleAddNote(context.Background(), callRequest("add_note", map[string]interface{}{
		"user_id": "u1", "content": "   ",
	}))
	if !errors.Is(err, interrors.ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	if provider.Calls() != 0 {
		t.Errorf("provider called %d times for invalid input", provider.Calls())
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncateString(strings.Repeat("a", 20), 10); got != "aaaaaaa..." {
		t.Errorf("unexpected truncation: %q", got)
	}
	got := truncateString(strings.Repeat("日本", 10), 10)
	if !utf8.ValidString(got) || len([]rune(got)) != 10 {
		t.Errorf("truncation split a rune: %q", got)
	}
}
