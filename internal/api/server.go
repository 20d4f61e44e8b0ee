package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/streed/semantic-notes/internal/config"
	interrors "github.com/streed/semantic-notes/internal/errors"
	"github.com/streed/semantic-notes/internal/logger"
	"github.com/streed/semantic-notes/internal/models"
	"github.com/streed/semantic-notes/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIServer serves the notes HTTP API. All state lives in the injected
// services and store; handlers keep nothing between requests.
type APIServer struct {
	cfg      *config.Config
	services *services.Services
	db       Pinger

	mu     sync.Mutex
	server *http.Server
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Request bodies
type EmbedRequest struct {
	Text string `json:"text"`
}

type CreateNoteRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

type UpdateNoteRequest struct {
	ID      NoteID `json:"id"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

type DeleteNoteRequest struct {
	ID     NoteID `json:"id"`
	UserID string `json:"user_id"`
}

type SearchRequest struct {
	Query          string   `json:"query"`
	UserID         string   `json:"user_id"`
	MatchThreshold *float64 `json:"match_threshold,omitempty"`
	MatchCount     *int     `json:"match_count,omitempty"`
}

// NoteID accepts a JSON number or a numeric string.
type NoteID int64

// UnmarshalJSON rejects fractional and non-numeric ids with ErrInvalidNoteID.
func (id *NoteID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: id must be an integer", interrors.ErrInvalidNoteID)
	}
	*id = NoteID(n)
	return nil
}

// NewAPIServer creates an API server. db is only used by the health check.
func NewAPIServer(cfg *config.Config, svc *services.Services, db Pinger) *APIServer {
	return &APIServer{cfg: cfg, services: svc, db: db}
}

// Handler builds the routed, middleware-wrapped handler.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(recoverMiddleware, requestLoggingMiddleware)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/embed", s.handleEmbed).Methods("POST")

	// Notes endpoints
	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes", s.handleUpdateNote).Methods("PUT")
	api.HandleFunc("/notes", s.handleDeleteNote).Methods("DELETE")

	// Search and info endpoints
	api.HandleFunc("/search", s.handleSearch).Methods("POST")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// CORS configuration
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders:   []string{"Content-Length", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	return c.Handler(router)
}

// Start listens on host:port and blocks until the server stops. A shutdown
// through Stop is not reported as an error. The write timeout is the
// embedding timeout plus 30s.
func (s *APIServer) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.GetEmbeddingTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	logger.Info("Starting HTTP API server on %s (search strategy: %s)", addr, s.services.Search.StrategyName())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (s *APIServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	logger.Info("Shutting down HTTP API server")
	return srv.Shutdown(ctx)
}

// writeJSON encodes data before writing the status line, so a value that
// cannot be encoded becomes a 500 instead of a truncated success.
func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "Internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.Debug("Failed to write response: %v", err)
	}
}

// writeError writes an ErrorResponse with the given status
func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// fail maps err to a 400 for caller mistakes and to a generic 500 with
// the given message for everything else. Internal details are only logged.
func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, err error, message string) {
	if interrors.IsClientError(err) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("%s %s: %s: %v", r.Method, r.URL.Path, message, err)
	s.writeError(w, http.StatusInternalServerError, message)
}

// decode reads a JSON body into dst. It writes the 400 itself and reports
// whether the handler should continue.
func (s *APIServer) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, interrors.ErrInvalidNoteID) {
			s.writeError(w, http.StatusBadRequest, "id must be an integer")
			return false
		}
		logger.Debug("Rejected request body for %s %s: %v", r.Method, r.URL.Path, err)
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// missing reports whether any value is empty after trimming whitespace
func missing(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// Handlers

// handleEmbed returns the raw embedding for arbitrary text
func (s *APIServer) handleEmbed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if !s.decode(w, r, &req) {
		return
	}
	if missing(req.Text) {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	embedding, err := s.services.Embed.Embed(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, err, "Failed to generate embedding")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"embedding": embedding})
}

// handleListNotes lists the owner's notes, newest update first, without embeddings
func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if missing(userID) {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	notes, err := s.services.Notes.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch notes")
		return
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

// handleCreateNote embeds the content and stores the note. Nothing is
// stored when embedding fails.
func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if missing(req.Content, req.UserID) {
		s.writeError(w, http.StatusBadRequest, "content and user_id are required")
		return
	}

	note, err := s.services.Notes.Create(r.Context(), req.UserID, req.Content)
	if err != nil {
		s.fail(w, r, err, "Failed to create note")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"note": note})
}

// handleUpdateNote replaces the content and embedding of an owned note.
// A foreign or missing id surfaces as the generic update failure.
func (s *APIServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == 0 || missing(req.Content, req.UserID) {
		s.writeError(w, http.StatusBadRequest, "id, content and user_id are required")
		return
	}

	note, err := s.services.Notes.Update(r.Context(), int64(req.ID), req.UserID, req.Content)
	if err != nil {
		s.fail(w, r, err, "Failed to update note")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"note": note})
}

// handleDeleteNote deletes an owned note. Deleting a note the owner does
// not hold still succeeds and changes nothing.
func (s *APIServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	var req DeleteNoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == 0 || missing(req.UserID) {
		s.writeError(w, http.StatusBadRequest, "id and user_id are required")
		return
	}

	if _, err := s.services.Notes.Delete(r.Context(), int64(req.ID), req.UserID); err != nil {
		s.fail(w, r, err, "Failed to delete note")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// handleSearch ranks the owner's notes against the query. Omitted
// match_threshold and match_count fall back to the configured defaults.
func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if missing(req.Query, req.UserID) {
		s.writeError(w, http.StatusBadRequest, "query and user_id are required")
		return
	}

	results, err := s.services.Search.Search(r.Context(), req.UserID, req.Query, req.MatchThreshold, req.MatchCount)
	if err != nil {
		s.fail(w, r, err, "Failed to search notes")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// handleHealth reports database reachability, the active search strategy
// and the total note count.
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.fail(w, r, err, "Database unavailable")
		return
	}

	count, err := s.services.Notes.Count(r.Context())
	if err != nil {
		s.fail(w, r, err, "Database unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"strategy":  s.services.Search.StrategyName(),
		"notes":     count,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
