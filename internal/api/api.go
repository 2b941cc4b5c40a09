// Package api exposes the review service over HTTP: blocking and
// streaming review creation plus session history, under /api/v1.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/provider"
	"github.com/jmallory/revu/internal/review"
	"github.com/jmallory/revu/internal/store"
	"github.com/jmallory/revu/internal/stream"
)

const (
	maxCodeLength   = 500_000
	defaultPageSize = 20
	maxPageSize     = 100
)

// Server provides the REST API handlers.
type Server struct {
	store          store.Store
	provider       provider.Generator
	maxStreamChars int
	logger         *slog.Logger
}

// NewServer creates a new API server. The provider may be nil when no
// credential is configured; review endpoints then answer 503.
func NewServer(s store.Store, p provider.Generator, maxStreamChars int, logger *slog.Logger) *Server {
	if maxStreamChars <= 0 {
		maxStreamChars = stream.DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, provider: p, maxStreamChars: maxStreamChars, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", s.createReview)
	mux.HandleFunc("POST /api/v1/reviews/local", s.createLocalReview)
	mux.HandleFunc("POST /api/v1/reviews/stream", s.streamReview)
	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.deleteReview)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError writes the error envelope used across the API:
// {"error":{"code","message","details"?}}.
func writeAppError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	body := map[string]any{"code": code, "message": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// writeProviderError maps a classified provider failure onto HTTP.
func (s *Server) writeProviderError(w http.ResponseWriter, err error) {
	var perr *provider.Error
	if errors.As(err, &perr) {
		status := http.StatusBadGateway
		switch perr.Code {
		case provider.CodeNotConfigured:
			status = http.StatusServiceUnavailable
		case provider.CodeNotSupported:
			status = http.StatusBadRequest
		}
		writeAppError(w, status, perr.Code, perr.Message, perr.Details)
		return
	}
	s.logger.Error("unexpected error handling review request", "error", err)
	writeAppError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
}

// userID resolves the request identity. Authentication is an external
// collaborator; the header is trusted as-is.
func userID(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User")); u != "" {
		return u
	}
	return "local"
}

// --- Request decoding ---

type reviewRequest struct {
	Code      string                  `json:"code"`
	Language  string                  `json:"language"`
	Settings  *review.Settings        `json:"settings"`
	Execution *models.ExecutionResult `json:"execution"`
}

type localReviewRequest struct {
	reviewRequest
	Result *review.Result `json:"result"`
}

// validate checks the request boundary rules and returns normalized
// settings.
func (req *reviewRequest) validate() (review.Settings, map[string]any) {
	if req.Code == "" {
		return review.Settings{}, map[string]any{"field": "code", "reason": "required"}
	}
	if len(req.Code) > maxCodeLength {
		return review.Settings{}, map[string]any{"field": "code", "reason": "too long", "max_chars": maxCodeLength}
	}
	if req.Language == "" {
		return review.Settings{}, map[string]any{"field": "language", "reason": "required"}
	}

	settings := review.DefaultSettings()
	if req.Settings != nil {
		settings = req.Settings.Normalize()
	}
	if err := settings.Validate(); err != nil {
		return review.Settings{}, map[string]any{"field": "settings", "reason": err.Error()}
	}
	return settings, nil
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Reviews ---

type reviewCreateResponse struct {
	SessionID string         `json:"session_id"`
	Result    *review.Result `json:"result"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeAppError(w, http.StatusServiceUnavailable, provider.CodeNotConfigured, "LLM provider not configured", nil)
		return
	}

	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	settings, details := req.validate()
	if details != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid review request", details)
		return
	}

	result, err := s.provider.GenerateReview(r.Context(), req.Code, req.Language, settings)
	if err != nil {
		s.writeProviderError(w, err)
		return
	}

	sessionID, err := s.persistExchange(r, &req, settings, s.provider.Name(), result)
	if err != nil {
		s.logger.Error("persist review", "error", err)
		writeAppError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
		return
	}

	writeJSON(w, http.StatusOK, reviewCreateResponse{SessionID: sessionID, Result: result})
}

// createLocalReview stores a client-supplied result without calling any
// LLM, under the provider label "local".
func (s *Server) createLocalReview(w http.ResponseWriter, r *http.Request) {
	var req localReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	settings, details := req.validate()
	if details != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid review request", details)
		return
	}
	if req.Result == nil || req.Result.Summary == "" {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid review request",
			map[string]any{"field": "result", "reason": "required"})
		return
	}

	sessionID, err := s.persistExchange(r, &req.reviewRequest, settings, "local", req.Result)
	if err != nil {
		s.logger.Error("persist local review", "error", err)
		writeAppError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
		return
	}

	writeJSON(w, http.StatusOK, reviewCreateResponse{SessionID: sessionID, Result: req.Result})
}

// persistExchange writes the session with its user turn, then the
// assistant turn holding the result.
func (s *Server) persistExchange(r *http.Request, req *reviewRequest, settings review.Settings, providerName string, result *review.Result) (string, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", err
	}
	session := &models.ReviewSession{
		UserID:   userID(r),
		Code:     req.Code,
		Language: req.Language,
		Provider: providerName,
		Settings: settingsJSON,
	}
	if req.Execution != nil {
		execJSON, err := json.Marshal(req.Execution)
		if err != nil {
			return "", err
		}
		session.Execution = execJSON
	}

	userContent, err := json.Marshal(map[string]any{
		"type":     "user_code",
		"code":     req.Code,
		"language": req.Language,
	})
	if err != nil {
		return "", err
	}

	ctx := r.Context()
	if err := s.store.CreateSession(ctx, session, &models.ReviewMessage{
		Role:    models.RoleUser,
		Content: userContent,
	}); err != nil {
		return "", err
	}

	resultContent, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	if err := s.store.AppendMessage(ctx, &models.ReviewMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   resultContent,
	}); err != nil {
		return "", err
	}

	return session.ID, nil
}

// --- Streaming ---

func (s *Server) streamReview(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeAppError(w, http.StatusServiceUnavailable, provider.CodeNotConfigured, "LLM provider not configured", nil)
		return
	}
	streamer, ok := provider.AsStreamGenerator(s.provider)
	if !ok {
		perr := provider.ErrStreamingNotSupported(s.provider.Name())
		writeAppError(w, http.StatusBadRequest, perr.Code, perr.Message, perr.Details)
		return
	}

	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	settings, details := req.validate()
	if details != nil {
		writeAppError(w, http.StatusBadRequest, "validation_error", "invalid review request", details)
		return
	}

	sink, err := newSSEWriter(w)
	if err != nil {
		writeAppError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported by transport", nil)
		return
	}

	controller := stream.NewController(s.store, streamer, s.maxStreamChars, s.logger)
	controller.Run(r.Context(), stream.Request{
		UserID:    userID(r),
		Code:      req.Code,
		Language:  req.Language,
		Settings:  settings,
		Execution: req.Execution,
	}, sink)
}

// --- Session history ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	sessions, err := s.store.ListSessions(r.Context(), store.SessionListFilter{
		UserID: userID(r),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeAppError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if sessions == nil {
		sessions = []*models.ReviewSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.GetSessionDetail(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeAppError(w, http.StatusNotFound, "not_found", "Review session not found", nil)
			return
		}
		writeAppError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if sess.UserID != userID(r) {
		writeAppError(w, http.StatusNotFound, "not_found", "Review session not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil || sess.UserID != userID(r) {
		writeAppError(w, http.StatusNotFound, "not_found", "Review session not found", nil)
		return
	}
	if err := s.store.DeleteSession(r.Context(), id); err != nil {
		writeAppError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
