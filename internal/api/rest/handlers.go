package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fortuna/draftlens/internal/controller"
	"github.com/fortuna/draftlens/internal/insights"
	"github.com/fortuna/draftlens/internal/parser"
	"github.com/fortuna/draftlens/internal/store"
	"github.com/fortuna/draftlens/internal/store/repository"
)

// maxRefreshCount bounds the count query parameter of a refresh.
const maxRefreshCount = 300

// Controller is the page controller used by the handlers.
type Controller interface {
	Manager() *parser.Manager
	Rows(ctx context.Context) ([]string, error)
	Board(ctx context.Context) (*controller.Board, error)
	Refresh(ctx context.Context, required int) (*controller.Board, error)
}

// SessionStore persists the auth session.
type SessionStore interface {
	Save(ctx context.Context, token string, profile json.RawMessage) (*store.Session, error)
	Active(ctx context.Context) (*store.Session, error)
	Delete(ctx context.Context) error
}

// HealthChecker is a dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	ctrl     Controller
	sessions SessionStore
	checks   map[string]HealthChecker
}

// NewHandler creates a new handler. checks may be nil.
func NewHandler(ctrl Controller, sessions SessionStore, checks map[string]HealthChecker) *Handler {
	return &Handler{ctrl: ctrl, sessions: sessions, checks: checks}
}

// HealthCheck reports the state of every dependency
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "draftlens",
		"checks":  results,
	})
}

type parserInfo struct {
	Name                   string `json:"name"`
	UsesDraftAbbreviations bool   `json:"uses_draft_abbreviations"`
}

func describe(p parser.SiteParser) parserInfo {
	return parserInfo{Name: p.Name(), UsesDraftAbbreviations: p.UsesDraftAbbreviations()}
}

// GetParsers lists the registered parsers, or resolves the one for ?url=
func (h *Handler) GetParsers(w http.ResponseWriter, r *http.Request) {
	manager := h.ctrl.Manager()

	url := r.URL.Query().Get("url")
	if url == "" {
		list := make([]parserInfo, 0, len(manager.Parsers()))
		for _, p := range manager.Parsers() {
			list = append(list, describe(p))
		}
		respondJSON(w, http.StatusOK, list)
		return
	}

	p, ok := manager.ParserForURL(url)
	if !ok {
		respondError(w, http.StatusNotFound, "No parser for URL", nil)
		return
	}
	respondJSON(w, http.StatusOK, describe(p))
}

// GetRows returns the player names currently rendered on the page
func (h *Handler) GetRows(w http.ResponseWriter, r *http.Request) {
	names, err := h.ctrl.Rows(r.Context())
	if err != nil {
		respondControllerError(w, "Failed to read rows", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"names": names,
		"count": len(names),
	})
}

// GetBoard returns the last collected board
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.ctrl.Board(r.Context())
	if err != nil {
		respondControllerError(w, "Failed to fetch board", err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// RefreshBoard collects a new board; ?count= sets how many available
// players to collect
func (h *Handler) RefreshBoard(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRefreshCount {
			respondError(w, http.StatusBadRequest, "Invalid count (1-300)", err)
			return
		}
		count = n
	}

	board, err := h.ctrl.Refresh(r.Context(), count)
	if err != nil {
		respondControllerError(w, "Failed to refresh board", err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

type sessionRequest struct {
	Token   string          `json:"token"`
	Profile json.RawMessage `json:"profile"`
}

// GetSession returns the signed-in profile
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Active(r.Context())
	if err != nil {
		respondControllerError(w, "Failed to fetch session", err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// CreateSession signs in
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "Token is required", nil)
		return
	}

	s, err := h.sessions.Save(r.Context(), req.Token, req.Profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// DeleteSession signs out
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondControllerError maps domain errors to status codes
func respondControllerError(w http.ResponseWriter, message string, err error) {
	var apiErr *insights.APIError
	switch {
	case errors.Is(err, repository.ErrNoSession):
		respondError(w, http.StatusUnauthorized, "Not signed in", err)
	case errors.Is(err, controller.ErrNoParser), errors.Is(err, controller.ErrNoBoard):
		respondError(w, http.StatusNotFound, message, err)
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Unauthorized() {
			status = http.StatusUnauthorized
		}
		respondError(w, status, message, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
