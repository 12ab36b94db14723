package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aegis-analytics/tacticalfit-service/internal/models"
	"github.com/aegis-analytics/tacticalfit-service/internal/service"
)

// FitHandler handles HTTP requests for profiles and fit scores
type FitHandler struct {
	service *service.FitService
	logger  zerolog.Logger
}

// NewFitHandler creates a new fit HTTP handler
func NewFitHandler(svc *service.FitService, logger zerolog.Logger) *FitHandler {
	return &FitHandler{
		service: svc,
		logger:  logger.With().Str("component", "fit_handler").Logger(),
	}
}

// RegisterRoutes registers HTTP routes with the provided mux
func (h *FitHandler) RegisterRoutes(mux *http.ServeMux) {
	// POST /api/v1/scores - Score one entity pair
	mux.HandleFunc("/api/v1/scores", h.handleScore)

	// GET /api/v1/profiles/:entity_id - Build or fetch one profile
	mux.HandleFunc("/api/v1/profiles/", h.handleGetProfile)

	// POST /api/v1/squadfit - Rank a candidate squad against a manager
	mux.HandleFunc("/api/v1/squadfit", h.handleSquadFit)
}

// scoreResponse pairs a score with its gap summary, so consumers can decide
// whether to trust the number
type scoreResponse struct {
	Score *models.Score     `json:"score"`
	Gaps  models.GapSummary `json:"gaps"`
}

// profileResponse pairs a profile with its gap summary
type profileResponse struct {
	Profile *models.Profile   `json:"profile"`
	Gaps    models.GapSummary `json:"gaps"`
}

// handleScore handles POST /api/v1/scores
func (h *FitHandler) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req service.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.EntityA == "" || req.EntityB == "" {
		h.errorResponse(w, http.StatusBadRequest, "entity_a and entity_b are required")
		return
	}

	score, gaps, err := h.service.ScorePair(r.Context(), req)
	if err != nil {
		h.scoringError(w, err, req.EntityA, req.EntityB)
		return
	}

	h.jsonResponse(w, http.StatusOK, scoreResponse{Score: score, Gaps: gaps})
}

// handleGetProfile handles GET /api/v1/profiles/:entity_id
// Window is given either as ?last_n=10 or as ?from=...&to=... (RFC 3339).
func (h *FitHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entityID := strings.TrimPrefix(r.URL.Path, "/api/v1/profiles/")
	if entityID == "" || strings.Contains(entityID, "/") {
		h.errorResponse(w, http.StatusBadRequest, "invalid path: expected /api/v1/profiles/:entity_id")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, gaps, err := h.service.BuildProfile(r.Context(), entityID, window)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("entity_id", entityID).
			Msg("failed to build profile")
		h.errorResponse(w, http.StatusInternalServerError, "failed to build profile")
		return
	}

	h.jsonResponse(w, http.StatusOK, profileResponse{Profile: profile, Gaps: gaps})
}

// handleSquadFit handles POST /api/v1/squadfit
func (h *FitHandler) handleSquadFit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req service.SquadFitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ManagerID == "" || len(req.Candidates) == 0 {
		h.errorResponse(w, http.StatusBadRequest, "manager_id and candidates are required")
		return
	}

	result, err := h.service.SquadFit(r.Context(), req)
	if err != nil {
		h.scoringError(w, err, req.ManagerID, "")
		return
	}

	h.jsonResponse(w, http.StatusOK, result)
}

// scoringError maps pipeline errors onto HTTP statuses: configuration errors
// are the caller's to fix, no usable metrics is a semantically distinct 422.
func (h *FitHandler) scoringError(w http.ResponseWriter, err error, entityA, entityB string) {
	logEvent := h.logger.Warn().Err(err).Str("entity_a", entityA)
	if entityB != "" {
		logEvent = logEvent.Str("entity_b", entityB)
	}

	switch {
	case errors.Is(err, models.ErrNoUsableMetrics):
		logEvent.Msg("no usable metrics")
		h.errorResponse(w, http.StatusUnprocessableEntity, "no usable metrics shared between profiles")
	case models.IsConfigurationError(err):
		logEvent.Msg("invalid scoring configuration")
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		logEvent.Msg("scoring failed")
		h.errorResponse(w, http.StatusInternalServerError, "scoring failed")
	}
}

// parseWindow builds a window from query parameters
func parseWindow(r *http.Request) (models.Window, error) {
	q := r.URL.Query()
	var window models.Window

	if lastN := q.Get("last_n"); lastN != "" {
		n, err := strconv.Atoi(lastN)
		if err != nil || n <= 0 {
			return models.Window{}, errParam("last_n must be a positive integer")
		}
		window.LastN = n
		return window, nil
	}

	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		return models.Window{}, errParam("window requires either last_n or from/to parameters")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return models.Window{}, errParam("from must be RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return models.Window{}, errParam("to must be RFC 3339")
	}
	window.Start, window.End = start, end
	return window, window.Validate()
}

type errParam string

func (e errParam) Error() string { return string(e) }

// jsonResponse writes a JSON response
func (h *FitHandler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// errorResponse writes a JSON error response
func (h *FitHandler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
