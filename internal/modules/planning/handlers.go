package planning

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/domain"
	"github.com/aristath/adbudget/internal/modules/simulation"
)

// Handler handles HTTP requests for the planning module. It owns request
// parsing and response shaping only; all optimization logic lives in the
// service.
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new planning handler.
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "planning_handler").Logger(),
	}
}

// RegisterRoutes registers the planning routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/optimize", h.HandleOptimize)
}

// HandleOptimize handles POST /api/optimize.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Upstream validation: reject malformed requests before they reach the
	// engine. The engine revalidates defensively regardless.
	if req.Budget <= 0 {
		h.writeError(w, http.StatusBadRequest, "budget must be a positive number")
		return
	}
	if err := req.Priors.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Assumptions.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Runs != 0 && (req.Runs < simulation.MinRuns || req.Runs > simulation.MaxRuns) {
		h.writeError(w, http.StatusBadRequest, "runs outside supported range")
		return
	}

	response, err := h.service.Optimize(req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInfeasibleConstraints),
			errors.Is(err, domain.ErrInvalidAssumptions),
			errors.Is(err, domain.ErrInvalidInput),
			errors.Is(err, domain.ErrEmptyEnsemble):
			status = http.StatusUnprocessableEntity
		}
		h.log.Error().Err(err).Msg("Optimization failed")
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
