// internal/handlers/search.go
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// SearchHandler serves the public availability search
type SearchHandler struct {
	service ports.AvailabilityService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service ports.AvailabilityService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "search")),
	}
}

// SearchResponse wraps the aggregated availability results
type SearchResponse struct {
	Results    []domain.AggregatedBankResult `json:"results"`
	TotalBanks int                           `json:"total_banks"`
	Timestamp  time.Time                     `json:"timestamp"`
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filters := ports.SearchFilters{
		NameQuery: r.URL.Query().Get("name"),
		Location:  r.URL.Query().Get("location"),
	}

	if group := r.URL.Query().Get("blood_group"); group != "" {
		bg := domain.BloodGroup(group)
		if !bg.Valid() {
			respondError(w, http.StatusBadRequest, "Invalid blood group")
			return
		}
		filters.BloodGroup = bg
	}

	results, err := h.service.Search(ctx, filters)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if results == nil {
		results = []domain.AggregatedBankResult{}
	}

	respondJSON(w, http.StatusOK, SearchResponse{
		Results:    results,
		TotalBanks: len(results),
		Timestamp:  time.Now(),
	})
}
