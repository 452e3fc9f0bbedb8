// internal/handlers/donations.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
)

// DonationHandler handles donation scheduling endpoints
type DonationHandler struct {
	service ports.DonationService
	logger  *slog.Logger
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(service ports.DonationService, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "donations")),
	}
}

// ScheduleDonationBody is the request body for scheduling a donation
type ScheduleDonationBody struct {
	BloodBankID  uuid.UUID `json:"blood_bank_id"`
	BloodGroup   string    `json:"blood_group"`
	Quantity     int       `json:"quantity"`
	DonationDate time.Time `json:"donation_date"`
	Notes        string    `json:"notes,omitempty"`
}

// Schedule handles POST /api/v1/donations
func (h *DonationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body ScheduleDonationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	donation, err := h.service.Schedule(ctx, ports.ScheduleDonationInput{
		Donor:        session,
		BloodBankID:  body.BloodBankID,
		BloodGroup:   domain.BloodGroup(body.BloodGroup),
		Quantity:     body.Quantity,
		DonationDate: body.DonationDate,
		Notes:        body.Notes,
	})
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, donation)
}

// List handles GET /api/v1/donations
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	donations, err := h.service.ListForUser(ctx, session)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if donations == nil {
		donations = []domain.Donation{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"donations": donations,
		"total":     len(donations),
	})
}

// Complete handles POST /api/v1/donations/{id}/complete
func (h *DonationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.withDonation(w, r, h.service.Complete)
}

// Cancel handles POST /api/v1/donations/{id}/cancel
func (h *DonationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withDonation(w, r, h.service.Cancel)
}

type donationOp func(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error)

func (h *DonationHandler) withDonation(w http.ResponseWriter, r *http.Request, op donationOp) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid donation ID format")
		return
	}

	donation, err := op(ctx, session, id)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, donation)
}
