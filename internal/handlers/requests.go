// internal/handlers/requests.go
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

// RequestHandler handles the blood request workflow endpoints
type RequestHandler struct {
	service ports.RequestService
	logger  *slog.Logger
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(service ports.RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "requests")),
	}
}

// SubmitRequestBody is the request body for submitting a blood request
type SubmitRequestBody struct {
	BloodBankID   uuid.UUID `json:"blood_bank_id"`
	BloodGroup    string    `json:"blood_group"`
	Quantity      int       `json:"quantity"`
	Urgency       string    `json:"urgency,omitempty"`
	PatientName   string    `json:"patient_name"`
	ContactNumber string    `json:"contact_number"`
	HospitalName  string    `json:"hospital_name"`
	Reason        string    `json:"reason"`
	RequiredBy    time.Time `json:"required_by"`
}

// Submit handles POST /api/v1/requests
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body SubmitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.service.Submit(ctx, ports.SubmitRequestInput{
		Requester:     session,
		BloodBankID:   body.BloodBankID,
		BloodGroup:    domain.BloodGroup(body.BloodGroup),
		Quantity:      body.Quantity,
		Urgency:       domain.Urgency(body.Urgency),
		PatientName:   body.PatientName,
		ContactNumber: body.ContactNumber,
		HospitalName:  body.HospitalName,
		Reason:        body.Reason,
		RequiredBy:    body.RequiredBy,
	})
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, request)
}

// List handles GET /api/v1/requests
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.service.ListForUser(ctx, session)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if requests == nil {
		requests = []domain.BloodRequest{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    len(requests),
	})
}

// Get handles GET /api/v1/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withRequest(w, r, h.service.GetByID)
}

// Approve handles POST /api/v1/requests/{id}/approve
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withRequest(w, r, h.service.Approve)
}

// Deny handles POST /api/v1/requests/{id}/deny
func (h *RequestHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.withRequest(w, r, h.service.Deny)
}

// Fulfill handles POST /api/v1/requests/{id}/fulfill
func (h *RequestHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	h.withRequest(w, r, h.service.Fulfill)
}

type requestOp func(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error)

func (h *RequestHandler) withRequest(w http.ResponseWriter, r *http.Request, op requestOp) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	request, err := op(ctx, session, id)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, request)
}
