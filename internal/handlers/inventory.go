// internal/handlers/inventory.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/services"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
)

// InventoryHandler handles bank-side inventory management
type InventoryHandler struct {
	service     *services.InventoryService
	invalidator *redis_a.CacheManager
	logger      *slog.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service *services.InventoryService, invalidator *redis_a.CacheManager, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:     service,
		invalidator: invalidator,
		logger:      logger.With(slog.String("handler", "inventory")),
	}
}

// AddInventoryBody is the request body for registering units
type AddInventoryBody struct {
	Units []AddInventoryUnit `json:"units"`
}

// AddInventoryUnit describes one unit batch to register
type AddInventoryUnit struct {
	BloodGroup string    `json:"blood_group"`
	Quantity   int       `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// List handles GET /api/v1/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	bankID, err := h.resolveBankID(session, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if bankID == uuid.Nil {
		respondError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	units, err := h.service.ListByBank(ctx, bankID)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if units == nil {
		units = []domain.InventoryUnit{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"units": units,
		"total": len(units),
	})
}

// Add handles POST /api/v1/inventory
func (h *InventoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	bankID, err := h.resolveBankID(session, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if bankID == uuid.Nil {
		respondError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var body AddInventoryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body.Units) == 0 {
		respondError(w, http.StatusBadRequest, "At least one unit is required")
		return
	}

	units := make([]domain.InventoryUnit, 0, len(body.Units))
	for _, u := range body.Units {
		units = append(units, domain.InventoryUnit{
			BloodBankID: bankID,
			BloodGroup:  domain.BloodGroup(u.BloodGroup),
			Quantity:    u.Quantity,
			ExpiryDate:  u.ExpiryDate,
		})
	}

	if err := h.service.SaveUnits(ctx, units); err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if h.invalidator != nil {
		if err := h.invalidator.InvalidateBankCache(ctx, bankID.String()); err != nil {
			h.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("bank_id", bankID.String()),
				slog.String("error", err.Error()))
		}
	}

	h.logger.InfoContext(ctx, "inventory units registered",
		slog.String("bank_id", bankID.String()),
		slog.Int("count", len(units)))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "created",
		"count":  len(units),
	})
}

// resolveBankID picks the bank whose inventory is being managed. Banks
// operate on their own stock; admins pass an explicit bank_id.
func (h *InventoryHandler) resolveBankID(session domain.Session, r *http.Request) (uuid.UUID, error) {
	switch session.Role {
	case domain.RoleBloodBank:
		return session.UserID, nil
	case domain.RoleAdmin:
		raw := r.URL.Query().Get("bank_id")
		if raw == "" {
			return uuid.Nil, &domain.ValidationError{Field: "bank_id", Reason: "is required for admin access"}
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, &domain.ValidationError{Field: "bank_id", Reason: "must be a valid UUID"}
		}
		return id, nil
	default:
		return uuid.Nil, nil
	}
}
