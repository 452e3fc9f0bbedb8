// internal/handlers/notifications.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
)

// NotificationHandler serves the in-app notification feed
type NotificationHandler struct {
	service ports.NotificationService
	logger  *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service ports.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "notifications")),
	}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	notifications, err := h.service.List(ctx, session.UserID, limit)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	unread, err := h.service.UnreadCount(ctx, session.UserID)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         len(notifications),
		"unread":        unread,
	})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid notification ID format")
		return
	}

	if err := h.service.MarkRead(ctx, session.UserID, id); err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	n, err := h.service.MarkAllRead(ctx, session.UserID)
	if err != nil {
		respondServiceError(h.logger, w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "read",
		"count":  n,
	})
}
