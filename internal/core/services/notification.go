// internal/core/services/notification.go
package services

import (
	"context"
	"log/slog"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/google/uuid"
)

const defaultFeedLimit = 50

// NotificationService serves the in-app notification feed
type NotificationService struct {
	repo   ports.NotificationRepository
	logger *slog.Logger
}

// Statically assert that *NotificationService implements the NotificationService interface.
var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates a new notification service
func NewNotificationService(repo ports.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.With(slog.String("service", "notification")),
	}
}

// List returns the newest notifications for a user
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultFeedLimit
	}
	items, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, &domain.DependencyError{Op: "notification.list", Err: err}
	}
	return items, nil
}

// UnreadCount returns the number of unread notifications for a user
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, &domain.DependencyError{Op: "notification.unread_count", Err: err}
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return &domain.DependencyError{Op: "notification.mark_read", Err: err}
	}
	return nil
}

// MarkAllRead marks every unread notification for the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, &domain.DependencyError{Op: "notification.mark_all_read", Err: err}
	}
	s.logger.DebugContext(ctx, "notifications marked read",
		slog.String("user_id", userID.String()),
		slog.Int64("count", n))
	return n, nil
}
