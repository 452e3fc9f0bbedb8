// internal/workers/dispatcher.go
package workers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// TaskEnqueuer is the slice of asynq.Client the dispatcher needs
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher stores notifications and queues their delivery. The stored
// row is the primary record; a queueing failure is logged and does not
// surface to the caller, so the operation that triggered the
// notification is never affected by the delivery pipeline.
type Dispatcher struct {
	repo   ports.NotificationRepository
	queue  TaskEnqueuer
	logger *slog.Logger
}

// Statically assert that *Dispatcher implements the NotificationDispatcher interface.
var _ ports.NotificationDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(repo ports.NotificationRepository, queue TaskEnqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		queue:  queue,
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch persists the notification and enqueues its delivery
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	n.PrepareForStorage()

	if err := d.repo.Insert(ctx, n); err != nil {
		return &domain.NotificationDeliveryError{Channel: "store", Err: err}
	}

	task, err := NewNotificationDeliverTask(n)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to build delivery task",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()))
		return nil
	}

	if _, err := d.queue.EnqueueContext(ctx, task); err != nil {
		d.logger.WarnContext(ctx, "failed to enqueue notification delivery",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()))
	}

	return nil
}
