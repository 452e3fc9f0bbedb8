// internal/core/ports/notifier.go
package ports

import (
	"context"

	"github.com/akash684/bloodbank-be/internal/core/domain"
)

// NotificationDispatcher stores a notification and hands it to the
// asynchronous delivery pipeline. Implementations must not block on
// external channels; delivery happens out of band.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification) error
}
