// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors shared across services
var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change violates the
	// request or donation state machine
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when the session role does not permit the
	// attempted operation
	ErrForbidden = errors.New("operation not permitted for role")
)

// ValidationError reports malformed or out-of-range caller input. It is
// always returned before any repository call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InsufficientInventoryError reports that a bank cannot cover the
// requested quantity. Available carries the actual count found so the
// caller can surface it.
type InsufficientInventoryError struct {
	BloodBankID uuid.UUID
	BloodGroup  BloodGroup
	Requested   int
	Available   int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: only %d units available", e.Available)
}

// DependencyError wraps a failure from an underlying dependency such as
// the database. Op names the operation that failed.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency failure in %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// NotificationDeliveryError reports a failed delivery attempt to an
// external channel. It is logged by callers and never propagated to the
// primary operation's result.
type NotificationDeliveryError struct {
	Channel string
	Err     error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}
