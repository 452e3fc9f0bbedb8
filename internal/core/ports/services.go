// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/google/uuid"
)

// SearchFilters narrows the availability search. Every field is
// optional; zero values mean "no constraint".
type SearchFilters struct {
	NameQuery  string            `json:"name_query,omitempty"`
	BloodGroup domain.BloodGroup `json:"blood_group,omitempty"`
	Location   string            `json:"location,omitempty"`
}

// AvailabilityService defines the application service port for the
// availability search. This interface is implemented by the application
// service.
type AvailabilityService interface {
	// Search returns per-bank availability matching the filters, ordered
	// by total units descending. No matches yields an empty slice, not
	// an error. Search never mutates state.
	Search(ctx context.Context, filters SearchFilters) ([]domain.AggregatedBankResult, error)
}

// SubmitRequestInput carries everything needed to submit a blood request
type SubmitRequestInput struct {
	Requester     domain.Session
	BloodBankID   uuid.UUID
	BloodGroup    domain.BloodGroup
	Quantity      int
	Urgency       domain.Urgency
	PatientName   string
	ContactNumber string
	HospitalName  string
	Reason        string
	RequiredBy    time.Time
}

// RequestService defines the application service port for the blood
// request workflow.
type RequestService interface {
	Submit(ctx context.Context, input SubmitRequestInput) (*domain.BloodRequest, error)
	Approve(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error)
	Deny(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error)
	Fulfill(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error)
	GetByID(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error)
	ListForUser(ctx context.Context, session domain.Session) ([]domain.BloodRequest, error)
}

// ScheduleDonationInput carries everything needed to schedule a donation
type ScheduleDonationInput struct {
	Donor        domain.Session
	BloodBankID  uuid.UUID
	BloodGroup   domain.BloodGroup
	Quantity     int
	DonationDate time.Time
	Notes        string
}

// DonationService defines the application service port for donation
// scheduling and completion.
type DonationService interface {
	Schedule(ctx context.Context, input ScheduleDonationInput) (*domain.Donation, error)
	Complete(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error)
	Cancel(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error)
	ListForUser(ctx context.Context, session domain.Session) ([]domain.Donation, error)
}

// NotificationService defines the application service port for the
// in-app notification feed.
type NotificationService interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
