// internal/core/ports/inventory_repository.go
package ports

import (
	"context"
	"time"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/google/uuid"
)

// InventoryRepository defines the persistence port for blood inventory.
// This interface is implemented by the database adapter.
type InventoryRepository interface {
	Save(ctx context.Context, unit *domain.InventoryUnit) error
	SaveBatch(ctx context.Context, units []domain.InventoryUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.InventoryUnit, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.InventoryUnit, error)

	// ListAvailableUnits returns every usable unit (status available,
	// quantity > 0, expiry on or after asOf) held by the given banks,
	// optionally narrowed to one blood group. Ordering is stable:
	// bank id, then expiry ascending.
	ListAvailableUnits(ctx context.Context, bankIDs []uuid.UUID, group domain.BloodGroup, asOf time.Time) ([]domain.InventoryUnit, error)

	// AvailableQuantity sums the usable quantity a single bank holds for
	// one blood group as of the given day.
	AvailableQuantity(ctx context.Context, bankID uuid.UUID, group domain.BloodGroup, asOf time.Time) (int, error)

	// Reserve atomically decrements qty units of the group from the
	// bank's usable stock, oldest expiry first, within one transaction.
	// Rows drained to zero are removed. When stock is insufficient it
	// returns InsufficientInventoryError and leaves every row untouched.
	Reserve(ctx context.Context, bankID uuid.UUID, group domain.BloodGroup, qty int) error

	// MarkExpired flips available units whose expiry passed before asOf
	// to expired, returning the number of rows changed.
	MarkExpired(ctx context.Context, asOf time.Time) (int64, error)
}

// UserRepository defines the persistence port for accounts, including
// blood bank resolution for the availability search.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ListActiveBanks returns active blood bank accounts whose name
	// contains nameQuery case-insensitively. An empty query matches all.
	ListActiveBanks(ctx context.Context, nameQuery string) ([]domain.BloodBank, error)

	FindBankByID(ctx context.Context, id uuid.UUID) (*domain.BloodBank, error)
}

// RequestRepository defines the persistence port for blood requests.
type RequestRepository interface {
	Insert(ctx context.Context, req *domain.BloodRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.BloodRequest, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.BloodRequest, error)
	List(ctx context.Context, params RequestListParams) ([]domain.BloodRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error
}

// RequestListParams holds admin-side request listing filters
type RequestListParams struct {
	Status     domain.RequestStatus
	BloodGroup domain.BloodGroup
	Urgency    domain.Urgency
	Limit      int
	Offset     int
}

// DonationRepository defines the persistence port for donations.
type DonationRepository interface {
	Insert(ctx context.Context, d *domain.Donation) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.Donation, error)
	List(ctx context.Context, params DonationListParams) ([]domain.Donation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DonationStatus) error
}

// DonationListParams holds admin-side donation listing filters
type DonationListParams struct {
	Status domain.DonationStatus
	Limit  int
	Offset int
}

// NotificationRepository defines the persistence port for in-app
// notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}
