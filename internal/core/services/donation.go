// internal/core/services/donation.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/google/uuid"
)

// DonationService handles donation scheduling and completion
type DonationService struct {
	donations ports.DonationRepository
	inventory ports.InventoryRepository
	users     ports.UserRepository
	notifier  ports.NotificationDispatcher
	logger    *slog.Logger
	now       func() time.Time
}

// Statically assert that *DonationService implements the DonationService interface.
var _ ports.DonationService = (*DonationService)(nil)

// Completed donations become inventory with this shelf life.
const donatedUnitShelfLife = 42 * 24 * time.Hour

// NewDonationService creates a new donation service
func NewDonationService(
	donations ports.DonationRepository,
	inventory ports.InventoryRepository,
	users ports.UserRepository,
	notifier ports.NotificationDispatcher,
	logger *slog.Logger,
) *DonationService {
	return &DonationService{
		donations: donations,
		inventory: inventory,
		users:     users,
		notifier:  notifier,
		logger:    logger.With(slog.String("service", "donation")),
		now:       time.Now,
	}
}

// Schedule books a donation appointment at a bank and notifies the bank
// best-effort.
func (s *DonationService) Schedule(ctx context.Context, input ports.ScheduleDonationInput) (*domain.Donation, error) {
	if input.Donor.Role != domain.RoleDonor && input.Donor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("role %s cannot schedule donations: %w", input.Donor.Role, domain.ErrForbidden)
	}

	d := &domain.Donation{
		DonorID:      input.Donor.UserID,
		BloodBankID:  input.BloodBankID,
		BloodGroup:   input.BloodGroup,
		Quantity:     input.Quantity,
		DonationDate: input.DonationDate,
		Notes:        input.Notes,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.DonationDate.Before(s.now().Truncate(24 * time.Hour)) {
		return nil, &domain.ValidationError{Field: "donation_date", Reason: "cannot be in the past"}
	}

	bank, err := s.users.FindBankByID(ctx, input.BloodBankID)
	if err != nil {
		return nil, &domain.DependencyError{Op: "donation.find_bank", Err: err}
	}
	if bank == nil || !bank.Active {
		return nil, fmt.Errorf("blood bank %s: %w", input.BloodBankID, domain.ErrNotFound)
	}

	d.PrepareForStorage()
	if err := s.donations.Insert(ctx, d); err != nil {
		return nil, &domain.DependencyError{Op: "donation.insert", Err: err}
	}

	s.logger.InfoContext(ctx, "donation scheduled",
		slog.String("donation_id", d.ID.String()),
		slog.String("bank_id", d.BloodBankID.String()),
		slog.String("blood_group", string(d.BloodGroup)))

	s.notifyBestEffort(ctx, domain.NewDonationNotification(d, input.Donor.Name))

	return d, nil
}

// Complete marks a scheduled donation as completed and records the
// donated units as available inventory for the bank.
func (s *DonationService) Complete(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error) {
	d, err := s.loadForBank(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.CanTransitionTo(domain.DonationCompleted) {
		return nil, fmt.Errorf("donation %s is %s: %w", id, d.Status, domain.ErrInvalidTransition)
	}

	if err := s.donations.UpdateStatus(ctx, id, domain.DonationCompleted); err != nil {
		return nil, &domain.DependencyError{Op: "donation.update_status", Err: err}
	}
	d.Status = domain.DonationCompleted

	unit := domain.InventoryUnit{
		BloodBankID: d.BloodBankID,
		BloodGroup:  d.BloodGroup,
		Quantity:    d.Quantity,
		ExpiryDate:  s.now().Add(donatedUnitShelfLife),
		Status:      domain.InventoryAvailable,
	}
	unit.PrepareForStorage()
	if err := s.inventory.SaveBatch(ctx, []domain.InventoryUnit{unit}); err != nil {
		return nil, &domain.DependencyError{Op: "donation.record_inventory", Err: err}
	}

	s.logger.InfoContext(ctx, "donation completed",
		slog.String("donation_id", d.ID.String()),
		slog.Int("units_added", d.Quantity))

	return d, nil
}

// Cancel cancels a scheduled donation. The donor who booked it, the
// bank it was booked at, and admins may cancel.
func (s *DonationService) Cancel(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error) {
	d, err := s.donations.FindByID(ctx, id)
	if err != nil {
		return nil, &domain.DependencyError{Op: "donation.find", Err: err}
	}
	if d == nil {
		return nil, fmt.Errorf("donation %s: %w", id, domain.ErrNotFound)
	}

	switch session.Role {
	case domain.RoleAdmin:
	case domain.RoleBloodBank:
		if d.BloodBankID != session.UserID {
			return nil, domain.ErrForbidden
		}
	default:
		if d.DonorID != session.UserID {
			return nil, domain.ErrForbidden
		}
	}

	if !d.Status.CanTransitionTo(domain.DonationCancelled) {
		return nil, fmt.Errorf("donation %s is %s: %w", id, d.Status, domain.ErrInvalidTransition)
	}
	if err := s.donations.UpdateStatus(ctx, id, domain.DonationCancelled); err != nil {
		return nil, &domain.DependencyError{Op: "donation.update_status", Err: err}
	}
	d.Status = domain.DonationCancelled
	return d, nil
}

// ListForUser returns donations visible to the session: their own for
// donors, the bank's schedule for banks, and every donation for admins.
func (s *DonationService) ListForUser(ctx context.Context, session domain.Session) ([]domain.Donation, error) {
	var (
		donations []domain.Donation
		err       error
	)
	switch session.Role {
	case domain.RoleAdmin:
		donations, err = s.donations.List(ctx, ports.DonationListParams{})
	case domain.RoleBloodBank:
		donations, err = s.donations.ListByBank(ctx, session.UserID)
	default:
		donations, err = s.donations.ListByDonor(ctx, session.UserID)
	}
	if err != nil {
		return nil, &domain.DependencyError{Op: "donation.list", Err: err}
	}
	return donations, nil
}

func (s *DonationService) loadForBank(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Donation, error) {
	if !session.Role.CanReviewRequests() {
		return nil, fmt.Errorf("role %s cannot manage donations: %w", session.Role, domain.ErrForbidden)
	}
	d, err := s.donations.FindByID(ctx, id)
	if err != nil {
		return nil, &domain.DependencyError{Op: "donation.find", Err: err}
	}
	if d == nil {
		return nil, fmt.Errorf("donation %s: %w", id, domain.ErrNotFound)
	}
	if session.Role == domain.RoleBloodBank && d.BloodBankID != session.UserID {
		return nil, domain.ErrForbidden
	}
	return d, nil
}

func (s *DonationService) notifyBestEffort(ctx context.Context, n *domain.Notification) {
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			slog.String("user_id", n.UserID.String()),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()))
	}
}
