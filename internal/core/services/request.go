// internal/core/services/request.go
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

// RequestService handles the blood request workflow
type RequestService struct {
	requests  ports.RequestRepository
	inventory ports.InventoryRepository
	users     ports.UserRepository
	notifier  ports.NotificationDispatcher
	logger    *slog.Logger
	now       func() time.Time
}

// Statically assert that *RequestService implements the RequestService interface.
var _ ports.RequestService = (*RequestService)(nil)

// NewRequestService creates a new request service
func NewRequestService(
	requests ports.RequestRepository,
	inventory ports.InventoryRepository,
	users ports.UserRepository,
	notifier ports.NotificationDispatcher,
	logger *slog.Logger,
) *RequestService {
	return &RequestService{
		requests:  requests,
		inventory: inventory,
		users:     users,
		notifier:  notifier,
		logger:    logger.With(slog.String("service", "request")),
		now:       time.Now,
	}
}

// Submit validates the input, re-checks the bank's live availability,
// and inserts a pending request. The availability check is a fresh read
// at submission time; the final allocation decision happens at approval,
// where the decrement is atomic. After the insert succeeds the bank is
// notified best-effort: a delivery failure is logged and the request
// stands.
func (s *RequestService) Submit(ctx context.Context, input ports.SubmitRequestInput) (*domain.BloodRequest, error) {
	if !input.Requester.Role.CanSubmitRequest() {
		return nil, fmt.Errorf("role %s cannot submit requests: %w", input.Requester.Role, domain.ErrForbidden)
	}

	req := &domain.BloodRequest{
		RequesterID:   input.Requester.UserID,
		AssignedBank:  input.BloodBankID,
		BloodGroup:    input.BloodGroup,
		Quantity:      input.Quantity,
		Urgency:       input.Urgency,
		PatientName:   input.PatientName,
		ContactNumber: input.ContactNumber,
		HospitalName:  input.HospitalName,
		Reason:        input.Reason,
		RequiredBy:    input.RequiredBy,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bank, err := s.users.FindBankByID(ctx, input.BloodBankID)
	if err != nil {
		return nil, &domain.DependencyError{Op: "request.find_bank", Err: err}
	}
	if bank == nil || !bank.Active {
		return nil, fmt.Errorf("blood bank %s: %w", input.BloodBankID, domain.ErrNotFound)
	}

	available, err := s.inventory.AvailableQuantity(ctx, input.BloodBankID, input.BloodGroup, s.now())
	if err != nil {
		return nil, &domain.DependencyError{Op: "request.check_availability", Err: err}
	}
	if available < input.Quantity {
		return nil, &domain.InsufficientInventoryError{
			BloodBankID: input.BloodBankID,
			BloodGroup:  input.BloodGroup,
			Requested:   input.Quantity,
			Available:   available,
		}
	}

	req.PrepareForStorage()
	if err := s.requests.Insert(ctx, req); err != nil {
		return nil, &domain.DependencyError{Op: "request.insert", Err: err}
	}

	s.logger.InfoContext(ctx, "blood request submitted",
		slog.String("request_id", req.ID.String()),
		slog.String("bank_id", req.AssignedBank.String()),
		slog.String("blood_group", string(req.BloodGroup)),
		slog.Int("quantity", req.Quantity))

	s.notifyBestEffort(ctx, domain.NewRequestNotification(req))

	return req, nil
}

// Approve moves a pending request to approved, consuming the bank's
// stock through an atomic conditional decrement. If stock no longer
// covers the request the reservation fails, nothing is decremented, and
// the request stays pending.
func (s *RequestService) Approve(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.loadForReview(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(domain.RequestApproved) {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, domain.ErrInvalidTransition)
	}

	if err := s.inventory.Reserve(ctx, req.AssignedBank, req.BloodGroup, req.Quantity); err != nil {
		return nil, err
	}

	return s.transition(ctx, req, domain.RequestApproved)
}

// Deny moves a pending or approved request to denied
func (s *RequestService) Deny(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.loadForReview(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(domain.RequestDenied) {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, domain.ErrInvalidTransition)
	}
	return s.transition(ctx, req, domain.RequestDenied)
}

// Fulfill moves an approved request to fulfilled
func (s *RequestService) Fulfill(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.loadForReview(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(domain.RequestFulfilled) {
		return nil, fmt.Errorf("request %s is %s: %w", id, req.Status, domain.ErrInvalidTransition)
	}
	return s.transition(ctx, req, domain.RequestFulfilled)
}

// GetByID returns one request, scoped to what the session may see
func (s *RequestService) GetByID(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, &domain.DependencyError{Op: "request.find", Err: err}
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}

	switch session.Role {
	case domain.RoleAdmin:
	case domain.RoleBloodBank:
		if req.AssignedBank != session.UserID {
			return nil, domain.ErrForbidden
		}
	default:
		if req.RequesterID != session.UserID {
			return nil, domain.ErrForbidden
		}
	}
	return req, nil
}

// ListForUser returns the requests visible to the session: their own for
// recipients, their bank's queue for banks, everything for admins.
func (s *RequestService) ListForUser(ctx context.Context, session domain.Session) ([]domain.BloodRequest, error) {
	var (
		reqs []domain.BloodRequest
		err  error
	)
	switch session.Role {
	case domain.RoleAdmin:
		reqs, err = s.requests.List(ctx, ports.RequestListParams{})
	case domain.RoleBloodBank:
		reqs, err = s.requests.ListByBank(ctx, session.UserID)
	default:
		reqs, err = s.requests.ListByRequester(ctx, session.UserID)
	}
	if err != nil {
		return nil, &domain.DependencyError{Op: "request.list", Err: err}
	}
	return reqs, nil
}

func (s *RequestService) loadForReview(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.BloodRequest, error) {
	if !session.Role.CanReviewRequests() {
		return nil, fmt.Errorf("role %s cannot review requests: %w", session.Role, domain.ErrForbidden)
	}
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, &domain.DependencyError{Op: "request.find", Err: err}
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, domain.ErrNotFound)
	}
	if session.Role == domain.RoleBloodBank && req.AssignedBank != session.UserID {
		return nil, domain.ErrForbidden
	}
	return req, nil
}

func (s *RequestService) transition(ctx context.Context, req *domain.BloodRequest, target domain.RequestStatus) (*domain.BloodRequest, error) {
	if err := s.requests.UpdateStatus(ctx, req.ID, target); err != nil {
		return nil, &domain.DependencyError{Op: "request.update_status", Err: err}
	}
	req.Status = target
	req.UpdatedAt = s.now()

	s.logger.InfoContext(ctx, "blood request transitioned",
		slog.String("request_id", req.ID.String()),
		slog.String("status", string(target)))

	s.notifyBestEffort(ctx, domain.NewRequestUpdateNotification(req))
	return req, nil
}

func (s *RequestService) notifyBestEffort(ctx context.Context, n *domain.Notification) {
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			slog.String("user_id", n.UserID.String()),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()))
	}
}
