// internal/core/services/request_test.go
package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/core/services"
	"github.com/akash684/bloodbank-be/test/helpers"
	"github.com/akash684/bloodbank-be/test/mocks"
)

type requestServiceMocks struct {
	requests  *mocks.MockRequestRepository
	inventory *mocks.MockInventoryRepository
	users     *mocks.MockUserRepository
	notifier  *mocks.MockNotificationDispatcher
}

func newRequestService(t *testing.T) (*services.RequestService, requestServiceMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := requestServiceMocks{
		requests:  mocks.NewMockRequestRepository(ctrl),
		inventory: mocks.NewMockInventoryRepository(ctrl),
		users:     mocks.NewMockUserRepository(ctrl),
		notifier:  mocks.NewMockNotificationDispatcher(ctrl),
	}
	svc := services.NewRequestService(m.requests, m.inventory, m.users, m.notifier, helpers.TestLogger())
	return svc, m
}

func recipientSession() domain.Session {
	return domain.Session{
		UserID:    uuid.New(),
		Role:      domain.RoleRecipient,
		Name:      "Rita Recipient",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func bankSession(bankID uuid.UUID) domain.Session {
	return domain.Session{
		UserID:    bankID,
		Role:      domain.RoleBloodBank,
		Name:      "City General Blood Bank",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func submitInput(session domain.Session, bankID uuid.UUID) ports.SubmitRequestInput {
	return ports.SubmitRequestInput{
		Requester:     session,
		BloodBankID:   bankID,
		BloodGroup:    domain.GroupOPositive,
		Quantity:      5,
		Urgency:       domain.UrgencyHigh,
		PatientName:   "Jordan Case",
		ContactNumber: "+1-555-0400",
		HospitalName:  "City General Hospital",
		Reason:        "Scheduled surgery",
		RequiredBy:    time.Now().Add(72 * time.Hour),
	}
}

func TestRequestService_Submit_Success(t *testing.T) {
	svc, m := newRequestService(t)

	bank := helpers.CreateTestBank()
	session := recipientSession()
	input := submitInput(session, bank.ID)

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.inventory.EXPECT().AvailableQuantity(gomock.Any(), bank.ID, domain.GroupOPositive, gomock.Any()).Return(12, nil)
	m.requests.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	req, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Equal(t, session.UserID, req.RequesterID)
	assert.Equal(t, bank.ID, req.AssignedBank)
	assert.Equal(t, 5, req.Quantity)
	assert.NotEqual(t, uuid.Nil, req.ID)
}

func TestRequestService_Submit_RoleRejected(t *testing.T) {
	svc, _ := newRequestService(t)

	for _, role := range []domain.Role{domain.RoleDonor, domain.RoleBloodBank} {
		t.Run(string(role), func(t *testing.T) {
			session := recipientSession()
			session.Role = role

			req, err := svc.Submit(context.Background(), submitInput(session, uuid.New()))
			assert.Nil(t, req)
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}

func TestRequestService_Submit_ValidationBeforeRepositoryCalls(t *testing.T) {
	// No repository expectations are registered: a validation failure
	// must return before any dependency is touched.
	svc, _ := newRequestService(t)
	session := recipientSession()

	tests := []struct {
		name   string
		mutate func(*ports.SubmitRequestInput)
	}{
		{
			name:   "zero_quantity",
			mutate: func(in *ports.SubmitRequestInput) { in.Quantity = 0 },
		},
		{
			name:   "unknown_blood_group",
			mutate: func(in *ports.SubmitRequestInput) { in.BloodGroup = "XYZ" },
		},
		{
			name:   "missing_patient_name",
			mutate: func(in *ports.SubmitRequestInput) { in.PatientName = "" },
		},
		{
			name:   "missing_contact_number",
			mutate: func(in *ports.SubmitRequestInput) { in.ContactNumber = "" },
		},
		{
			name:   "missing_hospital",
			mutate: func(in *ports.SubmitRequestInput) { in.HospitalName = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := submitInput(session, uuid.New())
			tt.mutate(&input)

			req, err := svc.Submit(context.Background(), input)
			assert.Nil(t, req)

			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRequestService_Submit_BankInactiveOrMissing(t *testing.T) {
	svc, m := newRequestService(t)
	session := recipientSession()

	t.Run("bank_not_found", func(t *testing.T) {
		bankID := uuid.New()
		m.users.EXPECT().FindBankByID(gomock.Any(), bankID).Return(nil, nil)

		req, err := svc.Submit(context.Background(), submitInput(session, bankID))
		assert.Nil(t, req)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bank_inactive", func(t *testing.T) {
		bank := helpers.CreateTestBank(func(b *domain.BloodBank) { b.Active = false })
		m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)

		req, err := svc.Submit(context.Background(), submitInput(session, bank.ID))
		assert.Nil(t, req)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRequestService_Submit_InsufficientInventory(t *testing.T) {
	svc, m := newRequestService(t)

	bank := helpers.CreateTestBank()
	session := recipientSession()
	input := submitInput(session, bank.ID)
	input.Quantity = 999

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.inventory.EXPECT().AvailableQuantity(gomock.Any(), bank.ID, domain.GroupOPositive, gomock.Any()).Return(12, nil)

	req, err := svc.Submit(context.Background(), input)
	assert.Nil(t, req)

	var insErr *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, 999, insErr.Requested)
	assert.Equal(t, 12, insErr.Available)
	assert.Equal(t, domain.GroupOPositive, insErr.BloodGroup)
}

func TestRequestService_Submit_NotificationFailureDoesNotAffectResult(t *testing.T) {
	svc, m := newRequestService(t)

	bank := helpers.CreateTestBank()
	session := recipientSession()

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.inventory.EXPECT().AvailableQuantity(gomock.Any(), bank.ID, domain.GroupOPositive, gomock.Any()).Return(12, nil)
	m.requests.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("queue unavailable"))

	req, err := svc.Submit(context.Background(), submitInput(session, bank.ID))
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, domain.RequestPending, req.Status)
}

func TestRequestService_Submit_InsertFailure(t *testing.T) {
	svc, m := newRequestService(t)

	bank := helpers.CreateTestBank()
	session := recipientSession()

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.inventory.EXPECT().AvailableQuantity(gomock.Any(), bank.ID, domain.GroupOPositive, gomock.Any()).Return(12, nil)
	m.requests.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	req, err := svc.Submit(context.Background(), submitInput(session, bank.ID))
	assert.Nil(t, req)

	var depErr *domain.DependencyError
	require.ErrorAs(t, err, &depErr)
}

func TestRequestService_Approve_ReservesAtomically(t *testing.T) {
	svc, m := newRequestService(t)

	bankID := uuid.New()
	pending := helpers.CreateTestRequest(uuid.New(), bankID)

	m.requests.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	m.inventory.EXPECT().Reserve(gomock.Any(), bankID, domain.GroupOPositive, 5).Return(nil)
	m.requests.EXPECT().UpdateStatus(gomock.Any(), pending.ID, domain.RequestApproved).Return(nil)
	m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	req, err := svc.Approve(context.Background(), bankSession(bankID), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, req.Status)
}

func TestRequestService_Approve_InsufficientStockLeavesRequestPending(t *testing.T) {
	svc, m := newRequestService(t)

	bankID := uuid.New()
	pending := helpers.CreateTestRequest(uuid.New(), bankID)

	m.requests.EXPECT().FindByID(gomock.Any(), pending.ID).Return(pending, nil)
	m.inventory.EXPECT().
		Reserve(gomock.Any(), bankID, domain.GroupOPositive, 5).
		Return(&domain.InsufficientInventoryError{
			BloodBankID: bankID,
			BloodGroup:  domain.GroupOPositive,
			Requested:   5,
			Available:   2,
		})
	// No UpdateStatus expectation: the transition must not happen.

	req, err := svc.Approve(context.Background(), bankSession(bankID), pending.ID)
	assert.Nil(t, req)

	var insErr *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, 2, insErr.Available)
	assert.Equal(t, domain.RequestPending, pending.Status)
}

func TestRequestService_Approve_InvalidTransition(t *testing.T) {
	svc, m := newRequestService(t)
	bankID := uuid.New()

	for _, status := range []domain.RequestStatus{domain.RequestApproved, domain.RequestDenied, domain.RequestFulfilled} {
		t.Run(string(status), func(t *testing.T) {
			req := helpers.CreateTestRequest(uuid.New(), bankID, func(r *domain.BloodRequest) {
				r.Status = status
			})
			m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)

			result, err := svc.Approve(context.Background(), bankSession(bankID), req.ID)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		})
	}
}

func TestRequestService_Deny_FromPendingAndApproved(t *testing.T) {
	svc, m := newRequestService(t)
	bankID := uuid.New()

	for _, status := range []domain.RequestStatus{domain.RequestPending, domain.RequestApproved} {
		t.Run(string(status), func(t *testing.T) {
			req := helpers.CreateTestRequest(uuid.New(), bankID, func(r *domain.BloodRequest) {
				r.Status = status
			})
			m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)
			m.requests.EXPECT().UpdateStatus(gomock.Any(), req.ID, domain.RequestDenied).Return(nil)
			m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

			result, err := svc.Deny(context.Background(), bankSession(bankID), req.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RequestDenied, result.Status)
		})
	}
}

func TestRequestService_Fulfill_RequiresApproved(t *testing.T) {
	svc, m := newRequestService(t)
	bankID := uuid.New()

	t.Run("approved_fulfills", func(t *testing.T) {
		req := helpers.CreateTestRequest(uuid.New(), bankID, func(r *domain.BloodRequest) {
			r.Status = domain.RequestApproved
		})
		m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)
		m.requests.EXPECT().UpdateStatus(gomock.Any(), req.ID, domain.RequestFulfilled).Return(nil)
		m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

		result, err := svc.Fulfill(context.Background(), bankSession(bankID), req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestFulfilled, result.Status)
	})

	t.Run("pending_cannot_fulfill", func(t *testing.T) {
		req := helpers.CreateTestRequest(uuid.New(), bankID)
		m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)

		result, err := svc.Fulfill(context.Background(), bankSession(bankID), req.ID)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestRequestService_Review_ScopedToAssignedBank(t *testing.T) {
	svc, m := newRequestService(t)

	assignedBank := uuid.New()
	otherBank := uuid.New()
	req := helpers.CreateTestRequest(uuid.New(), assignedBank)

	m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)

	result, err := svc.Approve(context.Background(), bankSession(otherBank), req.ID)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRequestService_Review_RoleRejected(t *testing.T) {
	svc, _ := newRequestService(t)

	session := recipientSession()
	result, err := svc.Approve(context.Background(), session, uuid.New())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRequestService_GetByID_Visibility(t *testing.T) {
	svc, m := newRequestService(t)

	requesterID := uuid.New()
	bankID := uuid.New()
	req := helpers.CreateTestRequest(requesterID, bankID)

	t.Run("requester_sees_own", func(t *testing.T) {
		m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)
		session := recipientSession()
		session.UserID = requesterID

		result, err := svc.GetByID(context.Background(), session, req.ID)
		require.NoError(t, err)
		assert.Equal(t, req.ID, result.ID)
	})

	t.Run("stranger_forbidden", func(t *testing.T) {
		m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)

		result, err := svc.GetByID(context.Background(), recipientSession(), req.ID)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("admin_sees_all", func(t *testing.T) {
		m.requests.EXPECT().FindByID(gomock.Any(), req.ID).Return(req, nil)
		session := recipientSession()
		session.Role = domain.RoleAdmin

		result, err := svc.GetByID(context.Background(), session, req.ID)
		require.NoError(t, err)
		assert.Equal(t, req.ID, result.ID)
	})

	t.Run("not_found", func(t *testing.T) {
		missing := uuid.New()
		m.requests.EXPECT().FindByID(gomock.Any(), missing).Return(nil, nil)

		result, err := svc.GetByID(context.Background(), recipientSession(), missing)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRequestService_ListForUser_DispatchesByRole(t *testing.T) {
	svc, m := newRequestService(t)

	t.Run("recipient_lists_own", func(t *testing.T) {
		session := recipientSession()
		m.requests.EXPECT().ListByRequester(gomock.Any(), session.UserID).Return([]domain.BloodRequest{}, nil)

		_, err := svc.ListForUser(context.Background(), session)
		require.NoError(t, err)
	})

	t.Run("bank_lists_queue", func(t *testing.T) {
		bankID := uuid.New()
		m.requests.EXPECT().ListByBank(gomock.Any(), bankID).Return([]domain.BloodRequest{}, nil)

		_, err := svc.ListForUser(context.Background(), bankSession(bankID))
		require.NoError(t, err)
	})

	t.Run("admin_lists_all", func(t *testing.T) {
		session := recipientSession()
		session.Role = domain.RoleAdmin
		m.requests.EXPECT().List(gomock.Any(), ports.RequestListParams{}).Return([]domain.BloodRequest{}, nil)

		_, err := svc.ListForUser(context.Background(), session)
		require.NoError(t, err)
	})
}
