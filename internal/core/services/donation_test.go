// internal/core/services/donation_test.go
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

type donationServiceMocks struct {
	donations *mocks.MockDonationRepository
	inventory *mocks.MockInventoryRepository
	users     *mocks.MockUserRepository
	notifier  *mocks.MockNotificationDispatcher
}

func newDonationService(t *testing.T) (*services.DonationService, donationServiceMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := donationServiceMocks{
		donations: mocks.NewMockDonationRepository(ctrl),
		inventory: mocks.NewMockInventoryRepository(ctrl),
		users:     mocks.NewMockUserRepository(ctrl),
		notifier:  mocks.NewMockNotificationDispatcher(ctrl),
	}
	svc := services.NewDonationService(m.donations, m.inventory, m.users, m.notifier, helpers.TestLogger())
	return svc, m
}

func donorSession() domain.Session {
	return domain.Session{
		UserID:    uuid.New(),
		Role:      domain.RoleDonor,
		Name:      "Dana Donor",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func scheduleInput(session domain.Session, bankID uuid.UUID) ports.ScheduleDonationInput {
	return ports.ScheduleDonationInput{
		Donor:        session,
		BloodBankID:  bankID,
		BloodGroup:   domain.GroupOPositive,
		Quantity:     1,
		DonationDate: time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestDonationService_Schedule_Success(t *testing.T) {
	svc, m := newDonationService(t)

	bank := helpers.CreateTestBank()
	session := donorSession()

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.donations.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil)

	d, err := svc.Schedule(context.Background(), scheduleInput(session, bank.ID))
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, domain.DonationScheduled, d.Status)
	assert.Equal(t, session.UserID, d.DonorID)
	assert.NotEqual(t, uuid.Nil, d.ID)
}

func TestDonationService_Schedule_RoleRejected(t *testing.T) {
	svc, _ := newDonationService(t)

	for _, role := range []domain.Role{domain.RoleRecipient, domain.RoleBloodBank} {
		t.Run(string(role), func(t *testing.T) {
			session := donorSession()
			session.Role = role

			d, err := svc.Schedule(context.Background(), scheduleInput(session, uuid.New()))
			assert.Nil(t, d)
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}
}

func TestDonationService_Schedule_PastDateRejected(t *testing.T) {
	svc, _ := newDonationService(t)

	input := scheduleInput(donorSession(), uuid.New())
	input.DonationDate = time.Now().AddDate(0, 0, -2)

	d, err := svc.Schedule(context.Background(), input)
	assert.Nil(t, d)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "donation_date", vErr.Field)
}

func TestDonationService_Schedule_InactiveBank(t *testing.T) {
	svc, m := newDonationService(t)

	bank := helpers.CreateTestBank(func(b *domain.BloodBank) { b.Active = false })
	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)

	d, err := svc.Schedule(context.Background(), scheduleInput(donorSession(), bank.ID))
	assert.Nil(t, d)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDonationService_Complete_AddsInventory(t *testing.T) {
	svc, m := newDonationService(t)

	bankID := uuid.New()
	donation := helpers.CreateTestDonation(uuid.New(), bankID, func(d *domain.Donation) {
		d.BloodGroup = domain.GroupABNegative
		d.Quantity = 2
	})

	m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)
	m.donations.EXPECT().UpdateStatus(gomock.Any(), donation.ID, domain.DonationCompleted).Return(nil)
	m.inventory.EXPECT().
		SaveBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, units []domain.InventoryUnit) error {
			require.Len(t, units, 1)
			assert.Equal(t, bankID, units[0].BloodBankID)
			assert.Equal(t, domain.GroupABNegative, units[0].BloodGroup)
			assert.Equal(t, 2, units[0].Quantity)
			assert.Equal(t, domain.InventoryAvailable, units[0].Status)

			// Donated units carry the standard 42 day shelf life
			wantExpiry := time.Now().Add(42 * 24 * time.Hour)
			assert.WithinDuration(t, wantExpiry, units[0].ExpiryDate, time.Minute)
			return nil
		})

	d, err := svc.Complete(context.Background(), bankSession(bankID), donation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationCompleted, d.Status)
}

func TestDonationService_Complete_InvalidTransition(t *testing.T) {
	svc, m := newDonationService(t)
	bankID := uuid.New()

	for _, status := range []domain.DonationStatus{domain.DonationCompleted, domain.DonationCancelled} {
		t.Run(string(status), func(t *testing.T) {
			donation := helpers.CreateTestDonation(uuid.New(), bankID, func(d *domain.Donation) {
				d.Status = status
			})
			m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)

			d, err := svc.Complete(context.Background(), bankSession(bankID), donation.ID)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		})
	}
}

func TestDonationService_Complete_ScopedToBank(t *testing.T) {
	svc, m := newDonationService(t)

	donation := helpers.CreateTestDonation(uuid.New(), uuid.New())
	m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)

	d, err := svc.Complete(context.Background(), bankSession(uuid.New()), donation.ID)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDonationService_Cancel_Permissions(t *testing.T) {
	svc, m := newDonationService(t)

	donorID := uuid.New()
	bankID := uuid.New()

	t.Run("donor_cancels_own", func(t *testing.T) {
		donation := helpers.CreateTestDonation(donorID, bankID)
		m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)
		m.donations.EXPECT().UpdateStatus(gomock.Any(), donation.ID, domain.DonationCancelled).Return(nil)

		session := donorSession()
		session.UserID = donorID

		d, err := svc.Cancel(context.Background(), session, donation.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DonationCancelled, d.Status)
	})

	t.Run("other_donor_forbidden", func(t *testing.T) {
		donation := helpers.CreateTestDonation(donorID, bankID)
		m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)

		d, err := svc.Cancel(context.Background(), donorSession(), donation.ID)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("bank_cancels_own_schedule", func(t *testing.T) {
		donation := helpers.CreateTestDonation(donorID, bankID)
		m.donations.EXPECT().FindByID(gomock.Any(), donation.ID).Return(donation, nil)
		m.donations.EXPECT().UpdateStatus(gomock.Any(), donation.ID, domain.DonationCancelled).Return(nil)

		d, err := svc.Cancel(context.Background(), bankSession(bankID), donation.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DonationCancelled, d.Status)
	})
}

func TestDonationService_Schedule_NotificationFailureDoesNotAffectResult(t *testing.T) {
	svc, m := newDonationService(t)

	bank := helpers.CreateTestBank()
	session := donorSession()

	m.users.EXPECT().FindBankByID(gomock.Any(), bank.ID).Return(bank, nil)
	m.donations.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("queue unavailable"))

	d, err := svc.Schedule(context.Background(), scheduleInput(session, bank.ID))
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestDonationService_ListForUser(t *testing.T) {
	svc, m := newDonationService(t)

	t.Run("donor_lists_own", func(t *testing.T) {
		session := donorSession()
		m.donations.EXPECT().ListByDonor(gomock.Any(), session.UserID).Return([]domain.Donation{}, nil)

		_, err := svc.ListForUser(context.Background(), session)
		require.NoError(t, err)
	})

	t.Run("bank_lists_schedule", func(t *testing.T) {
		bankID := uuid.New()
		m.donations.EXPECT().ListByBank(gomock.Any(), bankID).Return([]domain.Donation{}, nil)

		_, err := svc.ListForUser(context.Background(), bankSession(bankID))
		require.NoError(t, err)
	})

	t.Run("admin_lists_all", func(t *testing.T) {
		session := donorSession()
		session.Role = domain.RoleAdmin

		all := []domain.Donation{{ID: uuid.New()}, {ID: uuid.New()}}
		m.donations.EXPECT().List(gomock.Any(), ports.DonationListParams{}).Return(all, nil)

		donations, err := svc.ListForUser(context.Background(), session)
		require.NoError(t, err)
		assert.Len(t, donations, 2)
	})
}
