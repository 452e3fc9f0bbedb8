// internal/core/services/availability_test.go
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

func TestAvailabilityService_Search_AggregatesPerBank(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	bankA := helpers.CreateTestBank()
	bankB := helpers.CreateTestBank(func(b *domain.BloodBank) {
		b.Name = "Red Cross North Center"
		b.Location = "Northside"
	})

	users.EXPECT().
		ListActiveBanks(gomock.Any(), "").
		Return([]domain.BloodBank{*bankA, *bankB}, nil)

	inventory.EXPECT().
		ListAvailableUnits(gomock.Any(), []uuid.UUID{bankA.ID, bankB.ID}, domain.BloodGroup(""), gomock.Any()).
		Return([]domain.InventoryUnit{
			*helpers.CreateTestUnit(bankA.ID, func(u *domain.InventoryUnit) { u.Quantity = 4 }),
			*helpers.CreateTestUnit(bankA.ID, func(u *domain.InventoryUnit) {
				u.BloodGroup = domain.GroupANegative
				u.Quantity = 3
			}),
			*helpers.CreateTestUnit(bankB.ID, func(u *domain.InventoryUnit) { u.Quantity = 9 }),
		}, nil)

	results, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Bank B holds more units, so it sorts first
	assert.Equal(t, bankB.ID, results[0].BankID)
	assert.Equal(t, 9, results[0].TotalUnits)
	assert.Len(t, results[0].BloodTypes, 1)

	assert.Equal(t, bankA.ID, results[1].BankID)
	assert.Equal(t, 7, results[1].TotalUnits)
	assert.Len(t, results[1].BloodTypes, 2)
}

func TestAvailabilityService_Search_TotalEqualsSumOfLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	bank := helpers.CreateTestBank()
	quantities := []int{4, 1, 7, 2}

	units := make([]domain.InventoryUnit, 0, len(quantities))
	for _, q := range quantities {
		qty := q
		units = append(units, *helpers.CreateTestUnit(bank.ID, func(u *domain.InventoryUnit) { u.Quantity = qty }))
	}

	users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*bank}, nil)
	inventory.EXPECT().ListAvailableUnits(gomock.Any(), gomock.Any(), domain.BloodGroup(""), gomock.Any()).Return(units, nil)

	results, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	sum := 0
	for _, line := range results[0].BloodTypes {
		sum += line.Quantity
	}
	assert.Equal(t, sum, results[0].TotalUnits)
	assert.Equal(t, 14, results[0].TotalUnits)
}

func TestAvailabilityService_Search_OrderNonIncreasing(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	banks := make([]domain.BloodBank, 5)
	units := make([]domain.InventoryUnit, 0, 5)
	for i, qty := range []int{3, 11, 7, 11, 2} {
		bank := helpers.CreateTestBank()
		banks[i] = *bank
		q := qty
		units = append(units, *helpers.CreateTestUnit(bank.ID, func(u *domain.InventoryUnit) { u.Quantity = q }))
	}

	users.EXPECT().ListActiveBanks(gomock.Any(), "").Return(banks, nil)
	inventory.EXPECT().ListAvailableUnits(gomock.Any(), gomock.Any(), domain.BloodGroup(""), gomock.Any()).Return(units, nil)

	results, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].TotalUnits, results[i].TotalUnits,
			"results must be ordered by total units descending")
	}

	// Equal totals keep their relative order from the unit listing
	assert.Equal(t, banks[1].ID, results[0].BankID)
	assert.Equal(t, banks[3].ID, results[1].BankID)
}

func TestAvailabilityService_Search_NoMatchesReturnsEmptySlice(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	t.Run("no_banks_match_name", func(t *testing.T) {
		users.EXPECT().ListActiveBanks(gomock.Any(), "nonexistent").Return([]domain.BloodBank{}, nil)

		results, err := svc.Search(context.Background(), ports.SearchFilters{NameQuery: "nonexistent"})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("banks_match_but_no_stock", func(t *testing.T) {
		bank := helpers.CreateTestBank()
		users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*bank}, nil)
		inventory.EXPECT().
			ListAvailableUnits(gomock.Any(), gomock.Any(), domain.GroupABNegative, gomock.Any()).
			Return([]domain.InventoryUnit{}, nil)

		results, err := svc.Search(context.Background(), ports.SearchFilters{BloodGroup: domain.GroupABNegative})
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})
}

func TestAvailabilityService_Search_LocationFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	downtown := helpers.CreateTestBank()
	northside := helpers.CreateTestBank(func(b *domain.BloodBank) {
		b.Name = "Red Cross North Center"
		b.Location = "Northside"
	})

	users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*downtown, *northside}, nil)
	inventory.EXPECT().
		ListAvailableUnits(gomock.Any(), []uuid.UUID{downtown.ID}, domain.BloodGroup(""), gomock.Any()).
		Return([]domain.InventoryUnit{*helpers.CreateTestUnit(downtown.ID)}, nil)

	results, err := svc.Search(context.Background(), ports.SearchFilters{Location: "downtown"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, downtown.ID, results[0].BankID)
}

func TestAvailabilityService_Search_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	bank := helpers.CreateTestBank()
	unit := helpers.CreateTestUnit(bank.ID)

	users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*bank}, nil).Times(2)
	inventory.EXPECT().
		ListAvailableUnits(gomock.Any(), gomock.Any(), domain.BloodGroup(""), gomock.Any()).
		Return([]domain.InventoryUnit{*unit}, nil).
		Times(2)

	first, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAvailabilityService_Search_RepositoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	t.Run("bank_listing_fails", func(t *testing.T) {
		users.EXPECT().ListActiveBanks(gomock.Any(), "").Return(nil, errors.New("connection refused"))

		results, err := svc.Search(context.Background(), ports.SearchFilters{})
		assert.Nil(t, results)

		var depErr *domain.DependencyError
		require.ErrorAs(t, err, &depErr)
	})

	t.Run("unit_listing_fails", func(t *testing.T) {
		bank := helpers.CreateTestBank()
		users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*bank}, nil)
		inventory.EXPECT().
			ListAvailableUnits(gomock.Any(), gomock.Any(), domain.BloodGroup(""), gomock.Any()).
			Return(nil, errors.New("query timeout"))

		results, err := svc.Search(context.Background(), ports.SearchFilters{})
		assert.Nil(t, results)

		var depErr *domain.DependencyError
		require.ErrorAs(t, err, &depErr)
	})
}

func TestAvailabilityService_Search_PassesSearchDayToRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	inventory := mocks.NewMockInventoryRepository(ctrl)
	svc := services.NewAvailabilityService(users, inventory, helpers.TestLogger())

	bank := helpers.CreateTestBank()
	before := time.Now()

	users.EXPECT().ListActiveBanks(gomock.Any(), "").Return([]domain.BloodBank{*bank}, nil)
	inventory.EXPECT().
		ListAvailableUnits(gomock.Any(), gomock.Any(), domain.BloodGroup(""), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []uuid.UUID, _ domain.BloodGroup, asOf time.Time) ([]domain.InventoryUnit, error) {
			assert.False(t, asOf.Before(before))
			assert.False(t, asOf.After(time.Now()))
			return []domain.InventoryUnit{}, nil
		})

	_, err := svc.Search(context.Background(), ports.SearchFilters{})
	require.NoError(t, err)
}
