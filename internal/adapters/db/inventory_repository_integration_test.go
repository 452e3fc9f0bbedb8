//go:build integration
// +build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/test/helpers"
)

type InventoryRepositorySuite struct {
	suite.Suite
	testDB *helpers.TestDB
	repo   ports.InventoryRepository
	ctx    context.Context
	bank   *domain.BloodBank
}

func (s *InventoryRepositorySuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.repo = db.NewInventoryRepository(s.testDB.Database, helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *InventoryRepositorySuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.bank = helpers.CreateTestBank()
	helpers.SeedBank(s.T(), s.testDB.PgxPool, s.bank)
}

func (s *InventoryRepositorySuite) TestSaveAndFindByID() {
	unit := helpers.CreateTestUnit(s.bank.ID)

	s.Require().NoError(s.repo.Save(s.ctx, unit))

	found, err := s.repo.FindByID(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(unit.BloodGroup, found.BloodGroup)
	s.Equal(unit.Quantity, found.Quantity)
	s.Equal(domain.InventoryAvailable, found.Status)
}

func (s *InventoryRepositorySuite) TestFindByID_Missing() {
	found, err := s.repo.FindByID(s.ctx, uuid.New())
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *InventoryRepositorySuite) TestSaveBatch() {
	units := []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID),
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.BloodGroup = domain.GroupANegative
			u.Quantity = 4
		}),
	}

	s.Require().NoError(s.repo.SaveBatch(s.ctx, units))

	stored, err := s.repo.ListByBank(s.ctx, s.bank.ID)
	s.Require().NoError(err)
	s.Len(stored, 2)
}

func (s *InventoryRepositorySuite) TestListAvailableUnits_FiltersUnusable() {
	now := time.Now()
	units := []domain.InventoryUnit{
		// Usable
		*helpers.CreateTestUnit(s.bank.ID),
		// Expired two days ago
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.ExpiryDate = now.AddDate(0, 0, -2)
		}),
		// Reserved
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.Status = domain.InventoryReserved
		}),
		// Drained
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.Quantity = 0
		}),
	}
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, units)

	usable, err := s.repo.ListAvailableUnits(s.ctx, []uuid.UUID{s.bank.ID}, "", now)
	s.Require().NoError(err)
	s.Require().Len(usable, 1)
	s.Equal(units[0].ID, usable[0].ID)
}

func (s *InventoryRepositorySuite) TestListAvailableUnits_GroupFilter() {
	units := []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID),
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.BloodGroup = domain.GroupABNegative
		}),
	}
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, units)

	matched, err := s.repo.ListAvailableUnits(s.ctx, []uuid.UUID{s.bank.ID}, domain.GroupABNegative, time.Now())
	s.Require().NoError(err)
	s.Require().Len(matched, 1)
	s.Equal(domain.GroupABNegative, matched[0].BloodGroup)
}

func (s *InventoryRepositorySuite) TestAvailableQuantity() {
	units := []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) { u.Quantity = 7 }),
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) { u.Quantity = 5 }),
		// Different group does not count
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.BloodGroup = domain.GroupBNegative
			u.Quantity = 99
		}),
	}
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, units)

	total, err := s.repo.AvailableQuantity(s.ctx, s.bank.ID, domain.GroupOPositive, time.Now())
	s.Require().NoError(err)
	s.Equal(12, total)
}

func (s *InventoryRepositorySuite) TestReserve_DecrementsOldestFirst() {
	oldest := helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
		u.Quantity = 3
		u.ExpiryDate = time.Now().AddDate(0, 0, 5)
	})
	newest := helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
		u.Quantity = 10
		u.ExpiryDate = time.Now().AddDate(0, 0, 30)
	})
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, []domain.InventoryUnit{*oldest, *newest})

	s.Require().NoError(s.repo.Reserve(s.ctx, s.bank.ID, domain.GroupOPositive, 5))

	// The batch closest to expiry is drained first and removed
	drained, err := s.repo.FindByID(s.ctx, oldest.ID)
	s.Require().NoError(err)
	s.Nil(drained)

	partial, err := s.repo.FindByID(s.ctx, newest.ID)
	s.Require().NoError(err)
	s.Equal(8, partial.Quantity)
	s.Equal(domain.InventoryAvailable, partial.Status)
}

func (s *InventoryRepositorySuite) TestReserve_LeavesNoDrainedRows() {
	units := []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) { u.Quantity = 3 }),
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) { u.Quantity = 4 }),
	}
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, units)

	s.Require().NoError(s.repo.Reserve(s.ctx, s.bank.ID, domain.GroupOPositive, 7))

	remaining, err := s.repo.ListByBank(s.ctx, s.bank.ID)
	s.Require().NoError(err)
	s.Empty(remaining)
}

func (s *InventoryRepositorySuite) TestReserve_InsufficientLeavesRowsUntouched() {
	unit := helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) { u.Quantity = 4 })
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, []domain.InventoryUnit{*unit})

	err := s.repo.Reserve(s.ctx, s.bank.ID, domain.GroupOPositive, 10)

	var insErr *domain.InsufficientInventoryError
	s.Require().ErrorAs(err, &insErr)
	s.Equal(4, insErr.Available)
	s.Equal(10, insErr.Requested)

	untouched, findErr := s.repo.FindByID(s.ctx, unit.ID)
	s.Require().NoError(findErr)
	s.Equal(4, untouched.Quantity)
	s.Equal(domain.InventoryAvailable, untouched.Status)
}

func (s *InventoryRepositorySuite) TestMarkExpired() {
	units := []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID, func(u *domain.InventoryUnit) {
			u.ExpiryDate = time.Now().AddDate(0, 0, -3)
		}),
		*helpers.CreateTestUnit(s.bank.ID),
	}
	helpers.SeedInventory(s.T(), s.testDB.PgxPool, units)

	n, err := s.repo.MarkExpired(s.ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	expired, err := s.repo.FindByID(s.ctx, units[0].ID)
	s.Require().NoError(err)
	s.Equal(domain.InventoryExpired, expired.Status)

	fresh, err := s.repo.FindByID(s.ctx, units[1].ID)
	s.Require().NoError(err)
	s.Equal(domain.InventoryAvailable, fresh.Status)
}

func TestInventoryRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(InventoryRepositorySuite))
}
