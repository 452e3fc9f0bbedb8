// internal/core/services/availability.go
package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/google/uuid"
)

// AvailabilityService aggregates usable inventory across active banks
type AvailabilityService struct {
	users     ports.UserRepository
	inventory ports.InventoryRepository
	logger    *slog.Logger
	now       func() time.Time
}

// Statically assert that *AvailabilityService implements the AvailabilityService interface.
var _ ports.AvailabilityService = (*AvailabilityService)(nil)

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(users ports.UserRepository, inventory ports.InventoryRepository, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{
		users:     users,
		inventory: inventory,
		logger:    logger.With(slog.String("service", "availability")),
		now:       time.Now,
	}
}

// Search resolves matching banks, collects their usable units, and
// aggregates per bank. Results are ordered by total units descending;
// banks with equal totals keep their relative order. A search that
// matches nothing returns an empty slice. Search reads and never writes,
// so repeating it without intervening writes yields identical results.
func (s *AvailabilityService) Search(ctx context.Context, filters ports.SearchFilters) ([]domain.AggregatedBankResult, error) {
	banks, err := s.users.ListActiveBanks(ctx, filters.NameQuery)
	if err != nil {
		return nil, &domain.DependencyError{Op: "availability.list_banks", Err: err}
	}

	if filters.Location != "" {
		banks = filterByLocation(banks, filters.Location)
	}

	if len(banks) == 0 {
		return []domain.AggregatedBankResult{}, nil
	}

	bankIDs := make([]uuid.UUID, len(banks))
	byID := make(map[uuid.UUID]*domain.BloodBank, len(banks))
	for i := range banks {
		bankIDs[i] = banks[i].ID
		byID[banks[i].ID] = &banks[i]
	}

	units, err := s.inventory.ListAvailableUnits(ctx, bankIDs, filters.BloodGroup, s.now())
	if err != nil {
		return nil, &domain.DependencyError{Op: "availability.list_units", Err: err}
	}

	// Group by bank, preserving first-seen order from the unit listing.
	results := make([]domain.AggregatedBankResult, 0, len(banks))
	index := make(map[uuid.UUID]int, len(banks))
	for _, unit := range units {
		bank, ok := byID[unit.BloodBankID]
		if !ok {
			continue
		}
		i, seen := index[unit.BloodBankID]
		if !seen {
			i = len(results)
			index[unit.BloodBankID] = i
			results = append(results, domain.AggregatedBankResult{
				BankID:   bank.ID,
				Name:     bank.Name,
				Email:    bank.Email,
				Phone:    bank.Phone,
				Location: bank.Location,
			})
		}
		results[i].BloodTypes = append(results[i].BloodTypes, domain.BankBloodType{
			UnitID:     unit.ID,
			BloodGroup: unit.BloodGroup,
			Quantity:   unit.Quantity,
			ExpiryDate: unit.ExpiryDate,
		})
		results[i].TotalUnits += unit.Quantity
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].TotalUnits > results[b].TotalUnits
	})

	s.logger.DebugContext(ctx, "availability search completed",
		slog.Int("banks_matched", len(banks)),
		slog.Int("banks_with_stock", len(results)))

	return results, nil
}

func filterByLocation(banks []domain.BloodBank, location string) []domain.BloodBank {
	needle := strings.ToLower(location)
	filtered := banks[:0]
	for _, b := range banks {
		if strings.Contains(strings.ToLower(b.Location), needle) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
