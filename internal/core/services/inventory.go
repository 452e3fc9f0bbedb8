// internal/core/services/inventory.go
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

// InventoryService handles bank-side inventory management: bulk imports
// and the expiry sweep. Search-time aggregation lives in
// AvailabilityService.
type InventoryService struct {
	repo   ports.InventoryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewInventoryService creates a new inventory service
func NewInventoryService(repo ports.InventoryRepository, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		repo:   repo,
		logger: logger.With(slog.String("service", "inventory")),
		now:    time.Now,
	}
}

// SaveUnits validates and persists a batch of inventory units
func (s *InventoryService) SaveUnits(ctx context.Context, units []domain.InventoryUnit) error {
	if len(units) == 0 {
		s.logger.InfoContext(ctx, "no units to save")
		return nil
	}

	for i := range units {
		if err := units[i].Validate(); err != nil {
			return fmt.Errorf("validation failed for unit %d: %w", i, err)
		}
		units[i].PrepareForStorage()
	}

	if err := s.repo.SaveBatch(ctx, units); err != nil {
		return fmt.Errorf("failed to save units batch: %w", err)
	}

	s.logger.InfoContext(ctx, "saved inventory units",
		slog.Int("count", len(units)))

	return nil
}

// BulkUpsert persists units in fixed-size batches
func (s *InventoryService) BulkUpsert(ctx context.Context, units []domain.InventoryUnit) error {
	const batchSize = 100

	for i := 0; i < len(units); i += batchSize {
		end := i + batchSize
		if end > len(units) {
			end = len(units)
		}
		if err := s.SaveUnits(ctx, units[i:end]); err != nil {
			return fmt.Errorf("failed to save batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// ListByBank returns every inventory unit a bank holds
func (s *InventoryService) ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.InventoryUnit, error) {
	units, err := s.repo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, &domain.DependencyError{Op: "inventory.list_by_bank", Err: err}
	}
	return units, nil
}

// ExpireUnits flips units whose expiry date has passed to expired and
// returns the number of rows changed.
func (s *InventoryService) ExpireUnits(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkExpired(ctx, s.now())
	if err != nil {
		return 0, &domain.DependencyError{Op: "inventory.mark_expired", Err: err}
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired inventory units",
			slog.Int64("count", n))
	}
	return n, nil
}
