// internal/workers/snapshot_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// snapshotTTL keeps stale snapshots from outliving two refresh cycles
const snapshotTTL = 30 * time.Minute

// AvailabilitySnapshot is the cached platform-wide stock summary used
// by the admin dashboard.
type AvailabilitySnapshot struct {
	GeneratedAt time.Time              `json:"generated_at"`
	TotalUnits  int64                  `json:"total_units"`
	Groups      []GroupAvailability    `json:"groups"`
	Requests    RequestFulfillmentStat `json:"requests"`
}

// GroupAvailability is one blood group's share of platform stock
type GroupAvailability struct {
	BloodGroup domain.BloodGroup `json:"blood_group"`
	Units      int64             `json:"units"`
	Banks      int64             `json:"banks"`
	Share      decimal.Decimal   `json:"share"`
}

// RequestFulfillmentStat summarizes request outcomes
type RequestFulfillmentStat struct {
	Total           int64           `json:"total"`
	Fulfilled       int64           `json:"fulfilled"`
	FulfillmentRate decimal.Decimal `json:"fulfillment_rate"`
}

// SnapshotProcessor precomputes the availability snapshot into the cache
type SnapshotProcessor struct {
	db     ports.Database
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewSnapshotProcessor creates a new snapshot processor
func NewSnapshotProcessor(db ports.Database, cache ports.CacheRepository, logger *slog.Logger) *SnapshotProcessor {
	return &SnapshotProcessor{
		db:     db,
		cache:  cache,
		logger: logger.With(slog.String("processor", "snapshot")),
	}
}

// RefreshSnapshot rebuilds the platform availability snapshot
func (p *SnapshotProcessor) RefreshSnapshot(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "refreshing availability snapshot")

	snapshot := AvailabilitySnapshot{GeneratedAt: time.Now()}

	rows, err := p.db.Query(ctx, `
		SELECT blood_group, COALESCE(SUM(quantity), 0), COUNT(DISTINCT blood_bank_id)
		FROM blood_inventory
		WHERE status = $1 AND quantity > 0 AND expiry_date >= CURRENT_DATE
		GROUP BY blood_group
		ORDER BY blood_group`,
		domain.InventoryAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to aggregate inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g GroupAvailability
		if err := rows.Scan(&g.BloodGroup, &g.Units, &g.Banks); err != nil {
			return fmt.Errorf("failed to scan group aggregate: %w", err)
		}
		snapshot.Groups = append(snapshot.Groups, g)
		snapshot.TotalUnits += g.Units
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating aggregates: %w", err)
	}

	if snapshot.TotalUnits > 0 {
		total := decimal.NewFromInt(snapshot.TotalUnits)
		for i := range snapshot.Groups {
			snapshot.Groups[i].Share = decimal.NewFromInt(snapshot.Groups[i].Units).
				Div(total).Round(4)
		}
	}

	err = p.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1)
		FROM blood_requests`,
		domain.RequestFulfilled,
	).Scan(&snapshot.Requests.Total, &snapshot.Requests.Fulfilled)
	if err != nil {
		return fmt.Errorf("failed to aggregate requests: %w", err)
	}
	if snapshot.Requests.Total > 0 {
		snapshot.Requests.FulfillmentRate = decimal.NewFromInt(snapshot.Requests.Fulfilled).
			Div(decimal.NewFromInt(snapshot.Requests.Total)).Round(4)
	}

	key := redis_a.BuildKey(redis_a.PrefixAvailability, "snapshot")
	if err := p.cache.SetWithTTL(ctx, key, snapshot, snapshotTTL); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	p.logger.InfoContext(ctx, "availability snapshot refreshed",
		slog.Int64("total_units", snapshot.TotalUnits),
		slog.Int("groups", len(snapshot.Groups)))

	return nil
}
