// internal/adapters/db/inventory_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// inventoryRepository implements ports.InventoryRepository
type inventoryRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *Database, logger *slog.Logger) ports.InventoryRepository {
	return &inventoryRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "inventory")),
	}
}

// Save creates a new inventory unit
func (r *inventoryRepository) Save(ctx context.Context, unit *domain.InventoryUnit) error {
	query := `
		INSERT INTO blood_inventory (
			id, blood_bank_id, blood_group, quantity,
			expiry_date, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		unit.ID, unit.BloodBankID, unit.BloodGroup, unit.Quantity,
		unit.ExpiryDate, unit.Status, unit.CreatedAt, unit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save inventory unit: %w", err)
	}

	r.logger.DebugContext(ctx, "inventory unit saved",
		slog.String("unit_id", unit.ID.String()),
		slog.String("bank_id", unit.BloodBankID.String()))

	return nil
}

// SaveBatch saves multiple inventory units in a transaction
func (r *inventoryRepository) SaveBatch(ctx context.Context, units []domain.InventoryUnit) error {
	if len(units) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		query := `
			INSERT INTO blood_inventory (
				id, blood_bank_id, blood_group, quantity,
				expiry_date, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		for i := range units {
			batch.Queue(query,
				units[i].ID, units[i].BloodBankID, units[i].BloodGroup, units[i].Quantity,
				units[i].ExpiryDate, units[i].Status, units[i].CreatedAt, units[i].UpdatedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := range units {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to save unit %d: %w", i, err)
			}
		}

		return nil
	})
}

// FindByID retrieves an inventory unit by ID
func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.InventoryUnit, error) {
	query := `
		SELECT id, blood_bank_id, blood_group, quantity,
		       expiry_date, status, created_at, updated_at
		FROM blood_inventory
		WHERE id = $1`

	unit := &domain.InventoryUnit{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&unit.ID, &unit.BloodBankID, &unit.BloodGroup, &unit.Quantity,
		&unit.ExpiryDate, &unit.Status, &unit.CreatedAt, &unit.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inventory unit: %w", err)
	}

	return unit, nil
}

// ListByBank retrieves every unit held by one bank, newest first
func (r *inventoryRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.InventoryUnit, error) {
	query := `
		SELECT id, blood_bank_id, blood_group, quantity,
		       expiry_date, status, created_at, updated_at
		FROM blood_inventory
		WHERE blood_bank_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory units: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows)
}

// ListAvailableUnits retrieves usable units for a set of banks. Ordering
// is deterministic (bank id, then expiry ascending, then id) so
// repeating the query without writes returns the same rows in the same
// order.
func (r *inventoryRepository) ListAvailableUnits(ctx context.Context, bankIDs []uuid.UUID, group domain.BloodGroup, asOf time.Time) ([]domain.InventoryUnit, error) {
	if len(bankIDs) == 0 {
		return []domain.InventoryUnit{}, nil
	}

	qb := squirrel.Select(
		"id", "blood_bank_id", "blood_group", "quantity",
		"expiry_date", "status", "created_at", "updated_at",
	).From("blood_inventory").
		Where(squirrel.Eq{"status": domain.InventoryAvailable}).
		Where(squirrel.Gt{"quantity": 0}).
		Where(squirrel.GtOrEq{"expiry_date": asOf.Truncate(24 * time.Hour)}).
		Where(squirrel.Eq{"blood_bank_id": bankIDs}).
		OrderBy("blood_bank_id", "expiry_date ASC", "id").
		PlaceholderFormat(squirrel.Dollar)

	if group != "" {
		qb = qb.Where(squirrel.Eq{"blood_group": group})
	}

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query available units: %w", err)
	}
	defer rows.Close()

	return scanUnits(rows)
}

// AvailableQuantity sums a bank's usable stock for one blood group
func (r *inventoryRepository) AvailableQuantity(ctx context.Context, bankID uuid.UUID, group domain.BloodGroup, asOf time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM blood_inventory
		WHERE blood_bank_id = $1
		  AND blood_group = $2
		  AND status = $3
		  AND quantity > 0
		  AND expiry_date >= $4`

	var total int
	err := r.db.QueryRow(ctx, query,
		bankID, group, domain.InventoryAvailable, asOf.Truncate(24*time.Hour),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum available quantity: %w", err)
	}

	return total, nil
}

// Reserve decrements qty units from the bank's usable stock, oldest
// expiry first, inside one transaction. The candidate rows are locked
// before the total is checked, so two concurrent approvals cannot both
// succeed against the same stock. Batches drained to zero are deleted.
func (r *inventoryRepository) Reserve(ctx context.Context, bankID uuid.UUID, group domain.BloodGroup, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, quantity
			FROM blood_inventory
			WHERE blood_bank_id = $1
			  AND blood_group = $2
			  AND status = $3
			  AND quantity > 0
			  AND expiry_date >= CURRENT_DATE
			ORDER BY expiry_date ASC, id
			FOR UPDATE`,
			bankID, group, domain.InventoryAvailable,
		)
		if err != nil {
			return fmt.Errorf("failed to lock inventory rows: %w", err)
		}

		type lockedUnit struct {
			id       uuid.UUID
			quantity int
		}
		var (
			locked []lockedUnit
			total  int
		)
		for rows.Next() {
			var u lockedUnit
			if err := rows.Scan(&u.id, &u.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan locked unit: %w", err)
			}
			locked = append(locked, u)
			total += u.quantity
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating locked units: %w", err)
		}

		if total < qty {
			return &domain.InsufficientInventoryError{
				BloodBankID: bankID,
				BloodGroup:  group,
				Requested:   qty,
				Available:   total,
			}
		}

		remaining := qty
		for _, u := range locked {
			if remaining == 0 {
				break
			}
			take := u.quantity
			if take > remaining {
				take = remaining
			}

			// Fully drained batches are deleted so consumed units do
			// not linger as dead rows.
			if take == u.quantity {
				_, err = tx.Exec(ctx, `DELETE FROM blood_inventory WHERE id = $1`, u.id)
			} else {
				_, err = tx.Exec(ctx, `
					UPDATE blood_inventory
					SET quantity = quantity - $2, updated_at = NOW()
					WHERE id = $1`,
					u.id, take,
				)
			}
			if err != nil {
				return fmt.Errorf("failed to decrement unit %s: %w", u.id, err)
			}
			remaining -= take
		}

		r.logger.InfoContext(ctx, "inventory reserved",
			slog.String("bank_id", bankID.String()),
			slog.String("blood_group", string(group)),
			slog.Int("quantity", qty))

		return nil
	})
}

// MarkExpired flips stale available units to expired
func (r *inventoryRepository) MarkExpired(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE blood_inventory
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND expiry_date < $3`

	tag, err := r.db.Exec(ctx, query,
		domain.InventoryExpired, domain.InventoryAvailable, asOf.Truncate(24*time.Hour),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired units: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanUnits(rows pgx.Rows) ([]domain.InventoryUnit, error) {
	var units []domain.InventoryUnit
	for rows.Next() {
		var u domain.InventoryUnit
		err := rows.Scan(
			&u.ID, &u.BloodBankID, &u.BloodGroup, &u.Quantity,
			&u.ExpiryDate, &u.Status, &u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return units, nil
}
