// internal/adapters/db/donation_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// donationRepository implements ports.DonationRepository
type donationRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *Database, logger *slog.Logger) ports.DonationRepository {
	return &donationRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "donation")),
	}
}

// Insert creates a new donation record
func (r *donationRepository) Insert(ctx context.Context, d *domain.Donation) error {
	query := `
		INSERT INTO donation_history (
			id, donor_id, blood_bank_id, blood_group, quantity,
			donation_date, status, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.DonorID, d.BloodBankID, d.BloodGroup, d.Quantity,
		d.DonationDate, d.Status, d.Notes, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	r.logger.DebugContext(ctx, "donation inserted",
		slog.String("donation_id", d.ID.String()))

	return nil
}

// FindByID retrieves a donation by ID
func (r *donationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Donation, error) {
	query := `
		SELECT id, donor_id, blood_bank_id, blood_group, quantity,
		       donation_date, status, notes, created_at
		FROM donation_history
		WHERE id = $1`

	d := &domain.Donation{}
	var notes sql.NullString
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.DonorID, &d.BloodBankID, &d.BloodGroup, &d.Quantity,
		&d.DonationDate, &d.Status, &notes, &d.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find donation: %w", err)
	}
	d.Notes = notes.String

	return d, nil
}

// ListByDonor retrieves a donor's donations, newest first
func (r *donationRepository) ListByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	return r.list(ctx, "donor_id", donorID)
}

// ListByBank retrieves a bank's donations, newest first
func (r *donationRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.Donation, error) {
	return r.list(ctx, "blood_bank_id", bankID)
}

// List retrieves donations across all donors and banks, newest first
func (r *donationRepository) List(ctx context.Context, params ports.DonationListParams) ([]domain.Donation, error) {
	qb := squirrel.Select(
		"id", "donor_id", "blood_bank_id", "blood_group", "quantity",
		"donation_date", "status", "notes", "created_at",
	).From("donation_history").
		OrderBy("donation_date DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if params.Status != "" {
		qb = qb.Where(squirrel.Eq{"status": params.Status})
	}
	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		qb = qb.Offset(uint64(params.Offset))
	}

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	return scanDonations(rows)
}

func (r *donationRepository) list(ctx context.Context, column string, id uuid.UUID) ([]domain.Donation, error) {
	query := fmt.Sprintf(`
		SELECT id, donor_id, blood_bank_id, blood_group, quantity,
		       donation_date, status, notes, created_at
		FROM donation_history
		WHERE %s = $1
		ORDER BY donation_date DESC, created_at DESC`, column)

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	return scanDonations(rows)
}

func scanDonations(rows pgx.Rows) ([]domain.Donation, error) {
	var donations []domain.Donation
	for rows.Next() {
		var (
			d     domain.Donation
			notes sql.NullString
		)
		err := rows.Scan(
			&d.ID, &d.DonorID, &d.BloodBankID, &d.BloodGroup, &d.Quantity,
			&d.DonationDate, &d.Status, &notes, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		d.Notes = notes.String
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return donations, nil
}

// UpdateStatus sets the status of a donation
func (r *donationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DonationStatus) error {
	query := `UPDATE donation_history SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update donation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("donation not found: %s", id)
	}

	r.logger.DebugContext(ctx, "donation status updated",
		slog.String("donation_id", id.String()),
		slog.String("status", string(status)))

	return nil
}
