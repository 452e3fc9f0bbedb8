// internal/adapters/db/request_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

const requestColumns = `id, requester_id, blood_group, quantity, urgency, status,
	assigned_bank, patient_name, contact_number, hospital_name, reason,
	required_by, created_at, updated_at`

// requestRepository implements ports.RequestRepository
type requestRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *Database, logger *slog.Logger) ports.RequestRepository {
	return &requestRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "request")),
	}
}

// Insert creates a new blood request
func (r *requestRepository) Insert(ctx context.Context, req *domain.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (
			id, requester_id, blood_group, quantity, urgency, status,
			assigned_bank, patient_name, contact_number, hospital_name, reason,
			required_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		req.ID, req.RequesterID, req.BloodGroup, req.Quantity, req.Urgency, req.Status,
		req.AssignedBank, req.PatientName, req.ContactNumber, req.HospitalName, req.Reason,
		req.RequiredBy, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert blood request: %w", err)
	}

	r.logger.DebugContext(ctx, "blood request inserted",
		slog.String("request_id", req.ID.String()))

	return nil
}

// FindByID retrieves a blood request by ID
func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`

	req := &domain.BloodRequest{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.RequesterID, &req.BloodGroup, &req.Quantity, &req.Urgency, &req.Status,
		&req.AssignedBank, &req.PatientName, &req.ContactNumber, &req.HospitalName, &req.Reason,
		&req.RequiredBy, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blood request: %w", err)
	}

	return req, nil
}

// ListByRequester retrieves a requester's requests, newest first
func (r *requestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.BloodRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blood requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListByBank retrieves the requests assigned to a bank, newest first
func (r *requestRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]domain.BloodRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE assigned_bank = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blood requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// List retrieves requests with admin-side filters
func (r *requestRepository) List(ctx context.Context, params ports.RequestListParams) ([]domain.BloodRequest, error) {
	qb := squirrel.Select(
		"id", "requester_id", "blood_group", "quantity", "urgency", "status",
		"assigned_bank", "patient_name", "contact_number", "hospital_name", "reason",
		"required_by", "created_at", "updated_at",
	).From("blood_requests").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if params.Status != "" {
		qb = qb.Where(squirrel.Eq{"status": params.Status})
	}
	if params.BloodGroup != "" {
		qb = qb.Where(squirrel.Eq{"blood_group": params.BloodGroup})
	}
	if params.Urgency != "" {
		qb = qb.Where(squirrel.Eq{"urgency": params.Urgency})
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
		return nil, fmt.Errorf("failed to query blood requests: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// UpdateStatus sets the status of a request
func (r *requestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RequestStatus) error {
	query := `UPDATE blood_requests SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("blood request not found: %s", id)
	}

	r.logger.DebugContext(ctx, "blood request status updated",
		slog.String("request_id", id.String()),
		slog.String("status", string(status)))

	return nil
}

func scanRequests(rows pgx.Rows) ([]domain.BloodRequest, error) {
	var reqs []domain.BloodRequest
	for rows.Next() {
		var req domain.BloodRequest
		err := rows.Scan(
			&req.ID, &req.RequesterID, &req.BloodGroup, &req.Quantity, &req.Urgency, &req.Status,
			&req.AssignedBank, &req.PatientName, &req.ContactNumber, &req.HospitalName, &req.Reason,
			&req.RequiredBy, &req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blood request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return reqs, nil
}
