// internal/adapters/db/user_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
)

// userRepository implements ports.UserRepository
type userRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *Database, logger *slog.Logger) ports.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "user")),
	}
}

// FindByID retrieves a user by ID
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, name, role, blood_type, phone, location, is_active, created_at
		FROM users
		WHERE id = $1`

	user := &domain.User{}
	var bloodType, phone, location sql.NullString

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role,
		&bloodType, &phone, &location, &user.Active, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user.BloodType = domain.BloodGroup(bloodType.String)
	user.Phone = phone.String
	user.Location = location.String

	return user, nil
}

// ListActiveBanks retrieves active blood bank accounts, optionally
// narrowed by a case-insensitive name substring. Ordering is stable by
// name, then id.
func (r *userRepository) ListActiveBanks(ctx context.Context, nameQuery string) ([]domain.BloodBank, error) {
	query := `
		SELECT id, name, email, phone, location
		FROM users
		WHERE role = $1
		  AND is_active = TRUE
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name, id`

	rows, err := r.db.Query(ctx, query, domain.RoleBloodBank, nameQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query blood banks: %w", err)
	}
	defer rows.Close()

	var banks []domain.BloodBank
	for rows.Next() {
		var (
			b               domain.BloodBank
			phone, location sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &phone, &location); err != nil {
			return nil, fmt.Errorf("failed to scan blood bank: %w", err)
		}
		b.Phone = phone.String
		b.Location = location.String
		b.Active = true
		banks = append(banks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return banks, nil
}

// FindBankByID retrieves one blood bank account by ID
func (r *userRepository) FindBankByID(ctx context.Context, id uuid.UUID) (*domain.BloodBank, error) {
	query := `
		SELECT id, name, email, phone, location, is_active
		FROM users
		WHERE id = $1 AND role = $2`

	var (
		b               domain.BloodBank
		phone, location sql.NullString
	)
	err := r.db.QueryRow(ctx, query, id, domain.RoleBloodBank).Scan(
		&b.ID, &b.Name, &b.Email, &phone, &location, &b.Active,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blood bank: %w", err)
	}

	b.Phone = phone.String
	b.Location = location.String

	return &b, nil
}
