// cmd/seeder/main.go
//
// Development data seeder. Populates a local database with a realistic
// set of banks, donors, recipients, stock and requests so the API has
// something to serve out of the box.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/pkg/logger"
)

type seedUser struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      domain.Role
	BloodType domain.BloodGroup
	Phone     string
	Location  string
	Active    bool
}

type seedUnit struct {
	BankID     uuid.UUID
	BloodGroup domain.BloodGroup
	Quantity   int
	ExpiresIn  time.Duration
}

func main() {
	slogger := logger.SetupLogger(getEnv("LOG_LEVEL", "info"), "text")

	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("DB_USER", "bloodbank"),
			getEnv("DB_PASSWORD", "bloodbank_dev_2025"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "bloodbank"),
			getEnv("DB_SSL_MODE", "disable"),
		)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slogger.Error("database unreachable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	seeder := &Seeder{pool: pool, logger: slogger.Logger}

	if err := seeder.Run(ctx); err != nil {
		slogger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("seeding complete")
}

// Seeder inserts development fixtures
type Seeder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Run seeds users, inventory, requests and donations in order
func (s *Seeder) Run(ctx context.Context) error {
	banks := []seedUser{
		{ID: uuid.New(), Email: "citygeneral@bloodbank.example.com", Name: "City General Blood Bank", Role: domain.RoleBloodBank, Phone: "+1-555-0101", Location: "Downtown", Active: true},
		{ID: uuid.New(), Email: "redcross.north@bloodbank.example.com", Name: "Red Cross North Center", Role: domain.RoleBloodBank, Phone: "+1-555-0102", Location: "Northside", Active: true},
		{ID: uuid.New(), Email: "stmarys@bloodbank.example.com", Name: "St. Mary's Hospital Bank", Role: domain.RoleBloodBank, Phone: "+1-555-0103", Location: "Westend", Active: true},
		{ID: uuid.New(), Email: "closed@bloodbank.example.com", Name: "Riverside Bank (closed)", Role: domain.RoleBloodBank, Phone: "+1-555-0104", Location: "Riverside", Active: false},
	}

	people := []seedUser{
		{ID: uuid.New(), Email: "admin@bloodbank.example.com", Name: "Platform Admin", Role: domain.RoleAdmin, Active: true},
		{ID: uuid.New(), Email: "dana.donor@example.com", Name: "Dana Donor", Role: domain.RoleDonor, BloodType: domain.GroupOPositive, Phone: "+1-555-0201", Location: "Downtown", Active: true},
		{ID: uuid.New(), Email: "dev.donor@example.com", Name: "Devon Giver", Role: domain.RoleDonor, BloodType: domain.GroupABNegative, Phone: "+1-555-0202", Location: "Northside", Active: true},
		{ID: uuid.New(), Email: "rita.recipient@example.com", Name: "Rita Recipient", Role: domain.RoleRecipient, BloodType: domain.GroupAPositive, Phone: "+1-555-0301", Location: "Westend", Active: true},
	}

	users := append(banks, people...)
	if err := s.seedUsers(ctx, users); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	units := []seedUnit{
		{BankID: banks[0].ID, BloodGroup: domain.GroupOPositive, Quantity: 12, ExpiresIn: 30 * 24 * time.Hour},
		{BankID: banks[0].ID, BloodGroup: domain.GroupANegative, Quantity: 4, ExpiresIn: 20 * 24 * time.Hour},
		{BankID: banks[0].ID, BloodGroup: domain.GroupBPositive, Quantity: 7, ExpiresIn: 14 * 24 * time.Hour},
		{BankID: banks[1].ID, BloodGroup: domain.GroupOPositive, Quantity: 9, ExpiresIn: 25 * 24 * time.Hour},
		{BankID: banks[1].ID, BloodGroup: domain.GroupABPositive, Quantity: 3, ExpiresIn: 10 * 24 * time.Hour},
		{BankID: banks[2].ID, BloodGroup: domain.GroupONegative, Quantity: 5, ExpiresIn: 35 * 24 * time.Hour},
		// Already expired stock, picked up by the nightly sweep
		{BankID: banks[2].ID, BloodGroup: domain.GroupAPositive, Quantity: 2, ExpiresIn: -48 * time.Hour},
	}
	if err := s.seedInventory(ctx, units); err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}

	recipient := people[3]
	if err := s.seedRequests(ctx, recipient.ID, banks[0].ID); err != nil {
		return fmt.Errorf("seed requests: %w", err)
	}

	donor := people[1]
	if err := s.seedDonations(ctx, donor.ID, banks[0].ID); err != nil {
		return fmt.Errorf("seed donations: %w", err)
	}

	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, users []seedUser) error {
	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(`
			INSERT INTO users (id, email, name, role, blood_type, phone, location, is_active, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, NOW())
			ON CONFLICT (email) DO NOTHING`,
			u.ID, u.Email, u.Name, string(u.Role), string(u.BloodType), u.Phone, u.Location, u.Active,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range users {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	s.logger.Info("seeded users", slog.Int("count", len(users)))
	return nil
}

func (s *Seeder) seedInventory(ctx context.Context, units []seedUnit) error {
	batch := &pgx.Batch{}
	for _, u := range units {
		batch.Queue(`
			INSERT INTO blood_inventory (id, blood_bank_id, blood_group, quantity, expiry_date, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'available', NOW(), NOW())`,
			uuid.New(), u.BankID, string(u.BloodGroup), u.Quantity, time.Now().Add(u.ExpiresIn),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range units {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	s.logger.Info("seeded inventory units", slog.Int("count", len(units)))
	return nil
}

func (s *Seeder) seedRequests(ctx context.Context, requesterID, bankID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blood_requests (
			id, requester_id, blood_group, quantity, urgency, status, assigned_bank,
			patient_name, contact_number, hospital_name, reason, required_by,
			created_at, updated_at
		) VALUES (
			$1, $2, 'O+', 5, 'high', 'pending', $3,
			'Jordan Case', '+1-555-0400', 'City General Hospital', 'Scheduled surgery', $4,
			NOW(), NOW()
		)`,
		uuid.New(), requesterID, bankID, time.Now().Add(72*time.Hour),
	)
	if err != nil {
		return err
	}

	s.logger.Info("seeded blood requests", slog.Int("count", 1))
	return nil
}

func (s *Seeder) seedDonations(ctx context.Context, donorID, bankID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO donation_history (
			id, donor_id, blood_bank_id, blood_group, quantity, donation_date, status, notes, created_at
		) VALUES (
			$1, $2, $3, 'O+', 1, $4, 'scheduled', 'First-time donor', NOW()
		)`,
		uuid.New(), donorID, bankID, time.Now().Add(7*24*time.Hour),
	)
	if err != nil {
		return err
	}

	s.logger.Info("seeded donations", slog.Int("count", 1))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
