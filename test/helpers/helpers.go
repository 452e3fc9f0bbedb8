// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/pkg/config"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB creates a PostgreSQL container for integration tests
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_bloodbank",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_bloodbank",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	// Wait for database to be ready
	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")

	ctx := context.Background()
	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		SourcePath: "../../migrations",
		TableName:  "schema_migrations",
		SchemaName: "public",
	}

	err = db.RunMigrationsWithRetry(ctx, migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		db.Close()
	})

	return mock, db
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_bloodbank",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		FileProcessing: config.FileProcessingConfig{
			ExcelMaxSizeMB:    20,
			ProcessingTimeout: 5 * time.Minute,
			TempDir:           "/tmp",
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret",
			JWTExpiration:     24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestBank creates a test blood bank account
func CreateTestBank(overrides ...func(*domain.BloodBank)) *domain.BloodBank {
	bank := &domain.BloodBank{
		ID:       uuid.New(),
		Name:     "City General Blood Bank",
		Email:    "citygeneral@bloodbank.example.com",
		Phone:    "+1-555-0101",
		Location: "Downtown",
		Active:   true,
	}

	for _, override := range overrides {
		override(bank)
	}

	return bank
}

// CreateTestUser creates a test account. Defaults to a recipient.
func CreateTestUser(overrides ...func(*domain.User)) *domain.User {
	user := &domain.User{
		ID:        uuid.New(),
		Email:     "rita.recipient@example.com",
		Name:      "Rita Recipient",
		Role:      domain.RoleRecipient,
		BloodType: domain.GroupAPositive,
		Location:  "Downtown",
		Active:    true,
		CreatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(user)
	}

	return user
}

// CreateTestUnit creates a usable test inventory unit
func CreateTestUnit(bankID uuid.UUID, overrides ...func(*domain.InventoryUnit)) *domain.InventoryUnit {
	unit := &domain.InventoryUnit{
		ID:          uuid.New(),
		BloodBankID: bankID,
		BloodGroup:  domain.GroupOPositive,
		Quantity:    12,
		ExpiryDate:  time.Now().AddDate(0, 0, 30),
		Status:      domain.InventoryAvailable,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, override := range overrides {
		override(unit)
	}

	return unit
}

// CreateTestRequest creates a valid pending request assigned to bankID
func CreateTestRequest(requesterID, bankID uuid.UUID, overrides ...func(*domain.BloodRequest)) *domain.BloodRequest {
	req := &domain.BloodRequest{
		ID:            uuid.New(),
		RequesterID:   requesterID,
		BloodGroup:    domain.GroupOPositive,
		Quantity:      5,
		Urgency:       domain.UrgencyHigh,
		Status:        domain.RequestPending,
		AssignedBank:  bankID,
		PatientName:   "Jordan Case",
		ContactNumber: "+1-555-0400",
		HospitalName:  "City General Hospital",
		Reason:        "Scheduled surgery",
		RequiredBy:    time.Now().Add(72 * time.Hour),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	for _, override := range overrides {
		override(req)
	}

	return req
}

// CreateTestDonation creates a scheduled test donation
func CreateTestDonation(donorID, bankID uuid.UUID, overrides ...func(*domain.Donation)) *domain.Donation {
	d := &domain.Donation{
		ID:           uuid.New(),
		DonorID:      donorID,
		BloodBankID:  bankID,
		BloodGroup:   domain.GroupOPositive,
		Quantity:     1,
		DonationDate: time.Now().Add(7 * 24 * time.Hour),
		Status:       domain.DonationScheduled,
		CreatedAt:    time.Now(),
	}

	for _, override := range overrides {
		override(d)
	}

	return d
}

// TruncateAllTables truncates all tables in the test database
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	tables := []string{
		"notifications",
		"donation_history",
		"blood_requests",
		"blood_inventory",
		"users",
	}

	for _, table := range tables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "Failed to truncate table: %s", table)
	}
}

// SeedBank inserts a bank account row so inventory foreign keys resolve
func SeedBank(t *testing.T, db *pgxpool.Pool, bank *domain.BloodBank) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, name, role, phone, location, is_active, created_at)
		VALUES ($1, $2, $3, 'blood_bank', $4, $5, $6, NOW())`,
		bank.ID, bank.Email, bank.Name, bank.Phone, bank.Location, bank.Active,
	)
	require.NoError(t, err, "Failed to seed bank")
}

// SeedUser inserts an account row
func SeedUser(t *testing.T, db *pgxpool.Pool, user *domain.User) {
	t.Helper()

	ctx := context.Background()
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, email, name, role, blood_type, phone, location, is_active, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, NOW())`,
		user.ID, user.Email, user.Name, string(user.Role), string(user.BloodType),
		user.Phone, user.Location, user.Active,
	)
	require.NoError(t, err, "Failed to seed user")
}

// SeedInventory inserts inventory unit rows
func SeedInventory(t *testing.T, db *pgxpool.Pool, units []domain.InventoryUnit) {
	t.Helper()

	ctx := context.Background()
	for _, unit := range units {
		_, err := db.Exec(ctx, `
			INSERT INTO blood_inventory (id, blood_bank_id, blood_group, quantity, expiry_date, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			unit.ID, unit.BloodBankID, string(unit.BloodGroup), unit.Quantity,
			unit.ExpiryDate, string(unit.Status),
		)
		require.NoError(t, err, "Failed to seed inventory unit")
	}
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// CreateTempFile creates a temporary file for testing
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp("", fmt.Sprintf("test-*%s", extension))
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.Write(content)
	require.NoError(t, err, "Failed to write to temp file")

	file.Close()

	t.Cleanup(func() {
		os.Remove(file.Name())
	})

	return file.Name()
}
