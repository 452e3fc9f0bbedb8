// internal/handlers/dashboard.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	redis_a "github.com/akash684/bloodbank-be/internal/adapters/redis_adapter"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
	"github.com/akash684/bloodbank-be/internal/workers"
)

// DashboardHandler serves role-specific dashboard summaries
type DashboardHandler struct {
	db     *db.Database
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(database *db.Database, cache ports.CacheRepository, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		db:     database,
		cache:  cache,
		logger: logger.With(slog.String("handler", "dashboard")),
	}
}

// AdminDashboard is the platform-wide operator view
type AdminDashboard struct {
	TotalBanks      int64                         `json:"total_banks"`
	TotalDonors     int64                         `json:"total_donors"`
	TotalRecipients int64                         `json:"total_recipients"`
	PendingRequests int64                         `json:"pending_requests"`
	Availability    *workers.AvailabilitySnapshot `json:"availability,omitempty"`
	Timestamp       time.Time                     `json:"timestamp"`
}

// BankDashboard is a blood bank's operational view
type BankDashboard struct {
	UnitsByGroup      map[domain.BloodGroup]int64 `json:"units_by_group"`
	TotalUnits        int64                       `json:"total_units"`
	ExpiringSoon      int64                       `json:"expiring_soon"`
	PendingRequests   int64                       `json:"pending_requests"`
	UpcomingDonations int64                       `json:"upcoming_donations"`
	Timestamp         time.Time                   `json:"timestamp"`
}

// RequesterDashboard summarizes a recipient's own requests
type RequesterDashboard struct {
	RequestsByStatus map[domain.RequestStatus]int64 `json:"requests_by_status"`
	TotalRequests    int64                          `json:"total_requests"`
	Timestamp        time.Time                      `json:"timestamp"`
}

// DonorDashboard summarizes a donor's donation history
type DonorDashboard struct {
	ScheduledDonations int64     `json:"scheduled_donations"`
	CompletedDonations int64     `json:"completed_donations"`
	TotalUnitsDonated  int64     `json:"total_units_donated"`
	Timestamp          time.Time `json:"timestamp"`
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := middleware.SessionFromContext(ctx)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, string(session.Role), session.UserID.String())

	var payload interface{}
	var err error

	switch session.Role {
	case domain.RoleAdmin:
		var dashboard AdminDashboard
		err = h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
			return h.loadAdminDashboard(ctx)
		}, 5*time.Minute)
		payload = dashboard

	case domain.RoleBloodBank:
		var dashboard BankDashboard
		err = h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
			return h.loadBankDashboard(ctx, session.UserID)
		}, 5*time.Minute)
		payload = dashboard

	case domain.RoleRecipient:
		var dashboard RequesterDashboard
		err = h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
			return h.loadRequesterDashboard(ctx, session.UserID)
		}, time.Minute)
		payload = dashboard

	case domain.RoleDonor:
		var dashboard DonorDashboard
		err = h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
			return h.loadDonorDashboard(ctx, session.UserID)
		}, time.Minute)
		payload = dashboard

	default:
		respondError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard",
			slog.String("role", string(session.Role)),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	respondJSON(w, http.StatusOK, payload)
}

func (h *DashboardHandler) loadAdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	dashboard := &AdminDashboard{Timestamp: time.Now()}

	countsQuery := `
		SELECT
			COUNT(*) FILTER (WHERE role = 'blood_bank' AND is_active = TRUE),
			COUNT(*) FILTER (WHERE role = 'donor'),
			COUNT(*) FILTER (WHERE role = 'recipient')
		FROM users
	`
	if err := h.db.QueryRow(ctx, countsQuery).Scan(
		&dashboard.TotalBanks,
		&dashboard.TotalDonors,
		&dashboard.TotalRecipients,
	); err != nil {
		return nil, err
	}

	pendingQuery := `SELECT COUNT(*) FROM blood_requests WHERE status = 'pending'`
	if err := h.db.QueryRow(ctx, pendingQuery).Scan(&dashboard.PendingRequests); err != nil {
		return nil, err
	}

	// Snapshot is refreshed by a background worker; stale or absent
	// snapshots just leave the field empty.
	var snapshot workers.AvailabilitySnapshot
	snapshotKey := redis_a.BuildKey(redis_a.PrefixAvailability, "snapshot")
	if err := h.cache.Get(ctx, snapshotKey, &snapshot); err == nil {
		dashboard.Availability = &snapshot
	}

	return dashboard, nil
}

func (h *DashboardHandler) loadBankDashboard(ctx context.Context, bankID uuid.UUID) (*BankDashboard, error) {
	dashboard := &BankDashboard{
		UnitsByGroup: make(map[domain.BloodGroup]int64),
		Timestamp:    time.Now(),
	}

	stockQuery := `
		SELECT blood_group, COALESCE(SUM(quantity), 0)
		FROM blood_inventory
		WHERE blood_bank_id = $1 AND status = 'available' AND expiry_date >= CURRENT_DATE
		GROUP BY blood_group
	`
	rows, err := h.db.Query(ctx, stockQuery, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var group domain.BloodGroup
		var units int64
		if err := rows.Scan(&group, &units); err != nil {
			return nil, err
		}
		dashboard.UnitsByGroup[group] = units
		dashboard.TotalUnits += units
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	expiringQuery := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM blood_inventory
		WHERE blood_bank_id = $1 AND status = 'available'
		  AND expiry_date >= CURRENT_DATE
		  AND expiry_date < CURRENT_DATE + INTERVAL '7 days'
	`
	if err := h.db.QueryRow(ctx, expiringQuery, bankID).Scan(&dashboard.ExpiringSoon); err != nil {
		return nil, err
	}

	pendingQuery := `SELECT COUNT(*) FROM blood_requests WHERE assigned_bank = $1 AND status = 'pending'`
	if err := h.db.QueryRow(ctx, pendingQuery, bankID).Scan(&dashboard.PendingRequests); err != nil {
		return nil, err
	}

	donationsQuery := `
		SELECT COUNT(*)
		FROM donation_history
		WHERE blood_bank_id = $1 AND status = 'scheduled' AND donation_date >= CURRENT_DATE
	`
	if err := h.db.QueryRow(ctx, donationsQuery, bankID).Scan(&dashboard.UpcomingDonations); err != nil {
		return nil, err
	}

	return dashboard, nil
}

func (h *DashboardHandler) loadRequesterDashboard(ctx context.Context, userID uuid.UUID) (*RequesterDashboard, error) {
	dashboard := &RequesterDashboard{
		RequestsByStatus: make(map[domain.RequestStatus]int64),
		Timestamp:        time.Now(),
	}

	query := `
		SELECT status, COUNT(*)
		FROM blood_requests
		WHERE requester_id = $1
		GROUP BY status
	`
	rows, err := h.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.RequestStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		dashboard.RequestsByStatus[status] = count
		dashboard.TotalRequests += count
	}

	return dashboard, rows.Err()
}

func (h *DashboardHandler) loadDonorDashboard(ctx context.Context, userID uuid.UUID) (*DonorDashboard, error) {
	dashboard := &DonorDashboard{Timestamp: time.Now()}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'scheduled'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(quantity) FILTER (WHERE status = 'completed'), 0)
		FROM donation_history
		WHERE donor_id = $1
	`
	if err := h.db.QueryRow(ctx, query, userID).Scan(
		&dashboard.ScheduledDonations,
		&dashboard.CompletedDonations,
		&dashboard.TotalUnitsDonated,
	); err != nil {
		return nil, err
	}

	return dashboard, nil
}
