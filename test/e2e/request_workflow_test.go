//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/akash684/bloodbank-be/internal/adapters/db"
	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/core/services"
	"github.com/akash684/bloodbank-be/internal/handlers"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
	"github.com/akash684/bloodbank-be/test/helpers"
)

const jwtSecret = "test-secret"

// storeDispatcher persists notifications directly instead of queueing
// delivery jobs. The async pipeline is covered by worker tests.
type storeDispatcher struct {
	repo ports.NotificationRepository
}

func (d *storeDispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	n.PrepareForStorage()
	return d.repo.Insert(ctx, n)
}

type RequestWorkflowE2ESuite struct {
	suite.Suite
	server  *httptest.Server
	client  *http.Client
	baseURL string
	testDB  *helpers.TestDB

	bank      *domain.BloodBank
	recipient *domain.User
	donor     *domain.User
}

func (s *RequestWorkflowE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"
}

func (s *RequestWorkflowE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *RequestWorkflowE2ESuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)

	s.bank = helpers.CreateTestBank()
	helpers.SeedBank(s.T(), s.testDB.PgxPool, s.bank)

	s.recipient = helpers.CreateTestUser()
	helpers.SeedUser(s.T(), s.testDB.PgxPool, s.recipient)

	s.donor = helpers.CreateTestUser(func(u *domain.User) {
		u.Email = "dan.donor@example.com"
		u.Name = "Dan Donor"
		u.Role = domain.RoleDonor
		u.BloodType = domain.GroupONegative
	})
	helpers.SeedUser(s.T(), s.testDB.PgxPool, s.donor)

	helpers.SeedInventory(s.T(), s.testDB.PgxPool, []domain.InventoryUnit{
		*helpers.CreateTestUnit(s.bank.ID),
	})
}

func (s *RequestWorkflowE2ESuite) TestCompleteRequestWorkflow() {
	recipientToken := s.signToken(s.recipient.ID, domain.RoleRecipient, s.recipient.Name)
	bankToken := s.signToken(s.bank.ID, domain.RoleBloodBank, s.bank.Name)

	// 1. Public search shows the seeded stock
	var search map[string]interface{}
	resp := s.makeRequest("GET", "/search?blood_group=O%2B", nil, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &search)
	results := search["results"].([]interface{})
	s.Require().Len(results, 1)
	s.Equal(float64(12), results[0].(map[string]interface{})["total_units"])

	// 2. Recipient submits a request
	submitBody := map[string]interface{}{
		"blood_bank_id":  s.bank.ID.String(),
		"blood_group":    "O+",
		"quantity":       5,
		"urgency":        "high",
		"patient_name":   "Jordan Case",
		"contact_number": "+1-555-0400",
		"hospital_name":  "City General Hospital",
		"reason":         "Scheduled surgery",
		"required_by":    time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	}

	resp = s.makeRequest("POST", "/requests", submitBody, recipientToken)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	s.decodeResponse(resp, &created)
	requestID := created["id"].(string)
	s.Equal("pending", created["status"])

	// 3. The assigned bank sees it in its queue
	resp = s.makeRequest("GET", "/requests", nil, bankToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	var bankQueue map[string]interface{}
	s.decodeResponse(resp, &bankQueue)
	s.Equal(float64(1), bankQueue["total"])

	// 4. Bank approves, which reserves the stock
	resp = s.makeRequest("POST", fmt.Sprintf("/requests/%s/approve", requestID), nil, bankToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	var approved map[string]interface{}
	s.decodeResponse(resp, &approved)
	s.Equal("approved", approved["status"])

	// 5. Search reflects the decrement
	resp = s.makeRequest("GET", "/search?blood_group=O%2B", nil, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &search)
	results = search["results"].([]interface{})
	s.Require().Len(results, 1)
	s.Equal(float64(7), results[0].(map[string]interface{})["total_units"])

	// 6. Bank fulfills
	resp = s.makeRequest("POST", fmt.Sprintf("/requests/%s/fulfill", requestID), nil, bankToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	var fulfilled map[string]interface{}
	s.decodeResponse(resp, &fulfilled)
	s.Equal("fulfilled", fulfilled["status"])

	// 7. Recipient received status notifications
	resp = s.makeRequest("GET", "/notifications", nil, recipientToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	var feed map[string]interface{}
	s.decodeResponse(resp, &feed)
	s.GreaterOrEqual(feed["total"].(float64), float64(2))
}

func (s *RequestWorkflowE2ESuite) TestSubmitRejectedWhenStockTooLow() {
	recipientToken := s.signToken(s.recipient.ID, domain.RoleRecipient, s.recipient.Name)

	body := map[string]interface{}{
		"blood_bank_id":  s.bank.ID.String(),
		"blood_group":    "O+",
		"quantity":       100,
		"urgency":        "critical",
		"patient_name":   "Jordan Case",
		"contact_number": "+1-555-0400",
		"hospital_name":  "City General Hospital",
		"reason":         "Emergency transfusion",
		"required_by":    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}

	resp := s.makeRequest("POST", "/requests", body, recipientToken)
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	var payload map[string]interface{}
	s.decodeResponse(resp, &payload)
	s.Equal(float64(12), payload["available"])
	s.Equal(float64(100), payload["requested"])
}

func (s *RequestWorkflowE2ESuite) TestDonationWorkflowGrowsInventory() {
	donorToken := s.signToken(s.donor.ID, domain.RoleDonor, s.donor.Name)
	bankToken := s.signToken(s.bank.ID, domain.RoleBloodBank, s.bank.Name)

	body := map[string]interface{}{
		"blood_bank_id": s.bank.ID.String(),
		"blood_group":   "O-",
		"quantity":      2,
		"donation_date": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}

	resp := s.makeRequest("POST", "/donations", body, donorToken)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var donation map[string]interface{}
	s.decodeResponse(resp, &donation)
	donationID := donation["id"].(string)
	s.Equal("scheduled", donation["status"])

	resp = s.makeRequest("POST", fmt.Sprintf("/donations/%s/complete", donationID), nil, bankToken)
	s.Equal(http.StatusOK, resp.StatusCode)

	var completed map[string]interface{}
	s.decodeResponse(resp, &completed)
	s.Equal("completed", completed["status"])

	// The completed donation is searchable stock
	var search map[string]interface{}
	resp = s.makeRequest("GET", "/search?blood_group=O-", nil, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &search)
	results := search["results"].([]interface{})
	s.Require().Len(results, 1)
	s.Equal(float64(2), results[0].(map[string]interface{})["total_units"])
}

func (s *RequestWorkflowE2ESuite) TestAuthBoundaries() {
	recipientToken := s.signToken(s.recipient.ID, domain.RoleRecipient, s.recipient.Name)

	// No token
	resp := s.makeRequest("POST", "/requests", map[string]interface{}{}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Recipients cannot approve
	resp = s.makeRequest("POST", fmt.Sprintf("/requests/%s/approve", uuid.New()), nil, recipientToken)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

// Helper methods

func (s *RequestWorkflowE2ESuite) startTestServer() *httptest.Server {
	logger := helpers.TestLogger()

	inventoryRepo := db.NewInventoryRepository(s.testDB.Database, logger)
	userRepo := db.NewUserRepository(s.testDB.Database, logger)
	requestRepo := db.NewRequestRepository(s.testDB.Database, logger)
	donationRepo := db.NewDonationRepository(s.testDB.Database, logger)
	notificationRepo := db.NewNotificationRepository(s.testDB.Database, logger)

	dispatcher := &storeDispatcher{repo: notificationRepo}

	availabilityService := services.NewAvailabilityService(userRepo, inventoryRepo, logger)
	requestService := services.NewRequestService(requestRepo, inventoryRepo, userRepo, dispatcher, logger)
	donationService := services.NewDonationService(donationRepo, inventoryRepo, userRepo, dispatcher, logger)
	notificationService := services.NewNotificationService(notificationRepo, logger)

	searchHandler := handlers.NewSearchHandler(availabilityService, logger)
	requestHandler := handlers.NewRequestHandler(requestService, logger)
	donationHandler := handlers.NewDonationHandler(donationService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)

	auth := middleware.Authenticate(jwtSecret)
	staff := middleware.RequireRoles(domain.RoleBloodBank, domain.RoleAdmin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", searchHandler.Search)
	mux.Handle("POST /api/v1/requests", auth(http.HandlerFunc(requestHandler.Submit)))
	mux.Handle("GET /api/v1/requests", auth(http.HandlerFunc(requestHandler.List)))
	mux.Handle("GET /api/v1/requests/{id}", auth(http.HandlerFunc(requestHandler.Get)))
	mux.Handle("POST /api/v1/requests/{id}/approve", auth(staff(http.HandlerFunc(requestHandler.Approve))))
	mux.Handle("POST /api/v1/requests/{id}/deny", auth(staff(http.HandlerFunc(requestHandler.Deny))))
	mux.Handle("POST /api/v1/requests/{id}/fulfill", auth(staff(http.HandlerFunc(requestHandler.Fulfill))))
	mux.Handle("POST /api/v1/donations", auth(http.HandlerFunc(donationHandler.Schedule)))
	mux.Handle("GET /api/v1/donations", auth(http.HandlerFunc(donationHandler.List)))
	mux.Handle("POST /api/v1/donations/{id}/complete", auth(staff(http.HandlerFunc(donationHandler.Complete))))
	mux.Handle("POST /api/v1/donations/{id}/cancel", auth(http.HandlerFunc(donationHandler.Cancel)))
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))

	return httptest.NewServer(mux)
}

func (s *RequestWorkflowE2ESuite) signToken(userID uuid.UUID, role domain.Role, name string) string {
	claims := middleware.AccessClaims{
		Role: string(role),
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	s.Require().NoError(err)
	return signed
}

func (s *RequestWorkflowE2ESuite) makeRequest(method, path string, body interface{}, token string) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		s.NoError(err)
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reqBody)
	s.NoError(err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	s.NoError(err)

	return resp
}

func (s *RequestWorkflowE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	err := json.NewDecoder(resp.Body).Decode(v)
	s.NoError(err)
}

func TestRequestWorkflowE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	suite.Run(t, new(RequestWorkflowE2ESuite))
}
