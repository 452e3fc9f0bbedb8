// internal/handlers/requests_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/handlers"
	"github.com/akash684/bloodbank-be/internal/handlers/middleware"
	"github.com/akash684/bloodbank-be/test/helpers"
	"github.com/akash684/bloodbank-be/test/mocks"
)

func sessionRequest(t *testing.T, method, target string, body any, session domain.Session) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(middleware.WithSession(req.Context(), session))
}

func testSession(role domain.Role) domain.Session {
	return domain.Session{
		UserID:    uuid.New(),
		Role:      role,
		Name:      "Test User",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRequestHandler_Submit(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	session := testSession(domain.RoleRecipient)
	bankID := uuid.New()

	body := handlers.SubmitRequestBody{
		BloodBankID:   bankID,
		BloodGroup:    "O+",
		Quantity:      5,
		Urgency:       "high",
		PatientName:   "Jordan Case",
		ContactNumber: "+1-555-0400",
		HospitalName:  "City General Hospital",
		Reason:        "Scheduled surgery",
		RequiredBy:    time.Now().Add(72 * time.Hour),
	}

	service.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, input ports.SubmitRequestInput) (*domain.BloodRequest, error) {
			assert.Equal(t, session.UserID, input.Requester.UserID)
			assert.Equal(t, bankID, input.BloodBankID)
			assert.Equal(t, domain.GroupOPositive, input.BloodGroup)
			assert.Equal(t, 5, input.Quantity)
			return helpers.CreateTestRequest(session.UserID, bankID), nil
		})

	rec := httptest.NewRecorder()
	handler.Submit(rec, sessionRequest(t, http.MethodPost, "/api/v1/requests", body, session))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.BloodRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.RequestPending, resp.Status)
}

func TestRequestHandler_Submit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "validation_error",
			serviceErr: &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "insufficient_inventory",
			serviceErr: &domain.InsufficientInventoryError{
				BloodGroup: domain.GroupOPositive,
				Requested:  999,
				Available:  12,
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "forbidden_role",
			serviceErr: fmt.Errorf("role donor cannot submit requests: %w", domain.ErrForbidden),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "bank_not_found",
			serviceErr: fmt.Errorf("blood bank: %w", domain.ErrNotFound),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "dependency_failure",
			serviceErr: &domain.DependencyError{Op: "request.insert", Err: fmt.Errorf("connection reset")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			service := mocks.NewMockRequestService(ctrl)
			handler := handlers.NewRequestHandler(service, helpers.TestLogger())

			service.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(nil, tt.serviceErr)

			body := handlers.SubmitRequestBody{
				BloodBankID: uuid.New(),
				BloodGroup:  "O+",
				Quantity:    5,
			}

			rec := httptest.NewRecorder()
			handler.Submit(rec, sessionRequest(t, http.MethodPost, "/api/v1/requests", body, testSession(domain.RoleRecipient)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequestHandler_Submit_InsufficientInventoryPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	service.EXPECT().
		Submit(gomock.Any(), gomock.Any()).
		Return(nil, &domain.InsufficientInventoryError{
			BloodGroup: domain.GroupOPositive,
			Requested:  999,
			Available:  12,
		})

	body := handlers.SubmitRequestBody{BloodBankID: uuid.New(), BloodGroup: "O+", Quantity: 999}
	rec := httptest.NewRecorder()
	handler.Submit(rec, sessionRequest(t, http.MethodPost, "/api/v1/requests", body, testSession(domain.RoleRecipient)))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, float64(12), resp["available"])
	assert.Equal(t, float64(999), resp["requested"])
	assert.Equal(t, "O+", resp["blood_group"])
}

func TestRequestHandler_Submit_MissingSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestHandler_Submit_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString("{not json"))
	req = req.WithContext(middleware.WithSession(req.Context(), testSession(domain.RoleRecipient)))
	rec := httptest.NewRecorder()

	handler.Submit(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	session := testSession(domain.RoleRecipient)
	service.EXPECT().
		ListForUser(gomock.Any(), session).
		Return([]domain.BloodRequest{*helpers.CreateTestRequest(session.UserID, uuid.New())}, nil)

	rec := httptest.NewRecorder()
	handler.List(rec, sessionRequest(t, http.MethodGet, "/api/v1/requests", nil, session))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.JSONEq(t, "1", string(resp["total"]))
}

func TestRequestHandler_Lifecycle_UsesPathID(t *testing.T) {
	session := testSession(domain.RoleBloodBank)
	requestID := uuid.New()
	approved := helpers.CreateTestRequest(uuid.New(), session.UserID, func(r *domain.BloodRequest) {
		r.ID = requestID
		r.Status = domain.RequestApproved
	})

	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	service.EXPECT().Approve(gomock.Any(), session, requestID).Return(approved, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/requests/{id}/approve", handler.Approve)

	req := sessionRequest(t, http.MethodPost, "/api/v1/requests/"+requestID.String()+"/approve", nil, session)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.BloodRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, domain.RequestApproved, resp.Status)
}

func TestRequestHandler_Lifecycle_InvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/requests/{id}/deny", handler.Deny)

	req := sessionRequest(t, http.MethodPost, "/api/v1/requests/not-a-uuid/deny", nil, testSession(domain.RoleAdmin))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandler_Lifecycle_InvalidTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockRequestService(ctrl)
	handler := handlers.NewRequestHandler(service, helpers.TestLogger())

	session := testSession(domain.RoleAdmin)
	requestID := uuid.New()
	service.EXPECT().
		Fulfill(gomock.Any(), session, requestID).
		Return(nil, fmt.Errorf("request is pending: %w", domain.ErrInvalidTransition))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/requests/{id}/fulfill", handler.Fulfill)

	req := sessionRequest(t, http.MethodPost, "/api/v1/requests/"+requestID.String()+"/fulfill", nil, session)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
