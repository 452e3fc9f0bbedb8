// internal/handlers/search_test.go
package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/akash684/bloodbank-be/internal/core/domain"
	"github.com/akash684/bloodbank-be/internal/core/ports"
	"github.com/akash684/bloodbank-be/internal/handlers"
	"github.com/akash684/bloodbank-be/test/helpers"
	"github.com/akash684/bloodbank-be/test/mocks"
)

func TestSearchHandler_Search(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockAvailabilityService(ctrl)
	handler := handlers.NewSearchHandler(service, helpers.TestLogger())

	bank := helpers.CreateTestBank()
	service.EXPECT().
		Search(gomock.Any(), ports.SearchFilters{NameQuery: "city", BloodGroup: domain.GroupOPositive}).
		Return([]domain.AggregatedBankResult{
			{BankID: bank.ID, Name: bank.Name, TotalUnits: 12},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?name=city&blood_group=O%2B", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalBanks)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, bank.Name, resp.Results[0].Name)
	assert.Equal(t, 12, resp.Results[0].TotalUnits)
}

func TestSearchHandler_Search_EmptyResultIsNotAnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockAvailabilityService(ctrl)
	handler := handlers.NewSearchHandler(service, helpers.TestLogger())

	service.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?name=nonexistent", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestSearchHandler_Search_InvalidBloodGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockAvailabilityService(ctrl)
	handler := handlers.NewSearchHandler(service, helpers.TestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?blood_group=XYZ", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_Search_DependencyFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockAvailabilityService(ctrl)
	handler := handlers.NewSearchHandler(service, helpers.TestLogger())

	service.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return(nil, &domain.DependencyError{Op: "availability.list_banks", Err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
