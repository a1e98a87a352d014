package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apierrors "github.com/stwalsh4118/picregistry/internal/errors"
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/middleware"
	"github.com/stwalsh4118/picregistry/internal/models"
	"github.com/stwalsh4118/picregistry/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
	apierrors.UseFormFieldNames()
}

// MockPICService is a mock implementation of PICService for testing
type MockPICService struct {
	mock.Mock
}

func (m *MockPICService) SearchPICs(ctx context.Context, query, jurisdiction string, limit int) ([]models.PICRecord, error) {
	args := m.Called(ctx, query, jurisdiction, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PICRecord), args.Error(1)
}

func (m *MockPICService) GetPIC(ctx context.Context, code string) (*models.PICRecord, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PICRecord), args.Error(1)
}

// setupPICTestRouter builds the full API router around a mocked service.
func setupPICTestRouter(svc services.PICService) *gin.Engine {
	return NewRouter(logger.Nop(), []string{"http://localhost:3000"},
		NewHealthHandler(nil, "test"), NewPICHandler(svc))
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var response apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func sampleRecord() *models.PICRecord {
	name := "Test Farm"
	region := "Top End"
	return &models.PICRecord{
		PICCode:           "NT1234AB",
		Jurisdiction:      "NT",
		PropertyName:      &name,
		Region:            &region,
		IsActive:          true,
		HasBMP:            false,
		SourceVersionDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		IngestedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestGet_Success(t *testing.T) {
	svc := new(MockPICService)
	svc.On("GetPIC", mock.Anything, "nt1234ab").Return(sampleRecord(), nil)

	w := doGet(setupPICTestRouter(svc), "/api/v1/pics/nt1234ab")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.JSONEq(t, `{
		"pic": {
			"pic_code": "NT1234AB",
			"jurisdiction": "NT",
			"property_name": "Test Farm",
			"region": "Top End",
			"is_active": true,
			"has_bmp": false,
			"source_version_date": "2024-12-01",
			"ingested_at": "2025-01-02T03:04:05Z"
		}
	}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid code", "NT-1", fmt.Errorf("%w: %q", services.ErrInvalidPICCode, "NT-1"), http.StatusBadRequest, apierrors.ErrInvalidPICCode},
		{"not found", "NT999", services.ErrPICNotFound, http.StatusNotFound, apierrors.ErrNotFound},
		{"database failure", "NT1", errors.New("connection reset"), http.StatusInternalServerError, apierrors.ErrInternalServer},
		{"database unreachable", "NT2", fmt.Errorf("%w: connection reset", services.ErrRegistryUnavailable), http.StatusServiceUnavailable, apierrors.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPICService)
			svc.On("GetPIC", mock.Anything, tt.code).Return(nil, tt.err)

			w := doGet(setupPICTestRouter(svc), "/api/v1/pics/"+tt.code)

			assert.Equal(t, tt.wantStatus, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.NotEmpty(t, response.Error.RequestID)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestSearch_Success(t *testing.T) {
	svc := new(MockPICService)
	records := []models.PICRecord{*sampleRecord()}
	svc.On("SearchPICs", mock.Anything, "farm", "nt", 5).Return(records, nil)

	w := doGet(setupPICTestRouter(svc), "/api/v1/pics?q=farm&jurisdiction=nt&limit=5")

	assert.Equal(t, http.StatusOK, w.Code)
	var response SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Count)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "NT1234AB", response.Results[0].PICCode)
	assert.Empty(t, response.Results[0].LGA)
	svc.AssertExpectations(t)
}

func TestSearch_DefaultsPassThrough(t *testing.T) {
	svc := new(MockPICService)
	svc.On("SearchPICs", mock.Anything, "", "", 0).Return([]models.PICRecord{}, nil)

	w := doGet(setupPICTestRouter(svc), "/api/v1/pics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[],"count":0}`, w.Body.String())
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantField string
	}{
		{"limit too large", "limit=101", "limit"},
		{"limit negative", "limit=-1", "limit"},
		{"jurisdiction not letters", "jurisdiction=N1", "jurisdiction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPICService)

			w := doGet(setupPICTestRouter(svc), "/api/v1/pics?"+tt.query)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, apierrors.ErrValidation, response.Error.Code)
			assert.Contains(t, response.Error.Details, tt.wantField)
			svc.AssertNotCalled(t, "SearchPICs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearch_InvalidParameterType(t *testing.T) {
	svc := new(MockPICService)

	w := doGet(setupPICTestRouter(svc), "/api/v1/pics?limit=ten")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierrors.ErrBadRequest, decodeError(t, w).Error.Code)
}

func TestSearch_ServiceErrors(t *testing.T) {
	t.Run("invalid limit", func(t *testing.T) {
		svc := new(MockPICService)
		svc.On("SearchPICs", mock.Anything, "x", "", 50).
			Return(nil, fmt.Errorf("%w: got 50", services.ErrInvalidLimit))

		w := doGet(setupPICTestRouter(svc), "/api/v1/pics?q=x&limit=50")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("database failure", func(t *testing.T) {
		svc := new(MockPICService)
		svc.On("SearchPICs", mock.Anything, "x", "", 0).Return(nil, errors.New("boom"))

		w := doGet(setupPICTestRouter(svc), "/api/v1/pics?q=x")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apierrors.ErrInternalServer, decodeError(t, w).Error.Code)
	})

	t.Run("database unreachable", func(t *testing.T) {
		svc := new(MockPICService)
		svc.On("SearchPICs", mock.Anything, "x", "", 0).
			Return(nil, fmt.Errorf("failed to search: %w", services.ErrRegistryUnavailable))

		w := doGet(setupPICTestRouter(svc), "/api/v1/pics?q=x")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, apierrors.ErrServiceUnavailable, decodeError(t, w).Error.Code)
	})
}

func TestMapPICRecordToDTO_NullFields(t *testing.T) {
	dto := mapPICRecordToDTO(&models.PICRecord{PICCode: "NT1", Jurisdiction: "NT", IsActive: true})

	assert.Equal(t, "NT1", dto.PICCode)
	assert.Empty(t, dto.PropertyName)
	assert.Empty(t, dto.Region)
	assert.Empty(t, dto.LGA)
	assert.Empty(t, dto.SourceVersionDate)
	assert.True(t, dto.IsActive)
}
