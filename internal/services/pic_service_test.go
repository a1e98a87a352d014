package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/models"
	"github.com/stwalsh4118/picregistry/internal/repository"
)

// MockPICRepository is a mock implementation of PICRepository for testing
type MockPICRepository struct {
	mock.Mock
}

func (m *MockPICRepository) Upsert(ctx context.Context, rec models.PICRecord) (repository.UpsertOutcome, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(repository.UpsertOutcome), args.Error(1)
}

func (m *MockPICRepository) FindByCode(ctx context.Context, code string) (*models.PICRecord, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	rec, ok := args.Get(0).(*models.PICRecord)
	if !ok {
		return nil, args.Error(1)
	}
	return rec, args.Error(1)
}

func (m *MockPICRepository) Search(ctx context.Context, params repository.SearchParams) ([]models.PICRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PICRecord), args.Error(1)
}

func (m *MockPICRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPICRepository) Stats(ctx context.Context) (repository.RegistryStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(repository.RegistryStats), args.Error(1)
}

func testRecord(code string) *models.PICRecord {
	name := "Test Farm"
	return &models.PICRecord{
		PICCode:           code,
		Jurisdiction:      "NT",
		PropertyName:      &name,
		IsActive:          true,
		SourceVersionDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		IngestedAt:        time.Now(),
	}
}

func TestGetPIC_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	expected := testRecord("NT1234AB")
	mockRepo.On("FindByCode", ctx, "NT1234AB").Return(expected, nil)

	// Act
	rec, err := service.GetPIC(ctx, " nt1234ab ")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, expected, rec)
	mockRepo.AssertExpectations(t)
}

func TestGetPIC_NotFound(t *testing.T) {
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("FindByCode", ctx, "NT999").Return(nil, nil)

	rec, err := service.GetPIC(ctx, "NT999")

	assert.ErrorIs(t, err, ErrPICNotFound)
	assert.Nil(t, rec)
	mockRepo.AssertExpectations(t)
}

func TestGetPIC_InvalidCode(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"too long", "NT12345678"},
		{"punctuation", "NT-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockPICRepository)
			service := NewPICService(mockRepo, logger.Nop())

			rec, err := service.GetPIC(context.Background(), tt.code)

			assert.ErrorIs(t, err, ErrInvalidPICCode)
			assert.Nil(t, rec)
			mockRepo.AssertNotCalled(t, "FindByCode", mock.Anything, mock.Anything)
		})
	}
}

func TestGetPIC_DatabaseError(t *testing.T) {
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	dbErr := errors.New("connection refused")
	mockRepo.On("FindByCode", ctx, "NT1").Return(nil, dbErr)

	rec, err := service.GetPIC(ctx, "NT1")

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrPICNotFound)
	assert.Nil(t, rec)
}

func TestGetPIC_RegistryUnavailable(t *testing.T) {
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("FindByCode", ctx, "NT1").Return(nil, fmt.Errorf("acquire: %w", context.DeadlineExceeded))

	_, err := service.GetPIC(ctx, "NT1")

	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchPICs_NormalizesParams(t *testing.T) {
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	want := []models.PICRecord{*testRecord("NT1")}
	mockRepo.On("Search", ctx, repository.SearchParams{
		Query:        "downs",
		Jurisdiction: "NT",
		Limit:        DefaultSearchLimit,
	}).Return(want, nil)

	got, err := service.SearchPICs(ctx, "  downs ", " nt", 0)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	mockRepo.AssertExpectations(t)
}

func TestSearchPICs_Limits(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		wantErr bool
	}{
		{"negative", -1, true},
		{"over max", MaxSearchLimit + 1, true},
		{"one", 1, false},
		{"max", MaxSearchLimit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockPICRepository)
			service := NewPICService(mockRepo, logger.Nop())
			ctx := context.Background()

			if !tt.wantErr {
				mockRepo.On("Search", ctx, mock.MatchedBy(func(p repository.SearchParams) bool {
					return p.Limit == tt.limit
				})).Return([]models.PICRecord{}, nil)
			}

			_, err := service.SearchPICs(ctx, "x", "", tt.limit)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLimit)
				mockRepo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestSearchPICs_DatabaseError(t *testing.T) {
	mockRepo := new(MockPICRepository)
	service := NewPICService(mockRepo, logger.Nop())
	ctx := context.Background()

	dbErr := errors.New("timeout")
	mockRepo.On("Search", ctx, mock.Anything).Return(nil, dbErr)

	got, err := service.SearchPICs(ctx, "x", "", 5)

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrRegistryUnavailable)
	assert.Nil(t, got)
}
