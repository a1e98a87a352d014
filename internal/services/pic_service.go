package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/models"
	"github.com/stwalsh4118/picregistry/internal/repository"
)

// Search limit constants
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Service-level errors
var (
	ErrInvalidPICCode = errors.New("invalid PIC code")
	ErrPICNotFound    = errors.New("PIC not found")
	ErrInvalidLimit   = fmt.Errorf("limit must be between 1 and %d", MaxSearchLimit)

	// ErrRegistryUnavailable wraps failures to reach the database at all,
	// as opposed to a query that ran and failed.
	ErrRegistryUnavailable = errors.New("PIC registry unavailable")
)

// wrapRepoError prefixes err with msg and marks connection failures and
// timeouts with ErrRegistryUnavailable.
func wrapRepoError(msg string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", msg, ErrRegistryUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// PICService defines the interface for registry lookups.
type PICService interface {
	// SearchPICs finds records whose code, property name, region or LGA
	// contains query, case-insensitively. A zero limit means DefaultSearchLimit.
	// Returns ErrInvalidLimit if limit is negative or above MaxSearchLimit.
	// Returns empty slice if nothing matches (not an error).
	SearchPICs(ctx context.Context, query, jurisdiction string, limit int) ([]models.PICRecord, error)

	// GetPIC retrieves one record by code. The code is trimmed and upper-cased.
	// Returns ErrInvalidPICCode if the code is not 1-8 characters of A-Z/0-9.
	// Returns ErrPICNotFound if no record exists.
	GetPIC(ctx context.Context, code string) (*models.PICRecord, error)
}

// picService is the concrete implementation of PICService.
type picService struct {
	repo repository.PICRepository
	log  *logger.Logger
}

// NewPICService creates a new instance of PICService.
func NewPICService(repo repository.PICRepository, log *logger.Logger) PICService {
	return &picService{
		repo: repo,
		log:  log,
	}
}

// SearchPICs normalizes the search inputs and queries the registry.
func (s *picService) SearchPICs(ctx context.Context, query, jurisdiction string, limit int) ([]models.PICRecord, error) {
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		s.log.Warn("Invalid search limit provided", map[string]interface{}{
			"limit": limit,
		})
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	params := repository.SearchParams{
		Query:        strings.TrimSpace(query),
		Jurisdiction: strings.ToUpper(strings.TrimSpace(jurisdiction)),
		Limit:        limit,
	}

	s.log.Info("Searching PIC registry", map[string]interface{}{
		"query":        params.Query,
		"jurisdiction": params.Jurisdiction,
		"limit":        params.Limit,
	})

	results, err := s.repo.Search(ctx, params)
	if err != nil {
		s.log.Error("Failed to search PIC registry", err, map[string]interface{}{
			"query":        params.Query,
			"jurisdiction": params.Jurisdiction,
		})
		return nil, wrapRepoError("failed to search PIC registry", err)
	}

	s.log.Debug("PIC search complete", map[string]interface{}{
		"query": params.Query,
		"count": len(results),
	})

	return results, nil
}

// GetPIC validates the code before touching the database and maps a
// missing record to ErrPICNotFound.
func (s *picService) GetPIC(ctx context.Context, code string) (*models.PICRecord, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !models.IsValidPICCode(normalized) {
		s.log.Warn("Invalid PIC code provided", map[string]interface{}{
			"pic_code": code,
		})
		return nil, fmt.Errorf("%w: %q", ErrInvalidPICCode, code)
	}

	rec, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		s.log.Error("Failed to query PIC", err, map[string]interface{}{
			"pic_code": normalized,
		})
		return nil, wrapRepoError("failed to query PIC", err)
	}

	if rec == nil {
		s.log.Debug("No PIC found", map[string]interface{}{
			"pic_code": normalized,
		})
		return nil, ErrPICNotFound
	}

	return rec, nil
}
