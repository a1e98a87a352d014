package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stwalsh4118/picregistry/internal/database"
	"github.com/stwalsh4118/picregistry/internal/models"
)

// UpsertOutcome tells whether an upsert created or overwrote a row.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota + 1
	OutcomeUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// SearchParams filters a registry search.
type SearchParams struct {
	Query        string
	Jurisdiction string
	Limit        int
}

// RegistryStats describes the size and freshness of the registry.
// The dates are nil while the registry is empty.
type RegistryStats struct {
	LatestVersionDate *time.Time
	LastIngestedAt    *time.Time
	Records           int64
}

// PICRepository defines the data access operations on the PIC registry.
type PICRepository interface {
	// Upsert inserts rec, or overwrites the descriptive and status fields of
	// the row with the same pic_code. ingested_at is set to NOW() either way.
	Upsert(ctx context.Context, rec models.PICRecord) (UpsertOutcome, error)

	// FindByCode returns the record for code.
	// Returns nil, nil if no record exists (not an error).
	FindByCode(ctx context.Context, code string) (*models.PICRecord, error)

	// Search matches the query as a case-insensitive substring of the code,
	// property name, region or LGA. Active properties sort first, then by name.
	// Returns an empty slice when nothing matches.
	Search(ctx context.Context, params SearchParams) ([]models.PICRecord, error)

	// Count returns the number of registry rows.
	Count(ctx context.Context) (int64, error)

	// Stats returns the row count with the newest source version date and
	// ingestion time.
	Stats(ctx context.Context) (RegistryStats, error)
}

// picRepository is the concrete implementation of PICRepository.
type picRepository struct {
	db database.DBTX
}

// NewPICRepository creates a PICRepository over db, which may be the pool or
// an open transaction.
func NewPICRepository(db database.DBTX) PICRepository {
	return &picRepository{
		db: db,
	}
}

const upsertSQL = `
	INSERT INTO pic_registry (
		pic_code, jurisdiction, property_name, region, lga,
		is_active, has_bmp, source_version_date, ingested_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (pic_code) DO UPDATE SET
		property_name = EXCLUDED.property_name,
		region = EXCLUDED.region,
		lga = EXCLUDED.lga,
		is_active = EXCLUDED.is_active,
		has_bmp = EXCLUDED.has_bmp,
		source_version_date = EXCLUDED.source_version_date,
		ingested_at = NOW()
	RETURNING (xmax = 0) AS inserted
`

// Upsert runs inside its own savepoint (or transaction, against the pool),
// so a failed row leaves an enclosing run transaction usable.
func (r *picRepository) Upsert(ctx context.Context, rec models.PICRecord) (UpsertOutcome, error) {
	sp, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open savepoint for PIC %s: %w", rec.PICCode, err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	versionDate := pgtype.Date{Time: rec.SourceVersionDate, Valid: !rec.SourceVersionDate.IsZero()}

	var inserted bool
	err = sp.QueryRow(ctx, upsertSQL,
		rec.PICCode,
		rec.Jurisdiction,
		rec.PropertyName,
		rec.Region,
		rec.LGA,
		rec.IsActive,
		rec.HasBMP,
		versionDate,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert PIC %s: %w", rec.PICCode, err)
	}

	if err := sp.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to release savepoint for PIC %s: %w", rec.PICCode, err)
	}

	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

const selectColumns = `
	pic_code,
	jurisdiction,
	property_name,
	region,
	lga,
	is_active,
	has_bmp,
	source_version_date,
	ingested_at
`

// FindByCode looks up a single record by its exact code.
func (r *picRepository) FindByCode(ctx context.Context, code string) (*models.PICRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM pic_registry WHERE pic_code = $1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query PIC %s: %w", code, err)
	}
	return rec, nil
}

// Search runs the registry search used by the lookup dialog.
func (r *picRepository) Search(ctx context.Context, params SearchParams) ([]models.PICRecord, error) {
	query := `SELECT ` + selectColumns + `
		FROM pic_registry
		WHERE (UPPER(pic_code) LIKE UPPER($1)
			OR UPPER(property_name) LIKE UPPER($1)
			OR UPPER(region) LIKE UPPER($1)
			OR UPPER(lga) LIKE UPPER($1))
			AND ($2::text = '' OR jurisdiction = $2::text)
		ORDER BY is_active DESC, property_name ASC NULLS LAST, pic_code ASC
		LIMIT $3
	`

	pattern := "%" + escapeLike(params.Query) + "%"

	rows, err := r.db.Query(ctx, query, pattern, params.Jurisdiction, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search PIC registry (query=%q): %w", params.Query, err)
	}
	defer rows.Close()

	results := []models.PICRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan PIC row: %w", err)
		}
		results = append(results, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating PIC rows: %w", err)
	}

	return results, nil
}

// Count returns the number of rows in the registry.
func (r *picRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pic_registry`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count PIC registry: %w", err)
	}
	return n, nil
}

// Stats reports how much the registry holds and how recent it is.
func (r *picRepository) Stats(ctx context.Context) (RegistryStats, error) {
	var (
		stats       RegistryStats
		versionDate pgtype.Date
		ingestedAt  pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), MAX(source_version_date), MAX(ingested_at) FROM pic_registry`,
	).Scan(&stats.Records, &versionDate, &ingestedAt)
	if err != nil {
		return RegistryStats{}, fmt.Errorf("failed to read PIC registry stats: %w", err)
	}
	if versionDate.Valid {
		stats.LatestVersionDate = &versionDate.Time
	}
	if ingestedAt.Valid {
		stats.LastIngestedAt = &ingestedAt.Time
	}
	return stats, nil
}

func scanRecord(row pgx.Row) (*models.PICRecord, error) {
	var rec models.PICRecord
	var versionDate pgtype.Date

	err := row.Scan(
		&rec.PICCode,
		&rec.Jurisdiction,
		&rec.PropertyName,
		&rec.Region,
		&rec.LGA,
		&rec.IsActive,
		&rec.HasBMP,
		&versionDate,
		&rec.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	if versionDate.Valid {
		rec.SourceVersionDate = versionDate.Time
	}
	return &rec, nil
}

// escapeLike makes %, _ and \ in user input match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
