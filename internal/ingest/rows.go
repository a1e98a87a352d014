package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stwalsh4118/picregistry/internal/document"
	"github.com/stwalsh4118/picregistry/internal/models"
)

// DefaultTableMinRows is the row count a table must exceed to be picked.
const DefaultTableMinRows = 10

var (
	// ErrNoQualifyingTable means no table in the document is large enough.
	ErrNoQualifyingTable = errors.New("no table with enough rows found")
	// ErrMissingPICColumn means the header row has no PIC column.
	ErrMissingPICColumn = errors.New("no PIC column in header")
	// ErrInvalidPIC means a row's PIC code is empty, too long or not A-Z/0-9.
	ErrInvalidPIC = errors.New("invalid PIC code")
)

// LocateTable returns the first table with more than minRows rows.
func LocateTable(tables []document.Table, minRows int) (document.Table, int, error) {
	for i, t := range tables {
		if t.Len() > minRows {
			return t, i, nil
		}
	}
	return document.Table{}, -1, fmt.Errorf("%w: %d tables, none with more than %d rows",
		ErrNoQualifyingTable, len(tables), minRows)
}

// RowDefaults are the values stamped on every extracted record.
type RowDefaults struct {
	SourceVersionDate time.Time
	Jurisdiction      string
}

// ExtractRow builds a registry record from a raw data row. The PIC cell is
// only trimmed and upper-cased, so compatibility characters such as
// full-width digits are rejected rather than folded to ASCII; every other
// cell goes through cleanCell. Columns that are unmapped or missing from a
// short row fall back to the defaults: NULL text, active, no BMP. A flag
// cell that is present but not "YES" is false.
func ExtractRow(cells []string, cols ColumnMap, d RowDefaults) (models.PICRecord, error) {
	rec := models.PICRecord{
		Jurisdiction:      d.Jurisdiction,
		SourceVersionDate: d.SourceVersionDate,
		IsActive:          true,
		HasBMP:            false,
	}

	pic, mapped := cellAt(cells, cols, FieldPIC)
	if !mapped {
		return rec, ErrMissingPICColumn
	}
	rec.PICCode = strings.ToUpper(strings.TrimSpace(pic))

	rec.PropertyName = optional(cleanCellAt(cells, cols, FieldPropertyName))
	rec.Region = optional(cleanCellAt(cells, cols, FieldRegion))
	rec.LGA = optional(cleanCellAt(cells, cols, FieldLGA))

	rec.IsActive = flagAt(cells, cols, FieldActive, true)
	rec.HasBMP = flagAt(cells, cols, FieldBMP, false)

	if !models.IsValidPICCode(rec.PICCode) {
		return rec, fmt.Errorf("%w: %q", ErrInvalidPIC, rec.PICCode)
	}
	return rec, nil
}

// cellAt returns the cell for f. The bool reports whether f is mapped at
// all; a mapped column beyond the end of the row reads as empty.
func cellAt(cells []string, cols ColumnMap, f Field) (string, bool) {
	i, ok := cols.Index(f)
	if !ok {
		return "", false
	}
	if i < len(cells) {
		return cells[i], true
	}
	return "", true
}

// cleanCellAt is cellAt with the cell run through cleanCell.
func cleanCellAt(cells []string, cols ColumnMap, f Field) (string, bool) {
	v, mapped := cellAt(cells, cols, f)
	return cleanCell(v), mapped
}

func optional(v string, mapped bool) *string {
	if !mapped || v == "" {
		return nil
	}
	return &v
}

// flagAt reads a YES/NO column, returning def when the column is unmapped or
// past the end of the row.
func flagAt(cells []string, cols ColumnMap, f Field, def bool) bool {
	i, ok := cols.Index(f)
	if !ok || i >= len(cells) {
		return def
	}
	return isYes(cleanCell(cells[i]))
}

func isYes(v string) bool {
	return strings.ToUpper(v) == "YES"
}
