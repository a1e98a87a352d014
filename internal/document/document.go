// Package document reads the tables out of tabular source documents.
//
// Two formats are supported: Word documents (.docx), where every top-level
// table in the body becomes a Table, and CSV exports, which hold a single
// table. Cell text is returned raw; trimming and normalization belong to the
// caller.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions Open does not know.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Table is a grid of cell text. Rows may have different lengths.
type Table struct {
	Rows [][]string
}

// Len returns the number of rows, header included.
func (t Table) Len() int {
	return len(t.Rows)
}

// Open reads every table in the file at path, choosing the reader by extension.
func Open(path string) ([]Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".docx":
		return ReadDOCXFile(path)
	case ".csv":
		t, err := ReadCSVFile(path)
		if err != nil {
			return nil, err
		}
		return []Table{t}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
