package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// SkipEntry describes one data row the pipeline did not write.
type SkipEntry struct {
	Reason       string
	PICCode      string
	PropertyName string
	Detail       string
	Row          int
}

// SkipRecorder receives skipped rows.
type SkipRecorder interface {
	Record(e SkipEntry) error
}

type discardSkips struct{}

func (discardSkips) Record(SkipEntry) error { return nil }

var skipLogHeader = []string{"reason", "row", "pic_code", "property_name", "detail"}

// SkipLog writes skipped rows as CSV.
type SkipLog struct {
	w      *csv.Writer
	closer io.Closer
}

// NewSkipLog writes the header to w and returns a SkipLog over it.
func NewSkipLog(w io.Writer) (*SkipLog, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(skipLogHeader); err != nil {
		return nil, fmt.Errorf("failed to write skip log header: %w", err)
	}
	return &SkipLog{w: cw}, nil
}

// CreateSkipLog creates (or truncates) the file at path, making parent
// directories as needed.
func CreateSkipLog(path string) (*SkipLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create skip log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create skip log %s: %w", path, err)
	}
	sl, err := NewSkipLog(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sl.closer = f
	return sl, nil
}

// Record appends one row.
func (s *SkipLog) Record(e SkipEntry) error {
	return s.w.Write([]string{e.Reason, strconv.Itoa(e.Row), e.PICCode, e.PropertyName, e.Detail})
}

// Close flushes buffered rows and closes the underlying file, if any.
func (s *SkipLog) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		if s.closer != nil {
			_ = s.closer.Close()
		}
		return fmt.Errorf("failed to flush skip log: %w", err)
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
