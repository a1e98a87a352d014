// Package ingest loads a PIC list table into the registry: it locates the
// data table, maps its header to registry fields, validates each row and
// upserts the valid ones, counting everything it skips.
package ingest

import (
	"context"
	"errors"

	"github.com/stwalsh4118/picregistry/internal/document"
	"github.com/stwalsh4118/picregistry/internal/models"
	"github.com/stwalsh4118/picregistry/internal/repository"
)

// Skip reasons recorded in the summary and the skip log.
const (
	ReasonInvalidPIC   = "invalid_pic"
	ReasonMissingPIC   = "missing_pic_column"
	ReasonWriteFailed  = "write_failed"
	firstDataRowNumber = 2 // 1-based, the header is row 1
)

// Writer stores one validated record. repository.PICRepository satisfies it.
type Writer interface {
	Upsert(ctx context.Context, rec models.PICRecord) (repository.UpsertOutcome, error)
}

// Plan is a located table with its header mapping, ready to run.
type Plan struct {
	Table      document.Table
	TableIndex int
	Columns    ColumnMap
}

// Headers returns the header row of the planned table.
func (p Plan) Headers() []string {
	if len(p.Table.Rows) == 0 {
		return nil
	}
	return p.Table.Rows[0]
}

// DataRows returns every row after the header.
func (p Plan) DataRows() [][]string {
	if len(p.Table.Rows) < 2 {
		return nil
	}
	return p.Table.Rows[1:]
}

// Prepare locates the data table and maps its first row as the header.
// It fails with ErrNoQualifyingTable before anything is written.
func Prepare(tables []document.Table, minRows int) (Plan, error) {
	return PrepareWith(tables, minRows, DefaultHeaderRules)
}

// PrepareWith is Prepare with a custom header rule table. Nil rules mean
// DefaultHeaderRules.
func PrepareWith(tables []document.Table, minRows int, rules []HeaderRule) (Plan, error) {
	if rules == nil {
		rules = DefaultHeaderRules
	}
	t, idx, err := LocateTable(tables, minRows)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		Table:      t,
		TableIndex: idx,
		Columns:    MapHeadersWith(rules, t.Rows[0]),
	}, nil
}

// Summary counts what a run did with each data row.
type Summary struct {
	SkipReasons map[string]int
	Inserted    int
	Updated     int
	Validated   int // valid rows in a dry run, never written
	Skipped     int
	Blank       int // all-blank rows, not counted as processed or skipped
}

// Written is the number of rows inserted or updated.
func (s Summary) Written() int {
	return s.Inserted + s.Updated
}

// Processed is the number of non-blank data rows handled.
func (s Summary) Processed() int {
	return s.Written() + s.Validated + s.Skipped
}

func (s *Summary) skip(reason string) {
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
	s.Skipped++
}

// Pipeline runs a Plan against a Writer.
type Pipeline struct {
	writer   Writer
	reporter *Reporter
	skips    SkipRecorder
	defaults RowDefaults
}

// NewPipeline creates a Pipeline. A nil writer makes Run a dry run that only
// validates; a nil skips recorder discards skip details.
func NewPipeline(writer Writer, defaults RowDefaults, reporter *Reporter, skips SkipRecorder) *Pipeline {
	if skips == nil {
		skips = discardSkips{}
	}
	return &Pipeline{
		writer:   writer,
		reporter: reporter,
		skips:    skips,
		defaults: defaults,
	}
}

// Run processes every data row of plan in order. Row failures are counted
// and logged and never stop the run; the only error returned is ctx's.
func (p *Pipeline) Run(ctx context.Context, plan Plan) (Summary, error) {
	var sum Summary
	p.reporter.Start(plan)

	for i, raw := range plan.DataRows() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rowNum := i + firstDataRowNumber

		if isBlankRow(cleanRow(raw)) {
			sum.Blank++
			continue
		}

		rec, err := ExtractRow(raw, plan.Columns, p.defaults)
		if err != nil {
			reason := ReasonInvalidPIC
			if errors.Is(err, ErrMissingPICColumn) {
				reason = ReasonMissingPIC
			}
			sum.skip(reason)
			p.recordSkip(rowNum, reason, rec, err)
			p.reporter.Progress(sum)
			continue
		}

		if p.writer == nil {
			sum.Validated++
			p.reporter.Progress(sum)
			continue
		}

		outcome, err := p.writer.Upsert(ctx, rec)
		if err != nil {
			sum.skip(ReasonWriteFailed)
			p.reporter.WriteFailed(rowNum, rec, err)
			p.recordSkip(rowNum, ReasonWriteFailed, rec, err)
			p.reporter.Progress(sum)
			continue
		}

		switch outcome {
		case repository.OutcomeInserted:
			sum.Inserted++
		default:
			sum.Updated++
		}
		p.reporter.Progress(sum)
	}

	p.reporter.Finish(sum)
	return sum, nil
}

func (p *Pipeline) recordSkip(rowNum int, reason string, rec models.PICRecord, cause error) {
	entry := SkipEntry{
		Row:     rowNum,
		Reason:  reason,
		PICCode: rec.PICCode,
		Detail:  cause.Error(),
	}
	if rec.PropertyName != nil {
		entry.PropertyName = *rec.PropertyName
	}
	if reason != ReasonWriteFailed {
		// Write failures were already logged by WriteFailed.
		p.reporter.Skipped(entry)
	}
	if err := p.skips.Record(entry); err != nil {
		p.reporter.SkipLogFailed(err)
	}
}
