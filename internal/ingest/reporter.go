package ingest

import (
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/models"
)

// DefaultProgressEvery is how many processed rows pass between progress lines.
const DefaultProgressEvery = 100

// Reporter logs the progress and outcome of a run.
type Reporter struct {
	log   *logger.Logger
	every int
	last  int
}

// NewReporter creates a Reporter that logs progress every `every` processed rows.
func NewReporter(log *logger.Logger, every int) *Reporter {
	if every < 1 {
		every = DefaultProgressEvery
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reporter{log: log, every: every}
}

// Start logs the located table and its column mapping.
func (r *Reporter) Start(plan Plan) {
	r.log.Info("Found PIC table", map[string]interface{}{
		"table_index": plan.TableIndex,
		"rows":        plan.Table.Len(),
		"headers":     plan.Headers(),
		"columns":     plan.Columns.String(),
	})
	if _, ok := plan.Columns.Index(FieldPIC); !ok {
		r.log.Warn("Header has no PIC column; every row will be skipped", map[string]interface{}{
			"headers": plan.Headers(),
		})
	}
}

// Progress logs a line each time the processed count crosses a multiple of
// the interval.
func (r *Reporter) Progress(s Summary) {
	n := s.Processed()
	if n == r.last || n%r.every != 0 {
		return
	}
	r.last = n
	r.log.Info("Processed PIC rows", map[string]interface{}{
		"processed": n,
		"written":   s.Written(),
		"validated": s.Validated,
		"skipped":   s.Skipped,
	})
}

// Skipped logs a rejected row with its position, code and property name so
// it can be found in the source document.
func (r *Reporter) Skipped(e SkipEntry) {
	fields := map[string]interface{}{
		"row":      e.Row,
		"reason":   e.Reason,
		"pic_code": e.PICCode,
		"detail":   e.Detail,
	}
	if e.PropertyName != "" {
		fields["property_name"] = e.PropertyName
	}
	r.log.Warn("Skipping row", fields)
}

// WriteFailed logs a row whose upsert failed, with enough context to find it
// in the source document.
func (r *Reporter) WriteFailed(rowNum int, rec models.PICRecord, err error) {
	fields := map[string]interface{}{
		"row":      rowNum,
		"pic_code": rec.PICCode,
	}
	if rec.PropertyName != nil {
		fields["property_name"] = *rec.PropertyName
	}
	r.log.Error("Failed to upsert PIC row", err, fields)
}

// SkipLogFailed logs a failure to append to the skip log.
func (r *Reporter) SkipLogFailed(err error) {
	r.log.Warn("Failed to write skip log entry", map[string]interface{}{
		"error": err.Error(),
	})
}

// Finish logs the run summary.
func (r *Reporter) Finish(s Summary) {
	fields := map[string]interface{}{
		"inserted":  s.Inserted,
		"updated":   s.Updated,
		"written":   s.Written(),
		"skipped":   s.Skipped,
		"blank":     s.Blank,
		"processed": s.Processed(),
	}
	if s.Validated > 0 {
		fields["validated"] = s.Validated
	}
	if len(s.SkipReasons) > 0 {
		fields["skip_reasons"] = s.SkipReasons
	}
	r.log.Info("PIC ingestion complete", fields)
}
