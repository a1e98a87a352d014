package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/picregistry/internal/config"
	"github.com/stwalsh4118/picregistry/internal/database"
	"github.com/stwalsh4118/picregistry/internal/document"
	"github.com/stwalsh4118/picregistry/internal/ingest"
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/metrics"
	"github.com/stwalsh4118/picregistry/internal/repository"
)

// run performs one ingestion. Errors returned here are fatal: nothing was
// committed. Rejected rows are not errors; they show up in the summary.
func run(ctx context.Context, cfg *config.Config, baseLog *logger.Logger, out io.Writer) error {
	in := cfg.Ingest
	log := baseLog.WithRunID(uuid.NewString())
	started := time.Now()

	log.Info("Starting PIC ingestion", map[string]interface{}{
		"file":                in.SourceFile,
		"jurisdiction":        in.Jurisdiction,
		"source_version_date": in.SourceVersionDate.Format(config.DateLayout),
		"dry_run":             in.DryRun,
	})

	tables, err := document.Open(in.SourceFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in.SourceFile, err)
	}

	var rules []ingest.HeaderRule
	if in.HeaderRules != "" {
		if rules, err = ingest.LoadHeaderRules(in.HeaderRules); err != nil {
			return err
		}
		log.Info("Using custom header rules", map[string]interface{}{
			"path":  in.HeaderRules,
			"rules": len(rules),
		})
	}

	plan, err := ingest.PrepareWith(tables, in.TableMinRows, rules)
	if err != nil {
		return err
	}

	var skips ingest.SkipRecorder
	if in.SkipLog != "" {
		sl, err := ingest.CreateSkipLog(in.SkipLog)
		if err != nil {
			return err
		}
		defer func() {
			if err := sl.Close(); err != nil {
				log.Warn("Failed to close skip log", map[string]interface{}{
					"path":  in.SkipLog,
					"error": err.Error(),
				})
			}
		}()
		skips = sl
	}

	reporter := ingest.NewReporter(log, in.ProgressEvery)
	defaults := ingest.RowDefaults{
		SourceVersionDate: in.SourceVersionDate,
		Jurisdiction:      in.Jurisdiction,
	}

	if in.DryRun {
		sum, err := ingest.NewPipeline(nil, defaults, reporter, skips).Run(ctx, plan)
		if err != nil {
			return err
		}
		printSummary(out, sum, true)
		return nil
	}

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if in.Migrate {
		if err := database.EnsureSchema(ctx, db.Pool); err != nil {
			return err
		}
		log.Info("Registry schema ensured", nil)
	}

	var sum ingest.Summary
	err = db.WithTx(ctx, func(tx pgx.Tx) error {
		var runErr error
		sum, runErr = ingest.NewPipeline(repository.NewPICRepository(tx), defaults, reporter, skips).Run(ctx, plan)
		return runErr
	})
	if err != nil {
		return fmt.Errorf("ingestion rolled back: %w", err)
	}

	if total, err := repository.NewPICRepository(db.Pool).Count(ctx); err == nil {
		log.Info("Registry size after ingestion", map[string]interface{}{
			"records": total,
		})
	}

	printSummary(out, sum, false)

	if in.PushgatewayURL != "" {
		pushMetrics(ctx, log, in, sum, started)
	}
	return nil
}

// pushMetrics reports a committed run. A failed push is logged and does not
// fail the run.
func pushMetrics(ctx context.Context, log *logger.Logger, in config.IngestConfig, sum ingest.Summary, started time.Time) {
	rec, err := metrics.NewRecorder()
	if err != nil {
		log.Warn("Failed to set up run metrics", map[string]interface{}{"error": err.Error()})
		return
	}
	now := time.Now()
	rec.Observe(sum, now.Sub(started), now)

	if err := rec.Push(ctx, in.PushgatewayURL, metrics.DefaultJob, in.Jurisdiction); err != nil {
		log.Warn("Failed to push run metrics", map[string]interface{}{
			"pushgateway": in.PushgatewayURL,
			"error":       err.Error(),
		})
		return
	}
	log.Debug("Pushed run metrics", map[string]interface{}{"pushgateway": in.PushgatewayURL})
}

func printSummary(w io.Writer, sum ingest.Summary, dryRun bool) {
	if dryRun {
		fmt.Fprintln(w, "Dry run complete (nothing written)")
		fmt.Fprintf(w, "  Valid:    %d\n", sum.Validated)
	} else {
		fmt.Fprintln(w, "Ingestion complete")
		fmt.Fprintf(w, "  Inserted: %d\n", sum.Inserted)
		fmt.Fprintf(w, "  Updated:  %d\n", sum.Updated)
	}
	fmt.Fprintf(w, "  Skipped:  %d\n", sum.Skipped)
	fmt.Fprintf(w, "  Blank:    %d\n", sum.Blank)
	fmt.Fprintf(w, "  Total:    %d\n", sum.Processed())
}
