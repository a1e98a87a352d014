// Command ingest loads a jurisdiction PIC list (a .docx or .csv export) into
// the pic_registry table.
//
//	ingest --file NT_PIC_List.docx --version-date 2024-12-01 --jurisdiction NT
//
// Every flag can also be given as an environment variable or in a .env file;
// flags win.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/picregistry/internal/config"
	"github.com/stwalsh4118/picregistry/internal/logger"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// flagBindings maps command-line flags to configuration keys.
var flagBindings = map[string]string{
	"file":           "SOURCE_FILE",
	"version-date":   "SOURCE_VERSION_DATE",
	"jurisdiction":   "JURISDICTION",
	"min-rows":       "TABLE_MIN_ROWS",
	"progress-every": "PROGRESS_EVERY",
	"skip-log":       "SKIP_LOG",
	"header-rules":   "HEADER_RULES",
	"dry-run":        "DRY_RUN",
	"migrate":        "MIGRATE",
	"pushgateway":    "PUSHGATEWAY_URL",
	"log-level":      "LOG_LEVEL",
}

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:           "ingest [file]",
		Short:         "Load a PIC list into the registry",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set("SOURCE_FILE", args[0])
			}

			cfg, err := config.LoadIngest(v)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to load configuration: %v\n", err)
				return err
			}

			log, err := logger.New(cfg.Server.Env).WithLevel(cfg.Server.LogLevel)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to configure logging: %v\n", err)
				return err
			}
			if err := run(cmd.Context(), cfg, log, cmd.OutOrStdout()); err != nil {
				log.Error("PIC ingestion failed", err, map[string]interface{}{
					"file": cfg.Ingest.SourceFile,
				})
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("file", "", "PIC list to load (.docx or .csv)")
	flags.String("version-date", "", "publication date of the list, YYYY-MM-DD (required)")
	flags.String("jurisdiction", "", "jurisdiction code stamped on new records (default NT)")
	flags.Int("min-rows", 0, "a table must have more than this many rows to be loaded (default 10)")
	flags.Int("progress-every", 0, "log progress every N processed rows (default 100)")
	flags.String("skip-log", "", "write skipped rows to this CSV file")
	flags.String("header-rules", "", "YAML file replacing the built-in header rules")
	flags.Bool("dry-run", false, "validate the document without touching the database")
	flags.Bool("migrate", false, "create the pic_registry table if it does not exist")
	flags.String("pushgateway", "", "Prometheus Pushgateway URL for run metrics")
	flags.String("log-level", "", "debug, info, warn or error (skipped rows log at warn)")

	bindFlags(v, cmd)
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for flag, key := range flagBindings {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}
