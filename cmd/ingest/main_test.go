package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/picregistry/internal/config"
	"github.com/stwalsh4118/picregistry/internal/ingest"
	"github.com/stwalsh4118/picregistry/internal/logger"
)

// writePICList writes a CSV PIC list with n valid rows, one invalid row and
// one blank row.
func writePICList(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("PIC,Property Name,Region,LGA,Active,BMP\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "nt%04d,Station %d,Top End,Darwin,Yes,No\n", i, i)
	}
	b.WriteString("NT-BAD,Broken Station,,,,\n")
	b.WriteString(",,,,,\n")

	path := filepath.Join(t.TempDir(), "pic_list.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func dryRunConfig(file string) *config.Config {
	return &config.Config{
		Ingest: config.IngestConfig{
			SourceFile:        file,
			SourceVersionDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			Jurisdiction:      "NT",
			TableMinRows:      ingest.DefaultTableMinRows,
			ProgressEvery:     ingest.DefaultProgressEvery,
			DryRun:            true,
		},
	}
}

func TestRun_DryRun(t *testing.T) {
	cfg := dryRunConfig(writePICList(t, 10))
	var out bytes.Buffer

	err := run(context.Background(), cfg, logger.Nop(), &out)

	require.NoError(t, err)
	assert.Equal(t, "Dry run complete (nothing written)\n"+
		"  Valid:    10\n"+
		"  Skipped:  1\n"+
		"  Blank:    1\n"+
		"  Total:    11\n", out.String())
}

func TestRun_SkipLog(t *testing.T) {
	cfg := dryRunConfig(writePICList(t, 10))
	cfg.Ingest.SkipLog = filepath.Join(t.TempDir(), "out", "skipped.csv")

	require.NoError(t, run(context.Background(), cfg, logger.Nop(), &bytes.Buffer{}))

	data, err := os.ReadFile(cfg.Ingest.SkipLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "invalid_pic,12,NT-BAD,Broken Station,"))
}

func TestRun_NoQualifyingTable(t *testing.T) {
	cfg := dryRunConfig(writePICList(t, 3))
	var out bytes.Buffer

	err := run(context.Background(), cfg, logger.Nop(), &out)

	assert.ErrorIs(t, err, ingest.ErrNoQualifyingTable)
	assert.Empty(t, out.String())
}

func TestRun_MissingFile(t *testing.T) {
	cfg := dryRunConfig(filepath.Join(t.TempDir(), "missing.csv"))

	err := run(context.Background(), cfg, logger.Nop(), &bytes.Buffer{})

	assert.Error(t, err)
}

func TestRun_HeaderRules(t *testing.T) {
	var b strings.Builder
	b.WriteString("Holding Code,Holding Name\n")
	for i := 1; i <= 11; i++ {
		fmt.Fprintf(&b, "QA%04d,Holding %d\n", i, i)
	}
	dir := t.TempDir()
	list := filepath.Join(dir, "qld.csv")
	require.NoError(t, os.WriteFile(list, []byte(b.String()), 0o600))
	rules := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - field: pic\n    keywords: [\"HOLDING CODE\"]\n"), 0o600))

	cfg := dryRunConfig(list)
	var out bytes.Buffer

	// Without the rules file no PIC column is found and every row is skipped.
	require.NoError(t, run(context.Background(), cfg, logger.Nop(), &out))
	assert.Contains(t, out.String(), "Valid:    0")

	cfg.Ingest.HeaderRules = rules
	out.Reset()
	require.NoError(t, run(context.Background(), cfg, logger.Nop(), &out))
	assert.Contains(t, out.String(), "Valid:    11")

	cfg.Ingest.HeaderRules = filepath.Join(dir, "missing.yaml")
	assert.Error(t, run(context.Background(), cfg, logger.Nop(), &out))
}

func TestRootCmd(t *testing.T) {
	for _, key := range []string{"SOURCE_FILE", "SOURCE_VERSION_DATE", "DRY_RUN", "SKIP_LOG", "PUSHGATEWAY_URL", "TABLE_MIN_ROWS", "PROGRESS_EVERY", "HEADER_RULES", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV", "production")
	t.Setenv("JURISDICTION", "QLD")

	t.Run("flags and positional file", func(t *testing.T) {
		file := writePICList(t, 10)
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{file, "--version-date", "2024-12-01", "--jurisdiction", "nt", "--dry-run"})

		require.NoError(t, cmd.ExecuteContext(context.Background()))
		assert.Contains(t, out.String(), "Valid:    10")
	})

	t.Run("min rows flag overrides default", func(t *testing.T) {
		file := writePICList(t, 10)
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--file", file, "--version-date", "2024-12-01", "--dry-run", "--min-rows", "50"})

		err := cmd.ExecuteContext(context.Background())
		assert.ErrorIs(t, err, ingest.ErrNoQualifyingTable)
	})

	t.Run("version date is required", func(t *testing.T) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--file", "list.docx", "--dry-run"})

		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, out.String(), "SOURCE_VERSION_DATE is required")
	})

	t.Run("unknown log level is rejected", func(t *testing.T) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--file", writePICList(t, 10), "--version-date", "2024-12-01", "--dry-run", "--log-level", "chatty"})

		err := cmd.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, out.String(), "Failed to configure logging")
	})
}
