// Package dbtest connects integration tests to a disposable PostgreSQL
// database. Tests are skipped unless PICREG_TEST_DB=1 is set and -short is off.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/stwalsh4118/picregistry/internal/config"
	"github.com/stwalsh4118/picregistry/internal/database"
)

// EnableEnv is the variable that opts a test run into database tests.
const EnableEnv = "PICREG_TEST_DB"

// Config returns database configuration for integration tests.
func Config() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     envOrDefault("DB_PORT", "5432"),
		Name:     envOrDefault("DB_NAME", "picregistry_test"),
		User:     envOrDefault("DB_USER", "postgres"),
		Password: envOrDefault("DB_PASSWORD", "postgres"),
		SSLMode:  "disable",
		PoolMin:  1,
		PoolMax:  4,
	}
}

// Skip skips t when integration tests are not enabled.
func Skip(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv(EnableEnv) != "1" {
		t.Skipf("Skipping integration test; set %s=1 to run", EnableEnv)
	}
}

// Open connects to the test database, applies the schema and empties the
// registry. The pool is closed when the test finishes.
func Open(t *testing.T) *database.Database {
	t.Helper()
	Skip(t)

	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, Config())
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.EnsureSchema(ctx, db.Pool); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	if _, err := db.Pool.Exec(ctx, "TRUNCATE pic_registry"); err != nil {
		t.Fatalf("Failed to truncate pic_registry: %v", err)
	}
	return db
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
