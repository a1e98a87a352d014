package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DateLayout is the layout used for SOURCE_VERSION_DATE.
const DateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Ingest   IngestConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// IngestConfig holds the parameters of a single registry load.
type IngestConfig struct {
	SourceVersionDate time.Time
	SourceFile        string
	Jurisdiction      string
	SkipLog           string
	HeaderRules       string
	PushgatewayURL    string
	TableMinRows      int
	ProgressEvery     int
	DryRun            bool
	Migrate           bool
}

// New returns a viper instance with the registry defaults applied and the
// environment bound. Callers may bind command-line flags on top of it.
func New() *viper.Viper {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "icattle_ramp")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_POOL_MIN", 1)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("JURISDICTION", "NT")
	v.SetDefault("TABLE_MIN_ROWS", 10)
	v.SetDefault("PROGRESS_EVERY", 100)

	v.AutomaticEnv()
	return v
}

// Load reads the HTTP server configuration from environment variables.
func Load() (*Config, error) {
	return FromViper(New())
}

// FromViper builds the server configuration from an already prepared viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: databaseFromViper(v),
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadIngest builds the configuration for an ingestion run. Values bound as
// flags on v take precedence over the environment.
func LoadIngest(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: databaseFromViper(v),
		Ingest: IngestConfig{
			SourceFile:     strings.TrimSpace(v.GetString("SOURCE_FILE")),
			Jurisdiction:   strings.ToUpper(strings.TrimSpace(v.GetString("JURISDICTION"))),
			SkipLog:        v.GetString("SKIP_LOG"),
			HeaderRules:    strings.TrimSpace(v.GetString("HEADER_RULES")),
			PushgatewayURL: v.GetString("PUSHGATEWAY_URL"),
			TableMinRows:   v.GetInt("TABLE_MIN_ROWS"),
			ProgressEvery:  v.GetInt("PROGRESS_EVERY"),
			DryRun:         v.GetBool("DRY_RUN"),
			Migrate:        v.GetBool("MIGRATE"),
		},
	}

	raw := strings.TrimSpace(v.GetString("SOURCE_VERSION_DATE"))
	if raw == "" {
		return nil, fmt.Errorf("configuration validation failed: SOURCE_VERSION_DATE is required")
	}
	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: SOURCE_VERSION_DATE must be YYYY-MM-DD: %w", err)
	}
	cfg.Ingest.SourceVersionDate = date

	if err := cfg.ValidateIngest(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func databaseFromViper(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Name:     v.GetString("DB_NAME"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		SSLMode:  v.GetString("DB_SSLMODE"),
		PoolMin:  v.GetInt("DB_POOL_MIN"),
		PoolMax:  v.GetInt("DB_POOL_MAX"),
	}
}

// Validate checks that required server configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}
	return nil
}

// ValidateIngest checks the ingestion parameters. Database settings are only
// required when the run writes to the registry.
func (c *Config) ValidateIngest() error {
	in := c.Ingest
	if in.SourceFile == "" {
		return fmt.Errorf("SOURCE_FILE is required")
	}
	if in.Jurisdiction == "" {
		return fmt.Errorf("JURISDICTION is required")
	}
	if in.TableMinRows < 0 {
		return fmt.Errorf("TABLE_MIN_ROWS must be non-negative")
	}
	if in.ProgressEvery < 1 {
		return fmt.Errorf("PROGRESS_EVERY must be at least 1")
	}
	if in.DryRun {
		return nil
	}
	return c.Database.Validate()
}

// Validate checks the PostgreSQL settings. The password may be empty so that
// peer and trust authentication keep working for local loads.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
