package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/picregistry/internal/config"
	"github.com/stwalsh4118/picregistry/internal/middleware"
	"github.com/stwalsh4118/picregistry/internal/repository"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// ServiceName identifies this API in the info response
	ServiceName = "pic-registry"
	// HealthCheckTimeout is the timeout for database health checks
	HealthCheckTimeout = 2 * time.Second
)

// Pinger reports whether a dependency is reachable. *database.Database
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegistryStatsSource reports how much the registry holds.
// repository.PICRepository satisfies it.
type RegistryStatsSource interface {
	Stats(ctx context.Context) (repository.RegistryStats, error)
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	db        Pinger
	registry  RegistryStatsSource
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(db Pinger, env string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
		env:       env,
	}
}

// WithRegistry makes Info report registry size and freshness from src.
func (h *HealthHandler) WithRegistry(src RegistryStatsSource) *HealthHandler {
	h.registry = src
	return h
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Registry    *RegistryInfo `json:"registry,omitempty"`
	Service     string        `json:"service"`
	Version     string        `json:"version"`
	Environment string        `json:"environment"`
	Uptime      string        `json:"uptime"`
}

// RegistryInfo tells clients how current the loaded PIC list is.
type RegistryInfo struct {
	LatestVersionDate *string    `json:"latest_source_version_date"`
	LastIngestedAt    *time.Time `json:"last_ingested_at"`
	Records           int64      `json:"records"`
}

// Health handles GET /health. Liveness only; no dependencies are checked.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready.
// Returns 503 when the database does not answer a ping within HealthCheckTimeout.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:   "not_ready",
			Database: "not_configured",
		})
		return
	}

	if err := h.db.Ping(ctx); err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Database health check failed", err, map[string]interface{}{
				"timeout": HealthCheckTimeout.String(),
			})
		}

		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:   "not_ready",
			Database: "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, ReadyResponse{
		Status:   "ready",
		Database: "connected",
	})
}

// Info handles GET /api/v1/info.
// Registry details are left out when they cannot be read; info never fails.
func (h *HealthHandler) Info(c *gin.Context) {
	resp := InfoResponse{
		Service:     ServiceName,
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(time.Since(h.startTime)),
	}

	if h.registry != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
		defer cancel()

		stats, err := h.registry.Stats(ctx)
		if err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Warn("Failed to read registry stats", map[string]interface{}{
					"error": err.Error(),
				})
			}
		} else {
			resp.Registry = newRegistryInfo(stats)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func newRegistryInfo(stats repository.RegistryStats) *RegistryInfo {
	info := &RegistryInfo{
		Records:        stats.Records,
		LastIngestedAt: stats.LastIngestedAt,
	}
	if stats.LatestVersionDate != nil {
		d := stats.LatestVersionDate.Format(config.DateLayout)
		info.LatestVersionDate = &d
	}
	return info
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
