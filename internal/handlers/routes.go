package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/picregistry/internal/logger"
	"github.com/stwalsh4118/picregistry/internal/middleware"
)

// NewRouter builds the API engine with the middleware chain
// RequestID -> Logger -> Recovery -> CORS and every route registered.
func NewRouter(log *logger.Logger, origins []string, health *HealthHandler, pics *PICHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(origins))

	router.GET("/health", health.Health)
	router.GET("/health/ready", health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", health.Info)

		picRoutes := v1.Group("/pics")
		{
			picRoutes.GET("", pics.Search)
			picRoutes.GET("/:code", pics.Get)
		}
	}

	return router
}
