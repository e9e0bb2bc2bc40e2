// Package api exposes the terminal's pick operations to the handheld UI.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/pick-terminal/internal/application"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/metrics"
	"github.com/wms-platform/pick-terminal/pkg/middleware"
)

// RouterConfig carries what the router needs besides the service.
// Metrics may be nil; Ready defaults to always ready.
type RouterConfig struct {
	ServiceName string
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	Ready       func() error
}

// NewRouter builds the gin engine with the standard middleware chain and all routes
func NewRouter(service *application.TerminalService, config *RouterConfig) *gin.Engine {
	logger := config.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	ready := config.Ready
	if ready == nil {
		ready = func() error { return nil }
	}

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(config.ServiceName, logger.Logger))

	if config.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(config.Metrics))
	}
	router.Use(middleware.SimpleTracingMiddleware(config.ServiceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())
	router.HandleMethodNotAllowed = true

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, ready))
	if config.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		docs := v1.Group("/documents/:documentId")
		docs.POST("/load", loadDocumentHandler(service, logger))
		docs.GET("", getDocumentHandler(service, logger))
		docs.DELETE("", closeSessionHandler(service, logger))
		docs.POST("/lines/:lineId/delta", applyDeltaHandler(service, logger))
		docs.POST("/lines/:lineId/pick", pickUnitsHandler(service, logger))
		docs.GET("/completion", completionStatusHandler(service, logger))
		docs.POST("/complete", completeDocumentHandler(service, logger))

		v1.POST("/scan", scanHandler(service, logger))
		v1.GET("/products/by-barcode/:barcode", productByBarcodeHandler(service, logger))
	}

	return router
}
