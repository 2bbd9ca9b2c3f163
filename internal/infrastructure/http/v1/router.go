package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/domain/reports"
	"weighbridge/internal/infrastructure/http/v1/handlers"
	"weighbridge/internal/infrastructure/http/v1/middleware"
	"weighbridge/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Entries  *entry.Service
	Invoices *invoice.Service
	Reports  *reports.Service

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// ReadinessChecks are probed by /health/ready (database, cache)
	ReadinessChecks map[string]handlers.ReadinessCheck

	// Registry collects HTTP metrics and is served on /metrics.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}

	router := gin.New()

	// Global middleware (order matters!). ErrorHandler wraps Recovery so a
	// recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics(middleware.NewHTTPMetrics(registerer)))

	healthHandler := handlers.NewHealthHandler(cfg.ReadinessChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		baseHandler := handlers.NewBaseHandler()

		RegisterEntryRoutes(protected.Group("/entries"), handlers.NewEntryHandler(baseHandler, cfg.Entries))
		RegisterInvoiceRoutes(protected.Group("/invoices"), handlers.NewInvoiceHandler(baseHandler, cfg.Invoices))

		reportHandler := handlers.NewReportHandler(baseHandler, cfg.Reports)
		protected.GET("/reports/entry-summary", reportHandler.EntrySummary)
	}

	return router
}
