// Package api serves the quantitative engine over JSON/HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/banachtech/quant-toolkit/config"
	"github.com/banachtech/quant-toolkit/mc"
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/risk"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves HTTP requests for the pricing, risk and portfolio engines.
type Server struct {
	cfg      config.Config
	engine   *mc.Engine
	calc     *risk.Calculator
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
	router   *gin.Engine
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	server := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  newMetrics(reg),
	}
	server.engine = mc.NewEngine(
		mc.WithWorkers(cfg.Engine.Workers),
		mc.WithChunkSize(cfg.Engine.ChunkSize),
		mc.WithMaxIterations(cfg.Engine.MaxIterations),
		mc.WithLogger(logger.Named("mc")),
	)
	server.calc = risk.NewCalculator(server.engine, logger.Named("risk"))

	server.setupRouter()
	return server
}

func (server *Server) setupRouter() {
	router := gin.New()
	router.Use(ginzap.Ginzap(server.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(server.logger, true))
	router.Use(server.requestID, server.instrument)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(server.registry, promhttp.HandlerOpts{})))

	authRoutes := router.Group("/v1").Use(server.authentication)
	authRoutes.POST("/options/price", server.optionPrice)
	authRoutes.POST("/options/greeks", server.optionGreeks)
	authRoutes.POST("/options/implied-volatility", server.impliedVolatility)
	authRoutes.POST("/bonds/price", server.bondPrice)
	authRoutes.POST("/forecast", server.forecast)
	authRoutes.POST("/var", server.valueAtRisk)
	authRoutes.POST("/portfolio/optimize", server.optimizePortfolio)
	server.router = router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}

// Handler exposes the router, e.g. for an http.Server with timeouts.
func (server *Server) Handler() http.Handler {
	return server.router
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}

// abortWithError maps engine errors onto HTTP statuses: bad input is a 400,
// an undefined computation a 422, a cancelled request a 408.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case qerr.IsValidation(err):
		status = http.StatusBadRequest
	case qerr.IsDomain(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	c.AbortWithStatusJSON(status, errorResponse(err))
}
