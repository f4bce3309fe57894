// Package server exposes the monitoring core over HTTP for dashboards.
// Handlers render results and errors; they never implement recovery logic.
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/phishguard/driftmon/internal/generator"
	"github.com/phishguard/driftmon/internal/history"
	"github.com/phishguard/driftmon/internal/monitor"
)

// Server wires the monitor and history store to HTTP routes.
type Server struct {
	logger           *zap.SugaredLogger
	monitor          *monitor.Monitor
	history          *history.Store
	defaultBatchSize int
	engine           *gin.Engine
}

// New builds the HTTP server around the monitoring core.
func New(logger *zap.SugaredLogger, m *monitor.Monitor, h *history.Store, defaultBatchSize int) *Server {
	s := &Server{
		logger:           logger,
		monitor:          m,
		history:          h,
		defaultBatchSize: defaultBatchSize,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), metricsMiddleware())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	api.GET("/status", s.handleStatus)
	api.POST("/monitor/process", s.handleProcess)
	api.GET("/history", s.handleHistory)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler, for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Infow("HTTP server listening", "addr", addr)
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ready":                s.monitor.Ready(),
		"reference_generation": s.monitor.Generation(),
		"reference_records":    s.monitor.ReferenceSize(),
	})
}

type processRequest struct {
	BatchSize int    `json:"batch_size"`
	DriftKind string `json:"drift_kind"`
}

func (s *Server) handleProcess(c *gin.Context) {
	var req processRequest
	// ContentLength is -1 for chunked bodies; only a declared-empty body
	// skips binding.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.BatchSize == 0 {
		req.BatchSize = s.defaultBatchSize
	}
	if req.BatchSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch_size must be positive"})
		return
	}
	kind, err := generator.ParseDriftKind(req.DriftKind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.monitor.ProcessBatch(c.Request.Context(), req.BatchSize, kind)
	observeCycle(result.DriftDetected, result.Retrained, result.Duration, result.ReferenceGeneration)

	status := http.StatusOK
	if result.Error != "" {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	records, err := s.history.Recent(limit)
	if err != nil {
		s.logger.Errorw("History query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycles": records})
}
