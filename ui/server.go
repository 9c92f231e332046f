// Package ui exposes the estimation engine over a JSON HTTP API: submit an
// observed series for estimation, then browse the persisted run records.
package ui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gokinet/app"
	"gokinet/domain/core"
	"gokinet/domain/series"
	"gokinet/inference"
)

// Server is the HTTP front end over the estimation service
type Server struct {
	router *gin.Engine
	svc    *app.EstimationService
	log    *logrus.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(svc *app.EstimationService, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{router: router, svc: svc, log: log}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for embedding and tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves the API on addr until the listener fails
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("serving results API")
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/runs", s.handleEstimate)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": core.Version})
}

// estimateRequest carries an observed series and optional config overrides
type estimateRequest struct {
	Label  string            `json:"label"`
	T      []float64         `json:"t"`
	O2     []float64         `json:"o2"`
	N2O    []float64         `json:"n2o"`
	CH2O   []float64         `json:"ch2o"`
	Rate   []float64         `json:"r3"`
	Config *inference.Config `json:"config,omitempty"`
}

func (s *Server) handleEstimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request: " + err.Error()})
		return
	}

	obs, err := series.New(req.T, req.O2, req.N2O, req.CH2O, req.Rate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := inference.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	rec, err := s.svc.RunEstimation(c.Request.Context(), app.EstimationRequest{
		Label:  req.Label,
		Series: obs,
		Config: cfg,
	})
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := s.svc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": records, "count": len(records)})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.svc.GetRun(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case core.IsConfigError(err) || core.IsDataError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.WithField("error", err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
