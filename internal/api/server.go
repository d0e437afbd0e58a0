// Package api exposes a small HTTP surface for scanner status, signals
// and trade history.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-scanner/internal/scanner"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
)

// Config holds server settings.
type Config struct {
	Port         int
	AllowOrigins []string
}

// Server serves the read API plus strategy enable/disable toggles.
type Server struct {
	cfg      Config
	scanner  *scanner.Scanner
	registry *strategy.Registry
	store    storage.Store
	log      zerolog.Logger
	http     *http.Server
}

// NewServer builds the router.
func NewServer(cfg Config, sc *scanner.Scanner, registry *strategy.Registry, store storage.Store, logger zerolog.Logger) *Server {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	s := &Server{
		cfg:      cfg,
		scanner:  sc,
		registry: registry,
		store:    store,
		log:      logger.With().Str("component", "APIServer").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", s.handleHealth)
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/scanner/status", s.handleScannerStatus)
		apiGroup.GET("/signals", s.handleSignals)
		apiGroup.GET("/signals/active", s.handleActiveSignals)
		apiGroup.GET("/history", s.handleHistory)
		apiGroup.GET("/strategies", s.handleStrategies)
		apiGroup.POST("/strategies/:name/enable", s.handleToggle(true))
		apiGroup.POST("/strategies/:name/disable", s.handleToggle(false))
	}

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}
	return s
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("api server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleScannerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":  s.scanner.Running(),
		"scanning": s.scanner.Scanning(),
		"last":     s.scanner.LastSummary(),
	})
}

func (s *Server) handleSignals(c *gin.Context) {
	filter := storage.SignalFilter{
		Symbol: c.Query("symbol"),
		Status: storage.Status(c.Query("status")),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.Limit = limit
	}
	signals, err := s.store.ListSignals(c.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("list signals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list signals failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) handleActiveSignals(c *gin.Context) {
	signals, err := s.store.ListSignals(c.Request.Context(), storage.SignalFilter{Status: storage.StatusActive})
	if err != nil {
		s.log.Error().Err(err).Msg("list active signals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list signals failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 100
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil {
		limit = l
	}
	trades, err := s.store.ListTrades(c.Request.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list trades failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list trades failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleStrategies(c *gin.Context) {
	names := s.registry.Names()
	out := make([]gin.H, 0, len(names))
	for _, name := range names {
		out = append(out, gin.H{"name": name, "enabled": s.registry.Enabled(name)})
	}
	c.JSON(http.StatusOK, gin.H{"strategies": out, "failures": s.registry.Failures()})
}

func (s *Server) handleToggle(enable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !s.registry.SetEnabled(name, enable) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "enabled": enable})
	}
}
