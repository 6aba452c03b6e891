package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"openclaw-bot/internal/database"
	"openclaw-bot/internal/events"
)

// RiskStateProvider reads the current risk counters and open trades.
// Satisfied by database.Repository.
type RiskStateProvider interface {
	GetOrCreateDailyState(ctx context.Context, dateID string) (database.DailyState, error)
	OpenTrades(ctx context.Context) ([]database.Trade, error)
}

// ReadinessChecker reports whether a dependency is reachable.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// ReadinessFunc adapts a function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) Ping(ctx context.Context) error { return f(ctx) }

// Config holds server settings.
type Config struct {
	Port              int
	InternalToken     string
	AllowOrigins      []string
	MaxDailyDrawdownR float64
}

// Server is the HTTP surface: the ai-feed websocket, risk state reads,
// internal event ingestion, health probes and Prometheus metrics.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	hub        *WSHub
	risk       RiskStateProvider
	readiness  map[string]ReadinessChecker
	cfg        Config
	log        zerolog.Logger
}

func NewServer(cfg Config, risk RiskStateProvider, readiness map[string]ReadinessChecker, bus *events.Bus, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Internal-Token")
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:    router,
		hub:       NewWSHub(log),
		risk:      risk,
		readiness: readiness,
		cfg:       cfg,
		log:       log,
	}

	go s.hub.Run()
	bus.Subscribe(s.hub.BroadcastEvent)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ws/ai-feed", s.handleAIFeed)
	s.router.GET("/api/risk-state", s.handleRiskState)
	s.router.POST("/internal/ai-event", s.handleInternalEvent)
	s.router.GET("/health/live", s.handleHealthLive)
	s.router.GET("/health/ready", s.handleHealthReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Hub exposes the websocket hub, mainly for tests.
func (s *Server) Hub() *WSHub {
	return s.hub
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
