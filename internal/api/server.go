package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradefan-core/internal/events"
	"tradefan-core/internal/executor"
	"tradefan-core/internal/monitor"
	"tradefan-core/internal/risk"
	"tradefan-core/internal/signal"
	"tradefan-core/pkg/db"
)

// Engine is the control surface the API exposes.
type Engine interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause() bool
	Resume() bool
	Reset() bool
	Status() executor.Status
}

// Credentials is the single operator account.
type Credentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// Server wires HTTP endpoints around the engine.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	DB        *db.Database
	Engine    Engine
	Pipeline  *signal.Pipeline
	Checker   *risk.Checker
	Metrics   *monitor.SystemMetrics
	JWTSecret string
	Creds     Credentials
	Meta      SystemMeta
}

// SystemMeta describes runtime status exposed to clients.
type SystemMeta struct {
	Paper      bool
	Venue      string
	Symbols    []string
	Timeframes []string
	Version    string
}

func NewServer(bus *events.Bus, database *db.Database, engine Engine, pipeline *signal.Pipeline, checker *risk.Checker, metrics *monitor.SystemMetrics, meta SystemMeta, jwtSecret string, creds Credentials) *Server {
	r := gin.New()

	// Middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		DB:        database,
		Engine:    engine,
		Pipeline:  pipeline,
		Checker:   checker,
		Metrics:   metrics,
		JWTSecret: jwtSecret,
		Creds:     creds,
		Meta:      meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/auth/login", s.login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/status", s.getStatus)
			protected.GET("/positions", s.getPositions)
			protected.GET("/signals", s.getSignals)
			protected.GET("/trades", s.getTrades)
			protected.GET("/metrics", s.getMetrics)
			protected.GET("/risk", s.getRisk)

			protected.POST("/engine/start", s.startEngine)
			protected.POST("/engine/stop", s.stopEngine)
			protected.POST("/engine/pause", s.pauseEngine)
			protected.POST("/engine/resume", s.resumeEngine)
			protected.POST("/engine/reset", s.resetEngine)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
