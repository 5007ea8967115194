// Package api exposes the HTTP surface: monitor lifecycle, ad-hoc search,
// review queue actions, and task introspection. Events stream out over the
// websocket hub rather than long-polling.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/catalog"
	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/downloader"
	"github.com/ludarr/ludarr/internal/mlmodel"
	"github.com/ludarr/ludarr/internal/monitor"
	"github.com/ludarr/ludarr/internal/review"
	"github.com/ludarr/ludarr/internal/scheduler"
	"github.com/ludarr/ludarr/internal/search"
	"github.com/ludarr/ludarr/internal/websocket"
)

// Server handles HTTP requests for the Ludarr API.
type Server struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	logger zerolog.Logger
	cfg    *config.Config

	orchestrator *monitor.Orchestrator
	searchSvc    *search.Service
	catalogSvc   *catalog.Service
	reviewQueue  *review.Queue
	model        *mlmodel.Holder
	sched        *scheduler.Scheduler
	client       downloader.Client

	startTime time.Time
}

// Deps are the services the API exposes. sched, model and client may be nil.
type Deps struct {
	Orchestrator *monitor.Orchestrator
	Search       *search.Service
	Catalog      *catalog.Service
	Review       *review.Queue
	Model        *mlmodel.Holder
	Scheduler    *scheduler.Scheduler
	Client       downloader.Client
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, hub *websocket.Hub, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		hub:          hub,
		logger:       logger.With().Str("component", "api").Logger(),
		cfg:          cfg,
		orchestrator: deps.Orchestrator,
		searchSvc:    deps.Search,
		catalogSvc:   deps.Catalog,
		reviewQueue:  deps.Review,
		model:        deps.Model,
		sched:        deps.Scheduler,
		client:       deps.Client,
		startTime:    time.Now().UTC(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ws", s.hub.HandleWebSocket)

	api := s.echo.Group("/api/v1")

	api.GET("/status", s.getStatus)

	mon := api.Group("/monitor")
	mon.GET("", s.listMonitored)
	mon.POST("", s.startMonitoring)
	mon.GET("/:id", s.getMonitored)
	mon.DELETE("/:id", s.stopMonitoring)
	mon.POST("/:id/search", s.searchMonitored)
	mon.POST("/:id/downloaded", s.markDownloaded)
	mon.POST("/:id/installed", s.markInstalled)

	api.POST("/search", s.runSearch)
	api.GET("/catalog/search", s.catalogSearch)

	rev := api.Group("/review")
	rev.GET("", s.listPending)
	rev.GET("/title/:id", s.listPendingForTitle)
	rev.POST("/title/:id/reject", s.rejectAllForTitle)
	rev.POST("/:id/approve", s.approveMatch)
	rev.POST("/:id/reject", s.rejectMatch)

	api.GET("/tasks", s.listTasks)
	api.POST("/tasks/:id/run", s.runTask)

	api.GET("/model/status", s.modelStatus)
	api.POST("/downloader/test", s.testDownloader)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	monitored := 0
	if s.orchestrator != nil {
		monitored = len(s.orchestrator.Titles())
	}
	pending := 0
	if s.reviewQueue != nil {
		pending = len(s.reviewQueue.Pending())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":        "0.1.0-dev",
		"startTime":      s.startTime.Format(time.RFC3339),
		"monitoredCount": monitored,
		"pendingReviews": pending,
		"modelReady":     s.model != nil && s.model.Ready(),
		"wsClients":      s.hub.ClientCount(),
	})
}
