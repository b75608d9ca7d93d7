package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/alexisbeaulieu97/synthevents/internal/channel"
	"github.com/alexisbeaulieu97/synthevents/internal/config"
	"github.com/alexisbeaulieu97/synthevents/internal/history"
	"github.com/alexisbeaulieu97/synthevents/internal/logger"
	"github.com/alexisbeaulieu97/synthevents/internal/model"
	"github.com/alexisbeaulieu97/synthevents/internal/progress"
	"github.com/alexisbeaulieu97/synthevents/internal/storage"
)

// Tracker is the slice of the progress tracker the HTTP layer needs.
type Tracker interface {
	CreateExecution(executionID string, scenarios []model.Scenario)
	FixStuckExecution(executionID string) bool
}

// ProgressResolver reconciles live and historical progress views.
type ProgressResolver interface {
	Resolve(executionID string) (*model.ExecutionProgress, error)
}

// Server wires the HTTP API over the stores, tracker and job queue.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	log       *logger.Logger
	scenarios *storage.ScenarioStore
	settings  *storage.SettingsStore
	history   *history.Store
	tracker   Tracker
	progress  ProgressResolver
	queue     *Queue
}

// New constructs the Server and registers every route.
func New(cfg *config.Config, log *logger.Logger, scenarios *storage.ScenarioStore, settings *storage.SettingsStore, hist *history.Store, tr Tracker, resolver ProgressResolver, queue *Queue) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		cfg:       cfg,
		log:       log.WithComponent("server"),
		scenarios: scenarios,
		settings:  settings,
		history:   hist,
		tracker:   tr,
		progress:  resolver,
		queue:     queue,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")

	api.GET("/scenarios", s.listScenarios)
	api.POST("/scenarios", s.createScenario)
	api.GET("/scenarios/export", s.exportScenarios)
	api.POST("/scenarios/import", s.importScenarios)
	api.GET("/scenarios/tags", s.listTags)
	api.POST("/scenarios/batch-tags", s.batchTags)
	api.POST("/scenarios/batch-execute", s.batchExecute)
	api.GET("/scenarios/:id", s.getScenario)
	api.PUT("/scenarios/:id", s.updateScenario)
	api.DELETE("/scenarios/:id", s.deleteScenario)
	api.GET("/scenarios/:id/history", s.scenarioHistory)
	api.POST("/scenarios/:id/execute", s.executeScenario)

	api.GET("/execution/history", s.executionHistory)
	api.GET("/execution/:id", s.getExecutionRun)
	api.GET("/execution/:id/progress", s.executionProgress)

	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.updateSettings)
	api.GET("/settings/raw", s.getRawSettings)
	api.POST("/settings/test/monitor", s.testMonitorConnection)
	api.POST("/settings/test/email", s.testEmailConnection)
}

// Start begins serving on the configured listen address and blocks until
// the listener stops.
func (s *Server) Start() error {
	s.log.WithFields(map[string]any{"addr": s.cfg.ListenAddr}).Info("http server listening")
	err := s.echo.Start(s.cfg.ListenAddr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func errorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

var _ ProgressResolver = (*progress.Resolver)(nil)

// SettingsResolver builds channel clients from the settings current at
// dispatch time, so credential edits apply to the next execution without
// a restart.
type SettingsResolver struct {
	settings *storage.SettingsStore
}

// NewSettingsResolver constructs a SettingsResolver.
func NewSettingsResolver(settings *storage.SettingsStore) *SettingsResolver {
	return &SettingsResolver{settings: settings}
}

// Resolve loads current settings and returns the client for the type.
func (r *SettingsResolver) Resolve(eventType model.EventType) (channel.Client, error) {
	settings, err := r.settings.Load()
	if err != nil {
		return nil, err
	}
	return channel.NewRegistry(settings).Resolve(eventType)
}
