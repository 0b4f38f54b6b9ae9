// Package server exposes the document agent over HTTP.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
	"github.com/mwiater/docqa/internal/metrics"
	"github.com/mwiater/docqa/internal/qa"
	"github.com/mwiater/docqa/internal/rag"
)

// Agent is the subset of docsearch.Agent the handlers use.
type Agent interface {
	Ask(ctx context.Context, question string) (qa.State, error)
	Upload(ctx context.Context, path, source string) (rag.IngestResult, error)
	Config() (map[string]any, error)
	UpdateConfig(patch map[string]any) (map[string]any, error)
	Metrics() metrics.Snapshot
	IndexSize() int
}

// Server is the HTTP front end.
type Server struct {
	app   *fiber.App
	addr  string
	agent Agent
}

// New builds the Fiber app and registers every route.
func New(cfg appconfig.Config, agent Agent) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "docqa",
		BodyLimit:             cfg.UploadLimitBytes(),
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(requestLogger)

	s := &Server{app: app, addr: cfg.ListenAddr, agent: agent}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", s.metrics)
	s.app.Post("/upload", s.upload)
	s.app.Post("/ask", s.ask)
	s.app.Get("/config", s.getConfig)
	s.app.Post("/config", s.updateConfig)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until Shutdown is called.
func (s *Server) Run() error {
	logging.LogEvent("[SERVER] listening on %s", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	logging.LogEvent("[HTTP] %s %s %d %s", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start).Round(time.Millisecond))
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "chunks": s.agent.IndexSize()})
}

func (s *Server) metrics(c *fiber.Ctx) error {
	return c.JSON(s.agent.Metrics())
}
