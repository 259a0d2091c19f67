// Package httpapi serves the engine's entry points as a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/dshills/personarag/internal/app"
)

// Server is the HTTP transport
type Server struct {
	fiber  *fiber.App
	app    *app.App
	logger *slog.Logger
}

// New creates the HTTP server and registers its routes
func New(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		fiber: fiber.New(fiber.Config{
			AppName:      "personarag",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			ErrorHandler: errorHandler,
		}),
		app:    a,
		logger: logger.With("component", "http"),
	}

	s.fiber.Use(recover.New())
	s.fiber.Use(s.requestLogger)
	s.register(s.fiber.Group("/api/v1"))
	return s
}

// Handler exposes the underlying fiber app, mainly for tests
func (s *Server) Handler() *fiber.App {
	return s.fiber
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Listen(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- s.fiber.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.fiber.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) register(api fiber.Router) {
	api.Get("/health", s.health)
	api.Post("/search", s.search)
	api.Get("/expand", s.expand)
	api.Post("/ingest/:namespace", s.ingestRecords)

	users := api.Group("/users/:id")
	users.Get("/context", s.loadContext)
	users.Delete("/context", s.invalidateContext)
	users.Post("/activities", s.recordActivity)
}

func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start))
	return err
}
