package api

import (
	"context"
	"errors"
	"log/slog"

	"pregnancyai/app/config"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Server)(nil)

type Server struct {
	app  *fiber.App
	addr string
}

func NewServer(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)
	handler := do.MustInvoke[*Handler](di)

	return &Server{
		app:  NewApp(handler),
		addr: cfg.HTTP.Addr,
	}, nil
}

func NewApp(handler *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pregnancyai",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	handler.RegisterRoutes(app)

	return app
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.addr)

	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
