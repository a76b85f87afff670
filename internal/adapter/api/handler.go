package api

import (
	"context"
	"errors"
	"fmt"
	readingservice "github.com/burenotti/bp_readings/internal/app/reading"
	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"
	"log/slog"
	"time"
)

type Timeouts struct {
	Read       time.Duration
	ReadHeader time.Duration
	Write      time.Duration
	Idle       time.Duration
}

var DefaultTimeouts = Timeouts{
	Read:       10 * time.Second,
	ReadHeader: 5 * time.Second,
	Write:      10 * time.Second,
	Idle:       10 * time.Second,
}

type Server struct {
	handler        *echo.Echo
	logger         *slog.Logger
	addr           string
	timeouts       Timeouts
	allowOrigins   []string
	readingService *readingservice.Service
	readingsUoW    readingservice.UnitOfWork
}

func NewServer(opt ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		handler:      e,
		logger:       slog.Default(),
		timeouts:     DefaultTimeouts,
		allowOrigins: []string{"*"},
	}

	for _, opt := range opt {
		opt(s)
	}

	if s.readingService == nil {
		s.readingService = readingservice.New(s.logger)
	}

	e.Server.ReadTimeout = s.timeouts.Read
	e.Server.ReadHeaderTimeout = s.timeouts.ReadHeader
	e.Server.WriteTimeout = s.timeouts.Write
	e.Server.IdleTimeout = s.timeouts.Idle
	e.Server.MaxHeaderBytes = 4096

	e.Use(slogecho.NewWithConfig(s.logger, slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelInfo,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	e.Use(Recover(s.logger))
	e.Use(CORS(s.allowOrigins))
	s.Mount()
	return s
}

func (s *Server) Mount() {
	s.MountReadings()
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() *echo.Echo {
	return s.handler
}

func (s *Server) Start() error {
	return s.handler.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.handler.Shutdown(ctx)
}

func (s *Server) bind(ctx echo.Context, i interface{}) error {
	if err := ctx.Bind(i); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return fmt.Errorf("bad request: %v", httpErr.Message)
		}
		return fmt.Errorf("bad request")
	}
	return nil
}
