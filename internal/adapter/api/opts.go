package api

import (
	readingservice "github.com/burenotti/bp_readings/internal/app/reading"
	"log/slog"
	"net"
	"strconv"
)

type Option func(*Server)

func Addr(host string, port int) Option {
	return func(s *Server) {
		s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

func Logger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Server) {
		s.timeouts = t
	}
}

func AllowOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) != 0 {
			s.allowOrigins = origins
		}
	}
}

func ReadingService(service *readingservice.Service) Option {
	return func(s *Server) {
		s.readingService = service
	}
}

func ReadingsUnitOfWork(uow readingservice.UnitOfWork) Option {
	return func(s *Server) {
		s.readingsUoW = uow
	}
}
