package api

import (
	"errors"
	readingservice "github.com/burenotti/bp_readings/internal/app/reading"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"net/http"
	"strconv"
)

func (s *Server) MountReadings() {
	g := s.handler.Group("/api/readings")
	g.POST("/saveReading", s.SaveReading)
	g.GET("/GetAll", s.ListReadings)
	g.GET("/:id", s.GetReading)
}

type Reading struct {
	ID        int64 `json:"id"`
	Systolic  int   `json:"systolic"`
	Diastolic int   `json:"diastolic"`
	Pulse     int   `json:"pulse"`
}

func toReading(r *reading.Reading) Reading {
	return Reading{
		ID:        r.ID,
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Pulse:     r.Pulse,
	}
}

func (s *Server) SaveReading(c echo.Context) error {
	var req readingservice.CreateReadingRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	r, err := s.readingService.CreateReading(c.Request().Context(), s.readingsUoW, req)
	if err != nil {
		if errors.Is(err, reading.ErrValidation) {
			return JsonError(c, http.StatusBadRequest, err)
		}
		return JsonError(c, http.StatusInternalServerError, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/readings/"+strconv.FormatInt(r.ID, 10))
	return c.JSON(http.StatusCreated, toReading(r))
}

func (s *Server) ListReadings(c echo.Context) error {
	lst, err := s.readingService.ListReadings(c.Request().Context(), s.readingsUoW)
	if err != nil {
		return JsonError(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, lo.Map(lst, func(r *reading.Reading, _ int) Reading {
		return toReading(r)
	}))
}

type GetReadingRequest struct {
	ID int64 `param:"id"`
}

func (s *Server) GetReading(c echo.Context) error {
	var req GetReadingRequest
	if err := s.bind(c, &req); err != nil {
		return JsonError(c, http.StatusBadRequest, err)
	}

	r, found, err := s.readingService.GetReadingByID(c.Request().Context(), s.readingsUoW, req.ID)
	if err != nil {
		return JsonError(c, http.StatusInternalServerError, err)
	}
	if !found {
		return JsonError(c, http.StatusNotFound, reading.ErrReadingNotFound)
	}

	return c.JSON(http.StatusOK, toReading(r))
}
