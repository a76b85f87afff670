package readingservice

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/go-playground/validator/v10"
	"log/slog"
	"reflect"
	"strings"
)

var errNothingWritten = errors.New("storage reported zero rows affected")

// Values are capped at the range of a 32-bit INTEGER column.
type CreateReadingRequest struct {
	Systolic  *int `json:"systolic" validate:"required,gte=0,lte=2147483647"`
	Diastolic *int `json:"diastolic" validate:"required,gte=0,lte=2147483647"`
	Pulse     *int `json:"pulse" validate:"required,gte=0,lte=2147483647"`
}

type Service struct {
	logger    *slog.Logger
	validator *validator.Validate
}

func New(logger *slog.Logger) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		logger:    logger,
		validator: v,
	}
}

// Validate checks that every value is present and non-negative.
func (s *Service) Validate(req CreateReadingRequest) error {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("%w: %w", reading.ErrValidation, err)
	}
	return &reading.ValidationError{Field: errs[0].Field(), Rule: errs[0].Tag()}
}

func (s *Service) CreateReading(
	ctx context.Context,
	uow UnitOfWork,
	req CreateReadingRequest,
) (*reading.Reading, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	var created *reading.Reading
	err := uow.Atomic(ctx, func(ctx *AtomicContext) error {
		r := reading.New(*req.Systolic, *req.Diastolic, *req.Pulse)

		id, affected, err := ctx.ReadingStorage.Add(ctx.Context(), r)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errNothingWritten
		}

		r.MarkCreated(id)
		created = r
		return ctx.Commit()
	})
	if err != nil {
		if errors.Is(err, reading.ErrValidation) {
			s.logger.Info("storage rejected reading", "error", err)
			var vErr *reading.ValidationError
			if errors.As(err, &vErr) {
				return nil, &reading.ValidationError{Field: vErr.Field, Rule: vErr.Rule}
			}
			return nil, fmt.Errorf("%w: values must be non-negative", reading.ErrValidation)
		}
		s.logger.Error("failed to save reading", "error", err)
		return nil, &reading.StorageError{Op: "save record"}
	}

	s.logger.Debug("reading saved", "reading_id", created.ID)
	return created, nil
}

func (s *Service) ListReadings(
	ctx context.Context,
	uow UnitOfWork,
) (readings []*reading.Reading, outErr error) {
	outErr = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if readings, err = ctx.ReadingStorage.ListAll(ctx.Context()); err != nil {
			return err
		}

		return ctx.Commit()
	})
	if outErr != nil {
		s.logger.Error("failed to list readings", "error", outErr)
		return nil, &reading.StorageError{Op: "list readings"}
	}
	if readings == nil {
		readings = make([]*reading.Reading, 0)
	}
	return readings, nil
}

// GetReadingByID reports found=false when no reading has the id.
func (s *Service) GetReadingByID(
	ctx context.Context,
	uow UnitOfWork,
	id int64,
) (r *reading.Reading, found bool, outErr error) {
	outErr = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		r, err = ctx.ReadingStorage.FindByID(ctx.Context(), id)
		switch {
		case errors.Is(err, reading.ErrReadingNotFound):
			r = nil
		case err != nil:
			return err
		}

		return ctx.Commit()
	})
	if outErr != nil {
		s.logger.Error("failed to get reading", "reading_id", id, "error", outErr)
		return nil, false, &reading.StorageError{Op: "get reading"}
	}
	return r, r != nil, nil
}
