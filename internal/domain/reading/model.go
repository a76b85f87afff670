package reading

import (
	"errors"
	"fmt"
	"github.com/burenotti/bp_readings/internal/domain"
	"time"
)

const EventCreated = "reading.created"

var (
	ErrValidation      = errors.New("invalid reading")
	ErrStorage         = errors.New("storage failure")
	ErrReadingNotFound = errors.New("reading not found")
)

// ValidationError names the request field and the rule it failed.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "gte":
		return fmt.Sprintf("%s must be non-negative", e.Field)
	case "lte":
		return fmt.Sprintf("%s is too large", e.Field)
	default:
		return fmt.Sprintf("%s failed on the %q rule", e.Field, e.Rule)
	}
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StorageError hides backend detail from callers. Op reads as "failed to <Op>".
type StorageError struct {
	Op string
}

func (e *StorageError) Error() string {
	return "failed to " + e.Op
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

type Reading struct {
	domain.Aggregate
	ID        int64
	Systolic  int
	Diastolic int
	Pulse     int
}

// New builds a reading without an id. The id is assigned by storage.
func New(systolic, diastolic, pulse int) *Reading {
	return &Reading{
		Systolic:  systolic,
		Diastolic: diastolic,
		Pulse:     pulse,
	}
}

// MarkCreated records the storage-assigned id and queues a CreatedEvent.
func (r *Reading) MarkCreated(id int64) {
	r.ID = id
	r.PushEvent(&CreatedEvent{
		ReadingID: id,
		Systolic:  r.Systolic,
		Diastolic: r.Diastolic,
		Pulse:     r.Pulse,
		At:        time.Now().UTC(),
	})
}

type CreatedEvent struct {
	ReadingID int64
	Systolic  int
	Diastolic int
	Pulse     int
	At        time.Time
}

func (e *CreatedEvent) Type() string {
	return EventCreated
}

func (e *CreatedEvent) PublishedAt() time.Time {
	return e.At
}
