package unitofwork

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	"github.com/burenotti/bp_readings/internal/domain"
	"log/slog"
)

var (
	ErrRollback = errors.New("rollback")
)

type AtomicContext interface {
	Context() context.Context
	Commit() error
	Close() error
	CollectEvents() []domain.Event
}

type MessageBus interface {
	PublishEvents(events ...domain.Event) error
}

type DB[Tx storage.Tx] interface {
	Begin(ctx context.Context) (Tx, error)
}

// UnitOfWork runs a callback inside one transaction of type Tx and publishes
// the events collected by the atomic context once the callback succeeds.
type UnitOfWork[T AtomicContext, Tx storage.Tx] struct {
	db         DB[Tx]
	newContext func(context.Context, Tx) (T, error)
	msgBus     MessageBus
	logger     *slog.Logger
}

func New[T AtomicContext, Tx storage.Tx](
	db DB[Tx],
	newCtx func(context.Context, Tx) (T, error),
	msgBus MessageBus,
	logger *slog.Logger,
) *UnitOfWork[T, Tx] {
	return &UnitOfWork[T, Tx]{
		db:         db,
		newContext: newCtx,
		msgBus:     msgBus,
		logger:     logger,
	}
}

func (uow *UnitOfWork[T, Tx]) Atomic(
	ctx context.Context,
	do func(T) error,
) (err error) {
	tx, err := uow.db.Begin(ctx)
	if err != nil {
		return stateRollbackError(err)
	}

	txCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	atomicCtx, err := uow.newContext(txCtx, tx)
	if err != nil {
		uow.rollback(tx)
		return stateRollbackError(err)
	}
	defer func() {
		if err := atomicCtx.Close(); err != nil {
			uow.logger.Error("failed to close atomic context", "error", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			uow.rollback(tx)
			panic(r)
		}
	}()

	if err := do(atomicCtx); err != nil {
		uow.rollback(tx)
		return stateRollbackError(err)
	}

	// The work is committed at this point, publishing cannot undo it.
	events := atomicCtx.CollectEvents()
	if uow.msgBus == nil || len(events) == 0 {
		return nil
	}

	if err := uow.msgBus.PublishEvents(events...); err != nil {
		uow.logger.Error("failed to publish events", "count", len(events), "error", err)
	}

	return nil
}

func (uow *UnitOfWork[T, Tx]) rollback(tx Tx) {
	if err := tx.Rollback(); err != nil {
		uow.logger.Error("failed to rollback transaction", "error", err)
	}
}

func stateRollbackError(err error) error {
	return errors.Join(fmt.Errorf("state rollback: %w", err), ErrRollback)
}
