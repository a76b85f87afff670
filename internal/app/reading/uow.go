package readingservice

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	readingstorage "github.com/burenotti/bp_readings/internal/adapter/storage/readings"
	"github.com/burenotti/bp_readings/internal/app/unitofwork"
	"github.com/burenotti/bp_readings/internal/domain"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/leporo/sqlf"
	"log/slog"
)

type ReadingStorage interface {
	Add(ctx context.Context, r *reading.Reading) (id int64, rowsAffected int64, err error)
	FindByID(ctx context.Context, id int64) (*reading.Reading, error)
	ListAll(ctx context.Context) ([]*reading.Reading, error)
	CollectEvents() []domain.Event
	Close() error
}

type UnitOfWork interface {
	Atomic(ctx context.Context, do func(*AtomicContext) error) error
}

type AtomicContext struct {
	ctx            context.Context
	tx             storage.Tx
	ReadingStorage ReadingStorage
}

func NewAtomicContext(ctx context.Context, tx storage.Tx, readings ReadingStorage) *AtomicContext {
	return &AtomicContext{
		ctx:            ctx,
		tx:             tx,
		ReadingStorage: readings,
	}
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.tx.Commit()
}

func (a *AtomicContext) Close() (err error) {
	if closeErr := a.ReadingStorage.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	if err != nil {
		err = errors.Join(fmt.Errorf("failed to close storage"), err)
	}

	return err
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.ReadingStorage.CollectEvents()
}

// NewSQLUnitOfWork opens one database transaction per operation.
func NewSQLUnitOfWork(
	db *storage.DB,
	dialect *sqlf.Dialect,
	msgBus unitofwork.MessageBus,
	logger *slog.Logger,
) UnitOfWork {
	return unitofwork.New[*AtomicContext, storage.DBContext](
		db,
		func(ctx context.Context, tx storage.DBContext) (*AtomicContext, error) {
			return NewAtomicContext(ctx, tx, readingstorage.NewSQLStorage(tx, dialect)), nil
		},
		msgBus,
		logger,
	)
}

// NewMemoryUnitOfWork runs operations directly against an in-process store.
func NewMemoryUnitOfWork(
	store *readingstorage.MemoryStore,
	msgBus unitofwork.MessageBus,
	logger *slog.Logger,
) UnitOfWork {
	return unitofwork.New[*AtomicContext, *readingstorage.MemoryTx](
		store,
		func(ctx context.Context, tx *readingstorage.MemoryTx) (*AtomicContext, error) {
			return NewAtomicContext(ctx, tx, readingstorage.NewMemoryStorage(tx.Store)), nil
		},
		msgBus,
		logger,
	)
}
