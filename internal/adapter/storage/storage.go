package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"log/slog"
	"net"
	"syscall"
	"time"
)

var (
	ErrInternal = errors.New("internal storage error")
)

type Tx interface {
	Commit() error
	Rollback() error
}

type DBContext interface {
	Tx
	Begin(ctx context.Context) (DBContext, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type RetryPolicy struct {
	MaxTries       uint
	MaxElapsedTime time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxTries:       5,
	MaxElapsedTime: 10 * time.Second,
}

// DB wraps a connection pool. Begin retries transient connectivity
// failures before giving up.
type DB struct {
	*sql.DB
	Retry  RetryPolicy
	Logger *slog.Logger
}

func (d *DB) Commit() error {
	return nil
}

func (d *DB) Rollback() error {
	return nil
}

func (d *DB) Begin(ctx context.Context) (DBContext, error) {
	policy := d.Retry
	if policy.MaxTries == 0 {
		policy = DefaultRetryPolicy
	}

	tx, err := backoff.Retry(ctx, func() (*sql.Tx, error) {
		tx, err := d.DB.BeginTx(ctx, nil)
		if err == nil {
			return tx, nil
		}
		if IsTransient(err) {
			if d.Logger != nil {
				d.Logger.Warn("transient database failure, retrying", "error", err)
			}
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(policy.MaxTries),
		backoff.WithMaxElapsedTime(policy.MaxElapsedTime),
	)
	if err != nil {
		return nil, InternalError(err)
	}
	return &sqlTx{tx}, nil
}

type sqlTx struct {
	*sql.Tx
}

func (t *sqlTx) Begin(ctx context.Context) (DBContext, error) {
	return t, nil
}

// IsTransient reports whether err is a connectivity failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}

func InternalError(err error) error {
	return errors.Join(fmt.Errorf("internal storage error: %w", err), ErrInternal)
}
