package pgutil

import (
	"errors"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	"github.com/burenotti/bp_readings/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/leporo/sqlf"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
	"strings"
	"sync"
)

type EventSource interface {
	PopEvents() []domain.Event
}

type BaseSQLStorage struct {
	DB      storage.DBContext
	Dialect *sqlf.Dialect
	seenMu  sync.Mutex
	seen    []EventSource
}

func NewBaseSQLStorage(db storage.DBContext, dialect *sqlf.Dialect) *BaseSQLStorage {
	if dialect == nil {
		dialect = sqlf.NoDialect
	}
	return &BaseSQLStorage{
		DB:      db,
		Dialect: dialect,
	}
}

func (s *BaseSQLStorage) CollectEvents() []domain.Event {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	var events []domain.Event
	for _, src := range s.seen {
		events = append(events, src.PopEvents()...)
	}
	s.seen = nil
	return events
}

func (s *BaseSQLStorage) Close() {
	s.seenMu.Lock()
	s.seen = nil
	s.seenMu.Unlock()
}

func (s *BaseSQLStorage) MarkSeen(src EventSource) {
	s.seenMu.Lock()
	s.seen = append(s.seen, src)
	s.seenMu.Unlock()
}

// ViolatesConstraint reports whether err is an integrity violation of the named
// constraint. Sqlite only reports the name in the message.
func ViolatesConstraint(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) &&
			pgErr.ConstraintName == constraintName
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(liteErr.Error(), constraintName)
	}
	return false
}

// ViolatesCheck reports a CHECK constraint failure from either postgres or sqlite.
func ViolatesCheck(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.CheckViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_CHECK ||
			code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "CHECK constraint failed")
	}
	return false
}
