package readingstorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	"github.com/burenotti/bp_readings/internal/adapter/storage/pgutil"
	"github.com/burenotti/bp_readings/internal/domain"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/leporo/sqlf"
)

type SQLStorage struct {
	base *pgutil.BaseSQLStorage
}

func NewSQLStorage(db storage.DBContext, dialect *sqlf.Dialect) *SQLStorage {
	return &SQLStorage{
		base: pgutil.NewBaseSQLStorage(db, dialect),
	}
}

// Add inserts r and returns the assigned id together with the number of
// rows the insert produced.
func (s *SQLStorage) Add(ctx context.Context, r *reading.Reading) (int64, int64, error) {
	var (
		id       int64
		affected int64
	)

	q := s.base.Dialect.InsertInto("readings").
		Set("systolic", r.Systolic).
		Set("diastolic", r.Diastolic).
		Set("pulse", r.Pulse).
		Returning("reading_id").To(&id)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		affected++
	})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		if vErr := checkViolation(err); vErr != nil {
			return 0, 0, vErr
		}
		return 0, 0, storage.InternalError(err)
	}

	if affected > 0 {
		s.base.MarkSeen(r)
	}
	return id, affected, nil
}

var checkedColumns = []string{"systolic", "diastolic", "pulse"}

// checkViolation maps a failed readings_<column>_check to the field it guards.
func checkViolation(err error) error {
	for _, column := range checkedColumns {
		if pgutil.ViolatesConstraint(err, "readings_"+column+"_check") {
			return errors.Join(&reading.ValidationError{Field: column, Rule: "gte"}, err)
		}
	}
	if pgutil.ViolatesCheck(err) {
		return errors.Join(reading.ErrValidation, err)
	}
	return nil
}

func (s *SQLStorage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt),
) ([]*reading.Reading, error) {
	var tmp struct {
		ID        int64
		Systolic  int
		Diastolic int
		Pulse     int
	}

	q := s.base.Dialect.From("readings r").
		Select("r.reading_id").To(&tmp.ID).
		Select("r.systolic").To(&tmp.Systolic).
		Select("r.diastolic").To(&tmp.Diastolic).
		Select("r.pulse").To(&tmp.Pulse)

	modify(q)

	result := make([]*reading.Reading, 0)

	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, &reading.Reading{
			ID:        tmp.ID,
			Systolic:  tmp.Systolic,
			Diastolic: tmp.Diastolic,
			Pulse:     tmp.Pulse,
		})
	})

	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return result, nil
	}

	return nil, storage.InternalError(err)
}

func (s *SQLStorage) FindByID(ctx context.Context, id int64) (*reading.Reading, error) {
	result, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("r.reading_id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, reading.ErrReadingNotFound
	}
	return result[0], nil
}

func (s *SQLStorage) ListAll(ctx context.Context) ([]*reading.Reading, error) {
	return s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.OrderBy("r.reading_id")
	})
}

func (s *SQLStorage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *SQLStorage) Close() error {
	s.base.Close()
	return nil
}
