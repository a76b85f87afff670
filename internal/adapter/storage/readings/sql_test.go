package readingstorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/bp_readings/internal/adapter/storage"
	"github.com/burenotti/bp_readings/internal/domain/reading"
	"github.com/leporo/sqlf"
	_ "modernc.org/sqlite"
	"testing"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := sql.Open(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})

	if err := storage.EnsureSchema(context.Background(), db, storage.DriverSQLite); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return &storage.DB{DB: db}
}

func withStorage(t *testing.T, db *storage.DB, fn func(s *SQLStorage)) {
	t.Helper()
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	fn(NewSQLStorage(tx, sqlf.NoDialect))
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestSQLStorage_AddAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := reading.New(120, 80, 70)
	withStorage(t, db, func(s *SQLStorage) {
		id, affected, err := s.Add(ctx, r)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if id != 1 || affected != 1 {
			t.Fatalf("got id=%d affected=%d, want 1 and 1", id, affected)
		}
		if events := s.CollectEvents(); len(events) != 0 {
			t.Errorf("no events expected before the reading is marked created, got %d", len(events))
		}
	})

	withStorage(t, db, func(s *SQLStorage) {
		got, err := s.FindByID(ctx, 1)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.ID != 1 || got.Systolic != 120 || got.Diastolic != 80 || got.Pulse != 70 {
			t.Errorf("got %d: %d/%d/%d", got.ID, got.Systolic, got.Diastolic, got.Pulse)
		}
	})
}

func TestSQLStorage_FindMissing(t *testing.T) {
	db := newTestDB(t)

	withStorage(t, db, func(s *SQLStorage) {
		_, err := s.FindByID(context.Background(), 999)
		if !errors.Is(err, reading.ErrReadingNotFound) {
			t.Errorf("expected ErrReadingNotFound, got %v", err)
		}
	})
}

func TestSQLStorage_ListAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	withStorage(t, db, func(s *SQLStorage) {
		lst, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if lst == nil || len(lst) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v", lst)
		}

		for _, r := range []*reading.Reading{reading.New(110, 70, 60), reading.New(130, 85, 72)} {
			if _, _, err := s.Add(ctx, r); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
		}
	})

	withStorage(t, db, func(s *SQLStorage) {
		lst, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(lst) != 2 {
			t.Fatalf("got %d readings, want 2", len(lst))
		}
		if lst[0].ID == lst[1].ID {
			t.Errorf("ids are not distinct: %d", lst[0].ID)
		}
		if lst[0].Systolic != 110 || lst[1].Systolic != 130 {
			t.Errorf("got systolic %d and %d", lst[0].Systolic, lst[1].Systolic)
		}
	})
}

func TestSQLStorage_CheckConstraint(t *testing.T) {
	tests := []struct {
		r     *reading.Reading
		field string
	}{
		{reading.New(-1, 80, 70), "systolic"},
		{reading.New(120, -1, 70), "diastolic"},
		{reading.New(120, 80, -1), "pulse"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			db := newTestDB(t)

			withStorage(t, db, func(s *SQLStorage) {
				_, _, err := s.Add(context.Background(), tt.r)
				if !errors.Is(err, reading.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}

				var vErr *reading.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected *reading.ValidationError, got %v", err)
				}
				if vErr.Field != tt.field || vErr.Rule != "gte" {
					t.Errorf("got %s/%s, want %s/gte", vErr.Field, vErr.Rule, tt.field)
				}
			})
		})
	}
}

func TestSQLStorage_RollbackDiscardsWrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, _, err := NewSQLStorage(tx, sqlf.NoDialect).Add(ctx, reading.New(120, 80, 70)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	withStorage(t, db, func(s *SQLStorage) {
		lst, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(lst) != 0 {
			t.Errorf("expected rolled back insert to be gone, got %d readings", len(lst))
		}
	})
}

func TestSQLStorage_CollectsEventsOfSavedReadings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	withStorage(t, db, func(s *SQLStorage) {
		r := reading.New(120, 80, 70)
		id, _, err := s.Add(ctx, r)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		r.MarkCreated(id)

		events := s.CollectEvents()
		if len(events) != 1 || events[0].Type() != reading.EventCreated {
			t.Fatalf("got %v, want one %s event", events, reading.EventCreated)
		}
		if again := s.CollectEvents(); len(again) != 0 {
			t.Errorf("events must be collected once, got %d more", len(again))
		}
	})
}
