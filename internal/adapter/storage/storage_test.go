package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	_ "modernc.org/sqlite"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("begin: %w", driver.ErrBadConn), true},
		{"refused", syscall.ECONNREFUSED, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("no route to host")}, true},
		{"closed pool", sql.ErrConnDone, false},
		{"plain", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	return db
}

func TestDB_BeginCommit(t *testing.T) {
	raw := openSQLite(t)
	t.Cleanup(func() { raw.Close() })
	ctx := context.Background()

	if err := EnsureSchema(ctx, raw, DriverSQLite); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	// a second run must be a no-op
	if err := EnsureSchema(ctx, raw, DriverSQLite); err != nil {
		t.Fatalf("EnsureSchema is not idempotent: %v", err)
	}

	db := &DB{DB: raw}
	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO readings (systolic, diastolic, pulse) VALUES (?, ?, ?)", 120, 80, 70); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	var n int
	if err := raw.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d rows, want 1", n)
	}
}

func TestDB_BeginOnClosedPoolFailsFast(t *testing.T) {
	raw := openSQLite(t)
	if err := raw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db := &DB{DB: raw, Retry: RetryPolicy{MaxTries: 3, MaxElapsedTime: time.Minute}}

	start := time.Now()
	_, err := db.Begin(context.Background())
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("a permanent failure must not be retried")
	}
}

func TestEnsureSchema_UnknownDriver(t *testing.T) {
	raw := openSQLite(t)
	t.Cleanup(func() { raw.Close() })

	if err := EnsureSchema(context.Background(), raw, "mysql"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
	if _, err := Dialect("mysql"); err == nil {
		t.Error("expected an error for an unsupported dialect")
	}
}
