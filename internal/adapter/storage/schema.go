package storage

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/leporo/sqlf"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS readings (
	reading_id BIGSERIAL PRIMARY KEY,
	systolic   INTEGER NOT NULL CONSTRAINT readings_systolic_check CHECK (systolic >= 0),
	diastolic  INTEGER NOT NULL CONSTRAINT readings_diastolic_check CHECK (diastolic >= 0),
	pulse      INTEGER NOT NULL CONSTRAINT readings_pulse_check CHECK (pulse >= 0)
)`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	reading_id INTEGER PRIMARY KEY AUTOINCREMENT,
	systolic   INTEGER NOT NULL CONSTRAINT readings_systolic_check CHECK (systolic >= 0),
	diastolic  INTEGER NOT NULL CONSTRAINT readings_diastolic_check CHECK (diastolic >= 0),
	pulse      INTEGER NOT NULL CONSTRAINT readings_pulse_check CHECK (pulse >= 0)
)`

// Dialect returns the query builder dialect for a sql driver name.
func Dialect(driverName string) (*sqlf.Dialect, error) {
	switch driverName {
	case DriverPostgres:
		return sqlf.PostgreSQL, nil
	case DriverSQLite:
		return sqlf.NoDialect, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driverName)
	}
}

// EnsureSchema creates the readings table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB, driverName string) error {
	var schema string
	switch driverName {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("unsupported sql driver %q", driverName)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return InternalError(fmt.Errorf("create schema: %w", err))
	}
	return nil
}
