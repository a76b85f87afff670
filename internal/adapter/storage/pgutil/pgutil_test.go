package pgutil

import (
	"errors"
	"fmt"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"testing"
)

func TestViolatesCheck(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres check", &pgconn.PgError{Code: pgerrcode.CheckViolation}, true},
		{"wrapped postgres check", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.CheckViolation}), true},
		{"postgres unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViolatesCheck(tt.err); got != tt.want {
				t.Errorf("ViolatesCheck(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestViolatesConstraint(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "readings_pulse_check"}

	if !ViolatesConstraint(err, "readings_pulse_check") {
		t.Error("expected constraint match")
	}
	if ViolatesConstraint(err, "readings_systolic_check") {
		t.Error("expected no match for another constraint")
	}
}
