package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"pgx match", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintItemSerialNumber}, ConstraintItemSerialNumber, true},
		{"pgx other constraint", &pgconn.PgError{Code: "23505", ConstraintName: "other"}, ConstraintItemSerialNumber, false},
		{"pq wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: ConstraintItemTypeNameSubType}), ConstraintItemTypeNameSubType, true},
		{"sqlite columns", errors.New("constraint failed: UNIQUE constraint failed: items.serial_number (2067)"), ConstraintItemSerialNumber, true},
		{"sqlite composite", errors.New("UNIQUE constraint failed: item_types.name, item_types.sub_type"), ConstraintItemTypeNameSubType, true},
		{"sqlite other column", errors.New("UNIQUE constraint failed: items.serial_number"), ConstraintItemTypeNameSubType, false},
		{"any unique", errors.New("UNIQUE constraint failed: items.serial_number"), "", true},
		{"not unique", errors.New("disk I/O error"), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCheckViolation(t *testing.T) {
	if !IsCheckViolation(errors.New("constraint failed: CHECK constraint failed: check_serial_or_quantity (275)"), ConstraintSerialOrQuantity) {
		t.Fatal("expected sqlite check violation to match")
	}
	if IsCheckViolation(errors.New("CHECK constraint failed: check_quantity_balance"), ConstraintSerialOrQuantity) {
		t.Fatal("expected a different check constraint not to match")
	}
	if !IsCheckViolation(&pgconn.PgError{Code: "23514", ConstraintName: ConstraintQuantityBalance}, ConstraintQuantityBalance) {
		t.Fatal("expected postgres check violation to match")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !IsForeignKeyViolation(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")) {
		t.Fatal("expected sqlite fk violation")
	}
	if !IsForeignKeyViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("expected postgres fk violation")
	}
	if IsForeignKeyViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("unique violation is not a fk violation")
	}
}
