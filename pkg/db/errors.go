package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Constraint names declared by the migrations.
const (
	ConstraintItemTypeNameSubType = "uq_item_type_name_subtype"
	ConstraintItemSerialNumber    = "uq_items_serial_number"
	ConstraintSerialOrQuantity    = "check_serial_or_quantity"
	ConstraintSerialNotEmpty      = "check_serial_not_empty"
	ConstraintQuantityBalance     = "check_quantity_balance"
)

// sqlite reports unique violations by column list instead of constraint name.
var sqliteUniqueColumns = map[string]string{
	ConstraintItemTypeNameSubType: "item_types.name, item_types.sub_type",
	ConstraintItemSerialNumber:    "items.serial_number",
}

const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique violation. When
// constraintName is provided, only that constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := postgresError(err); ok {
		return code == pgUniqueViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if constraintName != "" {
		if strings.Contains(msg, constraintName) {
			return true
		}
		cols, ok := sqliteUniqueColumns[constraintName]
		return ok && strings.Contains(msg, "UNIQUE constraint failed: "+cols)
	}
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// IsCheckViolation reports whether err is a CHECK constraint failure.
func IsCheckViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := postgresError(err); ok {
		return code == pgCheckViolation && (constraintName == "" || constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "CHECK constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, _, ok := postgresError(err); ok {
		return code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func postgresError(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
