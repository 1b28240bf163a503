package dbx

import (
	"errors"
	"strings"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// ConflictFromError re-classifies a PostgreSQL unique violation as a
// *common.ConflictError naming the offending column. Any other error is
// returned unchanged (nil stays nil).
//
// Constraint names are expected to follow the default PostgreSQL pattern
// <table>_<column>_key; fields maps column names to caller-facing field
// names and may be nil.
func ConflictFromError(err error, table string, fields map[string]string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	column := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, table+"_"), "_key")
	if f, ok := fields[column]; ok {
		return &common.ConflictError{Field: f}
	}
	return &common.ConflictError{Field: column}
}
