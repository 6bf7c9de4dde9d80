package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the services care about.
const (
	codeForeignKeyViolation  = "23503"
	codeInvalidTextRepresent = "22P02"
	codeInsufficientPrivs    = "42501"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsForeignKeyViolation reports whether err is a referential integrity
// failure, e.g. a message inserted for a conversation that does not exist.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// IsInvalidInput reports malformed literal input such as a bad uuid.
func IsInvalidInput(err error) bool {
	return pgCode(err) == codeInvalidTextRepresent
}

// IsPermissionDenied reports a row-level security or grant rejection.
func IsPermissionDenied(err error) bool {
	return pgCode(err) == codeInsufficientPrivs
}
