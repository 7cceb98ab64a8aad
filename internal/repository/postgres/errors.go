package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// pgError extracts a *pgconn.PgError with the given code.
func pgError(err error, code string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr, true
	}
	return nil, false
}

// isUniqueViolation reports a unique violation and the constraint name.
func isUniqueViolation(err error) (string, bool) {
	pgErr, ok := pgError(err, codeUniqueViolation)
	if !ok {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// isForeignKeyViolation checks if an error is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	_, ok := pgError(err, codeForeignKeyViolation)
	return ok
}

// isNoRows checks if an error indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// parseDecimal parses a NUMERIC column selected as ::text.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
