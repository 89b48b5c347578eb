package errors

import (
	stderrs "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// FromPostgres wraps a pg error, choosing the code from its SQLSTATE class.
// Constraint failures are Validation, a read-only or starting server is Unavailable,
// anything else (including non pg errors) is DB. nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, sqlStateCode(err), msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

func sqlStateCode(err error) ErrorCode {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeDB
	}
	switch pgErr.Code {
	case "23502", "23514": // not_null_violation, check_violation
		return ErrorCodeValidation
	case "22001": // string_data_right_truncation
		return ErrorCodeInvalidArgument
	case "25006", "57P03": // read_only_sql_transaction, cannot_connect_now
		return ErrorCodeUnavailable
	}
	return ErrorCodeDB
}
