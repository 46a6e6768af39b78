package db

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint conflict.
const uniqueViolation pq.ErrorCode = "23505"

// StoreError reports a failure that originated in the underlying store:
// connectivity, constraint violations, malformed statements and so on.
type StoreError struct {
	// Op names the client operation that failed ("prepare", "exec", ...).
	Op string
	// Err is the driver or database/sql error.
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CardinalityError is returned by QueryOne when the result does not contain
// exactly one row, and by QueryOptional when it contains more than one.
type CardinalityError struct {
	// Rows is the number of rows seen. For large results the count stops at 2.
	Rows int
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("query returned an unexpected number of rows: %d", e.Rows)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique
// constraint violation anywhere in its chain.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
