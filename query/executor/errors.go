package executor

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrExecution is matched by every error the database returned.
	ErrExecution = errors.New("statement execution failed")

	// ErrConstraintViolation is matched by unique and primary key violations.
	ErrConstraintViolation = errors.New("unique constraint violation")
)

// QueryError represents a statement rejected by the database.
type QueryError struct {
	Operation string
	Query     string
	Args      []interface{}
	Cause     error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches ErrExecution or, for unique key
// failures, ErrConstraintViolation.
func (e *QueryError) Is(target error) bool {
	switch target {
	case ErrExecution:
		return true
	case ErrConstraintViolation:
		return IsConstraintViolation(e.Cause)
	}
	return false
}

func newQueryError(op, query string, args []interface{}, cause error) error {
	if cause == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(cause, &qe) {
		return cause
	}
	return &QueryError{Operation: op, Query: query, Args: args, Cause: cause}
}

// MySQL error numbers for duplicate keys.
const (
	mysqlDupEntry        = 1062
	mysqlDupEntryKeyName = 1586
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// IsConstraintViolation reports whether err is a unique or primary key
// violation raised by one of the supported drivers.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry || myErr.Number == mysqlDupEntryKeyName
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
