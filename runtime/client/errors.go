package client

import (
	"errors"

	"github.com/satishbabariya/sqlwrap/query/executor"
	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// Errors returned by the client. Statement compilation errors are detected
// before anything is sent to the database; driver failures match
// ErrExecution.
var (
	ErrInvalidArgument     = sqlgen.ErrInvalidArgument
	ErrEmptyValues         = sqlgen.ErrEmptyValues
	ErrEmptyFilter         = sqlgen.ErrEmptyFilter
	ErrInvalidFilter       = sqlgen.ErrInvalidFilter
	ErrInvalidIdentifier   = sqlgen.ErrInvalidIdentifier
	ErrInvalidJoin         = sqlgen.ErrInvalidJoin
	ErrInvalidTable        = sqlgen.ErrInvalidTable
	ErrExecution           = executor.ErrExecution
	ErrConstraintViolation = executor.ErrConstraintViolation

	// ErrInvalidDriver is returned for an unknown or undetectable driver.
	ErrInvalidDriver = errors.New("invalid driver")

	// ErrNoTransaction is returned by Commit and Rollback outside a transaction.
	ErrNoTransaction = errors.New("no transaction in progress")
)

// QueryError describes a statement rejected by the database.
type QueryError = executor.QueryError

// IsConstraintViolation reports whether err is a unique or primary key
// violation.
func IsConstraintViolation(err error) bool {
	return executor.IsConstraintViolation(err)
}
