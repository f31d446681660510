package sqlgen

import "errors"

// Errors returned while compiling statements. They are detected before any
// SQL reaches the database and are wrapped with details via fmt.Errorf, so
// callers should match them with errors.Is.
var (
	// ErrInvalidArgument is returned when a public operation receives a value
	// of the wrong shape.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyValues is returned when an INSERT or UPDATE has nothing to write.
	ErrEmptyValues = errors.New("values must not be empty")

	// ErrEmptyFilter is returned when an UPDATE or DELETE has no filter.
	ErrEmptyFilter = errors.New("filters must not be empty")

	// ErrInvalidFilter is returned for a malformed filter.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidIdentifier is returned when a table or column name cannot be quoted.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidJoin is returned for an unrecognized join keyword.
	ErrInvalidJoin = errors.New("invalid join")

	// ErrInvalidTable is returned for a malformed table list.
	ErrInvalidTable = errors.New("invalid table")
)
