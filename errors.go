package sqlz

import (
	"errors"
	"fmt"
)

// Structural errors. These are programming mistakes in the way a statement
// or an entity type is put together, and are never retried.
var (
	// ErrInvalidPosition is returned when a boolean combinator, an IN or
	// BETWEEN expression, or a clause group is used while the builder is not
	// positioned inside an open ON, WHERE or HAVING clause.
	ErrInvalidPosition = errors.New("sqlz: operation not allowed at the current clause position")

	// ErrNoParent is returned by Back when called on a builder that is
	// neither attached to a parent statement nor a condition subquery.
	ErrNoParent = errors.New("sqlz: subquery has no parent statement")

	// ErrMissingForeignKey is returned when a join between two entity types
	// cannot be resolved because no foreign key links them.
	ErrMissingForeignKey = errors.New("sqlz: missing foreign key definition")

	// ErrMissingRelation is returned when a relation table is not declared
	// on an entity type.
	ErrMissingRelation = errors.New("sqlz: missing relation definition")

	// ErrUnknownCall is returned for dynamic condition names that do not
	// match the condition shorthand grammar.
	ErrUnknownCall = errors.New("sqlz: unknown or malformed dynamic call")

	// ErrInvalidArguments is returned when a builder method receives
	// arguments it cannot render.
	ErrInvalidArguments = errors.New("sqlz: invalid arguments")

	// ErrCachedQuery is returned when a cached query proxy is asked to
	// render or prepare itself.
	ErrCachedQuery = errors.New("sqlz: cannot build or prepare a cached query")

	// ErrNoModel is returned when an operation needs the statement to be
	// scoped to an entity type and it is not.
	ErrNoModel = errors.New("sqlz: statement is not scoped to an entity type")

	// ErrUnknownType is returned when an entity type name is not registered.
	ErrUnknownType = errors.New("sqlz: unknown entity type")

	// ErrNestedTransaction is returned when a transaction is started on a
	// connection that is already inside one.
	ErrNestedTransaction = errors.New("sqlz: transaction already in progress")

	// ErrNoDatabase is returned when an operation requires a connection and
	// none is available.
	ErrNoDatabase = errors.New("sqlz: no database connection")
)

// Data errors.
var (
	// ErrNotFound is returned when a row fetched by id does not exist, or a
	// unique query has no result.
	ErrNotFound = errors.New("sqlz: not found")

	// ErrMissingID is returned when a query scoped to an entity type returns
	// rows without an id column.
	ErrMissingID = errors.New("sqlz: entity queries must include the id field")

	// ErrUnexpectedValue is returned when a foreign key column is assigned a
	// value that is not an entity of the referenced type.
	ErrUnexpectedValue = errors.New("sqlz: unexpected value")

	// ErrImmutableID is returned when trying to change a non-zero entity id.
	ErrImmutableID = errors.New("sqlz: entity id cannot be changed")

	// ErrDifferentDatabases is returned when two entities living on
	// different connections are related to each other.
	ErrDifferentDatabases = errors.New("sqlz: entities belong to different databases")
)

// CallError describes a dynamic condition call that could not be parsed.
type CallError struct {
	Name   string
	Reason string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrUnknownCall, e.Name, e.Reason)
}

// Unwrap allows errors.Is(err, ErrUnknownCall).
func (e *CallError) Unwrap() error {
	return ErrUnknownCall
}
