package index

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIndex signals a query against an index name not registered
	// on the bundle.
	ErrUnknownIndex = errors.New("unknown index")
	// ErrIndexTypeMismatch signals a predicate payload that cannot coerce
	// to the index's declared key type.
	ErrIndexTypeMismatch = errors.New("index type mismatch")
	// ErrInvalidIndex signals a value predicate against the reserved
	// metadata.labels name; label queries must use the Label* predicates.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrUniqueViolation signals a write that would place two primary keys
	// under the same key of a unique index.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrTypeNotRegistered signals a registry lookup for an unregistered type.
	ErrTypeNotRegistered = errors.New("type not registered")
)

// UnknownIndexError wraps ErrUnknownIndex with the offending index name.
type UnknownIndexError struct {
	Name string
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("unknown index %q", e.Name)
}

func (e *UnknownIndexError) Unwrap() error { return ErrUnknownIndex }

// TypeMismatchError wraps ErrIndexTypeMismatch with the index name, the
// declared key type, and a description of the rejected payload.
type TypeMismatchError struct {
	Name     string
	Expected KeyType
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("index %q expects %s keys, got %s", e.Name, e.Expected, e.Got)
}

func (e *TypeMismatchError) Unwrap() error { return ErrIndexTypeMismatch }

// UniqueViolationError wraps ErrUniqueViolation with the index name and the
// duplicated key.
type UniqueViolationError struct {
	Name string
	Key  string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique index %q already holds key %q", e.Name, e.Key)
}

func (e *UniqueViolationError) Unwrap() error { return ErrUniqueViolation }

// NotRegisteredError wraps ErrTypeNotRegistered with the type handle.
type NotRegisteredError struct {
	Handle string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no index bundle registered for type %s", e.Handle)
}

func (e *NotRegisteredError) Unwrap() error { return ErrTypeNotRegistered }
