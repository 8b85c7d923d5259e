package planner

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

var (
	// ErrInvalidGeometry is returned for non-positive dimensions or malformed boxes.
	ErrInvalidGeometry = geometry.ErrInvalidGeometry
	// ErrInvalidItem is returned when an item or request field is out of range.
	ErrInvalidItem = errors.New("invalid item")
	// ErrDuplicateID is returned when two items or containers share an id.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownItem is returned when a referenced item is not in the snapshot.
	ErrUnknownItem = errors.New("unknown item")
	// ErrUnknownContainer is returned when a referenced container is not in the snapshot.
	ErrUnknownContainer = errors.New("unknown container")
)

// ValidationError reports which input failed validation.
type ValidationError struct {
	ID     string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.ID, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, id, format string, args ...any) error {
	return &ValidationError{ID: id, Reason: fmt.Sprintf(format, args...), Err: err}
}
