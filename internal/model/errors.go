package model

import "errors"

var (
	// ErrNotFound is returned when an event id is not present in the store.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidEvent matches every *ValidationError via errors.Is.
	ErrInvalidEvent = errors.New("invalid event")
)

// ValidationError describes why an incoming event was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}
