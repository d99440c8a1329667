package entity

import "errors"

// Domain errors
var (
	// Remote record errors
	ErrTaskNotFound = errors.New("task not found")

	// Context errors
	ErrContextNotFound = errors.New("conversation context not found")

	// Dialogue errors
	ErrMissingField = errors.New("required context field is missing")
)
