package submissions

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrInvalidType is returned for an unknown submission type
	ErrInvalidType = errors.New("unknown submission type")

	// ErrInvalidStatus is returned for an unknown submission status
	ErrInvalidStatus = errors.New("unknown submission status")

	// ErrNotFound is returned when a submission is not found
	ErrNotFound = errors.New("submission not found")
)
