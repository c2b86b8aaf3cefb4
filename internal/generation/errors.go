package generation

import "errors"

// Sentinel errors shared by generator implementations.
var (
	// ErrEmptyItem is returned when a work item has no key to generate from.
	ErrEmptyItem = errors.New("work item has no key")

	// ErrInvalidResponse is returned when the provider response cannot be
	// parsed or fails schema validation.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the provider blocks the content.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")
)
