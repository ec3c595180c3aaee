package repository

import "errors"

// Store errors. Backends wrap driver errors around these.
var (
	// ErrTaskNotFound is returned when no task has the given id
	ErrTaskNotFound = errors.New("task not found")

	// ErrStoreUnavailable is returned when the backing service cannot be reached
	ErrStoreUnavailable = errors.New("task store unavailable")

	// ErrStoreRejected is returned when the backend refuses the payload
	ErrStoreRejected = errors.New("task store rejected the write")

	// ErrInvalidOrder is returned by Subscribe for an unsupported order field
	ErrInvalidOrder = errors.New("unsupported order field")
)
