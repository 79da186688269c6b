package services

// Error taxonomy returned by the session core. All of these are expected,
// recoverable outcomes; only StorageError indicates an infrastructure
// failure. Handlers map each type to an HTTP status in one place.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type InvalidStateError struct{ Message string }

func (e *InvalidStateError) Error() string { return e.Message }

type CapacityError struct{ Message string }

func (e *CapacityError) Error() string { return e.Message }

// StorageError wraps a durable-store failure (timeout, connection loss).
// The core does not retry; retry policy belongs to the store.
type StorageError struct{ Err error }

func (e *StorageError) Error() string { return "storage unavailable: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }
