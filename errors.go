package deck

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request, message or slide failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the requested slide, chat or infographic does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an entity with the same id already exists.
	ErrConflict = errors.New("conflict")

	// ErrBusy indicates a turn is already running for the session.
	ErrBusy = errors.New("turn in progress")

	// ErrStreamNotReady indicates Message() was called before Next().
	ErrStreamNotReady = errors.New("stream not ready: call Next() first")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")
)
