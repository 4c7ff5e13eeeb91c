package inference

import (
	"fmt"
	"strings"
)

// validationError signals rejected metadata or input (400 mapping).
type validationError struct{ msgs []string }

func (e validationError) Error() string {
	return "validation failed: " + strings.Join(e.msgs, "; ")
}

// ErrValidation constructs a validationError from the collected messages.
func ErrValidation(msgs []string) error { return validationError{msgs: msgs} }

// IsValidation reports whether err indicates a failed validation.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// notLoadedError signals a model id with no resident handle (404 mapping).
type notLoadedError struct{ id string }

func (e notLoadedError) Error() string { return "model not loaded: " + e.id }

// ErrNotLoaded returns an error for a model id that is not in the cache.
func ErrNotLoaded(id string) error { return notLoadedError{id: id} }

// IsNotLoaded reports whether err indicates a missing resident model.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

// loadError signals that a model file could not be opened or its format
// could not be handled. Recoverable per-request but worth alerting on,
// since it may indicate a systemic storage problem.
type loadError struct {
	id    string
	cause error
}

func (e loadError) Error() string { return fmt.Sprintf("load %s: %v", e.id, e.cause) }
func (e loadError) Unwrap() error { return e.cause }

// ErrLoad wraps cause as a load failure for the given model id.
func ErrLoad(id string, cause error) error { return loadError{id: id, cause: cause} }

// IsLoad reports whether err indicates a model load failure.
func IsLoad(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// unsupportedFormatError signals a format tag with no execution path.
// Fatal for the request; retrying cannot help.
type unsupportedFormatError struct{ format string }

func (e unsupportedFormatError) Error() string { return "unsupported model format: " + e.format }

// ErrUnsupportedFormat returns an error for an unrecognized format tag.
func ErrUnsupportedFormat(format string) error { return unsupportedFormatError{format: format} }

// IsUnsupportedFormat reports whether err indicates an unrecognized format.
func IsUnsupportedFormat(err error) bool {
	_, ok := err.(unsupportedFormatError)
	return ok
}

// predictionError signals a failure inside a format-specific executor.
type predictionError struct {
	id    string
	cause error
}

func (e predictionError) Error() string { return fmt.Sprintf("prediction %s: %v", e.id, e.cause) }
func (e predictionError) Unwrap() error { return e.cause }

// ErrPrediction wraps cause as an execution failure for the given model id.
func ErrPrediction(id string, cause error) error { return predictionError{id: id, cause: cause} }

// IsPrediction reports whether err indicates an executor failure.
func IsPrediction(err error) bool {
	_, ok := err.(predictionError)
	return ok
}

// tooBusyError signals admission timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// ErrTooBusy returns a backpressure error for the given model id.
func ErrTooBusy(id string) error { return tooBusyError{modelID: id} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// timeoutError signals the bounded execution timeout expired (408 mapping).
type timeoutError struct{ modelID string }

func (e timeoutError) Error() string { return "execution timed out: " + e.modelID }

// ErrExecTimeout returns a timeout error for the given model id.
func ErrExecTimeout(id string) error { return timeoutError{modelID: id} }

// IsExecTimeout reports whether err indicates an execution timeout.
func IsExecTimeout(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}
