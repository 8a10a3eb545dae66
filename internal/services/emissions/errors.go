package emissions

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity indicates a negative, non-finite or otherwise unusable quantity
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrMissingField indicates a field required by the activity type was not supplied
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownActivityType indicates the dispatcher was given an unsupported activity type
	ErrUnknownActivityType = errors.New("unknown activity type")

	// ErrRemoteNotConfigured is returned by a remote client that has no credential
	ErrRemoteNotConfigured = errors.New("remote estimator not configured")
	// ErrMalformedResponse indicates the remote service answered without a usable co2e figure
	ErrMalformedResponse = errors.New("malformed remote estimate response")
)

// FieldError describes a caller error tied to a single input field
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RemoteStatusError is returned when the remote service answers with a non-2xx status
type RemoteStatusError struct {
	StatusCode int
	Body       string
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("remote estimator returned status %d: %s", e.StatusCode, e.Body)
}

// IsValidationError reports whether err is a caller-visible input error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownActivityType)
}
