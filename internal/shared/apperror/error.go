package apperror

import "fmt"

// AppError is the one error type handlers know how to render. The code and
// HTTP status travel with the error so the transport layer never guesses.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    any   // structured payload surfaced in the response body
	Err        error // wrapped cause (optional)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap makes errors.Is/As see through the wrapper.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying the detail payload. The receiver stays
// untouched so package-level sentinels remain safe to share.
func (e *AppError) WithDetails(details any) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// New creates an AppError without a wrapped cause.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap creates an AppError around an existing error.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}
