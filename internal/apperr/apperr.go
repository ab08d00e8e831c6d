// Package apperr defines the error categories surfaced to the user.
//
//	FatalError – the model or label map could not be made available. The
//	             web surface stops offering the uploader; the CLI exits 1.
//	InputError – the uploaded file is not a usable image. Only the current
//	             interaction fails; the user may retry with another file.
//
// Everything else is a plain Go error propagated with
// fmt.Errorf("context: %w", err).
package apperr

import (
	"errors"
	"fmt"
)

// FatalError marks a startup failure that no further interaction can recover.
type FatalError struct {
	Message string
	Cause   error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FatalError) Unwrap() error { return e.Cause }

// Fatal wraps cause as a FatalError.
func Fatal(msg string, cause error) error {
	return &FatalError{Message: msg, Cause: cause}
}

// InputError is caused by a file the user supplied.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InputError) Unwrap() error { return e.Cause }

// Input wraps cause as an InputError.
func Input(msg string, cause error) error {
	return &InputError{Message: msg, Cause: cause}
}

// Inputf creates a formatted InputError without a cause.
func Inputf(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is (or wraps) a *FatalError.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// IsInput reports whether err is (or wraps) an *InputError.
func IsInput(err error) bool {
	var in *InputError
	return errors.As(err, &in)
}
