// Package errorsx provides helpers for wrapping, combining, and logging errors.
package errorsx

import (
	"log"

	"github.com/pkg/errors"
)

// String constant error type, allows declaring sentinel errors as constants.
type String string

func (t String) Error() string {
	return string(t)
}

func New(msg string) error {
	return errors.New(msg)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Wrap annotates the cause, nil causes result in nil.
func Wrap(cause error, msg string) error {
	return errors.Wrap(cause, msg)
}

// Wrapf annotates the cause with the formatted message, nil causes result in nil.
func Wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

// Compact returns the first error in the set, if any.
func Compact(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// Log the error if not nil. useful for ignoring errors that
// have no impact on the program but are useful to record.
func Log(err error) {
	if err == nil {
		return
	}

	_ = log.Output(2, err.Error())
}

// Zero returns the zero value of T when an error occurs.
// useful for inline use of functions that can only fail in
// situations where the fallback is acceptable.
func Zero[T any](v T, err error) T {
	if err != nil {
		var zero T
		return zero
	}

	return v
}

// Must panics if err is non-nil. reserved for programmer errors
// detected during initialization.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}
