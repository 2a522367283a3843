package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// RepositoryError reports a failure of the backing store. It is never retried automatically.
type RepositoryError struct {
	Op  string
	Err error
}

func NewRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RepositoryError{Op: op, Err: err}
}

func (err *RepositoryError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *RepositoryError) Unwrap() error { return err.Err }

// RenderingError reports a QR/PDF generation failure.
// Succeeded and Total are set for batches that made partial progress.
type RenderingError struct {
	What      string // "card" | "report"
	Succeeded int
	Total     int
	Err       error
}

func (err *RenderingError) Error() string {
	msg := "could not generate " + err.What
	if err.Total > 0 {
		msg = fmt.Sprintf("%s: generated %d of %d", msg, err.Succeeded, err.Total)
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *RenderingError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
