package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific input field.
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
		return ""
	}
	return err.Err.Error()
}

// RemoteWriteError wraps a row store rejection of an upsert or delete.
// The in-memory snapshot is left untouched when it is raised.
type RemoteWriteError struct {
	Table string
	Err   error
}

func NewRemoteWriteError(table string, err error) error {
	return &RemoteWriteError{Table: table, Err: err}
}

func (err RemoteWriteError) Error() string {
	return "remote write to " + err.Table + " failed: " + err.Err.Error()
}

func (err RemoteWriteError) Unwrap() error { return err.Err }

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
