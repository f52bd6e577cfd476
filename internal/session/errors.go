package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidStep is returned when an operation is not allowed on the current step.
	ErrInvalidStep = errors.New("operation not allowed on current step")
	// ErrInvalidState is returned when the recording state does not allow an operation.
	ErrInvalidState = errors.New("operation not allowed in current recording state")
	// ErrBusy is returned while a conflicting operation is still in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrSuperseded is returned when the session moved on before an operation completed.
	ErrSuperseded = errors.New("session changed before operation completed")
	// ErrClosed is returned for any operation on a closed wizard.
	ErrClosed = errors.New("session closed")
)

// FieldError describes one missing or invalid metadata field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when the info step is submitted incomplete.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}

	return "please fill in all fields: " + strings.Join(names, ", ")
}

// Has reports whether field is among the failing fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}

	return false
}

// PermissionError is returned when microphone access could not be obtained.
// The user may retry.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone access failed: %v", e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// UploadError is returned when the upload sink rejected a recording.
// The recording stays intact so the submit can be retried.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
