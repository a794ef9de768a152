package service

import (
	"errors"
	"fmt"
)

const (
	// ErrInternalServerError means that an internal server error has occurred.
	ErrInternalServerError = "internal_server_error"
	// ErrEntityNotFound means that a record is absent in the record service.
	ErrEntityNotFound = "entity_not_found"
	// ErrBadParameter means that a provided parameter does not match what is declared.
	ErrBadParameter = "bad_parameter"
	// ErrNotAuthenticated means that the connection token is missing, invalid or expired.
	ErrNotAuthenticated = "not_authenticated"
	// ErrFatalAdmission means that a connection cannot be admitted: no instance record for
	// this process, or the user is not authorized to join it.
	ErrFatalAdmission = "fatal_admission"
	// ErrTransientRecord means that a record-service call failed and may succeed on retry.
	ErrTransientRecord = "transient_record"
	// ErrOrchestrationRace means that the orchestrator refused an operation on this game
	// server, typically allocate on an instance that already ended.
	ErrOrchestrationRace = "orchestration_race"
	// ErrConflict means that the entity already exists.
	ErrConflict = "conflict"
)

// MyError represents an error within the context of the instance server.
type MyError struct {
	// Code is a machine-readable code.
	Code string `json:"code,omitempty"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

// NewMyError creates a new MyError.
func NewMyError(code string, message string, inner error) *MyError {
	return &MyError{
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// newCoded keeps the code of an already classified inner error. The New*Error constructors built
// on it never reclassify; use NewMyError to replace the code of an inner MyError.
func newCoded(code, message string, inner error) *MyError {
	if myInner := ToMyError(inner); myInner != nil {
		return myInner
	}
	return NewMyError(code, message, inner)
}

func NewInternalServerError(message string, inner error) *MyError {
	return newCoded(ErrInternalServerError, message, inner)
}

func NewEntityNotFoundError(message string, inner error) *MyError {
	return newCoded(ErrEntityNotFound, message, inner)
}

func NewBadParameterError(message string, inner error) *MyError {
	return newCoded(ErrBadParameter, message, inner)
}

func NewNotAuthenticatedError(message string, inner error) *MyError {
	return newCoded(ErrNotAuthenticated, message, inner)
}

// NewFatalAdmissionError always carries the fatal_admission code, whatever inner was.
func NewFatalAdmissionError(message string, inner error) *MyError {
	return NewMyError(ErrFatalAdmission, message, inner)
}

func NewTransientRecordError(message string, inner error) *MyError {
	return newCoded(ErrTransientRecord, message, inner)
}

func NewOrchestrationRaceError(message string, inner error) *MyError {
	return newCoded(ErrOrchestrationRace, message, inner)
}

func NewConflictError(message string, inner error) *MyError {
	return newCoded(ErrConflict, message, inner)
}

func (e MyError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}

	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Unwrap the error returning the error's reason.
func (e MyError) Unwrap() error {
	return e.Inner
}

// ToMyError returns a pointer to an instance server error, or nil if it is not one.
func ToMyError(err error) *MyError {
	var e *MyError
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// ToMyErrorCode returns the code of the error, if available.
func ToMyErrorCode(err error) string {
	if myerror := ToMyError(err); myerror != nil {
		return myerror.Code
	}
	return ""
}

func IsMyError(err error, code string) bool {
	if myerror := ToMyError(err); myerror != nil {
		return myerror.Code == code
	}
	return false
}

func IsInternalServerError(err error) bool {
	return IsMyError(err, ErrInternalServerError)
}

func IsEntityNotFoundError(err error) bool {
	return IsMyError(err, ErrEntityNotFound)
}

func IsBadParameterError(err error) bool {
	return IsMyError(err, ErrBadParameter)
}

func IsNotAuthenticatedError(err error) bool {
	return IsMyError(err, ErrNotAuthenticated)
}

func IsFatalAdmissionError(err error) bool {
	return IsMyError(err, ErrFatalAdmission)
}

func IsTransientRecordError(err error) bool {
	return IsMyError(err, ErrTransientRecord)
}

func IsOrchestrationRaceError(err error) bool {
	return IsMyError(err, ErrOrchestrationRace)
}

func IsConflictError(err error) bool {
	return IsMyError(err, ErrConflict)
}
