package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for HTTP status mapping at the
// transport edge. The engine never returns a bare error for anything
// the caller needs to branch on; it always returns one of these kinds.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindDuplicatePlate  ErrorKind = "DUPLICATE_PLATE"
	KindStateConflict   ErrorKind = "STATE_CONFLICT"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindTimeout         ErrorKind = "TIMEOUT"
	KindInternal        ErrorKind = "INTERNAL"
)

// Error is the typed error every QueueEngine operation returns on failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	// TurnNumber is populated on DUPLICATE_PLATE so the caller can tell the
	// customer which turn already holds their plate.
	TurnNumber int
	// Err wraps the underlying cause, if any (e.g. a driver error for INTERNAL).
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NewDuplicatePlateError(turnNumber int) *Error {
	return &Error{Kind: KindDuplicatePlate, Msg: "a non-terminal turn already exists for this plate", TurnNumber: turnNumber}
}

// KindOf extracts the ErrorKind from err, defaulting to INTERNAL for
// anything the engine did not produce itself.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrWorkshopNotFound = NewError(KindNotFound, "workshop not found")
	ErrTurnNotFound     = NewError(KindNotFound, "turn not found")
	ErrPlateRequired    = NewError(KindValidation, "plate is required")
	ErrPlateMismatch    = NewError(KindForbidden, "presented plate does not match the turn's plate")
)
