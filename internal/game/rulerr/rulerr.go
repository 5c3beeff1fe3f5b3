// Package rulerr defines the typed errors the rules engine reports.
// Every failure is scoped to the action that caused it; none are fatal
// to the process.
package rulerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable rules-error code.
type Code string

const (
	// CodeIllegalAction covers wrong zone, wrong timing, and wrong
	// phase/priority-holder failures.
	CodeIllegalAction Code = "ILLEGAL_ACTION"
	// CodeLimitExceeded covers per-turn caps such as the land limit.
	CodeLimitExceeded Code = "LIMIT_EXCEEDED"
	// CodeInvalidTarget covers targets that are illegal when chosen or
	// no longer legal at resolution.
	CodeInvalidTarget Code = "INVALID_TARGET"
	// CodeCannotPayCost covers failed mana or tap payments.
	CodeCannotPayCost Code = "CANNOT_PAY_COST"
	// CodeUnknownEffect covers effect descriptors outside the engine's
	// vocabulary (card-data gap).
	CodeUnknownEffect Code = "UNKNOWN_EFFECT"
	// CodeUnknownToken covers token templates the card-data collaborator
	// cannot resolve.
	CodeUnknownToken Code = "UNKNOWN_TOKEN"
	// CodeGameAlreadyOver covers actions submitted after the game ended.
	CodeGameAlreadyOver Code = "GAME_ALREADY_OVER"
	// CodeZoneMismatch covers zone moves whose from-zone does not match
	// the card's current zone.
	CodeZoneMismatch Code = "ZONE_MISMATCH"
)

// Error is the rules-engine error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable reason, echoed to the acting player
	Metadata map[string]string // Additional context (card id, zone, cost, ...)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a rules error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a rules error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithMetadata attaches one key/value pair of structured context and
// returns the error for chaining.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[key] = value
	return e
}

// Wrap creates a rules error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is matching by code. The Is method compares codes,
// so errors.Is(err, ErrIllegalAction) matches any ILLEGAL_ACTION error
// regardless of message.
var (
	ErrIllegalAction   = New(CodeIllegalAction, "action is not legal")
	ErrLimitExceeded   = New(CodeLimitExceeded, "per-turn limit exceeded")
	ErrInvalidTarget   = New(CodeInvalidTarget, "target is not legal")
	ErrCannotPayCost   = New(CodeCannotPayCost, "cost cannot be paid")
	ErrUnknownEffect   = New(CodeUnknownEffect, "effect descriptor not recognized")
	ErrUnknownToken    = New(CodeUnknownToken, "token template not resolvable")
	ErrGameAlreadyOver = New(CodeGameAlreadyOver, "game is already over")
	ErrZoneMismatch    = New(CodeZoneMismatch, "card is not in the expected zone")
)

// CodeOf extracts the rules-error code from err, traversing wrapped
// chains. It returns the empty code if err is not a rules error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err is a rules error with the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
