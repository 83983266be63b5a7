package logs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable, machine-readable failure identifier surfaced to
// clients. Callers must branch on codes, never on message text.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeNotFound            Code = "not_found"
	CodeNotUndoable         Code = "not_undoable"
	CodeAlreadyUndone       Code = "already_undone"
	CodeWindowExpired       Code = "undo_window_expired"
	CodeUndoUnsupported     Code = "undo_not_supported"
	CodeOrderNotCancellable Code = "order_not_cancellable"
	CodeStorage             Code = "storage_error"
)

// Error is the engine's error type. Storage failures wrap the underlying
// cause; expected outcomes (validation, conflicts) carry only code + message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func storageError(op string, err error) *Error {
	return &Error{Code: CodeStorage, Message: op, Err: err}
}

// CodeOf extracts the stable code from err. Unknown errors count as storage
// failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotUndoable, CodeAlreadyUndone, CodeWindowExpired, CodeUndoUnsupported, CodeOrderNotCancellable:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
