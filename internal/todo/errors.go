package todo

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindInternal
)

// Error is returned by the write path. Msg is safe to show to clients;
// Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

const (
	msgTitleRequired = "Title is required"
	msgInvalidID     = "Invalid todo ID"
	msgNotFound      = "Todo not found"
	msgOpFailed      = "Database operation failed"
	msgLoadFailed    = "Failed to load todos"
)

// StatusCode maps a write-path error to its HTTP status.
func StatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the client-facing text for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return msgOpFailed
}
