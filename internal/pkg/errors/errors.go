package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDuplicateSubmission is returned when a student already answered an activity.
	ErrDuplicateSubmission = errors.New("response already submitted")
	// ErrNotModifiable is returned when editing a locked activity.
	ErrNotModifiable = errors.New("activity is not modifiable")
	// ErrMockContent marks a non-authoritative collaborator response.
	ErrMockContent = errors.New("collaborator returned mock content")
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindProcessing   Kind = "processing"
	KindCollaborator Kind = "collaborator"
	KindCache        Kind = "cache"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error carries a taxonomy kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))}
}

func NotFound(op string, what string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%s %w", what, ErrNotFound)}
}

func Processing(op string, err error) error {
	return &Error{Kind: KindProcessing, Op: op, Err: err}
}

func Collaborator(op string, err error) error {
	return &Error{Kind: KindCollaborator, Op: op, Err: err}
}

func Cache(op string, err error) error {
	return &Error{Kind: KindCache, Op: op, Err: err}
}

func Conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Retryable reports whether a job that failed with err may be claimed again.
// Validation and processing failures need a new upload, not another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindValidation, KindProcessing, KindNotFound, KindConflict:
		return false
	default:
		return true
	}
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
