// Package errs is the error vocabulary shared by the catalog, the ledger and
// the HTTP layer. Every failure carries the operation that produced it and a
// Kind that callers branch on.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind uint8

const (
	Other Kind = iota
	NotFound
	Conflict
	Forbidden
	InvalidInput
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case InvalidInput:
		return "invalid_input"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the response status used by handlers.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	case InvalidInput:
		return http.StatusBadRequest
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case NotFound:
		return ErrNotFound
	case Conflict:
		return ErrConflict
	case Forbidden:
		return ErrForbidden
	case InvalidInput:
		return ErrInvalidInput
	case Unavailable:
		return ErrUnavailable
	default:
		return nil
	}
}

// Error is an operation failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, errs.ErrNotFound) match on kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// E builds an *Error. If err already carries a kind and kind is Other, the
// inner kind is kept.
func E(op string, kind Kind, err error) error {
	if kind == Other {
		kind = KindOf(err)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Errorf builds an *Error with a formatted message.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return Other
		}
		if e.Kind != Other {
			return e.Kind
		}
		err = e.Err
	}
	return Other
}

// Op returns the operation of the outermost *Error in the chain.
func Op(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Message returns the innermost human readable message for err.
func Message(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Err == nil {
			return e.Kind.String()
		}
		err = e.Err
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
