package attendance

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindInvalidState
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindInvalidState:
		return "invalid state"
	case KindNotFound:
		return "not found"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Error is returned by every Engine operation. Only KindStore is worth
// retrying, and only by the caller: the engine never retries.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStore         = &Error{Kind: KindStore}
)

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Msg == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, ErrNotFound) works for any not-found
// error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func validationErr(op string, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func authorizationErr(op string, format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func invalidStateErr(op string, format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func notFoundErr(op string, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// storeErr wraps err as a store failure unless it already carries a kind,
// which happens when a domain check fails inside a transaction.
func storeErr(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStore, Op: op, Err: err}
}
