package response

import (
	"errors"
)

// Error is a domain error that knows the HTTP status it maps to and a
// stable machine-readable kind for clients.
type Error struct {
	Code int
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Kind == t.Kind
}

func NewError(code int, kind string, err string) error {
	return &Error{Code: code, Kind: kind, Err: errors.New(err)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) string {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Kind
	}
	return ""
}
