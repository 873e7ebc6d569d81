package lib

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout = errors.New("timeout")
)

// WrapError attaches child to parent so that errors.Is matches both of them,
// the resulting message reads "parent: child"
func WrapError(parent error, child error) error {
	return &wrappedError{parent: parent, child: child}
}

type wrappedError struct {
	parent error
	child  error
}

func (e *wrappedError) Error() string {
	if e.child == nil {
		return e.parent.Error()
	}
	return fmt.Sprintf("%s: %s", e.parent, e.child)
}

func (e *wrappedError) Unwrap() []error {
	if e.child == nil {
		return []error{e.parent}
	}
	return []error{e.parent, e.child}
}
