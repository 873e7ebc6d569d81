package terms

import (
	"errors"
	"fmt"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
)

var (
	ErrMalformedTerms = errors.New("malformed terms")
)

// FieldError points at the term that failed validation
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

func malformed(field string, reason string, args ...interface{}) error {
	return lib.WrapError(ErrMalformedTerms, &FieldError{Field: field, Reason: fmt.Sprintf(reason, args...)})
}
