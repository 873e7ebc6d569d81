package order

import (
	"errors"
	"fmt"
)

var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrIncompleteOrder   = errors.New("incomplete order")
	ErrUnknownRole       = errors.New("unknown role")
)

// SlotError names the part of the order at fault
type SlotError struct {
	Slot   string
	Reason string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Slot, e.Reason)
}
