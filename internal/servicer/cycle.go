package servicer

import (
	"errors"
	"fmt"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid cycle state transition")

type State uint8

const (
	StateDiscovered State = iota
	StateAllowanceGranted
	StateProgressed
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateAllowanceGranted:
		return "AllowanceGranted"
	case StateProgressed:
		return "Progressed"
	case StateSettled:
		return "Settled"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) IsTerminal() bool {
	return s == StateSettled || s == StateFailed
}

// Cycle tracks the servicing of a single obligation
type Cycle struct {
	ID         uuid.UUID
	AssetID    common.Hash
	Actor      common.Address
	Obligation *engine.Obligation
	State      State
	Allowance  *contracts.Submission
	Progress   *contracts.Submission
	Err        error
	StartedAt  time.Time
	UpdatedAt  time.Time
}

func newCycle(assetID common.Hash, actor common.Address, ob *engine.Obligation) *Cycle {
	now := time.Now()
	return &Cycle{
		ID:         uuid.New(),
		AssetID:    assetID,
		Actor:      actor,
		Obligation: ob,
		State:      StateDiscovered,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

func (c *Cycle) transition(to State) error {
	valid := false
	switch to {
	case StateAllowanceGranted:
		valid = c.State == StateDiscovered
	case StateProgressed:
		valid = c.State == StateAllowanceGranted
	case StateSettled:
		valid = c.State == StateProgressed
	case StateFailed:
		valid = !c.State.IsTerminal()
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.State, to)
	}
	c.State = to
	c.UpdatedAt = time.Now()
	return nil
}

func (c *Cycle) fail(err error) error {
	if trErr := c.transition(StateFailed); trErr != nil {
		return trErr
	}
	c.Err = err
	return err
}

func (c *Cycle) String() string {
	return fmt.Sprintf("cycle %s asset %s %s", c.ID, c.AssetID.Hex(), c.State)
}
