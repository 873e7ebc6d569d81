package servicer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/exp/slices"
)

const historySize = 100

var (
	ErrProgressionFailed = errors.New("asset progression failed")
	ErrAllowanceFailed   = errors.New("allowance grant failed")
)

type Ledger interface {
	NextObligation(ctx context.Context, assetID common.Hash) (*engine.Obligation, error)
	ActorAddress(ctx context.Context, assetID common.Hash) (common.Address, error)
	Approve(ctx context.Context, payer signer.Identity, token common.Address, spender common.Address, amount *big.Int) (*contracts.Submission, error)
	Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error)
	Progress(ctx context.Context, from signer.Identity, assetID common.Hash) (*contracts.Submission, error)
	contracts.Finalizer
}

// Servicer settles scheduled obligations of assets. Allowance grant and progression of an
// obligation are sent by the payer, progression is sent only after the grant is finalized.
type Servicer struct {
	// state
	history *lib.BoundStackMap[uuid.UUID, *Cycle]
	mutex   sync.Mutex
	settled atomic.Uint64
	failed  atomic.Uint64

	// deps
	ledger Ledger
	log    interfaces.ILogger
}

func NewServicer(ledger Ledger, log interfaces.ILogger) *Servicer {
	return &Servicer{
		history: lib.NewBoundStackMap[uuid.UUID, *Cycle](historySize),
		ledger:  ledger,
		log:     log,
	}
}

// DiscoverNext returns a cycle for the next obligation of the asset or nil if nothing is pending
func (s *Servicer) DiscoverNext(ctx context.Context, assetID common.Hash) (*Cycle, error) {
	ob, err := s.ledger.NextObligation(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if ob == nil {
		s.log.Debugf("asset %s has no pending obligation", assetID.Hex())
		return nil, nil
	}

	actor, err := s.ledger.ActorAddress(ctx, assetID)
	if err != nil {
		return nil, err
	}

	c := newCycle(assetID, actor, ob)
	s.log.Infof("discovered obligation of asset %s: %s", assetID.Hex(), ob)
	return c, nil
}

// GrantAllowance authorizes the spender to move amount of token on behalf of the payer and
// waits until the grant is finalized
func (s *Servicer) GrantAllowance(ctx context.Context, payer signer.Identity, token common.Address, spender common.Address, amount *big.Int) (*contracts.Submission, error) {
	s.log.Infof("granting allowance of %s token %s to %s from %s", amount, token.Hex(), spender.Hex(), payer)
	sub, err := s.ledger.Approve(ctx, payer, token, spender, amount)
	if err != nil {
		if errors.Is(err, contracts.ErrNotSubmitted) {
			return nil, err
		}
		return nil, lib.WrapError(ErrAllowanceFailed, err)
	}
	s.log.Infof("allowance submitted, pending: %s", sub)

	_, err = s.ledger.WaitFinalized(ctx, sub)
	if err != nil {
		if errors.Is(err, lib.ErrTimeout) {
			s.log.Warnf("allowance outcome unknown: %s", err)
			return sub, err
		}
		s.log.Errorf("allowance rejected: %s", err)
		return sub, lib.WrapError(ErrAllowanceFailed, err)
	}

	s.log.Infof("allowance confirmed: %s", sub)
	return sub, nil
}

// Progress advances the asset by settling its next obligation. The payer allowance has to be
// finalized already, otherwise nothing is submitted.
func (s *Servicer) Progress(ctx context.Context, from signer.Identity, assetID common.Hash) (*contracts.Submission, error) {
	ob, err := s.ledger.NextObligation(ctx, assetID)
	if err != nil {
		return nil, lib.WrapError(ErrProgressionFailed, err)
	}
	if ob == nil {
		return nil, lib.WrapError(ErrProgressionFailed, fmt.Errorf("asset %s has no pending obligation", assetID.Hex()))
	}

	actor, err := s.ledger.ActorAddress(ctx, assetID)
	if err != nil {
		return nil, lib.WrapError(ErrProgressionFailed, err)
	}

	allowance, err := s.ledger.Allowance(ctx, ob.Token, ob.Payer, actor)
	if err != nil {
		return nil, lib.WrapError(ErrProgressionFailed, err)
	}
	if allowance.Cmp(ob.Amount) < 0 {
		return nil, lib.WrapError(ErrProgressionFailed, fmt.Errorf("allowance of %s is %s, obligation needs %s", ob.Payer.Hex(), allowance, ob.Amount))
	}

	s.log.Infof("progressing asset %s", assetID.Hex())
	sub, err := s.ledger.Progress(ctx, from, assetID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotSubmitted) {
			return nil, err
		}
		return nil, lib.WrapError(ErrProgressionFailed, err)
	}
	s.log.Infof("progress submitted, pending: %s", sub)

	_, err = s.ledger.WaitFinalized(ctx, sub)
	if err != nil {
		if errors.Is(err, lib.ErrTimeout) {
			s.log.Warnf("progress outcome unknown, reconcile before retrying: %s", err)
			return sub, err
		}
		s.log.Errorf("progress rejected: %s", err)
		return sub, lib.WrapError(ErrProgressionFailed, err)
	}

	s.log.Infof("progress confirmed: %s", sub)
	return sub, nil
}

// Service runs a full cycle for the next obligation of the asset. The payer is picked among
// the given identities. Returns nil cycle if nothing is pending.
func (s *Servicer) Service(ctx context.Context, assetID common.Hash, payers ...signer.Identity) (*Cycle, error) {
	c, err := s.DiscoverNext(ctx, assetID)
	if err != nil || c == nil {
		return nil, err
	}
	return c, s.Execute(ctx, c, payers...)
}

// Execute drives a discovered cycle to a terminal state
func (s *Servicer) Execute(ctx context.Context, c *Cycle, payers ...signer.Identity) error {
	if err := s.record(c); err != nil {
		return err
	}

	err := s.execute(ctx, c, payers)
	if err != nil {
		s.failed.Inc()
		s.log.Errorf("%s: %s", c, err)
		return err
	}
	s.settled.Inc()
	s.log.Infof("%s", c)
	return nil
}

func (s *Servicer) execute(ctx context.Context, c *Cycle, payers []signer.Identity) error {
	ob := c.Obligation

	idx := slices.IndexFunc(payers, func(id signer.Identity) bool { return id.Address == ob.Payer })
	if idx < 0 {
		return s.advance(c, StateFailed, lib.WrapError(ErrProgressionFailed, fmt.Errorf("no identity for payer %s", ob.Payer.Hex())), nil)
	}
	payer := payers[idx]

	sub, err := s.GrantAllowance(ctx, payer, ob.Token, c.Actor, ob.Amount)
	if err := s.advance(c, StateAllowanceGranted, err, func() { c.Allowance = sub }); err != nil {
		return err
	}

	sub, err = s.Progress(ctx, payer, c.AssetID)
	if err := s.advance(c, StateProgressed, err, func() { c.Progress = sub }); err != nil {
		return err
	}

	next, err := s.ledger.NextObligation(ctx, c.AssetID)
	if err == nil && next != nil && next.Same(ob) {
		err = lib.WrapError(ErrProgressionFailed, fmt.Errorf("obligation %s is still pending after progress", ob.Event))
	}
	return s.advance(c, StateSettled, err, nil)
}

// advance applies the outcome of a step to the cycle, a step error fails the cycle
func (s *Servicer) advance(c *Cycle, to State, stepErr error, apply func()) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if apply != nil {
		apply()
	}
	if stepErr != nil {
		return c.fail(stepErr)
	}
	if err := c.transition(to); err != nil {
		_ = c.fail(err)
		return err
	}
	return nil
}

func (s *Servicer) record(c *Cycle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if c.State != StateDiscovered {
		return fmt.Errorf("%w: cycle is %s", ErrInvalidTransition, c.State)
	}
	s.history.Push(c.ID, c)
	return nil
}

// Cycles returns snapshots of the recent cycles, oldest first
func (s *Servicer) Cycles() []Cycle {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cycles := make([]Cycle, 0, s.history.Count())
	for _, c := range s.history.Values() {
		cycles = append(cycles, *c)
	}
	slices.SortStableFunc(cycles, func(a, b Cycle) bool {
		return a.StartedAt.Before(b.StartedAt)
	})
	return cycles
}

func (s *Servicer) Stats() (settled uint64, failed uint64) {
	return s.settled.Load(), s.failed.Load()
}
