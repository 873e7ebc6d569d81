package servicer

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/asset"
	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/ledgermock"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func issueAsset(t *testing.T) (*ledgermock.Fixture, common.Hash) {
	ctx := context.Background()
	f, err := ledgermock.NewFixture(ctx, &lib.LoggerMock{})
	require.NoError(t, err)

	verified, err := f.VerifiedOrder(ctx)
	require.NoError(t, err)

	assetID, err := asset.NewIssuer(f.Ledger, &lib.LoggerMock{}).Issue(ctx, f.Creator, verified)
	require.NoError(t, err)
	return f, assetID
}

func TestServiceSettles(t *testing.T) {
	ctx := context.Background()
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})

	before, err := f.Ledger.BalanceOf(ctx, ledgermock.SettlementToken, f.Counterparty.Address)
	require.NoError(t, err)

	c, err := s.Service(ctx, assetID, f.Creator, f.Counterparty)
	require.NoError(t, err)
	require.Equal(t, StateSettled, c.State)
	require.Equal(t, engine.EventIED, c.Obligation.Event.Type)
	require.Equal(t, terms.MustParseDecimal(ledgermock.Notional).Big(), c.Obligation.Amount)
	require.Equal(t, f.Creator.Address, c.Obligation.Payer)
	require.NotNil(t, c.Allowance)
	require.NotNil(t, c.Progress)

	after, err := f.Ledger.BalanceOf(ctx, ledgermock.SettlementToken, f.Counterparty.Address)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Add(before, c.Obligation.Amount), after)

	next, err := s.DiscoverNext(ctx, assetID)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, engine.EventIP, next.Obligation.Event.Type)
	require.Equal(t, f.Counterparty.Address, next.Obligation.Payer)

	cycles := s.Cycles()
	require.Len(t, cycles, 1)
	require.Equal(t, c.ID, cycles[0].ID)

	settled, failed := s.Stats()
	require.Equal(t, uint64(1), settled)
	require.Equal(t, uint64(0), failed)
}

func TestStepwiseServicing(t *testing.T) {
	ctx := context.Background()
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})

	c, err := s.DiscoverNext(ctx, assetID)
	require.NoError(t, err)
	require.Equal(t, StateDiscovered, c.State)
	require.Equal(t, ledgermock.ActorAddress, c.Actor)

	_, err = s.GrantAllowance(ctx, f.Creator, c.Obligation.Token, c.Actor, c.Obligation.Amount)
	require.NoError(t, err)

	allowance, err := f.Ledger.Allowance(ctx, c.Obligation.Token, f.Creator.Address, c.Actor)
	require.NoError(t, err)
	require.Equal(t, c.Obligation.Amount, allowance)

	_, err = s.Progress(ctx, f.Creator, assetID)
	require.NoError(t, err)

	next, err := s.DiscoverNext(ctx, assetID)
	require.NoError(t, err)
	require.False(t, c.Obligation.Same(next.Obligation))
}

func TestProgressBeforeAllowanceFinalized(t *testing.T) {
	ctx := context.Background()
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})

	c, err := s.DiscoverNext(ctx, assetID)
	require.NoError(t, err)

	// submitted, not finalized
	approve, err := f.Ledger.Approve(ctx, f.Creator, c.Obligation.Token, c.Actor, c.Obligation.Amount)
	require.NoError(t, err)

	_, err = s.Progress(ctx, f.Creator, assetID)
	require.ErrorIs(t, err, ErrProgressionFailed)

	balance, err := f.Ledger.BalanceOf(ctx, c.Obligation.Token, f.Counterparty.Address)
	require.NoError(t, err)

	same, err := s.DiscoverNext(ctx, assetID)
	require.NoError(t, err)
	require.True(t, c.Obligation.Same(same.Obligation))

	_, err = f.Ledger.WaitFinalized(ctx, approve)
	require.NoError(t, err)

	_, err = s.Progress(ctx, f.Creator, assetID)
	require.NoError(t, err)

	after, err := f.Ledger.BalanceOf(ctx, c.Obligation.Token, f.Counterparty.Address)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Add(balance, c.Obligation.Amount), after)
}

func TestProgressWithoutAllowance(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})

	_, err := s.Progress(context.Background(), f.Creator, assetID)
	require.ErrorIs(t, err, ErrProgressionFailed)
}

func TestServiceTimeout(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})
	f.Ledger.HoldFinality()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c, err := s.Service(ctx, assetID, f.Creator)
	require.ErrorIs(t, err, lib.ErrTimeout)
	require.NotErrorIs(t, err, ErrProgressionFailed)
	require.Equal(t, StateFailed, c.State)
	require.ErrorIs(t, c.Err, lib.ErrTimeout)
	require.NotNil(t, c.Allowance)
	require.Nil(t, c.Progress)

	_, failed := s.Stats()
	require.Equal(t, uint64(1), failed)
}

func TestServiceUnknownPayer(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})

	c, err := s.Service(context.Background(), assetID, f.Counterparty)
	require.ErrorIs(t, err, ErrProgressionFailed)
	require.Equal(t, StateFailed, c.State)
	require.Nil(t, c.Allowance)

	require.ErrorIs(t, s.Execute(context.Background(), c, f.Creator), ErrInvalidTransition)
}

func TestCycleTransitions(t *testing.T) {
	c := newCycle(common.Hash{}, common.Address{}, &engine.Obligation{})

	require.ErrorIs(t, c.transition(StateProgressed), ErrInvalidTransition)
	require.NoError(t, c.transition(StateAllowanceGranted))
	require.ErrorIs(t, c.transition(StateSettled), ErrInvalidTransition)
	require.NoError(t, c.transition(StateProgressed))
	require.NoError(t, c.transition(StateSettled))
	require.ErrorIs(t, c.transition(StateFailed), ErrInvalidTransition)
	require.True(t, c.State.IsTerminal())
}

func TestSchedulerWaitsForDueDate(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})
	sched := NewScheduler(s, time.Second, nil, &lib.LoggerMock{})

	sched.Add(assetID)
	sched.Add(assetID)
	require.Equal(t, 1, sched.Len())

	// initial exchange is a day after the deal date
	c, err := sched.Tick(context.Background())
	require.NoError(t, err)
	require.Nil(t, c)
	require.Equal(t, 1, sched.Len())
	require.Empty(t, s.Cycles())
}

func TestSchedulerServicesDueObligations(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})
	sched := NewScheduler(s, time.Second, []signer.Identity{f.Creator, f.Counterparty}, &lib.LoggerMock{})
	sched.now = func() time.Time { return time.Now().AddDate(5, 0, 0) }

	sched.Add(assetID)
	for i := 0; i < 3; i++ {
		c, err := sched.Tick(context.Background())
		require.NoError(t, err)
		require.Equal(t, StateSettled, c.State)
		require.Equal(t, 1, sched.Len())
	}

	require.Len(t, s.Cycles(), 3)
}

func TestSchedulerDropsFailedAsset(t *testing.T) {
	f, assetID := issueAsset(t)
	s := NewServicer(f.Ledger, &lib.LoggerMock{})
	sched := NewScheduler(s, time.Second, nil, &lib.LoggerMock{})
	sched.now = func() time.Time { return time.Now().AddDate(5, 0, 0) }

	sched.Add(assetID)
	c, err := sched.Tick(context.Background())
	require.ErrorIs(t, err, ErrProgressionFailed)
	require.Equal(t, StateFailed, c.State)
	require.Equal(t, 0, sched.Len())
}

func TestSchedulerFollowsIssuance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, err := ledgermock.NewFixture(ctx, &lib.LoggerMock{})
	require.NoError(t, err)

	stranger, err := signer.IdentityFromMnemonic("test test test test test test test test test test test junk", 5)
	require.NoError(t, err)

	s := NewServicer(f.Ledger, &lib.LoggerMock{})
	ours := NewScheduler(s, time.Second, []signer.Identity{f.Creator, f.Counterparty}, &lib.LoggerMock{})
	ours.now = func() time.Time { return time.Now().AddDate(5, 0, 0) }
	foreign := NewScheduler(s, time.Second, []signer.Identity{stranger}, &lib.LoggerMock{})

	errCh := make(chan error, 2)
	go func() { errCh <- ours.Follow(ctx, f.Ledger) }()
	go func() { errCh <- foreign.Follow(ctx, f.Ledger) }()
	time.Sleep(50 * time.Millisecond)

	verified, err := f.VerifiedOrder(ctx)
	require.NoError(t, err)
	assetID, err := asset.NewIssuer(f.Ledger, &lib.LoggerMock{}).Issue(ctx, f.Creator, verified)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ours.Len() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 0, foreign.Len())

	c, err := ours.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, assetID, c.AssetID)
	require.Equal(t, StateSettled, c.State)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestCycleHistoryBounded(t *testing.T) {
	s := NewServicer(nil, &lib.LoggerMock{})

	var first *Cycle
	for i := 0; i < historySize+5; i++ {
		c := newCycle(common.HexToHash("0x01"), ledgermock.ActorAddress, &engine.Obligation{})
		if first == nil {
			first = c
		}
		require.NoError(t, s.record(c))
	}

	cycles := s.Cycles()
	require.Len(t, cycles, historySize)
	for _, c := range cycles {
		require.NotEqual(t, first.ID, c.ID, "oldest cycle should be evicted")
	}
}
