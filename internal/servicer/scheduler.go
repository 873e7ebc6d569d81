package servicer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gammazero/deque"
)

// Scheduler services assets one at a time in FIFO order. An asset goes back to the queue after
// a settled cycle or an obligation that is not due yet, a failed asset leaves the queue since
// progression is never retried blindly.
type Scheduler struct {
	// config
	interval time.Duration
	payers   []signer.Identity
	parties  lib.Set[common.Address]

	// state
	queue  *deque.Deque[common.Hash]
	queued lib.Set[common.Hash]
	mutex  sync.Mutex
	now    func() time.Time

	// deps
	servicer *Servicer
	log      interfaces.ILogger
}

func NewScheduler(servicer *Servicer, interval time.Duration, payers []signer.Identity, log interfaces.ILogger) *Scheduler {
	parties := lib.NewSet[common.Address]()
	for _, p := range payers {
		parties.Add(p.Address)
	}
	return &Scheduler{
		interval: interval,
		payers:   payers,
		parties:  parties,
		queue:    deque.New[common.Hash](),
		queued:   lib.NewSet[common.Hash](),
		now:      time.Now,
		servicer: servicer,
		log:      log,
	}
}

// Add enqueues the asset unless it is already queued
func (s *Scheduler) Add(assetID common.Hash) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.queued.Contains(assetID) {
		return
	}
	s.queued.Add(assetID)
	s.queue.PushBack(assetID)
	s.log.Infof("asset %s scheduled for servicing", assetID.Hex())
}

// IssuanceFeed reports assets issued on the ledger
type IssuanceFeed interface {
	WatchIssuedAssets(ctx context.Context, handler func(assetID common.Hash, creator common.Address, counterparty common.Address) error) error
}

// Follow schedules every asset issued from now on where one of the payers is a party.
// Blocks until the context is done or the feed fails.
func (s *Scheduler) Follow(ctx context.Context, feed IssuanceFeed) error {
	return feed.WatchIssuedAssets(ctx, func(assetID common.Hash, creator common.Address, counterparty common.Address) error {
		if !s.parties.Contains(creator) && !s.parties.Contains(counterparty) {
			s.log.Debugf("skipping asset %s of foreign parties", assetID.Hex())
			return nil
		}
		s.Add(assetID)
		return nil
	})
}

func (s *Scheduler) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infof("scheduler started, interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Infof("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		_, err := s.Tick(ctx)
		if err != nil && errors.Is(err, context.Canceled) {
			return err
		}
	}
}

// Tick services the asset at the front of the queue
func (s *Scheduler) Tick(ctx context.Context) (*Cycle, error) {
	assetID, ok := s.pop()
	if !ok {
		return nil, nil
	}

	c, err := s.servicer.DiscoverNext(ctx, assetID)
	if err != nil {
		s.log.Warnf("can't discover obligation of asset %s: %s", assetID.Hex(), err)
		s.Add(assetID)
		return nil, err
	}
	if c == nil {
		s.log.Infof("asset %s has no pending obligations, removed from schedule", assetID.Hex())
		return nil, nil
	}

	if due := time.Unix(int64(c.Obligation.Event.ScheduleTime), 0); due.After(s.now()) {
		s.log.Debugf("obligation of asset %s is due at %s", assetID.Hex(), due)
		s.Add(assetID)
		return nil, nil
	}

	err = s.servicer.Execute(ctx, c, s.payers...)
	if err != nil {
		s.log.Errorf("asset %s removed from schedule: %s", assetID.Hex(), err)
		return c, err
	}

	s.Add(assetID)
	return c, nil
}

func (s *Scheduler) pop() (common.Hash, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.queue.Len() == 0 {
		return common.Hash{}, false
	}
	assetID := s.queue.PopFront()
	s.queued.Remove(assetID)
	return assetID, true
}
