package lib

import (
	"context"
)

// Mutex is a channel based mutex that can be acquired with a context
type Mutex struct {
	ch chan struct{}
}

func NewMutex() Mutex {
	return Mutex{ch: make(chan struct{}, 1)}
}

func (m *Mutex) Lock() {
	m.ch <- struct{}{}
}

// Unlock releases the mutex, unlocking of unlocked mutex is no-op
func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
	}
}

func (m *Mutex) LockCtx(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	default:
	}

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
