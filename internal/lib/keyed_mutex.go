package lib

import (
	"context"
	"sync"
)

// KeyedMutex hands out one Mutex per key, e.g. per sender address
type KeyedMutex struct {
	mutexes map[string]*Mutex
	mu      sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{mutexes: make(map[string]*Mutex)}
}

func (k *KeyedMutex) get(key string) *Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.mutexes[key]
	if !ok {
		mutex := NewMutex()
		m = &mutex
		k.mutexes[key] = m
	}
	return m
}

func (k *KeyedMutex) LockCtx(ctx context.Context, key string) error {
	return k.get(key).LockCtx(ctx)
}

func (k *KeyedMutex) Unlock(key string) {
	k.get(key).Unlock()
}
