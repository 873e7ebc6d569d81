package lib

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexUnlockOfUnlocked(t *testing.T) {
	m := NewMutex()

	m.Lock()
	m.Unlock()
	m.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	require.NoError(t, m.LockCtx(ctx), "unlock of unlocked mutex should not block")
}

func TestMutexCtx(t *testing.T) {
	m := NewMutex()
	timeout := time.Millisecond * 40
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	m.Lock()
	err := m.LockCtx(ctx)
	require.ErrorIsf(t, err, context.DeadlineExceeded, "locked mutex should timeout")

	m.Unlock()
	err = m.LockCtx(context.Background())
	require.NoErrorf(t, err, "unlocked mutex should not return error")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	require.NoError(t, k.LockCtx(ctx, "creator"))
	require.NoError(t, k.LockCtx(ctx, "counterparty"), "other key must not be blocked")

	err := k.LockCtx(ctx, "creator")
	require.ErrorIs(t, err, context.DeadlineExceeded, "same key must wait for unlock")

	k.Unlock("creator")
	require.NoError(t, k.LockCtx(context.Background(), "creator"))
}
