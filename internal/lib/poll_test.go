package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollSucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Second, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestPollReturnsLastError(t *testing.T) {
	errNotYet := errors.New("not yet")
	err := Poll(context.Background(), 5*time.Millisecond, func() error {
		return errNotYet
	}, time.Millisecond)

	require.ErrorIs(t, err, errNotYet)
}

func TestWrapErrorMatchesBoth(t *testing.T) {
	parent := errors.New("parent")
	child := errors.New("child")
	err := WrapError(parent, child)

	require.ErrorIs(t, err, parent)
	require.ErrorIs(t, err, child)
	require.Equal(t, "parent: child", err.Error())
}
