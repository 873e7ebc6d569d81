package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func blockingTask(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTaskStop(t *testing.T) {
	task := NewTaskFunc("blocking", blockingTask, &LoggerMock{})
	task.Start(context.Background())

	select {
	case <-task.Stop():
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}

	select {
	case <-task.Done():
		t.Fatal("done must not be closed on stop")
	default:
	}
	require.NoError(t, task.Err())
}

func TestTaskParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewTaskFunc("blocking", blockingTask, &LoggerMock{})
	task.Start(ctx)
	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not exit")
	}
	require.ErrorIs(t, task.Err(), context.Canceled)
	<-task.Stop()
}

func TestTaskError(t *testing.T) {
	errFailed := errors.New("failed")
	task := NewTaskFunc("failing", func(ctx context.Context) error { return errFailed }, &LoggerMock{})
	task.Start(context.Background())

	<-task.Done()
	require.ErrorIs(t, task.Err(), errFailed)
}

func TestTaskStartTwicePanics(t *testing.T) {
	task := NewTaskFunc("blocking", blockingTask, &LoggerMock{})
	task.Start(context.Background())
	defer task.Stop()

	require.Panics(t, func() { task.Start(context.Background()) })
}
