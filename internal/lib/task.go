package lib

import (
	"context"
	"errors"
	"sync"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"go.uber.org/atomic"
)

// Task runs a Runnable in a separate goroutine that can be started and stopped
type Task struct {
	runFunc func(ctx context.Context) error
	name    string

	isRunning atomic.Bool
	err       atomic.Error
	mutex     sync.Mutex
	cancel    context.CancelFunc
	stopCh    chan struct{}
	doneCh    chan struct{}

	log interfaces.ILogger
}

func NewTask(name string, runnable interfaces.Runnable, log interfaces.ILogger) *Task {
	return NewTaskFunc(name, runnable.Run, log)
}

func NewTaskFunc(name string, f func(ctx context.Context) error, log interfaces.ILogger) *Task {
	return &Task{
		runFunc: f,
		name:    name,
		doneCh:  make(chan struct{}),
		log:     log,
	}
}

func (s *Task) Start(ctx context.Context) {
	if !s.isRunning.CAS(false, true) {
		panic("already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})

	s.mutex.Lock()
	s.cancel = cancel
	s.stopCh = stopCh
	s.mutex.Unlock()

	go func() {
		err := s.runFunc(subCtx)
		isContextErr := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)

		// returned due to calling Stop()
		if ctx.Err() == nil && subCtx.Err() != nil && isContextErr {
			s.log.Debugf("task %s stopped", s.name)
			close(stopCh)
			return
		}

		if ctx.Err() != nil {
			s.log.Debugf("task %s exited, parent context is done", s.name)
		} else {
			s.log.Warnf("task %s exited: %s", s.name, err)
		}
		s.err.Store(err)
		close(s.doneCh)
		close(stopCh)
	}()
}

// Stop cancels the task, the returned channel is closed when it returned
func (s *Task) Stop() <-chan struct{} {
	if !s.isRunning.CAS(true, false) {
		closedChan := make(chan struct{})
		close(closedChan)
		return closedChan
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cancel()
	return s.stopCh
}

// Done returns a channel that's closed when task exited or cancelled from outside using context
// When Stop called done is not closed
func (s *Task) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns error that caused routine to exit
func (s *Task) Err() error {
	return s.err.Load()
}
