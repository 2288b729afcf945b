// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// number of gosched iterations before the poller starts sleeping.
	cSpinYieldCount = 30
)

var errPollTimeout = os.NewSyscallError("wait", syscall.ETIMEDOUT)

// newSpinBackoff returns the sleep schedule for busy-wait loops.
// The intervals are kept in the microsecond range, so that a poller
// does not burn an entire core, while wakeup latency stays low.
func newSpinBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Microsecond
	b.MaxInterval = 100 * time.Microsecond
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// poll calls cond until it returns true or the timeout elapses.
// A negative timeout means 'wait forever'. This is a busy-wait loop:
// it trades idle CPU for portability and must only be used where no
// kernel wait primitive is available for the cell.
func poll(cond func() bool, timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for i := 0; i < cSpinYieldCount; i++ {
		if cond() {
			return nil
		}
		runtime.Gosched()
	}
	bo := newSpinBackoff()
	for !cond() {
		if timeout >= 0 && time.Now().After(deadline) {
			return errPollTimeout
		}
		time.Sleep(bo.NextBackOff())
	}
	return nil
}

// spinWaiter is a waitWaker, whose wait is a bounded-backoff poll of the
// cell and whose wake is a no-op. It backs the busy-wait mutex fallback
// on platforms without a cross-process kernel wait.
type spinWaiter struct {
	cell *uint32
}

func (s *spinWaiter) wake(count uint32) (int, error) {
	return int(count), nil
}

func (s *spinWaiter) wait(value uint32, timeout time.Duration) error {
	return poll(func() bool {
		return atomic.LoadUint32(s.cell) != value
	}, timeout)
}
