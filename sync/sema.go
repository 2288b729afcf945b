// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux || freebsd

package sync

import (
	"sync/atomic"
	"time"
	"unsafe"
)

// futexSema is a counting semaphore over a uint32 cell in shared memory.
// Unlike a bare futex, a post is never lost: the count accumulates and
// later waits consume it without sleeping.
type futexSema struct {
	f futex
}

func newFutexSema(ptr unsafe.Pointer) *futexSema {
	return &futexSema{f: futex{ptr: ptr}}
}

// init writes the initial count into the semaphore's memory cell.
func (s *futexSema) init(count uint32) {
	atomic.StoreUint32(s.f.addr(), count)
}

// wake posts count units and wakes up to count waiters.
// It implements the waitWaker interface.
func (s *futexSema) wake(count uint32) (int, error) {
	atomic.AddUint32(s.f.addr(), count)
	return s.f.wake(count)
}

// wait consumes one unit, sleeping while the count is zero.
// The value argument is unused, it exists to satisfy the waitWaker interface.
func (s *futexSema) wait(value uint32, timeout time.Duration) error {
	for {
		for {
			old := atomic.LoadUint32(s.f.addr())
			if old == 0 {
				break
			}
			if atomic.CompareAndSwapUint32(s.f.addr(), old, old-1) {
				return nil
			}
		}
		if err := s.f.wait(0, timeout); err != nil {
			return err
		}
	}
}
