// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux || freebsd

package sync

import (
	"sync/atomic"
	"time"

	"github.com/nxgtw/go-shmem/internal/allocator"
	"github.com/nxgtw/go-shmem/internal/common"
)

const (
	cLwEventUnsignaled = uint32(0)
	cLwEventSignaled   = uint32(1)
)

// lwEvent is a lightweight event implementation operating on a uint32
// memory cell. It tries to minimize the amount of syscalls.
// Actual wait/wake is done by a futex on the same cell.
type lwEvent struct {
	state  *uint32
	manual bool
	ww     *futex
}

func newGenericEvent(state []byte, manual bool, name string) (*lwEvent, error) {
	ptr := allocator.ByteSliceData(state)
	return &lwEvent{state: (*uint32)(ptr), manual: manual, ww: &futex{ptr: ptr}}, nil
}

func (e *lwEvent) init(signaled bool) {
	value := cLwEventUnsignaled
	if signaled {
		value = cLwEventSignaled
	}
	atomic.StoreUint32(e.state, value)
}

func (e *lwEvent) set() {
	atomic.StoreUint32(e.state, cLwEventSignaled)
	if e.manual {
		e.ww.wakeAll()
	} else {
		e.ww.wake(1)
	}
}

func (e *lwEvent) clear() {
	atomic.StoreUint32(e.state, cLwEventUnsignaled)
}

func (e *lwEvent) wait() {
	if !e.waitTimeout(-1) {
		panic("unexpected timeout of an infinite wait")
	}
}

func (e *lwEvent) waitTimeout(timeout time.Duration) bool {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if e.tryWait() {
			return true
		}
		wait := time.Duration(-1)
		if timeout >= 0 {
			if wait = time.Until(deadline); wait < 0 {
				return false
			}
		}
		if err := e.ww.wait(cLwEventUnsignaled, wait); err != nil {
			if common.IsTimeoutErr(err) {
				return false
			}
			panic(err)
		}
	}
}

func (e *lwEvent) tryWait() bool {
	if e.manual {
		return atomic.LoadUint32(e.state) == cLwEventSignaled
	}
	return atomic.CompareAndSwapUint32(e.state, cLwEventSignaled, cLwEventUnsignaled)
}

func (e *lwEvent) close() error {
	return nil
}
