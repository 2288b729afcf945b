// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"sync/atomic"
	"time"

	"github.com/nxgtw/go-shmem/internal/allocator"
)

const (
	cBusyEventUnsignaled = uint32(0)
	cBusyEventSignaled   = uint32(1)
)

// busyEvent keeps the signaled state in a plain atomic flag, which
// waiters poll with a bounded backoff. It never enters a kernel wait,
// so it works on every platform the region itself works on.
type busyEvent struct {
	state *uint32
}

func newBusyEvent(state []byte) *busyEvent {
	return &busyEvent{state: (*uint32)(allocator.ByteSliceData(state))}
}

func (e *busyEvent) init(signaled bool) {
	value := cBusyEventUnsignaled
	if signaled {
		value = cBusyEventSignaled
	}
	atomic.StoreUint32(e.state, value)
}

func (e *busyEvent) set() {
	atomic.StoreUint32(e.state, cBusyEventSignaled)
}

func (e *busyEvent) clear() {
	atomic.StoreUint32(e.state, cBusyEventUnsignaled)
}

func (e *busyEvent) wait() {
	if !e.waitTimeout(-1) {
		panic("unexpected timeout of an infinite wait")
	}
}

func (e *busyEvent) waitTimeout(timeout time.Duration) bool {
	return poll(e.tryWait, timeout) == nil
}

func (e *busyEvent) tryWait() bool {
	return atomic.LoadUint32(e.state) == cBusyEventSignaled
}

func (e *busyEvent) close() error {
	return nil
}
