// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux || freebsd

package sync

import (
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nxgtw/go-shmem/internal/common"
)

const (
	cFutexWakeAll = math.MaxInt32
)

// futex performs wait/wake on a uint32 memory cell,
// which may be located in a shared memory region.
type futex struct {
	ptr unsafe.Pointer
}

func (w *futex) addr() *uint32 {
	return (*uint32)(w.ptr)
}

func (w *futex) load() uint32 {
	return atomic.LoadUint32(w.addr())
}

// wait suspends the caller until woken, as long as the cell holds 'value'.
// A value mismatch and an interrupted call both return nil, the caller
// is expected to re-check the cell in a loop.
func (w *futex) wait(value uint32, timeout time.Duration) error {
	err := futexWait(w.ptr, value, timeout)
	if err != nil && (common.SyscallErrHasCode(err, unix.EWOULDBLOCK) || common.IsInterruptedSyscallErr(err)) {
		return nil
	}
	return err
}

func (w *futex) wake(count uint32) (int, error) {
	return futexWake(w.ptr, count)
}

func (w *futex) wakeAll() (int, error) {
	return w.wake(cFutexWakeAll)
}
