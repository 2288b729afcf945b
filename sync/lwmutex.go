// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmem/internal/common"
)

const (
	cLwMutexSpinCount         = 100
	cLwMutexUnlocked          = uint32(0)
	cLwMutexLockedNoWaiters   = uint32(1)
	cLwMutexLockedHaveWaiters = uint32(2)
)

// lwMutex is a lightweight mutex implementation operating on a uint32
// memory cell. It tries to minimize the amount of syscalls needed to do
// locking. Actual sleeping must be implemented by a waitWaker object.
type lwMutex struct {
	ptr *uint32
	ww  waitWaker
}

func newLightweightMutex(ptr unsafe.Pointer, ww waitWaker) *lwMutex {
	return &lwMutex{ptr: (*uint32)(ptr), ww: ww}
}

// init writes the initial value into the mutex's memory location.
func (lwm *lwMutex) init() {
	atomic.StoreUint32(lwm.ptr, cLwMutexUnlocked)
}

func (lwm *lwMutex) lock() {
	if err := lwm.doLock(-1); err != nil {
		panic(err)
	}
}

func (lwm *lwMutex) tryLock() bool {
	return atomic.CompareAndSwapUint32(lwm.ptr, cLwMutexUnlocked, cLwMutexLockedNoWaiters)
}

func (lwm *lwMutex) lockTimeout(timeout time.Duration) bool {
	err := lwm.doLock(timeout)
	if err == nil {
		return true
	}
	if common.IsTimeoutErr(err) {
		return false
	}
	panic(err)
}

func (lwm *lwMutex) doLock(timeout time.Duration) error {
	for i := 0; i < cLwMutexSpinCount; i++ {
		if atomic.CompareAndSwapUint32(lwm.ptr, cLwMutexUnlocked, cLwMutexLockedNoWaiters) {
			return nil
		}
	}
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	old := atomic.LoadUint32(lwm.ptr)
	if old != cLwMutexLockedHaveWaiters {
		old = atomic.SwapUint32(lwm.ptr, cLwMutexLockedHaveWaiters)
	}
	for old != cLwMutexUnlocked {
		wait := time.Duration(-1)
		if timeout >= 0 {
			if wait = time.Until(deadline); wait < 0 {
				return errPollTimeout
			}
		}
		if err := lwm.ww.wait(cLwMutexLockedHaveWaiters, wait); err != nil {
			return err
		}
		old = atomic.SwapUint32(lwm.ptr, cLwMutexLockedHaveWaiters)
	}
	return nil
}

func (lwm *lwMutex) unlock() {
	if old := atomic.LoadUint32(lwm.ptr); old == cLwMutexLockedHaveWaiters {
		atomic.StoreUint32(lwm.ptr, cLwMutexUnlocked)
	} else {
		if old == cLwMutexUnlocked {
			panic("unlock of unlocked mutex")
		}
		if atomic.SwapUint32(lwm.ptr, cLwMutexUnlocked) == cLwMutexLockedNoWaiters {
			return
		}
	}
	for i := 0; i < cLwMutexSpinCount; i++ {
		if atomic.LoadUint32(lwm.ptr) != cLwMutexUnlocked {
			if atomic.CompareAndSwapUint32(lwm.ptr, cLwMutexLockedNoWaiters, cLwMutexLockedHaveWaiters) {
				return
			}
		}
	}
	lwm.ww.wake(1)
}
