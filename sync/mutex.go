// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"time"

	"github.com/pkg/errors"
)

// MutexStateSize is the number of bytes a mutex occupies in shared memory.
const MutexStateSize = 8

// Mutex is an exclusive interprocess lock, whose state lives in a
// caller-supplied byte block inside a shared memory region.
type Mutex struct {
	*mutex
}

var (
	_ TimedIPCLocker = (*Mutex)(nil)
)

// NewMutex returns a mutex over the given state block.
//	state - the primitive's bytes inside the shared region,
//		at least MutexStateSize long.
//	name - a unique name of the primitive. it is used on the platforms,
//		where locking is done via named kernel objects.
func NewMutex(state []byte, name string) (*Mutex, error) {
	if len(state) < MutexStateSize {
		return nil, errors.Errorf("mutex state needs %d bytes, got %d", MutexStateSize, len(state))
	}
	impl, err := newMutex(state, name)
	if err != nil {
		return nil, err
	}
	return &Mutex{impl}, nil
}

// Init writes the unlocked state into the mutex's memory location.
// It must be called exactly once, by the creator of the region.
func (m *Mutex) Init() {
	m.mutex.init()
}

// Lock locks m. If the lock is already in use, the calling goroutine
// blocks until the mutex is available. Lock panics on any error.
func (m *Mutex) Lock() {
	m.mutex.lock()
}

// TryLock makes one attempt to lock m. It returns true on success.
func (m *Mutex) TryLock() bool {
	return m.mutex.tryLock()
}

// LockTimeout tries to lock m, waiting for not more, than timeout.
func (m *Mutex) LockTimeout(timeout time.Duration) bool {
	return m.mutex.lockTimeout(timeout)
}

// Unlock releases m. It panics on an error, or if m is not locked.
func (m *Mutex) Unlock() {
	m.mutex.unlock()
}

// Close releases the process-local resources of the mutex.
// The state in the region stays valid for other processes.
func (m *Mutex) Close() error {
	return m.mutex.close()
}
