// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/sync"
)

// Mutex is an exclusive lock embedded in a region. A successful lock
// returns a write guard over the range of the user data the mutex guards.
type Mutex struct {
	m    *sync.Mutex
	data []byte
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() *WriteGuard {
	m.m.Lock()
	return newWriteGuard(m.data, m.m.Unlock)
}

// TryLock makes one attempt to acquire the mutex.
// It fails with ErrWouldBlock, if the mutex is held elsewhere.
func (m *Mutex) TryLock() (*WriteGuard, error) {
	if !m.m.TryLock() {
		return nil, errors.Wrap(ErrWouldBlock, "the mutex is held elsewhere")
	}
	return newWriteGuard(m.data, m.m.Unlock), nil
}

// LockTimeout waits for the mutex for not more, than timeout.
// It fails with ErrTimedOut, if the timeout elapsed first.
func (m *Mutex) LockTimeout(timeout time.Duration) (*WriteGuard, error) {
	if !m.m.LockTimeout(timeout) {
		return nil, errors.Wrapf(ErrTimedOut, "the mutex was not acquired within %v", timeout)
	}
	return newWriteGuard(m.data, m.m.Unlock), nil
}

// RWLock is a reader/writer lock embedded in a region. It can be held
// by any number of readers or one writer. Read locks return read
// guards, write locks return write guards over the guarded range.
type RWLock struct {
	rw   *sync.RWMutex
	data []byte
}

// Lock blocks until the lock is acquired exclusively.
func (l *RWLock) Lock() *WriteGuard {
	l.rw.Lock()
	return newWriteGuard(l.data, l.rw.Unlock)
}

// TryLock makes one attempt to acquire the lock exclusively.
// It fails with ErrWouldBlock, if any guard is outstanding.
func (l *RWLock) TryLock() (*WriteGuard, error) {
	if !l.rw.TryLock() {
		return nil, errors.Wrap(ErrWouldBlock, "the lock is held elsewhere")
	}
	return newWriteGuard(l.data, l.rw.Unlock), nil
}

// RLock blocks until the lock is acquired for reading. Read guards
// of several processes may be outstanding at the same time.
func (l *RWLock) RLock() *ReadGuard {
	l.rw.RLock()
	return newReadGuard(l.data, l.rw.RUnlock)
}

// TryRLock makes one attempt to acquire the lock for reading.
// It fails with ErrWouldBlock, if a writer holds or awaits the lock.
func (l *RWLock) TryRLock() (*ReadGuard, error) {
	if !l.rw.TryRLock() {
		return nil, errors.Wrap(ErrWouldBlock, "a writer holds or awaits the lock")
	}
	return newReadGuard(l.data, l.rw.RUnlock), nil
}
