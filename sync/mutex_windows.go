// Copyright 2015 Aleksandr Demakin. All rights reserved.

package sync

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// mutex is built on a named windows auto-reset event.
// It is not possible to use a named windows mutex, because goroutines
// migrate between threads, and a windows mutex must be released by the
// same thread that locked it. The in-region state block is unused on
// this platform, the kernel object carries the state.
type mutex struct {
	handle windows.Handle
}

func newMutex(state []byte, name string) (*mutex, error) {
	handle, err := openOrCreateEvent(name, 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open/create mutex event")
	}
	return &mutex{handle: handle}, nil
}

func (m *mutex) init() {}

func (m *mutex) lock() {
	if !m.lockTimeout(-1) {
		panic("unexpected timeout of an infinite wait")
	}
}

func (m *mutex) tryLock() bool {
	return m.lockTimeout(0)
}

func (m *mutex) lockTimeout(timeout time.Duration) bool {
	waitMillis := uint32(windows.INFINITE)
	if timeout >= 0 {
		waitMillis = uint32(timeout.Nanoseconds() / 1e6)
	}
	ev, err := windows.WaitForSingleObject(m.handle, waitMillis)
	switch ev {
	case windows.WAIT_OBJECT_0:
		return true
	case windows.WAIT_TIMEOUT:
		return false
	default:
		if err != nil {
			panic(err)
		}
		panic(errors.Errorf("invalid wait state for a mutex: %d", ev))
	}
}

func (m *mutex) unlock() {
	if err := windows.SetEvent(m.handle); err != nil {
		panic("failed to unlock mutex: " + err.Error())
	}
}

func (m *mutex) close() error {
	if m.handle == windows.InvalidHandle {
		return nil
	}
	err := windows.CloseHandle(m.handle)
	m.handle = windows.InvalidHandle
	if err != nil {
		return errors.Wrap(err, "close handle failed")
	}
	return nil
}

// openOrCreateEvent opens or creates a named event. A new event is
// created in the signaled state if initial is 1.
func openOrCreateEvent(name string, initial int) (windows.Handle, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return windows.InvalidHandle, err
	}
	handle, err := windows.CreateEvent(nil, 0, uint32(initial), namep)
	if handle == windows.Handle(0) {
		return windows.InvalidHandle, os.NewSyscallError("CreateEvent", err)
	}
	// ERROR_ALREADY_EXISTS means we attached to the object
	// another process had created. That is fine here.
	return handle, nil
}
