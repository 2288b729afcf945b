// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// kernelEvent gives access to a named windows event object. The state
// block in the region is unused on this platform, the kernel object
// carries the signaled flag and the manual/auto reset behaviour.
type kernelEvent struct {
	handle windows.Handle
}

func newGenericEvent(state []byte, manual bool, name string) (*kernelEvent, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	var manualReset uint32
	if manual {
		manualReset = 1
	}
	handle, err := windows.CreateEvent(nil, manualReset, 0, namep)
	if handle == windows.Handle(0) {
		return nil, errors.Wrap(os.NewSyscallError("CreateEvent", err), "failed to open/create event")
	}
	return &kernelEvent{handle: handle}, nil
}

func (e *kernelEvent) init(signaled bool) {
	if signaled {
		e.set()
	} else {
		e.clear()
	}
}

func (e *kernelEvent) set() {
	if err := windows.SetEvent(e.handle); err != nil {
		panic("failed to set an event: " + err.Error())
	}
}

func (e *kernelEvent) clear() {
	if err := windows.ResetEvent(e.handle); err != nil {
		panic("failed to reset an event: " + err.Error())
	}
}

func (e *kernelEvent) wait() {
	if !e.waitTimeout(-1) {
		panic("unexpected timeout of an infinite wait")
	}
}

func (e *kernelEvent) waitTimeout(timeout time.Duration) bool {
	waitMillis := uint32(windows.INFINITE)
	if timeout >= 0 {
		waitMillis = uint32(timeout.Nanoseconds() / 1e6)
	}
	ev, err := windows.WaitForSingleObject(e.handle, waitMillis)
	switch ev {
	case windows.WAIT_OBJECT_0:
		return true
	case windows.WAIT_TIMEOUT:
		return false
	default:
		if err != nil {
			panic(err)
		}
		panic(errors.Errorf("invalid wait state for an event: %d", ev))
	}
}

func (e *kernelEvent) tryWait() bool {
	return e.waitTimeout(0)
}

func (e *kernelEvent) close() error {
	if e.handle == windows.InvalidHandle {
		return nil
	}
	err := windows.CloseHandle(e.handle)
	e.handle = windows.InvalidHandle
	return err
}
