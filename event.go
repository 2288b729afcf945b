// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/sync"
)

// Event is a notification primitive embedded in a region.
// The consumption rule of a signal depends on the event's flavour,
// see the sync package for the details.
type Event struct {
	ev  *sync.Event
	typ sync.EventType
}

// Type returns the flavour of the event.
func (e *Event) Type() sync.EventType {
	return e.typ
}

// Set sets the event to the signaled state.
func (e *Event) Set() {
	e.ev.Set()
}

// Clear resets the event to the non-signaled state.
func (e *Event) Clear() {
	e.ev.Clear()
}

// Wait blocks until the event is signaled.
func (e *Event) Wait() {
	e.ev.Wait()
}

// WaitTimeout waits until the event is signaled.
// It fails with ErrTimedOut, if the timeout elapsed first.
func (e *Event) WaitTimeout(timeout time.Duration) error {
	if !e.ev.WaitTimeout(timeout) {
		return errors.Wrapf(ErrTimedOut, "the event was not signaled within %v", timeout)
	}
	return nil
}

// TryWait makes one non-blocking attempt to consume the signal.
// It fails with ErrWouldBlock, if the event is not signaled.
func (e *Event) TryWait() error {
	if !e.ev.TryWait() {
		return errors.Wrap(ErrWouldBlock, "the event is not signaled")
	}
	return nil
}
