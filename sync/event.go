// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"time"

	"github.com/pkg/errors"
)

// EventStateSize is the number of bytes an event occupies in shared memory.
const EventStateSize = 16

// EventType selects the flavour of an interprocess event.
type EventType int

const (
	// EventManual stays signaled until explicitly cleared,
	// every waiter wakes.
	EventManual EventType = iota
	// EventAuto wakes exactly one waiter per Set,
	// the waiter atomically clears the state.
	EventAuto
	// EventBusy keeps the signaled state in a plain atomic flag polled
	// with a bounded backoff. No kernel wait is involved, which makes it
	// portable at the price of idle CPU. The flag stays set until Clear.
	EventBusy
	// EventFd is backed by a linux eventfd. A Set wakes one waiter,
	// which consumes the signal by reading the descriptor.
	EventFd
)

// Event is a synchronization primitive used for notification, whose
// state lives in a caller-supplied byte block inside a shared region.
type Event struct {
	impl eventImpl
}

type eventImpl interface {
	init(signaled bool)
	set()
	clear()
	wait()
	waitTimeout(timeout time.Duration) bool
	tryWait() bool
	close() error
}

// NewEvent returns an event over the given state block.
//	state - the primitive's bytes inside the shared region,
//		at least EventStateSize long.
//	typ - the flavour of the event. Unsupported platform/flavour
//		combinations fail with ErrUnsupported.
//	name - a unique name of the primitive. it is used on the platforms,
//		where events are named kernel objects.
func NewEvent(state []byte, typ EventType, name string) (*Event, error) {
	if len(state) < EventStateSize {
		return nil, errors.Errorf("event state needs %d bytes, got %d", EventStateSize, len(state))
	}
	var impl eventImpl
	var err error
	switch typ {
	case EventBusy:
		impl = newBusyEvent(state)
	case EventManual, EventAuto:
		impl, err = newGenericEvent(state, typ == EventManual, name)
	case EventFd:
		impl, err = newFdEvent(state)
	default:
		err = errors.Errorf("unknown event type %d", typ)
	}
	if err != nil {
		return nil, err
	}
	return &Event{impl: impl}, nil
}

// Init writes the initial state into the event's memory location.
// It must be called exactly once, by the creator of the region.
func (e *Event) Init(signaled bool) {
	e.impl.init(signaled)
}

// Set sets the event to the signaled state.
func (e *Event) Set() {
	e.impl.set()
}

// Clear resets the event to the non-signaled state.
func (e *Event) Clear() {
	e.impl.clear()
}

// Wait blocks until the event is signaled.
func (e *Event) Wait() {
	e.impl.wait()
}

// WaitTimeout waits until the event is signaled or the timeout elapses.
// It returns true, if the event was signaled.
func (e *Event) WaitTimeout(timeout time.Duration) bool {
	return e.impl.waitTimeout(timeout)
}

// TryWait makes one non-blocking attempt to consume the signal.
func (e *Event) TryWait() bool {
	return e.impl.tryWait()
}

// Close releases the process-local resources of the event.
// The state in the region stays valid for other processes.
func (e *Event) Close() error {
	return e.impl.close()
}
