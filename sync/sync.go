// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package sync provides process-shared synchronization primitives,
// whose state is a fixed-size byte block supplied by the caller.
// The state contains no process-local addresses, so the same bytes
// are meaningful in every process which maps the containing region,
// regardless of the base address of the mapping.
package sync

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned when a primitive or one of its flavours
// cannot be implemented safely on the current platform.
var ErrUnsupported = errors.New("primitive is not supported on this platform")

// IPCLocker is a minimal interface, which must be satisfied by any
// exclusive synchronization primitive on any platform.
type IPCLocker interface {
	sync.Locker
	io.Closer
}

// TimedIPCLocker is a locker, whose lock operation can be limited with a duration.
type TimedIPCLocker interface {
	IPCLocker
	// LockTimeout tries to lock the locker, waiting for not more, than timeout.
	LockTimeout(timeout time.Duration) bool
}

// waitWaker is an object, which implements wake/wait semantics.
type waitWaker interface {
	wake(count uint32) (int, error)
	wait(value uint32, timeout time.Duration) error
}
