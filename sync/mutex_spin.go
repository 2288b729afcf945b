// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build !linux && !freebsd && !windows

package sync

import (
	"github.com/nxgtw/go-shmem/internal/allocator"
)

// No cross-process kernel wait primitive is available here, so the
// mutex falls back to an atomic-flag busy-wait loop: waiters poll the
// cell with a bounded backoff instead of sleeping in the kernel.
type mutex struct {
	*lwMutex
}

func newMutex(state []byte, name string) (*mutex, error) {
	ptr := allocator.ByteSliceData(state)
	return &mutex{lwMutex: newLightweightMutex(ptr, &spinWaiter{cell: (*uint32)(ptr)})}, nil
}

func (m *mutex) close() error {
	return nil
}
