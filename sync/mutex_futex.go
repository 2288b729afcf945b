// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux || freebsd

package sync

import (
	"github.com/nxgtw/go-shmem/internal/allocator"
)

type mutex struct {
	*lwMutex
}

func newMutex(state []byte, name string) (*mutex, error) {
	ptr := allocator.ByteSliceData(state)
	return &mutex{lwMutex: newLightweightMutex(ptr, &futex{ptr: ptr})}, nil
}

func (m *mutex) close() error {
	return nil
}
