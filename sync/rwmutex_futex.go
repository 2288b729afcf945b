// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux || freebsd

package sync

import (
	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/internal/allocator"
)

// state block layout: 8 bytes of the split-counter word,
// 4 bytes of the reader semaphore, 4 bytes of the writer semaphore.
type rwMutex struct {
	*lwRWMutex
	rSema *futexSema
	wSema *futexSema
}

func newRWMutex(state []byte, name string) (*rwMutex, error) {
	if len(state) < RWMutexStateSize {
		return nil, errors.Errorf("rwmutex state needs %d bytes, got %d", RWMutexStateSize, len(state))
	}
	ptr := allocator.ByteSliceData(state)
	rSema := newFutexSema(allocator.AdvancePointer(ptr, 8))
	wSema := newFutexSema(allocator.AdvancePointer(ptr, 12))
	return &rwMutex{
		lwRWMutex: newRWLightweightMutex(ptr, rSema, wSema),
		rSema:     rSema,
		wSema:     wSema,
	}, nil
}

func (rw *rwMutex) init() {
	rw.lwRWMutex.init()
	rw.rSema.init(0)
	rw.wSema.init(0)
}

func (rw *rwMutex) close() error {
	return nil
}
