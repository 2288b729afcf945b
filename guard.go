// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/internal/allocator"
)

// Guard is a scoped authorization to access a byte range of a region.
type Guard interface {
	Bytes() []byte
}

// ReadGuard authorizes shared reads of a lock's data range.
// It is produced by a successful read lock and must be released
// exactly once. The bytes must not be written through it.
type ReadGuard struct {
	guard
}

// WriteGuard authorizes exclusive access to a lock's data range.
// It is produced by a successful lock and must be released exactly once.
type WriteGuard struct {
	guard
}

type guard struct {
	data     []byte
	unlock   func()
	released bool
}

// Bytes returns the guarded byte range. It panics, if the guard
// was already released.
func (g *guard) Bytes() []byte {
	if g.released {
		panic("use of a released guard")
	}
	return g.data
}

// Release unlocks the primitive the guard was obtained from.
// Calling it twice is a programmer error and panics.
func (g *guard) Release() {
	if g.released {
		panic("release of a released guard")
	}
	g.released = true
	g.unlock()
}

func newReadGuard(data []byte, unlock func()) *ReadGuard {
	return &ReadGuard{guard{data: data, unlock: unlock}}
}

func newWriteGuard(data []byte, unlock func()) *WriteGuard {
	return &WriteGuard{guard{data: data, unlock: unlock}}
}

// Slice reinterprets the guarded bytes as a slice of T. The size of T
// must evenly divide the length of the range. The returned slice is
// valid only until the guard is released.
func Slice[T any](g Guard) ([]T, error) {
	data := g.Bytes()
	elem := int(unsafe.Sizeof(*new(T)))
	if elem == 0 || len(data)%elem != 0 {
		return nil, errors.Wrapf(ErrSizeMismatch,
			"a range of %d bytes is not a whole number of %d-byte elements", len(data), elem)
	}
	return unsafe.Slice((*T)(allocator.ByteSliceData(data)), len(data)/elem), nil
}
