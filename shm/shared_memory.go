// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package shm gives access to named os shared memory objects,
// which can be mapped into the address space of several processes.
package shm

import (
	"os"
	"runtime"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/internal/common"
)

// SharedMemoryObject is a named object, whose backing storage
// can be mapped into the process' address space.
type SharedMemoryObject interface {
	Name() string
	Size() int64
	Truncate(size int64) error
	Close() error
	Destroy() error
	Fd() uintptr
}

// MemoryObject represents an object which can be used to
// map shared memory regions into the process' address space.
type MemoryObject struct {
	*memoryObject
}

var (
	_ SharedMemoryObject = (*MemoryObject)(nil)
)

// NewMemoryObject creates a new shared memory object.
//	name - a name of the object. should not contain '/' and exceed 255 symbols.
//	flag - a combination of open flags from 'os' package.
//	perm - file's mode and permission bits.
func NewMemoryObject(name string, flag int, perm os.FileMode) (*MemoryObject, error) {
	impl, err := newMemoryObject(name, flag, perm)
	if err != nil {
		return nil, err
	}
	result := &MemoryObject{impl}
	runtime.SetFinalizer(impl, func(memObject *memoryObject) {
		memObject.Close()
	})
	return result, nil
}

// NewMemoryObjectSize opens or creates a shared memory object with the given name.
// If the object was created, it is truncated to 'size' rounded up to the page size.
// Otherwise, the size is ignored and the existing object is used as is.
// Returns an object, true if it was created, and an error.
func NewMemoryObjectSize(name string, flag int, perm os.FileMode, size int64) (*MemoryObject, bool, error) {
	rounded, err := RoundToPageSize(size)
	if err != nil {
		return nil, false, err
	}
	var obj *MemoryObject
	creator := func(create bool) error {
		creatorFlag := flag &^ (os.O_CREATE | os.O_EXCL)
		if create {
			creatorFlag |= os.O_CREATE | os.O_EXCL
		}
		var err error
		obj, err = NewMemoryObject(name, creatorFlag, perm)
		return err
	}
	created, err := common.OpenOrCreate(creator, flag)
	if err != nil {
		return nil, false, errors.Wrap(err, "open memory object failed")
	}
	if created {
		if err = obj.Truncate(rounded); err != nil {
			obj.Close()
			obj.Destroy()
			return nil, false, errors.Wrap(err, "truncate failed")
		}
	}
	return obj, created, nil
}

// DestroyMemoryObject removes the object with the given name.
// It is a no-op, if the object does not exist.
func DestroyMemoryObject(name string) error {
	return destroyMemoryObject(name)
}

// RoundToPageSize rounds the size up to the nearest multiple of
// the system page size. Zero and overflowing sizes are rejected.
func RoundToPageSize(size int64) (int64, error) {
	if size <= 0 {
		return 0, errors.New("object size must be positive")
	}
	pageSize := int64(os.Getpagesize())
	rounded := (size + pageSize - 1) &^ (pageSize - 1)
	if rounded < size {
		return 0, errors.New("object size overflows when rounded to the page size")
	}
	return rounded, nil
}
