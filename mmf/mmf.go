// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package mmf maps shared memory objects into the process' address space.
package mmf

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// memory region flags.
const (
	MEM_READ_ONLY     = 0x00000001
	MEM_READ_PRIVATE  = 0x00000002
	MEM_READWRITE     = 0x00000004
	MEM_COPY_ON_WRITE = 0x00000008
)

var (
	// a valid mmap offset must be a multiple of this value.
	// it is set by the per-platform init functions.
	mmapOffsetMultiple int64
)

// Mappable is a named object, which can return a handle,
// that can be used as a file descriptor for mmap.
type Mappable interface {
	Fd() uintptr
	Name() string
}

// MemoryRegion is a mmapped area of a memory object.
// The internal object has a finalizer set, so the region will be
// unmapped during gc. Use the region itself, not only its Data(),
// to keep the mapping alive.
type MemoryRegion struct {
	*memoryRegion
}

// NewMemoryRegion creates a new shared memory region.
//	object - an object to mmap.
//	flag - open mode. see MEM_* constants.
//	offset - offset in bytes from the beginning of the mmaped file.
//	size - mapping size.
func NewMemoryRegion(object Mappable, flag int, offset int64, size int) (*MemoryRegion, error) {
	impl, err := newMemoryRegion(object, flag, offset, size)
	if err != nil {
		return nil, err
	}
	result := &MemoryRegion{impl}
	runtime.SetFinalizer(impl, func(region *memoryRegion) {
		region.Close()
	})
	return result, nil
}

// Close unmaps the region so that it cannot be used any longer.
func (region *MemoryRegion) Close() error {
	return region.memoryRegion.Close()
}

// Data returns the region's mapped data.
func (region *MemoryRegion) Data() []byte {
	return region.memoryRegion.Data()
}

// Flush syncs the mapped content with the file data.
func (region *MemoryRegion) Flush(async bool) error {
	return region.memoryRegion.Flush(async)
}

// Size returns the mapping size.
func (region *MemoryRegion) Size() int {
	return region.memoryRegion.Size()
}

// calcMmapOffsetFixup returns a value X, so that offset-X is a valid mmap
// offset. Typically the fixup is the page size, however, on windows it must
// be a multiple of the memory allocation granularity value as well.
func calcMmapOffsetFixup(offset int64) int64 {
	return offset - (offset/mmapOffsetMultiple)*mmapOffsetMultiple
}

// fileInfoGetter is used to obtain a file's size.
type fileInfoGetter interface {
	Stat() (os.FileInfo, error)
}

// sizeGetter is satisfied by shared memory objects,
// which report their size directly.
type sizeGetter interface {
	Size() int64
}

func fileSizeFromFd(f Mappable) (int64, error) {
	if f.Fd() == ^uintptr(0) {
		return 0, nil
	}
	if sg, ok := f.(sizeGetter); ok {
		return sg.Size(), nil
	}
	if ig, ok := f.(fileInfoGetter); ok {
		fi, err := ig.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	}
	return 0, nil
}

func checkMmapSize(f Mappable, size int) (int, error) {
	if size == 0 {
		if f.Fd() == ^uintptr(0) {
			return 0, errors.New("must provide a valid file size")
		}
		sz, err := fileSizeFromFd(f)
		if err != nil {
			return 0, err
		}
		size = int(sz)
	}
	return size, nil
}
