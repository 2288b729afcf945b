// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"os"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/mmf"
	"github.com/nxgtw/go-shmem/shm"
)

// SharedMemRaw is a region without a header or embedded primitives.
// Nothing guards its bytes, the caller synchronizes all access
// out of band.
type SharedMemRaw struct {
	obj    *shm.MemoryObject
	region *mmf.MemoryRegion
	owner  bool
	closed bool
}

// CreateRaw makes a new raw region of at least 'size' bytes backed by
// the os object with the given name. The returned handle is the owner.
func CreateRaw(osID string, size int64) (*SharedMemRaw, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "region size must be positive, got %d", size)
	}
	if _, err := shm.RoundToPageSize(size); err != nil {
		return nil, errors.Wrapf(ErrInvalidSize, "%v", err)
	}
	obj, _, err := shm.NewMemoryObjectSize(osID, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666, size)
	if err != nil {
		return nil, wrapOSErr(err, "create memory object")
	}
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, int(size))
	if err != nil {
		obj.Close()
		shm.DestroyMemoryObject(osID)
		return nil, errors.Wrapf(ErrMappingFailed, "map %d bytes of %q: %v", size, osID, err)
	}
	return &SharedMemRaw{obj: obj, region: region, owner: true}, nil
}

// OpenRaw attaches to an existing raw region by the name of its os
// object. The whole object is mapped. The returned handle is not
// the owner.
func OpenRaw(osID string) (*SharedMemRaw, error) {
	obj, err := shm.NewMemoryObject(osID, os.O_RDWR, 0666)
	if err != nil {
		return nil, wrapOSErr(err, "open memory object")
	}
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 0)
	if err != nil {
		obj.Close()
		return nil, errors.Wrapf(ErrMappingFailed, "map %q: %v", osID, err)
	}
	return &SharedMemRaw{obj: obj, region: region}, nil
}

// Bytes returns the mapped data. Access to it is not synchronized.
func (m *SharedMemRaw) Bytes() []byte {
	return m.region.Data()
}

// Size returns the size of the mapping.
func (m *SharedMemRaw) Size() int64 {
	return int64(m.region.Size())
}

// OSID returns the name of the underlying os object.
func (m *SharedMemRaw) OSID() string {
	return m.obj.Name()
}

// IsOwner reports whether this handle is responsible for the final
// deletion of the backing object.
func (m *SharedMemRaw) IsOwner() bool {
	return m.owner
}

// Close unmaps the region and, if the handle is the owner, deletes the
// backing object. A second Close is a no-op.
func (m *SharedMemRaw) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	result := m.region.Close()
	osID := m.obj.Name()
	if err := m.obj.Close(); err != nil && result == nil {
		result = err
	}
	if m.owner {
		if err := shm.DestroyMemoryObject(osID); err != nil && result == nil {
			result = err
		}
	}
	return result
}
