// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/mmf"
	"github.com/nxgtw/go-shmem/shm"
	"github.com/nxgtw/go-shmem/sync"
)

// SharedMem is a handle to a shared memory region with embedded
// synchronization primitives. The handle, whose Create call established
// the backing os object, is the owner; its Close marks the object for
// deletion, a non-owner Close only detaches. The object is deleted when
// the last mapping detaches, so new opens keep succeeding until then,
// even after the owner tore down.
type SharedMem struct {
	obj    *shm.MemoryObject
	region *mmf.MemoryRegion
	link   string
	owner  bool
	closed bool
	size   int64
	prims  []primitive
}

// primitive is one embedded primitive of an open region. Exactly one
// of the handles is non-nil, according to the spec's kind.
type primitive struct {
	spec  PrimitiveSpec
	mutex *sync.Mutex
	rw    *sync.RWMutex
	event *sync.Event
	data  []byte
}

// Create makes a new region described by the config and returns the
// owning handle with all the primitives initialized. It fails with
// ErrAlreadyExists, if the os object or the link file is already in use.
func Create(conf *Conf) (*SharedMem, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}
	osID := conf.osID
	if osID == "" {
		osID = randomOSID()
	}
	total := metadataSize(conf.prims) + conf.size
	if _, err := shm.RoundToPageSize(total); err != nil {
		return nil, errors.Wrapf(ErrInvalidSize, "%v", err)
	}
	obj, _, err := shm.NewMemoryObjectSize(osID, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666, total)
	if err != nil {
		return nil, wrapOSErr(err, "create memory object")
	}
	ok := false
	defer func() {
		if !ok {
			obj.Close()
			shm.DestroyMemoryObject(osID)
		}
	}()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, int(total))
	if err != nil {
		return nil, errors.Wrapf(ErrMappingFailed, "map %d bytes of %q: %v", total, osID, err)
	}
	defer func() {
		if !ok {
			region.Close()
		}
	}()
	stateOffsets := writeLayout(region.Data(), conf.size, conf.prims)
	result := &SharedMem{obj: obj, region: region, link: conf.link, owner: true, size: conf.size}
	if result.prims, err = makePrimitives(region.Data(), conf.size, conf.prims, stateOffsets, osID, true); err != nil {
		return nil, err
	}
	if conf.link != "" {
		rec := &linkRecord{osID: osID, userSize: conf.size, prims: conf.prims}
		if err = writeLinkFile(conf.link, rec); err != nil {
			closePrimitives(result.prims)
			return nil, err
		}
	}
	ok = true
	return result, nil
}

// Open attaches to an existing region by the path of its link record.
// The returned handle is not the owner. The record is cross-checked
// against the region's header.
func Open(path string) (*SharedMem, error) {
	rec, err := readLinkFile(path)
	if err != nil {
		return nil, err
	}
	return openOSID(rec.osID, rec)
}

// OpenOSID attaches to an existing region by the name of its os object,
// bypassing any link record. The returned handle is not the owner.
func OpenOSID(osID string) (*SharedMem, error) {
	return openOSID(osID, nil)
}

func openOSID(osID string, rec *linkRecord) (*SharedMem, error) {
	obj, err := shm.NewMemoryObject(osID, os.O_RDWR, 0666)
	if err != nil {
		return nil, wrapOSErr(err, "open memory object")
	}
	ok, destroy := false, false
	defer func() {
		if !ok {
			obj.Close()
			if destroy {
				shm.DestroyMemoryObject(osID)
			}
		}
	}()
	region, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, 0)
	if err != nil {
		return nil, errors.Wrapf(ErrMappingFailed, "map %q: %v", osID, err)
	}
	defer func() {
		if !ok {
			region.Close()
		}
	}()
	userSize, specs, stateOffsets, err := readLayout(region.Data())
	if err != nil {
		return nil, err
	}
	if rec != nil && (rec.userSize != userSize || !specsEqual(rec.prims, specs)) {
		return nil, errors.Wrapf(ErrCorruptHeader, "the link record disagrees with the header of %q", osID)
	}
	data := region.Data()
	atomic.AddUint32(attachCell(data), 1)
	result := &SharedMem{obj: obj, region: region, size: userSize}
	if result.prims, err = makePrimitives(data, userSize, specs, stateOffsets, osID, false); err != nil {
		destroy = detachRegion(data)
		return nil, err
	}
	ok = true
	return result, nil
}

// detachRegion drops one attachment and reports whether this was the
// last mapping of a doomed region, whose backing object must go.
func detachRegion(data []byte) bool {
	last := atomic.AddUint32(attachCell(data), ^uint32(0)) == 0
	return last && atomic.LoadUint32(doomedCell(data)) != 0
}

// makePrimitives constructs a handle for every embedded primitive over
// its state block. The creator additionally writes each primitive's
// initial state.
func makePrimitives(data []byte, userSize int64, specs []PrimitiveSpec, stateOffsets []int, osID string, init bool) ([]primitive, error) {
	user := data[metadataSize(specs) : metadataSize(specs)+userSize]
	prims := make([]primitive, 0, len(specs))
	fail := func(err error, i int) ([]primitive, error) {
		closePrimitives(prims)
		if errors.Cause(err) == sync.ErrUnsupported {
			return nil, errors.Wrapf(ErrUnsupportedPrimitive, "primitive %d: %v", i, err)
		}
		return nil, errors.Wrapf(err, "primitive %d", i)
	}
	for i, spec := range specs {
		state := data[stateOffsets[i] : stateOffsets[i]+stateSize(spec)]
		name := fmt.Sprintf("%s.prim%d", osID, i)
		p := primitive{spec: spec}
		var err error
		switch spec.Kind {
		case KindMutex:
			p.data = user[spec.DataOffset : spec.DataOffset+spec.DataLength]
			if p.mutex, err = sync.NewMutex(state, name); err != nil {
				return fail(err, i)
			}
			if init {
				p.mutex.Init()
			}
		case KindRWLock:
			p.data = user[spec.DataOffset : spec.DataOffset+spec.DataLength]
			if p.rw, err = sync.NewRWMutex(state, name); err != nil {
				return fail(err, i)
			}
			if init {
				p.rw.Init()
			}
		default:
			if p.event, err = sync.NewEvent(state, spec.EventType, name); err != nil {
				return fail(err, i)
			}
			if init {
				p.event.Init(false)
			}
		}
		prims = append(prims, p)
	}
	return prims, nil
}

func closePrimitives(prims []primitive) error {
	var result error
	for _, p := range prims {
		var err error
		switch {
		case p.mutex != nil:
			err = p.mutex.Close()
		case p.rw != nil:
			err = p.rw.Close()
		case p.event != nil:
			err = p.event.Close()
		}
		if err != nil && result == nil {
			result = err
		}
	}
	return result
}

// Size returns the number of bytes of the user data.
func (m *SharedMem) Size() int64 {
	return m.size
}

// OSID returns the name of the underlying os object.
func (m *SharedMem) OSID() string {
	return m.obj.Name()
}

// IsOwner reports whether this handle is responsible for the final
// deletion of the backing object.
func (m *SharedMem) IsOwner() bool {
	return m.owner
}

// PrimitiveCount returns the number of primitives embedded in the region.
func (m *SharedMem) PrimitiveCount() int {
	return len(m.prims)
}

// Mutex returns the i'th primitive, which must be a mutex.
func (m *SharedMem) Mutex(i int) (*Mutex, error) {
	p, err := m.primitiveAt(i, KindMutex)
	if err != nil {
		return nil, err
	}
	return &Mutex{m: p.mutex, data: p.data}, nil
}

// RWLock returns the i'th primitive, which must be a reader/writer lock.
func (m *SharedMem) RWLock(i int) (*RWLock, error) {
	p, err := m.primitiveAt(i, KindRWLock)
	if err != nil {
		return nil, err
	}
	return &RWLock{rw: p.rw, data: p.data}, nil
}

// Event returns the i'th primitive, which must be an event.
func (m *SharedMem) Event(i int) (*Event, error) {
	p, err := m.primitiveAt(i, KindEvent)
	if err != nil {
		return nil, err
	}
	return &Event{ev: p.event, typ: p.spec.EventType}, nil
}

func (m *SharedMem) primitiveAt(i int, kind PrimitiveKind) (*primitive, error) {
	if i < 0 || i >= len(m.prims) {
		return nil, errors.Errorf("the region has %d primitives, requested %d", len(m.prims), i)
	}
	if m.prims[i].spec.Kind != kind {
		return nil, errors.Errorf("primitive %d has kind %d, requested %d", i, m.prims[i].spec.Kind, kind)
	}
	return &m.prims[i], nil
}

// Close releases the process-local resources of the handle: primitive
// handles, the mapping, and the object handle. The owner's Close also
// marks the region for deletion and removes the link record; the
// backing object itself is deleted by whichever handle detaches last,
// so already attached processes keep working and new opens keep
// succeeding until then. A second Close is a no-op.
func (m *SharedMem) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.owner {
		atomic.StoreUint32(doomedCell(m.region.Data()), 1)
	}
	destroy := detachRegion(m.region.Data())
	result := closePrimitives(m.prims)
	if err := m.region.Close(); err != nil && result == nil {
		result = err
	}
	osID := m.obj.Name()
	if err := m.obj.Close(); err != nil && result == nil {
		result = err
	}
	if destroy {
		if err := shm.DestroyMemoryObject(osID); err != nil && result == nil {
			result = err
		}
	}
	if m.owner && m.link != "" {
		if err := os.Remove(m.link); err != nil && !os.IsNotExist(err) && result == nil {
			result = err
		}
	}
	return result
}

// randomOSID generates a name for the backing object, when the caller
// did not pick one.
func randomOSID() string {
	var buf [8]byte
	rand.Read(buf[:])
	return "go-shmem." + hex.EncodeToString(buf[:])
}
