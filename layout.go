// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/internal/allocator"
	"github.com/nxgtw/go-shmem/sync"
)

// Region layout, all fields little-endian:
//	header:	magic, version uint32; meta, user size uint64;
//		count, reserved uint32; attach count, doomed flag uint32.
//	then per primitive: tag uint32, reserved uint32,
//		data offset, data length uint64, and the primitive's state block.
// The user data begins at the end of the metadata. All state blocks are
// 8-byte aligned, so no extra padding is needed.
//
// The header is immutable after creation except for the last two cells,
// which all attached processes maintain with atomics: the number of live
// mappings and the flag the owner raises on teardown. The handle, that
// detaches last from a doomed region, deletes the backing object, so new
// opens keep succeeding until the last mapping is gone.
const (
	cHeaderMagic    = uint32(0x676d6873) // "shmg"
	cLayoutVersion  = uint32(1)
	cHeaderSize     = 40
	cDescriptorSize = 24

	cAttachCellOffset = 32
	cDoomedCellOffset = 36
)

func attachCell(data []byte) *uint32 {
	return (*uint32)(allocator.AdvancePointer(allocator.ByteSliceData(data), cAttachCellOffset))
}

func doomedCell(data []byte) *uint32 {
	return (*uint32)(allocator.AdvancePointer(allocator.ByteSliceData(data), cDoomedCellOffset))
}

// descriptor tags.
const (
	cTagMutex = uint32(iota)
	cTagRWLock
	cTagEventManual
	cTagEventAuto
	cTagEventBusy
	cTagEventFd
)

func specTag(spec PrimitiveSpec) uint32 {
	switch spec.Kind {
	case KindMutex:
		return cTagMutex
	case KindRWLock:
		return cTagRWLock
	default:
		switch spec.EventType {
		case sync.EventAuto:
			return cTagEventAuto
		case sync.EventBusy:
			return cTagEventBusy
		case sync.EventFd:
			return cTagEventFd
		default:
			return cTagEventManual
		}
	}
}

func tagSpec(tag uint32) (PrimitiveSpec, error) {
	switch tag {
	case cTagMutex:
		return PrimitiveSpec{Kind: KindMutex}, nil
	case cTagRWLock:
		return PrimitiveSpec{Kind: KindRWLock}, nil
	case cTagEventManual:
		return PrimitiveSpec{Kind: KindEvent, EventType: sync.EventManual}, nil
	case cTagEventAuto:
		return PrimitiveSpec{Kind: KindEvent, EventType: sync.EventAuto}, nil
	case cTagEventBusy:
		return PrimitiveSpec{Kind: KindEvent, EventType: sync.EventBusy}, nil
	case cTagEventFd:
		return PrimitiveSpec{Kind: KindEvent, EventType: sync.EventFd}, nil
	}
	return PrimitiveSpec{}, errors.Wrapf(ErrCorruptHeader, "unknown primitive tag %d", tag)
}

func stateSize(spec PrimitiveSpec) int {
	switch spec.Kind {
	case KindMutex:
		return sync.MutexStateSize
	case KindRWLock:
		return sync.RWMutexStateSize
	default:
		return sync.EventStateSize
	}
}

// metadataSize returns the number of bytes the header, the descriptors
// and the primitive state blocks occupy in front of the user data.
func metadataSize(prims []PrimitiveSpec) int64 {
	size := int64(cHeaderSize)
	for _, spec := range prims {
		size += cDescriptorSize + int64(stateSize(spec))
	}
	return size
}

// writeLayout serializes the header and the descriptors into the
// beginning of the mapped data, zero-filling every state block.
// It returns the offset of each primitive's state block.
func writeLayout(data []byte, userSize int64, prims []PrimitiveSpec) []int {
	binary.LittleEndian.PutUint32(data[0:], cHeaderMagic)
	binary.LittleEndian.PutUint32(data[4:], cLayoutVersion)
	binary.LittleEndian.PutUint64(data[8:], uint64(metadataSize(prims)))
	binary.LittleEndian.PutUint64(data[16:], uint64(userSize))
	binary.LittleEndian.PutUint32(data[24:], uint32(len(prims)))
	binary.LittleEndian.PutUint32(data[28:], 0)
	binary.LittleEndian.PutUint32(data[cAttachCellOffset:], 1)
	binary.LittleEndian.PutUint32(data[cDoomedCellOffset:], 0)
	stateOffsets := make([]int, 0, len(prims))
	pos := cHeaderSize
	for _, spec := range prims {
		binary.LittleEndian.PutUint32(data[pos:], specTag(spec))
		binary.LittleEndian.PutUint32(data[pos+4:], 0)
		binary.LittleEndian.PutUint64(data[pos+8:], spec.DataOffset)
		binary.LittleEndian.PutUint64(data[pos+16:], spec.DataLength)
		pos += cDescriptorSize
		stateOffsets = append(stateOffsets, pos)
		size := stateSize(spec)
		for i := pos; i < pos+size; i++ {
			data[i] = 0
		}
		pos += size
	}
	return stateOffsets
}

// readLayout parses and validates the header of a mapped region.
// Any violation is a hard failure, the layout is never repaired.
func readLayout(data []byte) (userSize int64, prims []PrimitiveSpec, stateOffsets []int, err error) {
	if len(data) < cHeaderSize {
		return 0, nil, nil, errors.Wrapf(ErrCorruptHeader, "region of %d bytes cannot hold a header", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != cHeaderMagic {
		return 0, nil, nil, errors.Wrapf(ErrCorruptHeader, "bad magic 0x%08x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != cLayoutVersion {
		return 0, nil, nil, errors.Wrapf(ErrIncompatibleVersion, "region version %d, supported %d", version, cLayoutVersion)
	}
	meta := binary.LittleEndian.Uint64(data[8:])
	user := binary.LittleEndian.Uint64(data[16:])
	count := binary.LittleEndian.Uint32(data[24:])
	if meta > uint64(len(data)) || user > uint64(len(data))-meta {
		return 0, nil, nil, errors.Wrapf(ErrCorruptHeader,
			"metadata of %d and user data of %d bytes exceed the %d-byte region", meta, user, len(data))
	}
	pos := cHeaderSize
	prims = make([]PrimitiveSpec, 0, count)
	stateOffsets = make([]int, 0, count)
	for i := uint32(0); i < count; i++ {
		if uint64(pos+cDescriptorSize) > meta {
			return 0, nil, nil, errors.Wrapf(ErrCorruptHeader, "descriptor %d lies past the metadata", i)
		}
		spec, err := tagSpec(binary.LittleEndian.Uint32(data[pos:]))
		if err != nil {
			return 0, nil, nil, err
		}
		spec.DataOffset = binary.LittleEndian.Uint64(data[pos+8:])
		spec.DataLength = binary.LittleEndian.Uint64(data[pos+16:])
		pos += cDescriptorSize
		if spec.Kind != KindEvent {
			end := spec.DataOffset + spec.DataLength
			if spec.DataLength == 0 || end < spec.DataOffset || end > user {
				return 0, nil, nil, errors.Wrapf(ErrCorruptHeader,
					"lock %d guards the range [%d,%d) outside %d bytes of user data", i, spec.DataOffset, end, user)
			}
		}
		prims = append(prims, spec)
		stateOffsets = append(stateOffsets, pos)
		pos += stateSize(spec)
	}
	if uint64(pos) != meta {
		return 0, nil, nil, errors.Wrapf(ErrCorruptHeader, "metadata ends at %d, header says %d", pos, meta)
	}
	for i := range prims {
		if prims[i].Kind == KindEvent {
			continue
		}
		for j := i + 1; j < len(prims); j++ {
			if prims[j].Kind == KindEvent {
				continue
			}
			if prims[i].DataOffset < prims[j].DataOffset+prims[j].DataLength &&
				prims[j].DataOffset < prims[i].DataOffset+prims[i].DataLength {
				return 0, nil, nil, errors.Wrapf(ErrCorruptHeader, "ranges of locks %d and %d overlap", i, j)
			}
		}
	}
	return int64(user), prims, stateOffsets, nil
}

// specsEqual reports whether two primitive tables match exactly.
func specsEqual(a, b []PrimitiveSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
