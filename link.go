// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// A link record is a small versioned file identifying the underlying
// os object, so that another process can reopen a region by path.
// Layout, little-endian: format version uint32, os id length uint16,
// os id bytes, user size uint64, primitive count uint32, then one
// {tag uint32, data offset uint64, data length uint64} per primitive.
const cLinkFormatVersion = uint32(1)

type linkRecord struct {
	osID     string
	userSize int64
	prims    []PrimitiveSpec
}

func writeLinkFile(path string, rec *linkRecord) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return wrapOSErr(err, "create link file")
	}
	defer file.Close()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, cLinkFormatVersion)
	binary.Write(&buf, binary.LittleEndian, uint16(len(rec.osID)))
	buf.WriteString(rec.osID)
	binary.Write(&buf, binary.LittleEndian, uint64(rec.userSize))
	binary.Write(&buf, binary.LittleEndian, uint32(len(rec.prims)))
	for _, spec := range rec.prims {
		binary.Write(&buf, binary.LittleEndian, specTag(spec))
		binary.Write(&buf, binary.LittleEndian, spec.DataOffset)
		binary.Write(&buf, binary.LittleEndian, spec.DataLength)
	}
	if _, err = file.Write(buf.Bytes()); err != nil {
		os.Remove(path)
		return errors.Wrap(err, "write link file")
	}
	return nil
}

func readLinkFile(path string) (*linkRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapOSErr(err, "read link file")
	}
	buf := bytes.NewReader(raw)
	var version uint32
	if err = binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
	}
	if version != cLinkFormatVersion {
		return nil, errors.Wrapf(ErrIncompatibleVersion, "link record version %d, supported %d", version, cLinkFormatVersion)
	}
	var idLen uint16
	if err = binary.Read(buf, binary.LittleEndian, &idLen); err != nil {
		return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
	}
	id := make([]byte, idLen)
	if _, err = io.ReadFull(buf, id); err != nil {
		return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
	}
	var userSize uint64
	var count uint32
	if err = binary.Read(buf, binary.LittleEndian, &userSize); err != nil {
		return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
	}
	if err = binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
	}
	rec := &linkRecord{osID: string(id), userSize: int64(userSize)}
	for i := uint32(0); i < count; i++ {
		var tag uint32
		var off, length uint64
		if err = binary.Read(buf, binary.LittleEndian, &tag); err != nil {
			return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
		}
		if err = binary.Read(buf, binary.LittleEndian, &off); err != nil {
			return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
		}
		if err = binary.Read(buf, binary.LittleEndian, &length); err != nil {
			return nil, errors.Wrapf(ErrCorruptHeader, "link record %q is truncated", path)
		}
		spec, err := tagSpec(tag)
		if err != nil {
			return nil, err
		}
		spec.DataOffset, spec.DataLength = off, length
		rec.prims = append(rec.prims, spec)
	}
	return rec, nil
}
