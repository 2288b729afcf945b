// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nxgtw/go-shmem/sync"
)

// PrimitiveKind identifies the flavour of a primitive embedded in a region.
type PrimitiveKind int

const (
	// KindMutex is an exclusive lock guarding a range of the user data.
	KindMutex PrimitiveKind = iota
	// KindRWLock is a reader/writer lock guarding a range of the user data.
	KindRWLock
	// KindEvent is a notification primitive. It guards no data range.
	KindEvent
)

// PrimitiveSpec describes one primitive of a region: its kind, the
// event flavour for events, and the byte range of the user data
// a lock guards.
type PrimitiveSpec struct {
	Kind       PrimitiveKind
	EventType  sync.EventType
	DataOffset uint64
	DataLength uint64
}

// Conf describes a region to be created: the size of its user data,
// the primitives embedded in front of the data, and the way the region
// is published to other processes.
type Conf struct {
	size  int64
	link  string
	osID  string
	prims []PrimitiveSpec
}

// NewConf returns a config for a region with 'size' bytes of user data.
func NewConf(size int64) *Conf {
	return &Conf{size: size}
}

// WithLink makes Create persist a link record at the given path,
// so that another process can reopen the region with Open.
func (c *Conf) WithLink(path string) *Conf {
	c.link = path
	return c
}

// WithOSID sets the name of the underlying os object. If it is not
// set, Create generates a random one.
func (c *Conf) WithOSID(id string) *Conf {
	c.osID = id
	return c
}

// AddMutex embeds a mutex guarding the given range of the user data.
func (c *Conf) AddMutex(offset, length uint64) *Conf {
	c.prims = append(c.prims, PrimitiveSpec{Kind: KindMutex, DataOffset: offset, DataLength: length})
	return c
}

// AddRWLock embeds a reader/writer lock guarding the given range
// of the user data.
func (c *Conf) AddRWLock(offset, length uint64) *Conf {
	c.prims = append(c.prims, PrimitiveSpec{Kind: KindRWLock, DataOffset: offset, DataLength: length})
	return c
}

// AddEvent embeds an event of the given flavour.
func (c *Conf) AddEvent(typ sync.EventType) *Conf {
	c.prims = append(c.prims, PrimitiveSpec{Kind: KindEvent, EventType: typ})
	return c
}

func (c *Conf) validate() error {
	if c.size <= 0 {
		return errors.Wrapf(ErrInvalidSize, "user data size must be positive, got %d", c.size)
	}
	type span struct{ begin, end uint64 }
	var spans []span
	for i, spec := range c.prims {
		if spec.Kind == KindEvent {
			continue
		}
		end := spec.DataOffset + spec.DataLength
		if spec.DataLength == 0 || end < spec.DataOffset || end > uint64(c.size) {
			return errors.Wrapf(ErrInvalidSize,
				"lock %d guards the range [%d,%d), which does not fit %d bytes of user data",
				i, spec.DataOffset, end, c.size)
		}
		spans = append(spans, span{spec.DataOffset, end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].begin < spans[j].begin })
	for i := 1; i < len(spans); i++ {
		if spans[i].begin < spans[i-1].end {
			return errors.Wrapf(ErrInvalidSize,
				"lock ranges [%d,%d) and [%d,%d) overlap",
				spans[i-1].begin, spans[i-1].end, spans[i].begin, spans[i].end)
		}
	}
	return nil
}
