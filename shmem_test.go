// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"os"
	"path/filepath"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nxgtw/go-shmem/shm"
	"github.com/nxgtw/go-shmem/sync"
)

func testOSID(t *testing.T) string {
	id := "go-shmem-test-" + t.Name()
	require.NoError(t, shm.DestroyMemoryObject(id))
	return id
}

func TestCreateOpenRoundTrip(t *testing.T) {
	osID := testOSID(t)
	link := filepath.Join(t.TempDir(), "region.link")
	creator, err := Create(NewConf(1024).WithLink(link).WithOSID(osID).AddMutex(0, 64))
	require.NoError(t, err)
	defer creator.Close()
	assert.True(t, creator.IsOwner())
	assert.Equal(t, int64(1024), creator.Size())
	assert.Equal(t, osID, creator.OSID())

	mut, err := creator.Mutex(0)
	require.NoError(t, err)
	guard := mut.Lock()
	copy(guard.Bytes(), "hello")
	guard.Release()

	opened, err := Open(link)
	require.NoError(t, err)
	defer opened.Close()
	assert.False(t, opened.IsOwner())
	assert.Equal(t, int64(1024), opened.Size())
	require.Equal(t, 1, opened.PrimitiveCount())

	mut2, err := opened.Mutex(0)
	require.NoError(t, err)
	guard2 := mut2.Lock()
	assert.Equal(t, []byte("hello"), guard2.Bytes()[:5])
	guard2.Release()
}

func TestOpenByOSID(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(128).WithOSID(osID).AddMutex(0, 128))
	require.NoError(t, err)
	defer creator.Close()
	opened, err := OpenOSID(osID)
	require.NoError(t, err)
	defer opened.Close()
	assert.Equal(t, int64(128), opened.Size())
}

func TestCreateGeneratesOSID(t *testing.T) {
	m, err := Create(NewConf(128))
	require.NoError(t, err)
	defer m.Close()
	assert.NotEmpty(t, m.OSID())
}

func TestConfValidation(t *testing.T) {
	_, err := Create(NewConf(0))
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = Create(NewConf(-5))
	assert.ErrorIs(t, err, ErrInvalidSize)
	// a lock range past the user data.
	_, err = Create(NewConf(64).AddMutex(32, 64))
	assert.ErrorIs(t, err, ErrInvalidSize)
	// an empty lock range.
	_, err = Create(NewConf(64).AddMutex(0, 0))
	assert.ErrorIs(t, err, ErrInvalidSize)
	// overlapping lock ranges.
	_, err = Create(NewConf(64).AddMutex(0, 32).AddMutex(16, 32))
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCreateAlreadyExists(t *testing.T) {
	osID := testOSID(t)
	first, err := Create(NewConf(128).WithOSID(osID))
	require.NoError(t, err)
	defer first.Close()
	_, err = Create(NewConf(128).WithOSID(osID))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateLinkAlreadyExists(t *testing.T) {
	link := filepath.Join(t.TempDir(), "region.link")
	first, err := Create(NewConf(128).WithLink(link))
	require.NoError(t, err)
	defer first.Close()
	_, err = Create(NewConf(128).WithLink(link))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenNotFound(t *testing.T) {
	osID := testOSID(t)
	_, err := OpenOSID(osID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Open(filepath.Join(t.TempDir(), "no-such.link"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsBadHeader(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(128).WithOSID(osID).AddMutex(0, 128))
	require.NoError(t, err)
	defer creator.Close()
	data := creator.region.Data()

	// a different layout version.
	version := data[4]
	data[4] = version + 1
	_, err = OpenOSID(osID)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
	data[4] = version

	// a corrupt magic.
	magic := data[0]
	data[0] = magic + 1
	_, err = OpenOSID(osID)
	assert.ErrorIs(t, err, ErrCorruptHeader)
	data[0] = magic

	// a descriptor range past the user data.
	length := data[cHeaderSize+16]
	data[cHeaderSize+16] = 0xff
	_, err = OpenOSID(osID)
	assert.ErrorIs(t, err, ErrCorruptHeader)
	data[cHeaderSize+16] = length

	// the intact region opens fine again.
	opened, err := OpenOSID(osID)
	if assert.NoError(t, err) {
		opened.Close()
	}
}

func TestOpenRejectsTamperedLink(t *testing.T) {
	osID := testOSID(t)
	link := filepath.Join(t.TempDir(), "region.link")
	creator, err := Create(NewConf(128).WithLink(link).WithOSID(osID).AddMutex(0, 128))
	require.NoError(t, err)
	defer creator.Close()
	raw, err := os.ReadFile(link)
	require.NoError(t, err)
	raw[0]++ // the format version
	require.NoError(t, os.WriteFile(link, raw, 0666))
	_, err = Open(link)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestOwnerTeardown(t *testing.T) {
	osID := testOSID(t)
	owner, err := Create(NewConf(128).WithOSID(osID).AddMutex(0, 128))
	require.NoError(t, err)
	attached, err := OpenOSID(osID)
	require.NoError(t, err)

	// the owner tears down, but a mapping remains attached,
	// so new opens still succeed.
	require.NoError(t, owner.Close())
	late, err := OpenOSID(osID)
	require.NoError(t, err)
	require.NoError(t, late.Close())

	// the last detach deletes the backing object.
	require.NoError(t, attached.Close())
	_, err = OpenOSID(osID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNonOwnerCloseKeepsObject(t *testing.T) {
	osID := testOSID(t)
	owner, err := Create(NewConf(128).WithOSID(osID))
	require.NoError(t, err)
	defer owner.Close()
	attached, err := OpenOSID(osID)
	require.NoError(t, err)
	require.NoError(t, attached.Close())
	again, err := OpenOSID(osID)
	if assert.NoError(t, err) {
		again.Close()
	}
}

func TestMutexGuardExclusive(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddMutex(0, 8))
	require.NoError(t, err)
	defer creator.Close()
	opened, err := OpenOSID(osID)
	require.NoError(t, err)
	defer opened.Close()

	var holders, maxHolders int32
	var wg stdsync.WaitGroup
	for i := 0; i < 16; i++ {
		handle := creator
		if i%2 == 1 {
			handle = opened
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			mut, err := handle.Mutex(0)
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j < 100; j++ {
				guard := mut.Lock()
				n := atomic.AddInt32(&holders, 1)
				for {
					old := atomic.LoadInt32(&maxHolders)
					if n <= old || atomic.CompareAndSwapInt32(&maxHolders, old, n) {
						break
					}
				}
				counter, err := Slice[uint64](guard)
				if assert.NoError(t, err) {
					counter[0]++
				}
				atomic.AddInt32(&holders, -1)
				guard.Release()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxHolders)
	mut, err := creator.Mutex(0)
	require.NoError(t, err)
	guard := mut.Lock()
	counter, err := Slice[uint64](guard)
	require.NoError(t, err)
	assert.Equal(t, uint64(16*100), counter[0])
	guard.Release()
}

func TestMutexTryAndTimeout(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddMutex(0, 8))
	require.NoError(t, err)
	defer creator.Close()
	mut, err := creator.Mutex(0)
	require.NoError(t, err)
	guard := mut.Lock()
	_, err = mut.TryLock()
	assert.ErrorIs(t, err, ErrWouldBlock)
	_, err = mut.LockTimeout(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimedOut)
	guard.Release()
	guard2, err := mut.TryLock()
	require.NoError(t, err)
	guard2.Release()
}

func TestRWLockReadersCoexist(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddRWLock(0, 8))
	if err != nil {
		if assert.ErrorIs(t, err, ErrUnsupportedPrimitive) {
			t.Skip("rwlocks are unsupported on this platform")
		}
		t.FailNow()
	}
	defer creator.Close()
	lock, err := creator.RWLock(0)
	require.NoError(t, err)

	first := lock.RLock()
	second, err := lock.TryRLock()
	require.NoError(t, err)
	_, err = lock.TryLock()
	assert.ErrorIs(t, err, ErrWouldBlock)
	first.Release()
	second.Release()

	wguard := lock.Lock()
	_, err = lock.TryRLock()
	assert.ErrorIs(t, err, ErrWouldBlock)
	wguard.Release()
}

func TestEventNotifies(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddEvent(sync.EventManual).AddEvent(sync.EventAuto))
	if err != nil {
		if assert.ErrorIs(t, err, ErrUnsupportedPrimitive) {
			t.Skip("kernel-backed events are unsupported on this platform")
		}
		t.FailNow()
	}
	defer creator.Close()
	opened, err := OpenOSID(osID)
	require.NoError(t, err)
	defer opened.Close()

	manual, err := creator.Event(0)
	require.NoError(t, err)
	assert.Equal(t, sync.EventManual, manual.Type())
	remote, err := opened.Event(0)
	require.NoError(t, err)
	assert.ErrorIs(t, remote.TryWait(), ErrWouldBlock)
	manual.Set()
	assert.NoError(t, remote.WaitTimeout(time.Second))
	// manual events stay signaled until cleared.
	assert.NoError(t, remote.TryWait())
	manual.Clear()
	assert.ErrorIs(t, remote.TryWait(), ErrWouldBlock)

	auto, err := creator.Event(1)
	require.NoError(t, err)
	auto.Set()
	remoteAuto, err := opened.Event(1)
	require.NoError(t, err)
	assert.NoError(t, remoteAuto.TryWait())
	// the signal was consumed.
	assert.ErrorIs(t, remoteAuto.TryWait(), ErrWouldBlock)
}

func TestEventBusyRegion(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddEvent(sync.EventBusy))
	require.NoError(t, err)
	defer creator.Close()
	opened, err := OpenOSID(osID)
	require.NoError(t, err)
	defer opened.Close()
	ev, err := creator.Event(0)
	require.NoError(t, err)
	remote, err := opened.Event(0)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		remote.Wait()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	ev.Set()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("a busy event waiter did not observe Set")
	}
}

func TestPrimitiveAccessors(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddMutex(0, 8).AddEvent(sync.EventBusy))
	require.NoError(t, err)
	defer creator.Close()
	_, err = creator.Mutex(1)
	assert.Error(t, err)
	_, err = creator.Event(0)
	assert.Error(t, err)
	_, err = creator.Mutex(2)
	assert.Error(t, err)
	_, err = creator.Mutex(-1)
	assert.Error(t, err)
}

func TestSliceSizeMismatch(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddMutex(0, 10))
	require.NoError(t, err)
	defer creator.Close()
	mut, err := creator.Mutex(0)
	require.NoError(t, err)
	guard := mut.Lock()
	defer guard.Release()
	_, err = Slice[uint64](guard)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	_, err = Slice[uint32](guard)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	elems, err := Slice[uint16](guard)
	if assert.NoError(t, err) {
		assert.Len(t, elems, 5)
	}
}

func TestGuardDoubleReleasePanics(t *testing.T) {
	osID := testOSID(t)
	creator, err := Create(NewConf(64).WithOSID(osID).AddMutex(0, 8))
	require.NoError(t, err)
	defer creator.Close()
	mut, err := creator.Mutex(0)
	require.NoError(t, err)
	guard := mut.Lock()
	guard.Release()
	assert.Panics(t, func() {
		guard.Release()
	})
	assert.Panics(t, func() {
		guard.Bytes()
	})
}

func TestRawRoundTrip(t *testing.T) {
	osID := testOSID(t)
	creator, err := CreateRaw(osID, 1024)
	require.NoError(t, err)
	defer creator.Close()
	assert.True(t, creator.IsOwner())
	assert.True(t, creator.Size() >= 1024)
	copy(creator.Bytes(), "raw data")

	opened, err := OpenRaw(osID)
	require.NoError(t, err)
	defer opened.Close()
	assert.False(t, opened.IsOwner())
	assert.Equal(t, []byte("raw data"), opened.Bytes()[:8])

	view, err := Slice[uint32](opened)
	require.NoError(t, err)
	assert.Equal(t, int(opened.Size())/4, len(view))
}

func TestRawCreateErrors(t *testing.T) {
	osID := testOSID(t)
	_, err := CreateRaw(osID, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	creator, err := CreateRaw(osID, 128)
	require.NoError(t, err)
	defer creator.Close()
	_, err = CreateRaw(osID, 128)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRawOpenNotFound(t *testing.T) {
	osID := testOSID(t)
	_, err := OpenRaw(osID)
	assert.ErrorIs(t, err, ErrNotFound)
}
