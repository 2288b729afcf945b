// Copyright 2015 Aleksandr Demakin. All rights reserved.

package mmf

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nxgtw/go-shmem/shm"
)

const testRegionObjName = "go-shmem-test-region"

func newTestObject(t *testing.T, size int64) *shm.MemoryObject {
	if !assert.NoError(t, shm.DestroyMemoryObject(testRegionObjName)) {
		t.FailNow()
	}
	obj, _, err := shm.NewMemoryObjectSize(testRegionObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, size)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return obj
}

func TestCreateRegion(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	region, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 4096)
	if !assert.NoError(t, err) {
		return
	}
	defer region.Close()
	assert.Equal(t, 4096, region.Size())
	assert.Equal(t, 4096, len(region.Data()))
}

func TestRegionDataIsShared(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	first, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 4096)
	if !assert.NoError(t, err) {
		return
	}
	defer first.Close()
	second, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 4096)
	if !assert.NoError(t, err) {
		return
	}
	defer second.Close()
	for i := range first.Data() {
		first.Data()[i] = byte(i)
	}
	for i, b := range second.Data() {
		if b != byte(i) {
			t.Fatalf("regions diverge at byte %d", i)
		}
	}
}

func TestMmapSizeFromObject(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	// a zero mapping size must resolve to the object's size.
	size, err := checkMmapSize(obj, 0)
	if assert.NoError(t, err) {
		assert.Equal(t, int(obj.Size()), size)
	}
	fileSize, err := fileSizeFromFd(obj)
	if assert.NoError(t, err) {
		assert.Equal(t, obj.Size(), fileSize)
	}
}

func TestRegionWholeObject(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	// zero size maps the whole object.
	region, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 0)
	if !assert.NoError(t, err) {
		return
	}
	defer region.Close()
	assert.Equal(t, int(obj.Size()), region.Size())
}

func TestRegionNonZeroOffset(t *testing.T) {
	obj := newTestObject(t, 2*int64(os.Getpagesize()))
	defer obj.Destroy()
	whole, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 0)
	if !assert.NoError(t, err) {
		return
	}
	defer whole.Close()
	whole.Data()[os.Getpagesize()] = 0x42
	tail, err := NewMemoryRegion(obj, MEM_READWRITE, int64(os.Getpagesize()), os.Getpagesize())
	if !assert.NoError(t, err) {
		return
	}
	defer tail.Close()
	assert.Equal(t, byte(0x42), tail.Data()[0])
}

func TestRegionReadonly(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	region, err := NewMemoryRegion(obj, MEM_READ_ONLY, 0, 4096)
	if !assert.NoError(t, err) {
		return
	}
	defer region.Close()
	assert.Equal(t, 4096, len(region.Data()))
}

func TestRegionSizeExceedsObject(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	_, err := NewMemoryRegion(obj, MEM_READWRITE, 0, int(obj.Size())+os.Getpagesize())
	assert.Error(t, err)
}

func TestRegionFlush(t *testing.T) {
	obj := newTestObject(t, 4096)
	defer obj.Destroy()
	region, err := NewMemoryRegion(obj, MEM_READWRITE, 0, 4096)
	if !assert.NoError(t, err) {
		return
	}
	defer region.Close()
	region.Data()[0] = 1
	assert.NoError(t, region.Flush(false))
}
