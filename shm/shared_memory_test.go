// Copyright 2015 Aleksandr Demakin. All rights reserved.

package shm

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testMemObjName = "go-shmem-test-obj"

func TestCreateMemoryObject(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, err := NewMemoryObject(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if !assert.NoError(t, err) {
		return
	}
	assert.NoError(t, obj.Destroy())
}

func TestCreateMemoryObjectExclusive(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, err := NewMemoryObject(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if !assert.NoError(t, err) {
		return
	}
	defer obj.Destroy()
	_, err = NewMemoryObject(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	assert.Error(t, err)
}

func TestOpenMemoryObjectReadonly(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, err := NewMemoryObject(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if !assert.NoError(t, err) {
		return
	}
	defer obj.Destroy()
	read, err := NewMemoryObject(testMemObjName, os.O_RDONLY, 0666)
	if !assert.NoError(t, err) {
		return
	}
	assert.NoError(t, read.Close())
}

func TestMemoryObjectSize(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, created, err := NewMemoryObjectSize(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, 1024)
	if !assert.NoError(t, err) {
		return
	}
	defer obj.Destroy()
	assert.True(t, created)
	// the size is rounded up to the page size.
	assert.True(t, obj.Size() >= 1024)
	assert.True(t, obj.Size()%int64(os.Getpagesize()) == 0)
}

func TestMemoryObjectSizeOpensExisting(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, created, err := NewMemoryObjectSize(testMemObjName, os.O_CREATE|os.O_RDWR, 0666, 1024)
	if !assert.NoError(t, err) || !assert.True(t, created) {
		return
	}
	defer obj.Destroy()
	second, created, err := NewMemoryObjectSize(testMemObjName, os.O_CREATE|os.O_RDWR, 0666, 4*1024*1024)
	if !assert.NoError(t, err) {
		return
	}
	defer second.Close()
	// the existing object is used as is, the size is ignored.
	assert.False(t, created)
	assert.Equal(t, obj.Size(), second.Size())
}

func TestDestroyIsIdempotent(t *testing.T) {
	if !assert.NoError(t, DestroyMemoryObject(testMemObjName)) {
		return
	}
	obj, err := NewMemoryObject(testMemObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if !assert.NoError(t, err) {
		return
	}
	assert.NoError(t, obj.Destroy())
	assert.NoError(t, DestroyMemoryObject(testMemObjName))
}

func TestRoundToPageSize(t *testing.T) {
	_, err := RoundToPageSize(0)
	assert.Error(t, err)
	_, err = RoundToPageSize(-1)
	assert.Error(t, err)
	rounded, err := RoundToPageSize(1)
	if assert.NoError(t, err) {
		assert.Equal(t, int64(os.Getpagesize()), rounded)
	}
	_, err = RoundToPageSize(math.MaxInt64)
	assert.Error(t, err)
}

func TestInvalidObjectName(t *testing.T) {
	_, err := NewMemoryObject("invalid/name", os.O_CREATE|os.O_RDWR, 0666)
	assert.Error(t, err)
}
