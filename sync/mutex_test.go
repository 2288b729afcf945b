// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutexLock(t *testing.T) {
	state := make([]byte, MutexStateSize)
	mut, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer mut.Close()
	mut.Init()
	var wg sync.WaitGroup
	sharedValue := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			mut.Lock()
			for j := 0; j < 1000; j++ {
				sharedValue++
			}
			mut.Unlock()
			wg.Done()
		}()
	}
	wg.Wait()
	assert.Equal(t, 30000, sharedValue)
}

func TestMutexSharedState(t *testing.T) {
	// two mutex objects over the same state block must exclude each other.
	state := make([]byte, MutexStateSize)
	first, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer first.Close()
	first.Init()
	second, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer second.Close()
	first.Lock()
	assert.False(t, second.TryLock())
	first.Unlock()
	if assert.True(t, second.TryLock()) {
		second.Unlock()
	}
}

func TestMutexTryLock(t *testing.T) {
	state := make([]byte, MutexStateSize)
	mut, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer mut.Close()
	mut.Init()
	if !assert.True(t, mut.TryLock()) {
		return
	}
	assert.False(t, mut.TryLock())
	mut.Unlock()
	assert.True(t, mut.TryLock())
	mut.Unlock()
}

func TestMutexLockTimeout(t *testing.T) {
	state := make([]byte, MutexStateSize)
	mut, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer mut.Close()
	mut.Init()
	mut.Lock()
	assert.False(t, mut.LockTimeout(20*time.Millisecond))
	go func() {
		time.Sleep(20 * time.Millisecond)
		mut.Unlock()
	}()
	assert.True(t, mut.LockTimeout(5*time.Second))
	mut.Unlock()
}

func TestMutexUnlockOfUnlockedPanics(t *testing.T) {
	state := make([]byte, MutexStateSize)
	mut, err := NewMutex(state, "mutex-test")
	if !assert.NoError(t, err) {
		return
	}
	defer mut.Close()
	mut.Init()
	assert.Panics(t, func() {
		mut.Unlock()
	})
}
