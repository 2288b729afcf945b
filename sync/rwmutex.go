// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

// RWMutexStateSize is the number of bytes a rwmutex occupies in shared
// memory: a 64-bit split-counter word and two futex semaphore cells.
const RWMutexStateSize = 16

// RWMutex is an interprocess lock, that can be held by any number of
// readers or one writer. Its state lives in a caller-supplied byte
// block inside a shared memory region.
//
// RWMutex is only available on the platforms with a futex-like kernel
// primitive. Elsewhere NewRWMutex returns ErrUnsupported: a silent
// downgrade to an exclusive mutex would change the semantics the
// caller asked for.
type RWMutex struct {
	*rwMutex
}

var (
	_ IPCLocker = (*RWMutex)(nil)
)

// NewRWMutex returns a rwmutex over the given state block.
//	state - the primitive's bytes inside the shared region,
//		at least RWMutexStateSize long.
//	name - a unique name of the primitive. unused on the platforms,
//		where the state block carries everything.
func NewRWMutex(state []byte, name string) (*RWMutex, error) {
	impl, err := newRWMutex(state, name)
	if err != nil {
		return nil, err
	}
	return &RWMutex{impl}, nil
}

// Init writes the initial state into the mutex's memory location.
// It must be called exactly once, by the creator of the region.
func (rw *RWMutex) Init() {
	rw.rwMutex.init()
}

// Lock locks the mutex exclusively. It panics on an error.
func (rw *RWMutex) Lock() {
	rw.rwMutex.lock()
}

// TryLock makes one attempt to lock the mutex exclusively.
func (rw *RWMutex) TryLock() bool {
	return rw.rwMutex.tryLock()
}

// Unlock releases the mutex. It panics on an error, or if the mutex is not locked.
func (rw *RWMutex) Unlock() {
	rw.rwMutex.unlock()
}

// RLock locks the mutex for reading. It panics on an error.
func (rw *RWMutex) RLock() {
	rw.rwMutex.rlock()
}

// TryRLock makes one attempt to lock the mutex for reading.
func (rw *RWMutex) TryRLock() bool {
	return rw.rwMutex.tryRLock()
}

// RUnlock decreases the number of the mutex's readers. If it becomes 0,
// writers (if any) can proceed. It panics on an error, or if the mutex
// is not locked.
func (rw *RWMutex) RUnlock() {
	rw.rwMutex.runlock()
}

// Close releases the process-local resources of the mutex.
func (rw *RWMutex) Close() error {
	return rw.rwMutex.close()
}

// RLocker returns a Locker interface that implements the Lock and
// Unlock methods by calling rw.RLock and rw.RUnlock.
func (rw *RWMutex) RLocker() IPCLocker {
	return (*rlocker)(rw)
}

type rlocker RWMutex

func (r *rlocker) Lock()        { (*RWMutex)(r).RLock() }
func (r *rlocker) Unlock()      { (*RWMutex)(r).RUnlock() }
func (r *rlocker) Close() error { return (*RWMutex)(r).Close() }
