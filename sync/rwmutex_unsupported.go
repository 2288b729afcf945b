// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build !linux && !freebsd

package sync

type rwMutex struct{}

func newRWMutex(state []byte, name string) (*rwMutex, error) {
	return nil, ErrUnsupported
}

func (rw *rwMutex) init()          {}
func (rw *rwMutex) lock()          {}
func (rw *rwMutex) tryLock() bool  { return false }
func (rw *rwMutex) unlock()        {}
func (rw *rwMutex) rlock()         {}
func (rw *rwMutex) tryRLock() bool { return false }
func (rw *rwMutex) runlock()       {}
func (rw *rwMutex) close() error   { return nil }
