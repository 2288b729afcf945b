// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build !linux && !freebsd && !windows

package sync

// Neither a futex-like primitive nor cross-process kernel events are
// available here; only EventBusy works. Callers must pick a supported
// flavour at creation time.
func newGenericEvent(state []byte, manual bool, name string) (eventImpl, error) {
	return nil, ErrUnsupported
}
