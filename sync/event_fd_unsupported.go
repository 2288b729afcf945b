// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build !linux

package sync

func newFdEvent(state []byte) (eventImpl, error) {
	return nil, ErrUnsupported
}
