// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package common keeps open-mode and syscall helpers shared by
// the backend and the sync primitives.
package common

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// OpenOrCreate performs open/create attempts according to the flag.
// creator is called with 'true' to create an object and with 'false' to open it.
// For os.O_CREATE without os.O_EXCL the pair of calls is retried several
// times, as the object can appear/disappear between the attempts.
func OpenOrCreate(creator func(create bool) error, flag int) (bool, error) {
	switch flag & (os.O_CREATE | os.O_EXCL) {
	case 0:
		return false, creator(false)
	case os.O_CREATE | os.O_EXCL:
		if err := creator(true); err != nil {
			return false, err
		}
		return true, nil
	case os.O_CREATE:
		const attempts = 16
		var err error
		for attempt := 0; attempt < attempts; attempt++ {
			if err = creator(true); !os.IsExist(errors.Cause(err)) {
				return true, err
			}
			if err = creator(false); !os.IsNotExist(errors.Cause(err)) {
				return false, err
			}
		}
		return false, err
	default:
		return false, errors.New("os.O_EXCL without os.O_CREATE")
	}
}

// SyscallErrHasCode returns true, if the given error is a syscall error
// with the given errno.
func SyscallErrHasCode(err error, code syscall.Errno) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == code
	}
	return false
}
