// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"golang.org/x/sys/windows"
)

// IsTimeoutErr returns true, if the error is a syscall timeout.
func IsTimeoutErr(err error) bool {
	return SyscallErrHasCode(err, windows.WAIT_TIMEOUT)
}
