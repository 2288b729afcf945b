// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nxgtw/go-shmem/internal/allocator"
	"github.com/nxgtw/go-shmem/internal/common"
)

const (
	cFUTEX_WAIT = 0
	cFUTEX_WAKE = 1
)

// futexWait checks if the the value equals futex's value.
// If it doesn't, futexWait returns EWOULDBLOCK.
// Otherwise, it waits for the wake call on the futex for not longer, than timeout.
func futexWait(addr unsafe.Pointer, value uint32, timeout time.Duration) error {
	ts := common.TimeoutToTimeSpec(timeout)
	_, err := sysFutex(addr, cFUTEX_WAIT, value, unsafe.Pointer(ts), nil, 0)
	return err
}

// futexWake wakes up to count waiters on the given futex.
func futexWake(addr unsafe.Pointer, count uint32) (int, error) {
	return sysFutex(addr, cFUTEX_WAKE, count, nil, nil, 0)
}

func sysFutex(addr unsafe.Pointer, op int32, val uint32, ts, addr2 unsafe.Pointer, val3 uint32) (int, error) {
	r1, _, err := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(addr),
		uintptr(op),
		uintptr(val),
		uintptr(ts),
		uintptr(addr2),
		uintptr(val3))
	allocator.Use(addr)
	allocator.Use(ts)
	if err != 0 {
		return 0, os.NewSyscallError("FUTEX", err)
	}
	return int(r1), nil
}
