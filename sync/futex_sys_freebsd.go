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
	cUMTX_OP_WAIT_UINT = 0xb
	cUMTX_OP_WAKE      = 0x3
)

// futexWait checks if the the value equals futex's value.
// If it doesn't, futexWait returns EWOULDBLOCK.
// Otherwise, it waits for the wake call on the futex for not longer, than timeout.
func futexWait(addr unsafe.Pointer, value uint32, timeout time.Duration) error {
	ts := common.TimeoutToTimeSpec(timeout)
	_, err := sysUmtxOp(addr, cUMTX_OP_WAIT_UINT, value, nil, unsafe.Pointer(ts))
	return err
}

// futexWake wakes up to count waiters on the given futex.
func futexWake(addr unsafe.Pointer, count uint32) (int, error) {
	woken, err := sysUmtxOp(addr, cUMTX_OP_WAKE, count, nil, nil)
	if err != nil {
		return 0, err
	}
	return int(woken), nil
}

func sysUmtxOp(addr unsafe.Pointer, mode int32, val uint32, ptr2, ts unsafe.Pointer) (int32, error) {
	r1, _, err := unix.Syscall6(unix.SYS__UMTX_OP,
		uintptr(addr),
		uintptr(mode),
		uintptr(val),
		uintptr(ptr2),
		uintptr(ts),
		0)
	allocator.Use(ptr2)
	allocator.Use(ts)
	if err != 0 {
		return 0, os.NewSyscallError("_UMTX_OP", err)
	}
	return int32(r1), nil
}
