// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/nxgtw/go-shmem/internal/allocator"
)

// fdEvent is backed by a linux eventfd. A file descriptor cannot travel
// through shared memory, so the state block records the pid of the
// creator and the descriptor's number in that process; an attaching
// process recovers its own copy of the descriptor with pidfd_getfd.
// The creator must still be alive at attach time.
//
// state block layout: 4 bytes of the creator pid, 4 bytes of the
// descriptor number, both written once by init.
type fdEvent struct {
	pid *uint32
	fd  *uint32
	efd int
}

func newFdEvent(state []byte) (*fdEvent, error) {
	ptr := allocator.ByteSliceData(state)
	e := &fdEvent{
		pid: (*uint32)(ptr),
		fd:  (*uint32)(allocator.AdvancePointer(ptr, 4)),
		efd: -1,
	}
	if pid := atomic.LoadUint32(e.pid); pid != 0 {
		if err := e.attach(int(pid), int(atomic.LoadUint32(e.fd))); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// init creates the eventfd and publishes its identity in the state block.
func (e *fdEvent) init(signaled bool) {
	initial := 0
	if signaled {
		initial = 1
	}
	efd, err := unix.Eventfd(uint(initial), unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		panic(os.NewSyscallError("eventfd", err))
	}
	e.efd = efd
	atomic.StoreUint32(e.fd, uint32(efd))
	atomic.StoreUint32(e.pid, uint32(os.Getpid()))
}

// attach duplicates the creator's descriptor into this process.
// Every handle gets its own descriptor, so closing one handle
// does not invalidate the others.
func (e *fdEvent) attach(pid, fd int) error {
	if pid == os.Getpid() {
		efd, err := unix.Dup(fd)
		if err != nil {
			return errors.Wrap(os.NewSyscallError("dup", err), "failed to duplicate the eventfd")
		}
		e.efd = efd
		return nil
	}
	pidfd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return errors.Wrap(os.NewSyscallError("pidfd_open", err), "event creator is not reachable")
	}
	defer unix.Close(pidfd)
	efd, err := unix.PidfdGetfd(pidfd, fd, 0)
	if err != nil {
		return errors.Wrap(os.NewSyscallError("pidfd_getfd", err), "failed to obtain the eventfd")
	}
	e.efd = efd
	return nil
}

func (e *fdEvent) set() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(e.efd, buf[:])
		if err == nil {
			return
		}
		if err != unix.EINTR {
			panic(os.NewSyscallError("write", err))
		}
	}
}

func (e *fdEvent) clear() {
	// consume the pending value, if any.
	e.tryWait()
}

func (e *fdEvent) wait() {
	if !e.waitTimeout(-1) {
		panic("unexpected timeout of an infinite wait")
	}
}

func (e *fdEvent) waitTimeout(timeout time.Duration) bool {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		if e.tryWait() {
			return true
		}
		waitMillis := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				return false
			}
			waitMillis = int(remaining.Nanoseconds() / 1e6)
		}
		fds := []unix.PollFd{{Fd: int32(e.efd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, waitMillis)
		if err != nil && err != unix.EINTR {
			panic(os.NewSyscallError("poll", err))
		}
		if n == 0 && timeout >= 0 && !time.Now().Before(deadline) {
			return false
		}
	}
}

func (e *fdEvent) tryWait() bool {
	var buf [8]byte
	_, err := unix.Read(e.efd, buf[:])
	return err == nil
}

func (e *fdEvent) close() error {
	if e.efd < 0 {
		return nil
	}
	err := unix.Close(e.efd)
	e.efd = -1
	return err
}
