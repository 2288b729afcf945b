// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package shmem shares a memory region between independent processes
// and coordinates access to it with synchronization primitives living
// inside the region:
//	mutexes and reader/writer locks guarding ranges of the data,
//	accessed through scoped guards (unix, windows)
//	events in several flavours for notification (unix, windows)
//	raw regions without any primitives (unix, windows)
// A region is created from a Conf and reopened by other processes
// either via a persisted link record or by the os object's name.
// The creating handle owns the backing object and deletes it on Close;
// openers keep working, and new opens keep succeeding, while at least
// one mapping remains attached.
//
// If a process terminates while holding a lock, the lock stays held
// from every other process's point of view. The library does not
// detect or recover from this.
package shmem
