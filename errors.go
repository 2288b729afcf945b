// Copyright 2016 Aleksandr Demakin. All rights reserved.

package shmem

import (
	"os"

	"github.com/pkg/errors"
)

// Error kinds returned by the package. Fallible operations wrap one of
// these with context; match them with errors.Is.
var (
	// ErrAlreadyExists is returned by create calls,
	// if the os object or the link file is already in use.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound is returned by open calls, if the os object
	// or the link file does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrPermission is returned, if the caller may not access the object.
	ErrPermission = errors.New("permission denied")
	// ErrInvalidSize is returned for a zero size, a size overflowing
	// when rounded to the page size, or a lock range outside the region.
	ErrInvalidSize = errors.New("invalid size")
	// ErrMappingFailed is returned, if the os object could not be
	// mapped into the address space.
	ErrMappingFailed = errors.New("mapping failed")
	// ErrIncompatibleVersion is returned on open, if the region header
	// or the link record was written by an incompatible version.
	ErrIncompatibleVersion = errors.New("incompatible format version")
	// ErrCorruptHeader is returned on open, if the region header
	// fails validation.
	ErrCorruptHeader = errors.New("corrupt region header")
	// ErrSizeMismatch is returned by typed views, if the element size
	// does not evenly divide the byte range.
	ErrSizeMismatch = errors.New("element size does not divide the range length")
	// ErrUnsupportedPrimitive is returned, if the requested primitive
	// kind is not available on this platform.
	ErrUnsupportedPrimitive = errors.New("primitive is unsupported on this platform")
	// ErrWouldBlock is returned by try-variants, which could not
	// proceed without blocking.
	ErrWouldBlock = errors.New("operation would block")
	// ErrTimedOut is returned, if a timeout elapsed before
	// the operation could complete.
	ErrTimedOut = errors.New("operation timed out")
)

// wrapOSErr classifies an os-level failure into one of the error kinds,
// keeping the original error text. Unclassified errors pass through.
func wrapOSErr(err error, what string) error {
	cause := errors.Cause(err)
	switch {
	case os.IsExist(cause):
		return errors.Wrapf(ErrAlreadyExists, "%s: %v", what, err)
	case os.IsNotExist(cause):
		return errors.Wrapf(ErrNotFound, "%s: %v", what, err)
	case os.IsPermission(cause):
		return errors.Wrapf(ErrPermission, "%s: %v", what, err)
	}
	return errors.Wrap(err, what)
}
