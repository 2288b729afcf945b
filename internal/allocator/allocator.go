// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package allocator provides helpers to reinterpret mapped bytes
// as objects and vice versa.
package allocator

import (
	"runtime"
	"unsafe"
)

// ByteSliceData returns a pointer to the data of the given byte slice.
func ByteSliceData(slice []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(slice))
}

// ByteSliceFromUnsafePointer returns a slice of bytes with the given length.
// Memory pointed to by the unsafe.Pointer is used for the slice.
func ByteSliceFromUnsafePointer(memory unsafe.Pointer, length int) []byte {
	return unsafe.Slice((*byte)(memory), length)
}

// AdvancePointer adds shift value to the 'p' pointer.
func AdvancePointer(p unsafe.Pointer, shift uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + shift)
}

// Use ensures that the object the pointer refers to is alive
// at the moment of the call.
func Use(p unsafe.Pointer) {
	runtime.KeepAlive(p)
}
