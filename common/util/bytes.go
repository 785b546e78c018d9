package util

import (
	"unsafe"
)

// AsBytes returns the in-memory representation of *p. The returned slice aliases p.
func AsBytes[T any](p *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p))
}

// SliceAsBytes returns the in-memory representation of the elements of s. The returned slice
// aliases s.
func SliceAsBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(SizeOf[T]()))
}

// SizeOf returns the size of T in bytes.
func SizeOf[T any]() uintptr {
	var v T
	return unsafe.Sizeof(v)
}

// AlignOf returns the required alignment of T.
func AlignOf[T any]() uintptr {
	var v T
	return unsafe.Alignof(v)
}
