package symheap

import "unsafe"

func addrOf[T any](p *T) Addr {
	return Addr(uintptr(unsafe.Pointer(p)))
}
