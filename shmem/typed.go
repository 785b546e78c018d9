package shmem

import (
	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/common/util"
	"github.com/spacemeshos/go-shmem/symheap"
)

// Scalar is an element type of the typed operations.
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~int | ~uint | ~float32 | ~float64 | types.Uint128
}

// P writes value into the element at addr on pe.
func P[T Scalar](r *Runtime, addr symheap.Addr, value T, pe int) {
	r.PutMem(addr, util.AsBytes(&value), pe)
}

// G reads the element at addr on pe.
func G[T Scalar](r *Runtime, addr symheap.Addr, pe int) T {
	var value T
	r.GetMem(util.AsBytes(&value), addr, pe)
	return value
}

// Put copies the elements of source to target on pe.
func Put[T Scalar](r *Runtime, target symheap.Addr, source []T, pe int) {
	r.PutMem(target, util.SliceAsBytes(source), pe)
}

// Get copies len(target) elements at source on pe into target.
func Get[T Scalar](r *Runtime, target []T, source symheap.Addr, pe int) {
	r.GetMem(util.SliceAsBytes(target), source, pe)
}

// IPut copies n elements of source taken every sst elements to target on pe, every tst
// elements.
func IPut[T Scalar](r *Runtime, target symheap.Addr, source []T, tst, sst, n int, pe int) {
	r.iput(target, util.SliceAsBytes(source), util.SizeOf[T](), tst, sst, n, pe)
}

// IGet copies n elements at source on pe taken every sst elements into target, every tst
// elements.
func IGet[T Scalar](r *Runtime, target []T, source symheap.Addr, tst, sst, n int, pe int) {
	r.iget(util.SliceAsBytes(target), source, util.SizeOf[T](), tst, sst, n, pe)
}

// Load reads the element at addr in local symmetric memory.
func Load[T Scalar](r *Runtime, addr symheap.Addr) T {
	var value T
	buf := util.AsBytes(&value)
	if err := r.local(addr, uint64(len(buf))).Load(addr, buf); err != nil {
		panic(err)
	}
	return value
}

// Store writes value into the element at addr in local symmetric memory.
func Store[T Scalar](r *Runtime, addr symheap.Addr, value T) {
	buf := util.AsBytes(&value)
	if err := r.local(addr, uint64(len(buf))).Store(addr, buf); err != nil {
		panic(err)
	}
}
