// Package symheap implements the symmetric heap: memory regions with identical layout on every
// PE, and the translation of local addresses into remote access descriptors.
package symheap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var (
	// ErrExhausted is returned by Reserve when the region has no room for the request.
	ErrExhausted = errors.New("symmetric region exhausted")
	// ErrOutOfRange is returned when an access falls outside of the region.
	ErrOutOfRange = errors.New("access outside of symmetric region")
	// ErrClosed is returned by accesses to a released region.
	ErrClosed = errors.New("symmetric region closed")
)

// Addr is a local virtual address. Within a registered region the same offset from the region
// base denotes the same logical object on every PE.
type Addr uintptr

// Add returns the address n bytes after a.
func (a Addr) Add(n int64) Addr {
	return Addr(int64(a) + n)
}

// Config describes the symmetric heap of a PE.
type Config struct {
	HeapSize uint64 `mapstructure:"heap-size"`
	// Mmap backs the heap with an anonymous private mapping instead of Go memory.
	Mmap bool `mapstructure:"mmap"`
}

// DefaultConfig returns the default heap configuration.
func DefaultConfig() Config {
	return Config{
		HeapSize: 4 << 20,
		Mmap:     true,
	}
}

// RegionOpt configures a Region.
type RegionOpt func(*regionOpts)

type regionOpts struct {
	mmap bool
}

// WithMmap backs the region with an anonymous mapping where the platform supports it.
func WithMmap(enable bool) RegionOpt {
	return func(o *regionOpts) {
		o.mmap = enable
	}
}

// Region is a contiguous block of symmetric memory.
//
// Every access from the owning PE and from the transport goes through the region lock, so
// remote writes delivered by the transport never race with local reads.
type Region struct {
	mu     sync.RWMutex
	mem    []byte
	base   uintptr
	size   uint64
	next   uint64
	closed bool
	unmap  func([]byte) error
}

// NewRegion allocates a zeroed region of size bytes.
func NewRegion(size uint64, opts ...RegionOpt) (*Region, error) {
	if size == 0 {
		return nil, errors.New("symmetric region size must be positive")
	}
	o := regionOpts{}
	for _, opt := range opts {
		opt(&o)
	}
	var (
		mem   []byte
		unmap func([]byte) error
		err   error
	)
	if o.mmap {
		mem, unmap, err = mapAnonymous(int(size))
		if err != nil {
			return nil, err
		}
	} else {
		mem = make([]byte, size)
	}
	return &Region{
		mem:   mem,
		base:  uintptr(unsafe.Pointer(unsafe.SliceData(mem))),
		size:  size,
		unmap: unmap,
	}, nil
}

// NewRegionFromConfig allocates a region as described by cfg.
func NewRegionFromConfig(cfg Config) (*Region, error) {
	return NewRegion(cfg.HeapSize, WithMmap(cfg.Mmap))
}

// Base returns the address of the first byte of the region.
func (r *Region) Base() Addr {
	return Addr(r.base)
}

// Size returns the size of the region in bytes.
func (r *Region) Size() uint64 {
	return r.size
}

// Addr returns the local address at offset off.
func (r *Region) Addr(off uint64) Addr {
	return Addr(r.base + uintptr(off))
}

// Offset returns the offset of addr relative to the region base and whether
// [addr, addr+n) lies inside of the region.
func (r *Region) Offset(addr Addr, n uint64) (uint64, bool) {
	if uintptr(addr) < r.base {
		return 0, false
	}
	off := uint64(uintptr(addr) - r.base)
	if !r.inRange(off, n) {
		return 0, false
	}
	return off, true
}

func (r *Region) inRange(off, n uint64) bool {
	return off <= r.size && n <= r.size-off
}

// Reserve carves size bytes aligned to align out of the region. Reservations are handed out in
// call order, so PEs performing the same sequence of reservations obtain the same offsets.
func (r *Region) Reserve(size, align uint64) (Addr, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", align)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	off := (r.next + align - 1) &^ (align - 1)
	if !r.inRange(off, size) {
		return 0, fmt.Errorf("%w: want %d bytes at %d, size %d", ErrExhausted, size, off, r.size)
	}
	r.next = off + size
	clear(r.mem[off : off+size])
	return r.Addr(off), nil
}

// ReadAt copies len(p) bytes at offset off into p.
func (r *Region) ReadAt(p []byte, off uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(off, uint64(len(p))); err != nil {
		return err
	}
	copy(p, r.mem[off:])
	return nil
}

// WriteAt copies p into the region at offset off.
func (r *Region) WriteAt(p []byte, off uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(off, uint64(len(p))); err != nil {
		return err
	}
	copy(r.mem[off:], p)
	return nil
}

// AddAt adds operand to the native-endian integer of width bytes (4 or 8) at offset off and
// returns the previous value. Arithmetic wraps.
func (r *Region) AddAt(off uint64, width int, operand uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(off, uint64(width)); err != nil {
		return 0, err
	}
	cell := r.mem[off : off+uint64(width)]
	switch width {
	case 4:
		old := binary.NativeEndian.Uint32(cell)
		binary.NativeEndian.PutUint32(cell, old+uint32(operand))
		return uint64(old), nil
	case 8:
		old := binary.NativeEndian.Uint64(cell)
		binary.NativeEndian.PutUint64(cell, old+operand)
		return old, nil
	default:
		return 0, fmt.Errorf("unsupported atomic width %d", width)
	}
}

func (r *Region) check(off, n uint64) error {
	if r.closed {
		return ErrClosed
	}
	if !r.inRange(off, n) {
		return fmt.Errorf("%w: %d bytes at %d, size %d", ErrOutOfRange, n, off, r.size)
	}
	return nil
}

// Load copies len(p) bytes at the local address addr into p.
func (r *Region) Load(addr Addr, p []byte) error {
	off, ok := r.Offset(addr, uint64(len(p)))
	if !ok {
		return fmt.Errorf("%w: load of %d bytes at %#x", ErrOutOfRange, len(p), uintptr(addr))
	}
	return r.ReadAt(p, off)
}

// Store copies p to the local address addr.
func (r *Region) Store(addr Addr, p []byte) error {
	off, ok := r.Offset(addr, uint64(len(p)))
	if !ok {
		return fmt.Errorf("%w: store of %d bytes at %#x", ErrOutOfRange, len(p), uintptr(addr))
	}
	return r.WriteAt(p, off)
}

// Close releases the memory backing the region.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap == nil {
		r.mem = nil
		return nil
	}
	err := r.unmap(r.mem)
	r.mem = nil
	if err != nil {
		return fmt.Errorf("unmap region: %w", err)
	}
	return nil
}
