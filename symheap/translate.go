package symheap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/spacemeshos/go-shmem/common/types"
)

var (
	// ErrNotSymmetric is returned when an address is not inside of any registered region.
	ErrNotSymmetric = errors.New("address is not symmetric")
	// ErrTableInUse is returned when registering a second region under the same table index.
	ErrTableInUse = errors.New("table index already registered")
)

// Descriptor addresses a remote location: the destination PE, the table index of the
// region on that PE and the byte offset inside of it.
type Descriptor struct {
	PE     int
	Table  types.TableIndex
	Offset uint64
}

type entry struct {
	table  types.TableIndex
	region *Region
}

// Translator maps local addresses inside registered regions to remote access descriptors.
// It is also the target side lookup used by transports to resolve incoming accesses.
type Translator struct {
	mu      sync.RWMutex
	entries []entry // sorted by region base
}

// NewTranslator creates a translator without registered regions.
func NewTranslator() *Translator {
	return &Translator{}
}

// Register makes region remotely accessible under table.
func (t *Translator) Register(table types.TableIndex, region *Region) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.table == table {
			return fmt.Errorf("%w: %d", ErrTableInUse, table)
		}
		if overlaps(e.region, region) {
			return fmt.Errorf("region at %#x overlaps table %d", uintptr(region.Base()), e.table)
		}
	}
	t.entries = append(t.entries, entry{table: table, region: region})
	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].region.Base() < t.entries[j].region.Base()
	})
	return nil
}

func overlaps(a, b *Region) bool {
	aEnd := uintptr(a.Base()) + uintptr(a.Size())
	bEnd := uintptr(b.Base()) + uintptr(b.Size())
	return uintptr(a.Base()) < bEnd && uintptr(b.Base()) < aEnd
}

// Region returns the region registered under table.
func (t *Translator) Region(table types.TableIndex) (*Region, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.table == table {
			return e.region, true
		}
	}
	return nil, false
}

// Lookup finds the region holding [addr, addr+n) and returns it with its table index and the
// offset of addr.
func (t *Translator) Lookup(addr Addr, n uint64) (*Region, types.TableIndex, uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].region.Base() > addr
	}) - 1
	if i >= 0 {
		e := t.entries[i]
		if off, ok := e.region.Offset(addr, n); ok {
			return e.region, e.table, off, nil
		}
	}
	return nil, 0, 0, fmt.Errorf("%w: %d bytes at %#x", ErrNotSymmetric, n, uintptr(addr))
}

// Translate returns the descriptor of [addr, addr+n) as seen on pe. The symmetric layout makes
// the local offset valid on every PE.
func (t *Translator) Translate(addr Addr, n uint64, pe int) (Descriptor, error) {
	_, table, off, err := t.Lookup(addr, n)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{PE: pe, Table: table, Offset: off}, nil
}
