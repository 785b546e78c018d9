package transport

import (
	"fmt"

	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/symheap"
)

// Target applies incoming one-sided operations to local symmetric memory. Puts and atomics
// are counted on the target counter whatever their outcome.
type Target struct {
	mem     *symheap.Translator
	counter *CounterCell
}

// NewTarget creates a Target resolving table indices with mem.
func NewTarget(mem *symheap.Translator, counter *CounterCell) *Target {
	return &Target{mem: mem, counter: counter}
}

// Counter returns the target counter.
func (t *Target) Counter() *CounterCell {
	return t.counter
}

func (t *Target) region(table types.TableIndex) (*symheap.Region, error) {
	region, ok := t.mem.Region(table)
	if !ok {
		return nil, fmt.Errorf("table %d is not registered", table)
	}
	return region, nil
}

func (t *Target) count(err error) error {
	if err != nil {
		t.counter.Add(0, 1)
		return err
	}
	t.counter.Add(1, 0)
	return nil
}

// Put writes data at offset of the region registered under table.
func (t *Target) Put(table types.TableIndex, offset uint64, data []byte) error {
	region, err := t.region(table)
	if err == nil {
		err = region.WriteAt(data, offset)
	}
	return t.count(err)
}

// Get reads len(dst) bytes at offset of the region registered under table.
func (t *Target) Get(table types.TableIndex, offset uint64, dst []byte) error {
	region, err := t.region(table)
	if err != nil {
		return err
	}
	return region.ReadAt(dst, offset)
}

// Atomic applies op to the cell of width bytes at offset.
func (t *Target) Atomic(op AtomicOp, operand uint64, width int, table types.TableIndex, offset uint64) error {
	if op != AtomicSum {
		return t.count(fmt.Errorf("unsupported atomic op %d", op))
	}
	region, err := t.region(table)
	if err == nil {
		_, err = region.AddAt(offset, width, operand)
	}
	return t.count(err)
}
