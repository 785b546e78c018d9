package shmem

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/symheap"
)

// ErrNoHeap is returned by BarrierInit when no region is registered under HeapTable.
var ErrNoHeap = errors.New("symmetric heap is not registered")

// BarrierInit allocates the zeroed work array of BarrierAll in the symmetric heap. Every PE
// must call it in the same order relative to its other heap allocations.
func (r *Runtime) BarrierInit() error {
	if r.barrierWork != 0 {
		return nil
	}
	heap, ok := r.mem.Region(HeapTable)
	if !ok {
		return ErrNoHeap
	}
	slots := max(r.cfg.BarrierSyncSize, 1)
	addr, err := heap.Reserve(uint64(slots)*8, 8)
	if err != nil {
		return fmt.Errorf("allocate barrier work array: %w", err)
	}
	r.barrierWork = addr
	return nil
}

// BarrierWork returns the address of the work array allocated by BarrierInit.
func (r *Runtime) BarrierWork() symheap.Addr {
	return r.barrierWork
}

// Barrier synchronizes the PEs of the active set start, start+2^logStride, ... of size
// members. pSync is a symmetric int64 that is zero on every member when no barrier on it is
// in progress, and is left zero on return.
//
// Members increment the counter of the root and wait for its release; the root waits for
// size-1 arrivals, resets its counter and releases the others. Barrier does not complete
// outstanding puts.
func (r *Runtime) Barrier(start, logStride, size int, pSync symheap.Addr) {
	set := types.ActiveSet{Start: start, LogStride: logStride, Size: size}
	if err := set.Validate(r.size); err != nil {
		panic(fmt.Sprintf("barrier on %s: %v", set, err))
	}
	if !set.Contains(r.rank) {
		panic(fmt.Sprintf("pe %d is not a member of %s", r.rank, set))
	}
	if set.Root() == r.rank {
		WaitUntil(r, pSync, CmpEQ, int64(size-1))
		Store(r, pSync, int64(0))
		for i := 1; i < size; i++ {
			P(r, pSync, int64(1), set.Member(i))
		}
		barrierRoot.Inc()
		return
	}
	Inc[int64](r, pSync, set.Root())
	Wait(r, pSync, int64(0))
	Store(r, pSync, int64(0))
	barrierParticipant.Inc()
}

// BarrierAll completes all outstanding puts and synchronizes every PE of the job.
func (r *Runtime) BarrierAll() {
	if r.barrierWork == 0 {
		panic("BarrierAll called before BarrierInit")
	}
	r.Quiet()
	r.Barrier(0, 0, r.size, r.barrierWork)
}
