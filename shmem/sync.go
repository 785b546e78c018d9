package shmem

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"

	"github.com/spacemeshos/go-shmem/common/util"
	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

// Quiet returns once every put and atomic issued by this PE was acknowledged by its target.
func (r *Runtime) Quiet() {
	start := time.Now()
	ct, err := r.tr.CounterWait(transport.CounterAck, r.pending)
	if err != nil {
		r.abort(log.ErrTransportWait("acknowledgments", err))
	}
	if ct.Failure != 0 {
		r.abort(log.ErrRemoteFailure("put", fmt.Errorf("%d of %d acknowledgments failed", ct.Failure, ct.Total())))
	}
	quietLatency.Observe(time.Since(start).Seconds())
}

// Fence orders the puts issued before it ahead of the puts issued after it, per target.
func (r *Runtime) Fence() {
	if r.ordered {
		return
	}
	r.Quiet()
}

// Atomic is an integer type remote atomics operate on.
type Atomic interface {
	~int32 | ~uint32 | ~int64 | ~uint64
}

// Add atomically adds value to the element at addr on pe. Like a put it completes locally
// and is acknowledged by Quiet.
func Add[T Atomic](r *Runtime, addr symheap.Addr, value T, pe int) {
	width := util.SizeOf[T]()
	d := r.translate(addr, uint64(width), pe)
	operand := uint64(value)
	if width == 4 {
		operand = uint64(uint32(value))
	}
	err := r.tr.Atomic(transport.AtomicSum, operand, int(width), d.PE, d.Table, d.Offset)
	if err != nil {
		r.abort(log.ErrTransportRejected("atomic", err))
	}
	r.pending++
	atomics.Inc()
	r.WaitEvents(1, transport.EventSend)
}

// Inc atomically increments the element at addr on pe.
func Inc[T Atomic](r *Runtime, addr symheap.Addr, pe int) {
	Add(r, addr, T(1), pe)
}

// Comparator is the relation WaitUntil waits for.
type Comparator uint8

const (
	CmpEQ Comparator = iota
	CmpNE
	CmpGT
	CmpGE
	CmpLT
	CmpLE
)

func (c Comparator) String() string {
	switch c {
	case CmpEQ:
		return "eq"
	case CmpNE:
		return "ne"
	case CmpGT:
		return "gt"
	case CmpGE:
		return "ge"
	case CmpLT:
		return "lt"
	case CmpLE:
		return "le"
	default:
		return fmt.Sprintf("cmp(%d)", uint8(c))
	}
}

// Valid reports whether c is a known comparator.
func (c Comparator) Valid() bool {
	return c <= CmpLE
}

// Compare evaluates "a c b".
func Compare[T constraints.Integer](c Comparator, a, b T) bool {
	switch c {
	case CmpEQ:
		return a == b
	case CmpNE:
		return a != b
	case CmpGT:
		return a > b
	case CmpGE:
		return a >= b
	case CmpLT:
		return a < b
	case CmpLE:
		return a <= b
	default:
		panic(fmt.Sprintf("unknown comparator %s", c))
	}
}

// Wait blocks while the element at addr in local symmetric memory equals value.
func Wait[T constraints.Integer](r *Runtime, addr symheap.Addr, value T) {
	WaitUntil(r, addr, CmpNE, value)
}

// WaitUntil blocks until the element at addr in local symmetric memory satisfies
// "element cmp value". Progress relies on remote writes into local memory.
func WaitUntil[T constraints.Integer](r *Runtime, addr symheap.Addr, cmp Comparator, value T) {
	if !cmp.Valid() {
		panic(fmt.Sprintf("unknown comparator %s", cmp))
	}
	var current T
	buf := util.AsBytes(&current)
	region := r.local(addr, uint64(len(buf)))
	r.waitFor(func() bool {
		if err := region.Load(addr, buf); err != nil {
			r.abort(log.ErrNotSymmetric("wait variable", err))
		}
		return Compare(cmp, current, value)
	})
}

// waitFor blocks until cond holds. cond is evaluated again after every advance of the target
// counter; a write that lands between a check and the snapshot is seen by the recheck.
func (r *Runtime) waitFor(cond func() bool) {
	if cond() {
		return
	}
	for {
		ct, err := r.tr.CounterGet(transport.CounterTarget)
		if err != nil {
			r.abort(log.ErrTransportWait("target counter", err))
		}
		if cond() {
			return
		}
		ct, err = r.tr.CounterWait(transport.CounterTarget, ct.Total()+1)
		if err != nil {
			r.abort(log.ErrTransportWait("target counter", err))
		}
		if cond() {
			wakeupSatisfied.Inc()
			return
		}
		wakeupSpurious.Inc()
		r.logger.Debug("wait woke up unsatisfied", zap.Uint64("target", ct.Total()))
	}
}
