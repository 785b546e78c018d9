package shmem

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

var errFailedEvent = errors.New("completion event reported failure")

// Opt configures a Runtime.
type Opt func(*Runtime)

// WithLogger sets the logger of the runtime.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithConfig sets the engine configuration.
func WithConfig(cfg Config) Opt {
	return func(r *Runtime) {
		r.cfg = cfg
	}
}

// WithAbort replaces the termination of the process on fatal conditions. The hook receives a
// *log.FatalError and must not return.
func WithAbort(abort func(error)) Opt {
	return func(r *Runtime) {
		r.abortHook = abort
	}
}

// Runtime is the per-process state of a PE.
type Runtime struct {
	logger    *zap.Logger
	cfg       Config
	abortHook func(error)

	tr      transport.Transport
	mem     *symheap.Translator
	rank    int
	size    int
	ordered bool
	segment uint64

	// pending counts puts and atomics issued since startup. Quiet waits until the target
	// acknowledged that many.
	pending uint64

	barrierWork symheap.Addr
}

// New returns the runtime of the local PE. mem must hold the symmetric regions of the PE with
// the heap registered under HeapTable.
func New(tr transport.Transport, mem *symheap.Translator, opts ...Opt) (*Runtime, error) {
	r := &Runtime{
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		tr:     tr,
		mem:    mem,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.Int("pe", tr.Rank()))
	if r.abortHook == nil {
		r.abortHook = func(err error) {
			var fe *log.FatalError
			if errors.As(err, &fe) {
				r.logger.Fatal("one-sided operation failed", fe.Field())
			}
			r.logger.Fatal("one-sided operation failed", zap.Error(err))
		}
	}

	caps := tr.Capabilities()
	r.rank = tr.Rank()
	r.size = tr.Size()
	r.ordered = caps.OrderedDelivery
	r.segment = caps.MaxOrderedSize
	if r.cfg.MaxOrderedSize != 0 && (r.segment == 0 || r.cfg.MaxOrderedSize < r.segment) {
		r.segment = r.cfg.MaxOrderedSize
	}
	if r.segment == 0 {
		return nil, errors.New("transport reports no max ordered size")
	}
	if r.rank < 0 || r.rank >= r.size {
		return nil, fmt.Errorf("rank %d outside of job of %d pes", r.rank, r.size)
	}
	r.logger.Debug("runtime initialized",
		zap.Int("npes", r.size),
		zap.Uint64("segment", r.segment),
		zap.Bool("ordered", r.ordered),
	)
	return r, nil
}

// Rank returns the index of the local PE.
func (r *Runtime) Rank() int {
	return r.rank
}

// Size returns the number of PEs in the job.
func (r *Runtime) Size() int {
	return r.size
}

// Pending returns the number of puts and atomics issued so far.
func (r *Runtime) Pending() uint64 {
	return r.pending
}

// Translator returns the symmetric memory of the local PE.
func (r *Runtime) Translator() *symheap.Translator {
	return r.mem
}

// Close shuts down the transport.
func (r *Runtime) Close() error {
	return r.tr.Close()
}

func (r *Runtime) abort(fe *log.FatalError) {
	r.logger.Error("aborting", fe.Field())
	r.abortHook(fe)
	panic(fe)
}

func (r *Runtime) translate(addr symheap.Addr, n uint64, pe int) symheap.Descriptor {
	d, err := r.mem.Translate(addr, n, pe)
	if err != nil {
		r.abort(log.ErrNotSymmetric(fmt.Sprintf("access of pe %d", pe), err))
	}
	return d
}

func (r *Runtime) local(addr symheap.Addr, n uint64) *symheap.Region {
	region, _, _, err := r.mem.Lookup(addr, n)
	if err != nil {
		r.abort(log.ErrNotSymmetric("local access", err))
	}
	return region
}
