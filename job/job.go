// Package job assembles PEs: the symmetric heap, a transport endpoint and the runtime on top
// of them.
package job

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-shmem/common/util"
	"github.com/spacemeshos/go-shmem/shmem"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
	"github.com/spacemeshos/go-shmem/transport/memfabric"
)

// ErrAborted wraps the fatal error of a PE that terminated a local job.
var ErrAborted = errors.New("pe aborted")

// Config of a job running in this process.
type Config struct {
	Size   int              `mapstructure:"size"`
	Heap   symheap.Config   `mapstructure:"heap"`
	Shmem  shmem.Config     `mapstructure:"shmem"`
	Fabric memfabric.Config `mapstructure:"fabric"`
}

// DefaultConfig returns the default configuration of a local job.
func DefaultConfig() Config {
	return Config{
		Size:   2,
		Heap:   symheap.DefaultConfig(),
		Shmem:  shmem.DefaultConfig(),
		Fabric: memfabric.DefaultConfig(),
	}
}

// PE is a processing element of a job.
type PE struct {
	*shmem.Runtime
	Heap *symheap.Region
}

// Alloc reserves a zeroed symmetric array of n elements of T in the heap of pe. PEs that
// perform the same sequence of allocations receive the same offsets.
//
// Reserve zeroes the array locally, which discards remote writes that landed before it. The
// PEs must synchronize, e.g. with BarrierAll, after allocating and before any remote access
// to the array.
func Alloc[T any](pe *PE, n int) (symheap.Addr, error) {
	size := uint64(n) * uint64(util.SizeOf[T]())
	return pe.Heap.Reserve(size, uint64(util.AlignOf[T]()))
}

// MustAlloc is Alloc that panics on failure.
func MustAlloc[T any](pe *PE, n int) symheap.Addr {
	addr, err := Alloc[T](pe, n)
	if err != nil {
		panic(err)
	}
	return addr
}

// Opt configures RunLocal.
type Opt func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger of the job.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// NewPE wraps tr into a PE using heap as its symmetric heap, and allocates the barrier work
// array.
func NewPE(logger *zap.Logger, cfg shmem.Config, heap *symheap.Region, mem *symheap.Translator,
	tr transport.Transport, abort func(error),
) (*PE, error) {
	opts := []shmem.Opt{shmem.WithLogger(logger), shmem.WithConfig(cfg)}
	if abort != nil {
		opts = append(opts, shmem.WithAbort(abort))
	}
	rt, err := shmem.New(tr, mem, opts...)
	if err != nil {
		return nil, err
	}
	if err := rt.BarrierInit(); err != nil {
		return nil, err
	}
	return &PE{Runtime: rt, Heap: heap}, nil
}

// NewHeap allocates a heap and registers it under shmem.HeapTable.
func NewHeap(cfg symheap.Config) (*symheap.Region, *symheap.Translator, error) {
	heap, err := symheap.NewRegionFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate heap: %w", err)
	}
	mem := symheap.NewTranslator()
	if err := mem.Register(shmem.HeapTable, heap); err != nil {
		heap.Close()
		return nil, nil, err
	}
	return heap, mem, nil
}

// RunLocal runs fn on every PE of a job connected by an in-process fabric and returns once all
// of them returned. A fatal condition on one PE or the cancellation of ctx shuts the fabric
// down, which terminates the operations the remaining PEs are blocked in.
func RunLocal(ctx context.Context, cfg Config, fn func(context.Context, *PE) error, opts ...Opt) error {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Size <= 0 {
		return fmt.Errorf("job size %d must be positive", cfg.Size)
	}
	fabric := memfabric.New(cfg.Size, memfabric.WithLogger(o.logger), memfabric.WithConfig(cfg.Fabric))

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var (
		mu     sync.Mutex
		failed error
	)
	abort := func(err error) {
		mu.Lock()
		if failed == nil {
			failed = err
		}
		mu.Unlock()
		cancel()
		runtime.Goexit()
	}

	pes := make([]*PE, cfg.Size)
	defer func() {
		for _, pe := range pes {
			if pe != nil {
				pe.Heap.Close()
			}
		}
	}()
	for rank := range pes {
		heap, mem, err := NewHeap(cfg.Heap)
		if err != nil {
			fabric.Close()
			return err
		}
		ep, err := fabric.Attach(rank, mem)
		if err != nil {
			heap.Close()
			fabric.Close()
			return err
		}
		pe, err := NewPE(o.logger, cfg.Shmem, heap, mem, ep, abort)
		if err != nil {
			heap.Close()
			fabric.Close()
			return fmt.Errorf("pe %d: %w", rank, err)
		}
		pes[rank] = pe
	}

	go func() {
		<-ctx.Done()
		fabric.Close()
	}()
	var eg errgroup.Group
	for rank, pe := range pes {
		eg.Go(func() error {
			if err := fn(ctx, pe); err != nil {
				cancel()
				return fmt.Errorf("pe %d: %w", rank, err)
			}
			return nil
		})
	}
	err := eg.Wait()
	cancel()
	if cerr := fabric.Close(); err == nil {
		err = cerr
	}
	mu.Lock()
	defer mu.Unlock()
	switch {
	case err != nil:
		return err
	case failed != nil && parent.Err() != nil:
		return fmt.Errorf("%w: %w: %w", parent.Err(), ErrAborted, failed)
	case failed != nil:
		return fmt.Errorf("%w: %w", ErrAborted, failed)
	}
	return nil
}
