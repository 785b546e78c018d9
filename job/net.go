package job

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/shmem"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport/netfabric"
)

// NetConfig describes a PE of a job spread over several processes.
type NetConfig struct {
	Rank  int              `mapstructure:"rank"`
	Heap  symheap.Config   `mapstructure:"heap"`
	Shmem shmem.Config     `mapstructure:"shmem"`
	Net   netfabric.Config `mapstructure:"net"`
}

// DefaultNetConfig returns the default configuration of a networked PE.
func DefaultNetConfig() NetConfig {
	return NetConfig{
		Heap:  symheap.DefaultConfig(),
		Shmem: shmem.DefaultConfig(),
		Net:   netfabric.DefaultConfig(),
	}
}

// Connect creates the PE of cfg.Rank and connects it to its peers over TCP. The caller
// releases the PE with Close.
func Connect(ctx context.Context, logger *zap.Logger, cfg NetConfig, opts ...netfabric.Opt) (*PE, error) {
	heap, mem, err := NewHeap(cfg.Heap)
	if err != nil {
		return nil, err
	}
	opts = append([]netfabric.Opt{
		netfabric.WithLogger(logger.Named("net")),
		netfabric.WithConfig(cfg.Net),
	}, opts...)
	ep, err := netfabric.New(ctx, cfg.Rank, mem, opts...)
	if err != nil {
		heap.Close()
		return nil, fmt.Errorf("connect pe %d: %w", cfg.Rank, err)
	}
	pe, err := NewPE(logger, cfg.Shmem, heap, mem, ep, nil)
	if err != nil {
		ep.Close()
		heap.Close()
		return nil, err
	}
	return pe, nil
}

// Close releases the transport and the heap of a PE created by Connect.
func (pe *PE) Close() error {
	err := pe.Runtime.Close()
	if cerr := pe.Heap.Close(); err == nil {
		err = cerr
	}
	return err
}
