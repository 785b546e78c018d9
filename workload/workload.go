// Package workload drives the one-sided operations of a job with a verifiable exchange
// pattern: every round each PE writes a block to its right neighbor, contiguous and strided,
// counts itself on PE 0 and verifies what its left neighbor wrote.
package workload

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-shmem/common/util"
	"github.com/spacemeshos/go-shmem/hash"
	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/shmem"
)

// ErrMismatch is returned when a PE does not observe the data its neighbor wrote.
var ErrMismatch = errors.New("exchanged data mismatch")

// Config of the workload.
type Config struct {
	Rounds   int `mapstructure:"rounds"`
	Elements int `mapstructure:"elements"`
	Stride   int `mapstructure:"stride"`
}

// DefaultConfig returns the default workload.
func DefaultConfig() Config {
	return Config{
		Rounds:   16,
		Elements: 1024,
		Stride:   3,
	}
}

// Validate checks that cfg describes a runnable workload.
func (cfg Config) Validate() error {
	switch {
	case cfg.Rounds <= 0:
		return fmt.Errorf("rounds %d must be positive", cfg.Rounds)
	case cfg.Elements <= 0:
		return fmt.Errorf("elements %d must be positive", cfg.Elements)
	case cfg.Stride <= 0:
		return fmt.Errorf("stride %d must be positive", cfg.Stride)
	}
	return nil
}

// Result of the workload on one PE.
type Result struct {
	PE       int           `json:"pe"`
	Rounds   int           `json:"rounds"`
	Bytes    uint64        `json:"bytes"`
	Checksum string        `json:"checksum"`
	Counter  int64         `json:"counter,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

func fill(buf []uint64, pe, round int) {
	for i := range buf {
		buf[i] = uint64(pe)<<48 | uint64(round)<<24 | uint64(i)
	}
}

// Run executes the workload on pe. Every PE of the job must run it with the same cfg.
func Run(ctx context.Context, logger *zap.Logger, pe *job.PE, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	var (
		n     = pe.Size()
		me    = pe.Rank()
		right = (me + 1) % n
		left  = (me + n - 1) % n
	)
	ring, err := job.Alloc[uint64](pe, cfg.Elements)
	if err != nil {
		return Result{}, fmt.Errorf("allocate ring buffer: %w", err)
	}
	strided, err := job.Alloc[uint64](pe, cfg.Elements*cfg.Stride)
	if err != nil {
		return Result{}, fmt.Errorf("allocate strided buffer: %w", err)
	}
	counter, err := job.Alloc[int64](pe, 1)
	if err != nil {
		return Result{}, fmt.Errorf("allocate counter: %w", err)
	}
	pe.BarrierAll()

	var (
		out   = make([]uint64, cfg.Elements)
		want  = make([]uint64, cfg.Elements)
		got   = make([]uint64, cfg.Elements)
		total = hash.GetHasher()
		start = time.Now()
	)
	defer func() {
		total.Reset()
		hash.PutHasher(total)
	}()
	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		fill(out, me, round)
		pe.Put64(ring, out, right)
		pe.IPut64(strided, out, cfg.Stride, 1, cfg.Elements, right)
		shmem.Inc[int64](pe.Runtime, counter, 0)
		pe.BarrierAll()

		fill(want, left, round)
		expected := hash.Sum(util.SliceAsBytes(want))
		pe.Get64(got, ring, me)
		if sum := hash.Sum(util.SliceAsBytes(got)); sum != expected {
			return Result{}, fmt.Errorf("%w: ring buffer in round %d", ErrMismatch, round)
		}
		pe.IGet64(got, strided, 1, cfg.Stride, cfg.Elements, me)
		if sum := hash.Sum(util.SliceAsBytes(got)); sum != expected {
			return Result{}, fmt.Errorf("%w: strided buffer in round %d", ErrMismatch, round)
		}
		total.Write(util.SliceAsBytes(got))
		pe.BarrierAll()
		logger.Debug("round verified", zap.Int("round", round))
	}

	res := Result{
		PE:       me,
		Rounds:   cfg.Rounds,
		Bytes:    uint64(cfg.Rounds) * uint64(cfg.Elements) * 16,
		Checksum: hex.EncodeToString(total.Sum(nil)),
		Elapsed:  time.Since(start),
	}
	if me == 0 {
		res.Counter = shmem.Load[int64](pe.Runtime, counter)
		if res.Counter != int64(n*cfg.Rounds) {
			return res, fmt.Errorf("%w: counter %d, expected %d", ErrMismatch, res.Counter, n*cfg.Rounds)
		}
	}
	return res, nil
}
