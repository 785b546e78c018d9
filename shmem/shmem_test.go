package shmem_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/job"
	"github.com/spacemeshos/go-shmem/job/jobtest"
	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/log/logtest"
	"github.com/spacemeshos/go-shmem/shmem"
)

func testConfig(size int) job.Config {
	cfg := job.DefaultConfig()
	cfg.Size = size
	cfg.Heap.HeapSize = 1 << 16
	cfg.Heap.Mmap = false
	cfg.Fabric.MaxOrderedSize = 64
	return cfg
}

func TestTypedRoundTrip(t *testing.T) {
	const n = 4
	require.NoError(t, jobtest.Run(t, testConfig(n), func(t *jobtest.T, pe *job.PE) error {
		var (
			i8   = job.MustAlloc[int8](pe, 1)
			i16  = job.MustAlloc[int16](pe, 1)
			i32  = job.MustAlloc[int32](pe, 1)
			i64  = job.MustAlloc[int64](pe, 1)
			f32  = job.MustAlloc[float32](pe, 1)
			f64  = job.MustAlloc[float64](pe, 1)
			u128 = job.MustAlloc[types.Uint128](pe, 1)
			w32  = job.MustAlloc[uint32](pe, 3)
			w64  = job.MustAlloc[uint64](pe, 3)
			w128 = job.MustAlloc[types.Uint128](pe, 2)
		)
		pe.BarrierAll()
		me := pe.Rank()
		right := (me + 1) % n
		left := (me + n - 1) % n

		shmem.P(pe.Runtime, i8, int8(-me), right)
		shmem.P(pe.Runtime, i16, int16(-1000*me), right)
		shmem.P(pe.Runtime, i32, int32(me)<<20, right)
		shmem.P(pe.Runtime, i64, int64(me)<<40, right)
		shmem.P(pe.Runtime, f32, float32(me)+0.5, right)
		shmem.P(pe.Runtime, f64, float64(me)/3, right)
		shmem.P(pe.Runtime, u128, types.Uint128{Lo: uint64(me), Hi: ^uint64(me)}, right)
		pe.Put32(w32, []uint32{uint32(me), 1, 2}, right)
		pe.Put64(w64, []uint64{uint64(me), 3, 4}, right)
		pe.Put128(w128, []types.Uint128{{Lo: 5}, {Hi: uint64(me)}}, right)
		pe.BarrierAll()

		require.Equal(t, int8(-left), shmem.Load[int8](pe.Runtime, i8))
		require.Equal(t, int16(-1000*left), shmem.Load[int16](pe.Runtime, i16))
		require.Equal(t, int32(left)<<20, shmem.Load[int32](pe.Runtime, i32))
		require.Equal(t, int64(left)<<40, shmem.Load[int64](pe.Runtime, i64))
		require.Equal(t, float32(left)+0.5, shmem.Load[float32](pe.Runtime, f32))
		require.Equal(t, float64(left)/3, shmem.Load[float64](pe.Runtime, f64))
		require.Equal(t, types.Uint128{Lo: uint64(left), Hi: ^uint64(left)}, shmem.Load[types.Uint128](pe.Runtime, u128))

		// read back what this PE wrote into the right neighbor
		require.Equal(t, int64(me)<<40, shmem.G[int64](pe.Runtime, i64, right))
		got32 := make([]uint32, 3)
		pe.Get32(got32, w32, right)
		require.Equal(t, []uint32{uint32(me), 1, 2}, got32)
		got64 := make([]uint64, 3)
		pe.Get64(got64, w64, right)
		require.Equal(t, []uint64{uint64(me), 3, 4}, got64)
		got128 := make([]types.Uint128, 2)
		pe.Get128(got128, w128, right)
		require.Equal(t, []types.Uint128{{Lo: 5}, {Hi: uint64(me)}}, got128)
		pe.BarrierAll()
		return nil
	}))
}

func TestSegmentedPutImage(t *testing.T) {
	const size = 1000
	cfg := testConfig(2)
	cfg.Fabric.MaxOrderedSize = 48
	require.NoError(t, jobtest.Run(t, cfg, func(t *jobtest.T, pe *job.PE) error {
		dst := job.MustAlloc[byte](pe, size)
		if pe.Rank() == 0 {
			source := make([]byte, size)
			for i := range source {
				source[i] = byte(i * 7)
			}
			before := pe.Pending()
			pe.PutMem(dst, source, 1)
			require.Equal(t, uint64((size+47)/48), pe.Pending()-before)
			pe.BarrierAll()
			return nil
		}
		pe.BarrierAll()
		want := make([]byte, size)
		for i := range want {
			want[i] = byte(i * 7)
		}
		got := make([]byte, size)
		pe.GetMem(got, dst, 1)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("heap image mismatch (-want +got):\n%s", diff)
		}
		return nil
	}))
}

type stridedCase struct {
	N   uint8
	TST uint8
	SST uint8
}

func TestStridedMatchesElementwise(t *testing.T) {
	f := fuzz.NewWithSeed(1001).NilChance(0)
	for i := 0; i < 16; i++ {
		var tc stridedCase
		f.Fuzz(&tc)
		n := int(tc.N%16) + 1
		tst := int(tc.TST%4) + 1
		sst := int(tc.SST%4) + 1
		for _, batch := range []bool{false, true} {
			cfg := testConfig(2)
			cfg.Shmem.BatchStridedGets = batch
			require.NoError(t, jobtest.Run(t, cfg, func(t *jobtest.T, pe *job.PE) error {
				dst := job.MustAlloc[int64](pe, n*tst)
				src := job.MustAlloc[int64](pe, n*sst)
				source := make([]int64, n*sst)
				for j := range source {
					source[j] = int64(pe.Rank()*1000 + j)
				}
				shmem.Put(pe.Runtime, src, source, pe.Rank())
				pe.BarrierAll()

				peer := 1 - pe.Rank()
				shmem.IPut(pe.Runtime, dst, source, tst, sst, n, peer)
				pe.BarrierAll()

				want := make([]int64, n*tst)
				for j := 0; j < n; j++ {
					want[j*tst] = int64(peer*1000 + j*sst)
				}
				got := make([]int64, n*tst)
				shmem.Get(pe.Runtime, got, dst, pe.Rank())
				require.Empty(t, cmp.Diff(want, got), "iput n=%d tst=%d sst=%d", n, tst, sst)

				gathered := make([]int64, n*tst)
				shmem.IGet(pe.Runtime, gathered, src, tst, sst, n, peer)
				want = make([]int64, n*tst)
				for j := 0; j < n; j++ {
					want[j*tst] = int64(peer*1000 + j*sst)
				}
				require.Empty(t, cmp.Diff(want, gathered), "iget n=%d tst=%d sst=%d", n, tst, sst)
				pe.BarrierAll()
				return nil
			}))
		}
	}
}

func TestWaitUntilComparators(t *testing.T) {
	// boundary does not satisfy the comparator, final does
	cases := []struct {
		cmp      shmem.Comparator
		value    int64
		boundary int64
		final    int64
	}{
		{shmem.CmpEQ, 5, 4, 5},
		{shmem.CmpNE, 0, 0, 7},
		{shmem.CmpGT, 10, 10, 11},
		{shmem.CmpGE, 10, 9, 10},
		{shmem.CmpLT, -3, -3, -4},
		{shmem.CmpLE, -3, -2, -3},
	}
	released := make([]atomic.Bool, len(cases))
	require.NoError(t, jobtest.Run(t, testConfig(2), func(t *jobtest.T, pe *job.PE) error {
		vars := job.MustAlloc[int64](pe, len(cases))
		pe.BarrierAll()
		for i, tc := range cases {
			addr := vars.Add(int64(8 * i))
			if pe.Rank() == 1 {
				shmem.P(pe.Runtime, addr, tc.boundary, 0)
				pe.Quiet()
				time.Sleep(20 * time.Millisecond)
				require.False(t, released[i].Load(), "%s %d released by %d", tc.cmp, tc.value, tc.boundary)
				shmem.P(pe.Runtime, addr, tc.final, 0)
				continue
			}
			shmem.WaitUntil(pe.Runtime, addr, tc.cmp, tc.value)
			released[i].Store(true)
			require.Equal(t, tc.final, shmem.Load[int64](pe.Runtime, addr), tc.cmp.String())
		}
		pe.BarrierAll()
		return nil
	}))
	for i := range released {
		require.True(t, released[i].Load())
	}
}

func TestFenceOrdersPuts(t *testing.T) {
	require.NoError(t, jobtest.Run(t, testConfig(2), func(t *jobtest.T, pe *job.PE) error {
		data := job.MustAlloc[int64](pe, 64)
		flag := job.MustAlloc[int64](pe, 1)
		pe.BarrierAll()
		if pe.Rank() == 0 {
			values := make([]int64, 64)
			for i := range values {
				values[i] = int64(i + 1)
			}
			shmem.Put(pe.Runtime, data, values, 1)
			pe.Fence()
			shmem.P(pe.Runtime, flag, int64(1), 1)
		} else {
			shmem.Wait(pe.Runtime, flag, int64(0))
			for i := 0; i < 64; i++ {
				require.Equal(t, int64(i+1), shmem.Load[int64](pe.Runtime, data.Add(int64(8*i))))
			}
		}
		pe.BarrierAll()
		return nil
	}))
}

func TestAtomicIncrements(t *testing.T) {
	const n, rounds = 4, 100
	require.NoError(t, jobtest.Run(t, testConfig(n), func(t *jobtest.T, pe *job.PE) error {
		counter := job.MustAlloc[int64](pe, 1)
		down := job.MustAlloc[int32](pe, 1)
		pe.BarrierAll()
		for i := 0; i < rounds; i++ {
			shmem.Inc[int64](pe.Runtime, counter, 0)
			shmem.Add(pe.Runtime, down, int32(-1), 0)
		}
		pe.BarrierAll()
		if pe.Rank() == 0 {
			require.Equal(t, int64(n*rounds), shmem.Load[int64](pe.Runtime, counter))
			require.Equal(t, int32(-n*rounds), shmem.Load[int32](pe.Runtime, down))
		}
		return nil
	}))
}

func TestQuietWithoutPuts(t *testing.T) {
	require.NoError(t, jobtest.Run(t, testConfig(1), func(t *jobtest.T, pe *job.PE) error {
		pe.Quiet()
		pe.Quiet()
		return nil
	}))
}

func TestBarrierRounds(t *testing.T) {
	const n, rounds = 4, 50
	require.NoError(t, jobtest.Run(t, testConfig(n), func(t *jobtest.T, pe *job.PE) error {
		round := job.MustAlloc[int64](pe, 1)
		pe.BarrierAll()
		for r := int64(1); r <= rounds; r++ {
			shmem.Store(pe.Runtime, round, r)
			pe.BarrierAll()
			for peer := 0; peer < n; peer++ {
				require.Equal(t, r, shmem.G[int64](pe.Runtime, round, peer))
			}
			pe.BarrierAll()
		}
		require.Zero(t, shmem.Load[int64](pe.Runtime, pe.BarrierWork()))
		return nil
	}))
}

func TestBarrierNoEarlyRelease(t *testing.T) {
	const n = 4
	var arrived atomic.Int32
	require.NoError(t, jobtest.Run(t, testConfig(n), func(t *jobtest.T, pe *job.PE) error {
		for round := int32(1); round <= 3; round++ {
			if pe.Rank() == int(round)%n {
				time.Sleep(20 * time.Millisecond)
			}
			arrived.Add(1)
			pe.BarrierAll()
			require.GreaterOrEqual(t, arrived.Load(), round*n, "released before every pe arrived")
			pe.BarrierAll()
		}
		return nil
	}))
}

func TestActiveSetBarrier(t *testing.T) {
	const n = 5
	require.NoError(t, jobtest.Run(t, testConfig(n), func(t *jobtest.T, pe *job.PE) error {
		pSync := job.MustAlloc[int64](pe, 1)
		set := types.ActiveSet{Start: 1, LogStride: 1, Size: 2}
		pe.BarrierAll()
		if set.Contains(pe.Rank()) {
			for i := 0; i < 20; i++ {
				pe.Barrier(set.Start, set.LogStride, set.Size, pSync)
			}
			require.Zero(t, shmem.Load[int64](pe.Runtime, pSync))
		}
		pe.BarrierAll()
		return nil
	}))
}

func TestBarrierMissingMember(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	var released atomic.Int32
	err := job.RunLocal(ctx, testConfig(3), func(_ context.Context, pe *job.PE) error {
		if pe.Rank() == 2 {
			return nil
		}
		pe.BarrierAll()
		released.Add(1)
		return nil
	}, job.WithLogger(logtest.New(t)))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, job.ErrAborted)
	code, ok := log.FatalCode(err)
	require.True(t, ok)
	require.Equal(t, log.CodeTransportWait, code)
	require.Zero(t, released.Load())
}
