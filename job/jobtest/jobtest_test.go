package jobtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-shmem/job"
)

func testConfig(size int) job.Config {
	cfg := job.DefaultConfig()
	cfg.Size = size
	cfg.Heap.HeapSize = 4096
	cfg.Heap.Mmap = false
	return cfg
}

func TestFailNowEndsJob(t *testing.T) {
	start := time.Now()
	err := Run(t, testConfig(3), func(t *T, pe *job.PE) error {
		if pe.Rank() == 1 {
			require.Equal(t, 1, 2)
		}
		pe.BarrierAll()
		return nil
	})
	require.ErrorContains(t, err, "pe 1 failed")
	require.Less(t, time.Since(start), Timeout/2)
}

func TestErrorfFailsPE(t *testing.T) {
	err := Run(t, testConfig(2), func(t *T, pe *job.PE) error {
		pe.BarrierAll()
		assert.Equal(t, 0, pe.Rank())
		return nil
	})
	require.ErrorContains(t, err, "pe 1 failed")
}

func TestBodyError(t *testing.T) {
	errBody := errors.New("body")
	err := Run(t, testConfig(2), func(t *T, pe *job.PE) error {
		if pe.Rank() == 0 {
			return errBody
		}
		return nil
	})
	require.ErrorIs(t, err, errBody)
}

func TestPassingJob(t *testing.T) {
	require.NoError(t, Run(t, testConfig(2), func(t *T, pe *job.PE) error {
		require.Equal(t, 2, pe.Size())
		pe.BarrierAll()
		return nil
	}))
}
