package shmem

import (
	"github.com/spacemeshos/go-shmem/common/types"
)

const (
	// HeapTable is the table index of the symmetric heap on every PE.
	HeapTable types.TableIndex = 0
	// BarrierSyncSize is the default number of slots of the barrier work array.
	BarrierSyncSize = 1
)

// Config of the RMA engine.
type Config struct {
	// MaxOrderedSize lowers the segment size of puts below the one of the transport.
	// Zero uses the transport limit.
	MaxOrderedSize uint64 `mapstructure:"max-ordered-size"`
	// BarrierSyncSize is the number of slots in the work array of BarrierAll.
	BarrierSyncSize int `mapstructure:"barrier-sync-size"`
	// BatchStridedGets makes strided gets issue every element before waiting for the replies
	// instead of completing the elements one by one.
	BatchStridedGets bool `mapstructure:"batch-strided-gets"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		BarrierSyncSize: BarrierSyncSize,
	}
}
