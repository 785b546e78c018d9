// Package transport defines the contract of the one-sided network layer consumed by the RMA
// engine, along with the completion primitives shared by its implementations.
package transport

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-shmem/common/types"
)

//go:generate mockgen -typed -package=transport -destination=./mocks.go -source=./transport.go

var (
	// ErrClosed is returned by operations on a transport that was shut down.
	ErrClosed = errors.New("transport closed")
	// ErrInvalidPE is returned when an operation targets a rank outside of the job.
	ErrInvalidPE = errors.New("invalid pe")
	// ErrSegmentTooLarge is returned when a put exceeds the maximum ordered size.
	ErrSegmentTooLarge = errors.New("segment exceeds max ordered size")
)

// EventKind tags an entry of the source event queue.
type EventKind uint8

const (
	// EventSend signals that a put or atomic left the local buffer.
	EventSend EventKind = iota + 1
	// EventReply signals that the data of a get arrived in the local buffer.
	EventReply
	// EventAck signals a full acknowledgment. Acks are counted by CounterAck and are not
	// expected on the event queue.
	EventAck
)

func (k EventKind) String() string {
	switch k {
	case EventSend:
		return "send"
	case EventReply:
		return "reply"
	case EventAck:
		return "ack"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a record of the source event queue.
type Event struct {
	Kind   EventKind
	Length uint64
	// Failed is set when the operation was not performed at the target.
	Failed bool
}

// CounterID selects one of the completion counters of an endpoint.
type CounterID uint8

const (
	// CounterAck counts acknowledgments of puts and atomics issued by this endpoint.
	CounterAck CounterID = iota
	// CounterTarget counts remote writes and atomics that landed in local symmetric memory.
	CounterTarget
)

func (c CounterID) String() string {
	switch c {
	case CounterAck:
		return "ack"
	case CounterTarget:
		return "target"
	default:
		return fmt.Sprintf("counter(%d)", uint8(c))
	}
}

// Counter is a snapshot of a completion counter.
type Counter struct {
	Success uint64
	Failure uint64
}

// Total is the number of completions of any outcome.
func (c Counter) Total() uint64 {
	return c.Success + c.Failure
}

// AtomicOp is the operation applied by Atomic at the target.
type AtomicOp uint8

const (
	// AtomicSum adds the operand to the target cell.
	AtomicSum AtomicOp = iota + 1
)

// Capabilities describe guarantees of a transport that the engine relies on.
type Capabilities struct {
	// MaxOrderedSize bounds the length of a single put.
	MaxOrderedSize uint64
	// OrderedDelivery is set when puts from one source to one destination are applied
	// in issue order.
	OrderedDelivery bool
}

// Transport is the one-sided RMA interface of a single PE.
//
// Issuing calls never wait for the target. Put and Atomic post an EventSend to the event queue
// once the local buffer may be reused and bump CounterAck once the target acknowledged.
// Get posts an EventReply once the local buffer holds the data.
type Transport interface {
	// Rank of the local PE.
	Rank() int
	// Size is the number of PEs in the job.
	Size() int
	Capabilities() Capabilities
	Put(local []byte, pe int, table types.TableIndex, offset uint64) error
	Get(local []byte, pe int, table types.TableIndex, offset uint64) error
	// Atomic applies op with operand to the native-endian integer of width bytes (4 or 8).
	// The operand holds the two's complement bits of the value truncated to width, so no
	// bits are set above 8*width. Arithmetic wraps at the width.
	Atomic(op AtomicOp, operand uint64, width int, pe int, table types.TableIndex, offset uint64) error
	// NextEvent blocks until the event queue is not empty and pops its head.
	NextEvent() (Event, error)
	CounterGet(id CounterID) (Counter, error)
	// CounterWait blocks until the Total of the counter reaches threshold.
	CounterWait(id CounterID, threshold uint64) (Counter, error)
	Close() error
}
