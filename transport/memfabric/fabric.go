// Package memfabric is an in-process transport connecting PEs that run as goroutines of one
// process. Every destination applies incoming operations on its own delivery goroutine, in the
// order they were issued, which gives per-destination ordering of puts.
package memfabric

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

// Config of the fabric.
type Config struct {
	// InboxDepth is the number of operations queued per destination before issuers block.
	InboxDepth int `mapstructure:"inbox-depth"`
	// MaxOrderedSize is the largest put applied as one unit.
	MaxOrderedSize uint64 `mapstructure:"max-ordered-size"`
}

// DefaultConfig returns the default fabric configuration.
func DefaultConfig() Config {
	return Config{
		InboxDepth:     1024,
		MaxOrderedSize: 64 << 10,
	}
}

// Opt configures a Fabric.
type Opt func(*Fabric)

// WithLogger sets the logger of the fabric.
func WithLogger(logger *zap.Logger) Opt {
	return func(f *Fabric) {
		f.logger = logger
	}
}

// WithConfig sets the fabric configuration.
func WithConfig(cfg Config) Opt {
	return func(f *Fabric) {
		f.cfg = cfg
	}
}

// Fabric connects a fixed number of endpoints.
type Fabric struct {
	logger    *zap.Logger
	cfg       Config
	size      int
	mu        sync.Mutex
	endpoints []*Endpoint
	closed    chan struct{}
	closeOnce sync.Once
	eg        errgroup.Group
}

// New creates a fabric for a job of size PEs. Endpoints are attached with Attach.
func New(size int, opts ...Opt) *Fabric {
	f := &Fabric{
		logger:    zap.NewNop(),
		cfg:       DefaultConfig(),
		size:      size,
		endpoints: make([]*Endpoint, size),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.InboxDepth <= 0 {
		f.cfg.InboxDepth = 1
	}
	return f
}

// Attach creates the endpoint of rank, serving remote accesses from mem.
func (f *Fabric) Attach(rank int, mem *symheap.Translator) (*Endpoint, error) {
	if rank < 0 || rank >= f.size {
		return nil, fmt.Errorf("%w: %d in job of %d", transport.ErrInvalidPE, rank, f.size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endpoints[rank] != nil {
		return nil, fmt.Errorf("rank %d already attached", rank)
	}
	select {
	case <-f.closed:
		return nil, transport.ErrClosed
	default:
	}
	ep := &Endpoint{
		fabric: f,
		logger: f.logger.With(zap.Int("pe", rank)),
		rank:   rank,
		target: transport.NewTarget(mem, transport.NewCounterCell()),
		ack:    transport.NewCounterCell(),
		eq:     transport.NewEventQueue(),
		inbox:  make(chan packet, f.cfg.InboxDepth),
	}
	f.endpoints[rank] = ep
	f.eg.Go(func() error {
		ep.deliver()
		return nil
	})
	return ep, nil
}

func (f *Fabric) endpoint(pe int) (*Endpoint, error) {
	if pe < 0 || pe >= f.size {
		return nil, fmt.Errorf("%w: %d in job of %d", transport.ErrInvalidPE, pe, f.size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ep := f.endpoints[pe]
	if ep == nil {
		return nil, fmt.Errorf("%w: %d is not attached", transport.ErrInvalidPE, pe)
	}
	return ep, nil
}

// Close stops delivery on every endpoint and unblocks their waiters.
func (f *Fabric) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return f.eg.Wait()
}

type opKind uint8

const (
	opPut opKind = iota + 1
	opGet
	opAtomic
)

type packet struct {
	op      opKind
	src     *Endpoint
	table   types.TableIndex
	offset  uint64
	data    []byte
	width   int
	atomic  transport.AtomicOp
	operand uint64
}

// Endpoint is the transport of one PE on the fabric.
type Endpoint struct {
	fabric *Fabric
	logger *zap.Logger
	rank   int
	target *transport.Target
	ack    *transport.CounterCell
	eq     *transport.EventQueue
	inbox  chan packet
}

var _ transport.Transport = (*Endpoint)(nil)

// Rank implements transport.Transport.
func (e *Endpoint) Rank() int { return e.rank }

// Size implements transport.Transport.
func (e *Endpoint) Size() int { return e.fabric.size }

// Capabilities implements transport.Transport.
func (e *Endpoint) Capabilities() transport.Capabilities {
	return transport.Capabilities{
		MaxOrderedSize:  e.fabric.cfg.MaxOrderedSize,
		OrderedDelivery: true,
	}
}

func (e *Endpoint) send(pe int, pkt packet) error {
	dst, err := e.fabric.endpoint(pe)
	if err != nil {
		return err
	}
	select {
	case <-e.fabric.closed:
		return transport.ErrClosed
	default:
	}
	select {
	case dst.inbox <- pkt:
		return nil
	case <-e.fabric.closed:
		return transport.ErrClosed
	}
}

// Put implements transport.Transport. The local buffer is copied before Put returns.
func (e *Endpoint) Put(local []byte, pe int, table types.TableIndex, offset uint64) error {
	if limit := e.fabric.cfg.MaxOrderedSize; limit > 0 && uint64(len(local)) > limit {
		return fmt.Errorf("%w: %d > %d", transport.ErrSegmentTooLarge, len(local), limit)
	}
	data := make([]byte, len(local))
	copy(data, local)
	err := e.send(pe, packet{op: opPut, src: e, table: table, offset: offset, data: data})
	if err != nil {
		return err
	}
	e.eq.Post(transport.Event{Kind: transport.EventSend, Length: uint64(len(local))})
	return nil
}

// Get implements transport.Transport. local must not be touched until the reply event.
func (e *Endpoint) Get(local []byte, pe int, table types.TableIndex, offset uint64) error {
	return e.send(pe, packet{op: opGet, src: e, table: table, offset: offset, data: local})
}

// Atomic implements transport.Transport.
func (e *Endpoint) Atomic(
	op transport.AtomicOp,
	operand uint64,
	width int,
	pe int,
	table types.TableIndex,
	offset uint64,
) error {
	if width != 4 && width != 8 {
		return fmt.Errorf("unsupported atomic width %d", width)
	}
	err := e.send(pe, packet{
		op: opAtomic, src: e, table: table, offset: offset,
		width: width, atomic: op, operand: operand,
	})
	if err != nil {
		return err
	}
	e.eq.Post(transport.Event{Kind: transport.EventSend, Length: uint64(width)})
	return nil
}

// NextEvent implements transport.Transport.
func (e *Endpoint) NextEvent() (transport.Event, error) {
	return e.eq.Wait(e.fabric.closed)
}

func (e *Endpoint) counter(id transport.CounterID) (*transport.CounterCell, error) {
	switch id {
	case transport.CounterAck:
		return e.ack, nil
	case transport.CounterTarget:
		return e.target.Counter(), nil
	default:
		return nil, fmt.Errorf("unknown counter %s", id)
	}
}

// CounterGet implements transport.Transport.
func (e *Endpoint) CounterGet(id transport.CounterID) (transport.Counter, error) {
	c, err := e.counter(id)
	if err != nil {
		return transport.Counter{}, err
	}
	return c.Get(), nil
}

// CounterWait implements transport.Transport.
func (e *Endpoint) CounterWait(id transport.CounterID, threshold uint64) (transport.Counter, error) {
	c, err := e.counter(id)
	if err != nil {
		return transport.Counter{}, err
	}
	return c.Wait(e.fabric.closed, threshold)
}

// Close implements transport.Transport. Endpoints are released together with the fabric.
func (e *Endpoint) Close() error {
	return nil
}

func (e *Endpoint) deliver() {
	for {
		select {
		case <-e.fabric.closed:
			return
		case pkt := <-e.inbox:
			e.apply(pkt)
		}
	}
}

func (e *Endpoint) apply(pkt packet) {
	switch pkt.op {
	case opPut:
		err := e.target.Put(pkt.table, pkt.offset, pkt.data)
		e.logFailure("put", pkt, err)
		pkt.src.acknowledge(err)
	case opAtomic:
		err := e.target.Atomic(pkt.atomic, pkt.operand, pkt.width, pkt.table, pkt.offset)
		e.logFailure("atomic", pkt, err)
		pkt.src.acknowledge(err)
	case opGet:
		err := e.target.Get(pkt.table, pkt.offset, pkt.data)
		e.logFailure("get", pkt, err)
		pkt.src.eq.Post(transport.Event{
			Kind:   transport.EventReply,
			Length: uint64(len(pkt.data)),
			Failed: err != nil,
		})
	}
}

func (e *Endpoint) acknowledge(err error) {
	if err != nil {
		e.ack.Add(0, 1)
		return
	}
	e.ack.Add(1, 0)
}

func (e *Endpoint) logFailure(op string, pkt packet, err error) {
	if err == nil || errors.Is(err, symheap.ErrClosed) {
		return
	}
	e.logger.Debug("remote access failed",
		zap.String("op", op),
		zap.Int("source", pkt.src.rank),
		zap.Uint8("table", uint8(pkt.table)),
		zap.Uint64("offset", pkt.offset),
		zap.Error(err),
	)
}
