// Package netfabric is a TCP transport connecting PEs running in separate processes.
//
// Every PE dials every PE of the job, itself included, and issues its operations on the
// outgoing connection to the target. The target applies requests in arrival order and answers
// each of them on the same connection, so puts from one source to one destination are
// delivered in issue order.
package netfabric

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-msgio"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-shmem/codec"
	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

// ErrHandshake is returned when a peer does not belong to the job.
var ErrHandshake = errors.New("handshake failed")

// Config of the TCP transport.
type Config struct {
	// Listen is the address accepting connections of peers.
	Listen string `mapstructure:"listen"`
	// Peers are the listen addresses of every PE, indexed by rank.
	Peers []string `mapstructure:"peers"`
	// JobID is shared by all PEs of a job. Connections from other jobs are rejected.
	JobID             string        `mapstructure:"job-id"`
	DialTimeout       time.Duration `mapstructure:"dial-timeout"`
	DialRetryInterval time.Duration `mapstructure:"dial-retry-interval"`
	MaxMessageSize    int           `mapstructure:"max-message-size"`
	MaxOrderedSize    uint64        `mapstructure:"max-ordered-size"`
	// CloseTimeout bounds how long Close keeps serving peers that did not close yet.
	CloseTimeout time.Duration `mapstructure:"close-timeout"`
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		Listen:            "127.0.0.1:7513",
		DialTimeout:       30 * time.Second,
		DialRetryInterval: 100 * time.Millisecond,
		MaxMessageSize:    1<<20 + 64,
		MaxOrderedSize:    1 << 20,
		CloseTimeout:      10 * time.Second,
	}
}

// Opt configures an Endpoint.
type Opt func(*Endpoint)

// WithLogger sets the logger of the endpoint.
func WithLogger(logger *zap.Logger) Opt {
	return func(e *Endpoint) {
		e.logger = logger
	}
}

// WithConfig sets the transport configuration.
func WithConfig(cfg Config) Opt {
	return func(e *Endpoint) {
		e.cfg = cfg
	}
}

// WithListener accepts peers on ln instead of listening on Config.Listen.
func WithListener(ln net.Listener) Opt {
	return func(e *Endpoint) {
		e.ln = ln
	}
}

// WithClock sets the clock used to pace dial attempts.
func WithClock(clock clockwork.Clock) Opt {
	return func(e *Endpoint) {
		e.clock = clock
	}
}

// Endpoint is the transport of one PE.
type Endpoint struct {
	logger *zap.Logger
	cfg    Config
	clock  clockwork.Clock
	rank   int
	size   int
	jobID  uuid.UUID

	target *transport.Target
	ack    *transport.CounterCell
	eq     *transport.EventQueue

	ln    net.Listener
	peers []*peer

	mu       sync.Mutex
	incoming map[net.Conn]struct{}

	eg        errgroup.Group
	closing   chan struct{}
	drainOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.Transport = (*Endpoint)(nil)

type peer struct {
	rank int
	conn net.Conn

	r msgio.ReadCloser

	mu          sync.Mutex
	w           msgio.WriteCloser
	gets        [][]byte
	outstanding int
	pending     prometheus.Gauge
}

// New connects the PE of rank to every peer listed in the configuration. It returns once all
// outgoing connections completed the handshake. mem serves accesses of the peers.
func New(ctx context.Context, rank int, mem *symheap.Translator, opts ...Opt) (*Endpoint, error) {
	e := &Endpoint{
		logger:   zap.NewNop(),
		cfg:      DefaultConfig(),
		clock:    clockwork.NewRealClock(),
		rank:     rank,
		target:   transport.NewTarget(mem, transport.NewCounterCell()),
		ack:      transport.NewCounterCell(),
		eq:       transport.NewEventQueue(),
		incoming: make(map[net.Conn]struct{}),
		closing:  make(chan struct{}),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.size = len(e.cfg.Peers)
	if uint64(e.cfg.MaxMessageSize) < e.cfg.MaxOrderedSize+frameOverhead {
		return nil, fmt.Errorf("max message size %d cannot carry puts of %d bytes",
			e.cfg.MaxMessageSize, e.cfg.MaxOrderedSize)
	}
	if e.cfg.MaxMessageSize > maxPayload+frameOverhead {
		return nil, fmt.Errorf("max message size %d exceeds the frame limit %d",
			e.cfg.MaxMessageSize, maxPayload+frameOverhead)
	}
	if rank < 0 || rank >= e.size {
		return nil, fmt.Errorf("%w: %d in job of %d", transport.ErrInvalidPE, rank, e.size)
	}
	id, err := uuid.Parse(e.cfg.JobID)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", e.cfg.JobID, err)
	}
	e.jobID = id
	e.logger = e.logger.With(zap.Int("pe", rank))

	if e.ln == nil {
		e.ln, err = net.Listen("tcp", e.cfg.Listen)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", e.cfg.Listen, err)
		}
	}
	e.eg.Go(e.accept)

	e.peers = make([]*peer, e.size)
	var dials errgroup.Group
	for pe, addr := range e.cfg.Peers {
		dials.Go(func() error {
			p, err := e.connect(ctx, pe, addr)
			if err != nil {
				return fmt.Errorf("connect to pe %d: %w", pe, err)
			}
			e.mu.Lock()
			e.peers[pe] = p
			e.mu.Unlock()
			return nil
		})
	}
	if err := dials.Wait(); err != nil {
		e.fail()
		e.eg.Wait()
		return nil, err
	}
	for _, p := range e.peers {
		e.eg.Go(func() error {
			e.receive(p)
			return nil
		})
	}
	e.logger.Debug("connected to peers",
		zap.Stringer("job", e.jobID),
		zap.Stringer("listen", e.ln.Addr()),
		zap.Int("npes", e.size),
	)
	return e, nil
}

// Addr returns the address the endpoint accepts peers on.
func (e *Endpoint) Addr() net.Addr {
	return e.ln.Addr()
}

func (e *Endpoint) hello() *hello {
	return &hello{JobID: e.jobID, Rank: uint32(e.rank), Size: uint32(e.size)}
}

func (e *Endpoint) checkHello(h *hello, rank int) error {
	switch {
	case uuid.UUID(h.JobID) != e.jobID:
		return fmt.Errorf("%w: job %s, expected %s", ErrHandshake, uuid.UUID(h.JobID), e.jobID)
	case int(h.Size) != e.size:
		return fmt.Errorf("%w: job of %d pes, expected %d", ErrHandshake, h.Size, e.size)
	case rank >= 0 && int(h.Rank) != rank:
		return fmt.Errorf("%w: rank %d, expected %d", ErrHandshake, h.Rank, rank)
	case int(h.Rank) >= e.size:
		return fmt.Errorf("%w: rank %d outside of job", ErrHandshake, h.Rank)
	}
	return nil
}

func (e *Endpoint) dial(ctx context.Context, addr string) (net.Conn, error) {
	deadline := e.clock.Now().Add(e.cfg.DialTimeout)
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		if !e.clock.Now().Before(deadline) {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		e.logger.Debug("dial failed, retrying", zap.String("addr", addr), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.closed:
			return nil, transport.ErrClosed
		case <-e.clock.After(e.cfg.DialRetryInterval):
		}
	}
}

func (e *Endpoint) connect(ctx context.Context, rank int, addr string) (*peer, error) {
	conn, err := e.dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	w := msgio.NewVarintWriter(conn)
	if err := w.WriteMsg(codec.MustEncode(e.hello())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}
	r := msgio.NewVarintReaderSize(conn, e.cfg.MaxMessageSize)
	msg, err := r.ReadMsg()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read hello: %w", err)
	}
	var h hello
	err = codec.Decode(msg, &h)
	if err == nil {
		err = e.checkHello(&h, rank)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &peer{
		rank:    rank,
		conn:    conn,
		r:       r,
		w:       w,
		pending: outstandingRequests.WithLabelValues(strconv.Itoa(rank)),
	}, nil
}

func (e *Endpoint) accept() error {
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			select {
			case <-e.closing:
				return nil
			case <-e.closed:
				return nil
			default:
			}
			e.logger.Warn("accept failed", zap.Error(err))
			e.fail()
			return nil
		}
		e.mu.Lock()
		select {
		case <-e.closed:
			e.mu.Unlock()
			conn.Close()
			return nil
		default:
		}
		e.incoming[conn] = struct{}{}
		e.mu.Unlock()
		e.eg.Go(func() error {
			defer func() {
				e.mu.Lock()
				delete(e.incoming, conn)
				e.mu.Unlock()
				conn.Close()
			}()
			e.serve(conn)
			return nil
		})
	}
}

// serve applies the requests of one source to local memory.
func (e *Endpoint) serve(conn net.Conn) {
	r := msgio.NewVarintReaderSize(conn, e.cfg.MaxMessageSize)
	w := msgio.NewVarintWriter(conn)
	msg, err := r.ReadMsg()
	if err != nil {
		return
	}
	var h hello
	err = codec.Decode(msg, &h)
	if err == nil {
		err = e.checkHello(&h, -1)
	}
	if err != nil {
		e.logger.Warn("rejected connection", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
		return
	}
	if err := w.WriteMsg(codec.MustEncode(e.hello())); err != nil {
		return
	}
	logger := e.logger.With(zap.Uint32("source", h.Rank))
	for {
		msg, err := r.ReadMsg()
		if err != nil {
			e.logClosed(logger, "read request", err)
			return
		}
		var req request
		if err := codec.Decode(msg, &req); err != nil {
			logger.Warn("malformed request", zap.Error(err))
			return
		}
		if err := w.WriteMsg(codec.MustEncode(e.apply(&req))); err != nil {
			e.logClosed(logger, "write response", err)
			return
		}
	}
}

func (e *Endpoint) apply(req *request) *response {
	resp := &response{Op: req.Op}
	var err error
	switch req.Op {
	case opPut:
		err = e.target.Put(req.Table, req.Offset, req.Data)
	case opAtomic:
		err = e.target.Atomic(req.Atomic, req.Operand, int(req.Width), req.Table, req.Offset)
	case opGet:
		resp.Data = make([]byte, req.Length)
		err = e.target.Get(req.Table, req.Offset, resp.Data)
	}
	if err != nil {
		resp.Failed = true
		resp.Data = nil
		e.logger.Debug("remote access failed",
			zap.Stringer("op", req.Op),
			zap.Uint8("table", uint8(req.Table)),
			zap.Uint64("offset", req.Offset),
			zap.Error(err),
		)
	}
	return resp
}

// receive completes the operations issued to p in issue order.
func (e *Endpoint) receive(p *peer) {
	for {
		msg, err := p.r.ReadMsg()
		if err != nil {
			p.mu.Lock()
			idle := p.outstanding == 0
			p.mu.Unlock()
			if idle && errors.Is(err, io.EOF) {
				return
			}
			e.logClosed(e.logger, "read response", err)
			e.fail()
			return
		}
		p.mu.Lock()
		p.outstanding--
		p.pending.Dec()
		p.mu.Unlock()
		var resp response
		if err := codec.Decode(msg, &resp); err != nil {
			e.logger.Warn("malformed response", zap.Int("target", p.rank), zap.Error(err))
			e.fail()
			return
		}
		switch resp.Op {
		case opPut, opAtomic:
			if resp.Failed {
				e.ack.Add(0, 1)
			} else {
				e.ack.Add(1, 0)
			}
		case opGet:
			p.mu.Lock()
			if len(p.gets) == 0 {
				p.mu.Unlock()
				e.logger.Warn("reply without pending get", zap.Int("target", p.rank))
				e.fail()
				return
			}
			local := p.gets[0]
			p.gets = p.gets[1:]
			p.mu.Unlock()
			failed := resp.Failed || len(resp.Data) != len(local)
			if !failed {
				copy(local, resp.Data)
			}
			e.eq.Post(transport.Event{Kind: transport.EventReply, Length: uint64(len(local)), Failed: failed})
		default:
			e.logger.Warn("unknown response", zap.Stringer("op", resp.Op))
			e.fail()
			return
		}
	}
}

func (e *Endpoint) logClosed(logger *zap.Logger, what string, err error) {
	select {
	case <-e.closed:
		return
	default:
	}
	logger.Debug(what, zap.Error(err))
}

func (e *Endpoint) peer(pe int) (*peer, error) {
	if pe < 0 || pe >= e.size {
		return nil, fmt.Errorf("%w: %d in job of %d", transport.ErrInvalidPE, pe, e.size)
	}
	select {
	case <-e.closing:
		return nil, transport.ErrClosed
	case <-e.closed:
		return nil, transport.ErrClosed
	default:
	}
	return e.peers[pe], nil
}

func (e *Endpoint) send(pe int, req *request, get []byte) error {
	p, err := e.peer(pe)
	if err != nil {
		return err
	}
	msg, err := codec.Encode(req)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.Op == opGet {
		p.gets = append(p.gets, get)
	}
	if err := p.w.WriteMsg(msg); err != nil {
		if req.Op == opGet {
			p.gets = p.gets[:len(p.gets)-1]
		}
		return fmt.Errorf("send %s to pe %d: %w", req.Op, pe, err)
	}
	p.outstanding++
	p.pending.Inc()
	return nil
}

// Rank implements transport.Transport.
func (e *Endpoint) Rank() int { return e.rank }

// Size implements transport.Transport.
func (e *Endpoint) Size() int { return e.size }

// Capabilities implements transport.Transport.
func (e *Endpoint) Capabilities() transport.Capabilities {
	return transport.Capabilities{
		MaxOrderedSize:  e.cfg.MaxOrderedSize,
		OrderedDelivery: true,
	}
}

// Put implements transport.Transport. The data is written to the socket before Put returns.
func (e *Endpoint) Put(local []byte, pe int, table types.TableIndex, offset uint64) error {
	if limit := e.cfg.MaxOrderedSize; uint64(len(local)) > limit {
		return fmt.Errorf("%w: %d > %d", transport.ErrSegmentTooLarge, len(local), limit)
	}
	if err := e.send(pe, &request{Op: opPut, Table: table, Offset: offset, Data: local}, nil); err != nil {
		return err
	}
	e.eq.Post(transport.Event{Kind: transport.EventSend, Length: uint64(len(local))})
	return nil
}

// Get implements transport.Transport. The reply has to fit into a single message.
func (e *Endpoint) Get(local []byte, pe int, table types.TableIndex, offset uint64) error {
	if limit := e.cfg.MaxMessageSize - frameOverhead; len(local) > limit {
		return fmt.Errorf("%w: get of %d > %d", transport.ErrSegmentTooLarge, len(local), limit)
	}
	req := &request{Op: opGet, Table: table, Offset: offset, Length: uint64(len(local))}
	return e.send(pe, req, local)
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
	req := &request{
		Op: opAtomic, Table: table, Offset: offset,
		Atomic: op, Width: uint8(width), Operand: operand,
	}
	if err := e.send(pe, req, nil); err != nil {
		return err
	}
	e.eq.Post(transport.Event{Kind: transport.EventSend, Length: uint64(width)})
	return nil
}

// NextEvent implements transport.Transport.
func (e *Endpoint) NextEvent() (transport.Event, error) {
	return e.eq.Wait(e.closed)
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
	return c.Wait(e.closed, threshold)
}

func (e *Endpoint) fail() {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.ln.Close()
		e.mu.Lock()
		for _, p := range e.peers {
			if p != nil {
				p.conn.Close()
			}
		}
		for conn := range e.incoming {
			conn.Close()
		}
		e.mu.Unlock()
	})
}

// Close implements transport.Transport. It stops issuing and keeps serving peers until they
// close their side too or CloseTimeout passes, then drops every connection and unblocks
// waiters.
func (e *Endpoint) Close() error {
	e.drainOnce.Do(func() {
		close(e.closing)
		e.ln.Close()
		e.mu.Lock()
		for _, p := range e.peers {
			if tcp, ok := p.conn.(*net.TCPConn); ok {
				tcp.CloseWrite()
			} else {
				p.conn.Close()
			}
		}
		e.mu.Unlock()
	})
	done := make(chan error, 1)
	go func() {
		done <- e.eg.Wait()
	}()
	select {
	case err := <-done:
		e.fail()
		return err
	case <-e.clock.After(e.cfg.CloseTimeout):
		e.logger.Debug("peers did not close in time")
		e.fail()
		return <-done
	}
}
