package memfabric

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

type testPE struct {
	ep     *Endpoint
	region *symheap.Region
}

func newTestFabric(tb testing.TB, size int, cfg Config) (*Fabric, []testPE) {
	tb.Helper()
	f := New(size, WithLogger(zaptest.NewLogger(tb)), WithConfig(cfg))
	pes := make([]testPE, size)
	for i := range pes {
		region, err := symheap.NewRegion(256)
		require.NoError(tb, err)
		mem := symheap.NewTranslator()
		require.NoError(tb, mem.Register(0, region))
		ep, err := f.Attach(i, mem)
		require.NoError(tb, err)
		pes[i] = testPE{ep: ep, region: region}
	}
	tb.Cleanup(func() {
		require.NoError(tb, f.Close())
		for _, pe := range pes {
			pe.region.Close()
		}
	})
	return f, pes
}

func nextEvent(tb testing.TB, ep *Endpoint) transport.Event {
	tb.Helper()
	ev, err := ep.NextEvent()
	require.NoError(tb, err)
	return ev
}

func TestPutGet(t *testing.T) {
	_, pes := newTestFabric(t, 2, DefaultConfig())
	src := pes[0].ep

	require.NoError(t, src.Put([]byte{1, 2, 3, 4}, 1, 0, 8))
	ev := nextEvent(t, src)
	require.Equal(t, transport.EventSend, ev.Kind)
	require.Equal(t, uint64(4), ev.Length)

	ct, err := src.CounterWait(transport.CounterAck, 1)
	require.NoError(t, err)
	require.Equal(t, transport.Counter{Success: 1}, ct)
	ct, err = pes[1].ep.CounterGet(transport.CounterTarget)
	require.NoError(t, err)
	require.Equal(t, transport.Counter{Success: 1}, ct)

	buf := make([]byte, 6)
	require.NoError(t, src.Get(buf, 1, 0, 7))
	ev = nextEvent(t, src)
	require.Equal(t, transport.EventReply, ev.Kind)
	require.False(t, ev.Failed)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 0}, buf)
}

func TestPutToSelf(t *testing.T) {
	_, pes := newTestFabric(t, 1, DefaultConfig())
	ep := pes[0].ep
	require.NoError(t, ep.Put([]byte{7}, 0, 0, 0))
	require.Equal(t, transport.EventSend, nextEvent(t, ep).Kind)
	_, err := ep.CounterWait(transport.CounterAck, 1)
	require.NoError(t, err)
	b := make([]byte, 1)
	require.NoError(t, pes[0].region.ReadAt(b, 0))
	require.Equal(t, byte(7), b[0])
}

func TestOrderedDelivery(t *testing.T) {
	_, pes := newTestFabric(t, 2, Config{InboxDepth: 1, MaxOrderedSize: 8})
	src := pes[0].ep
	require.True(t, src.Capabilities().OrderedDelivery)

	const n = 100
	for i := 0; i < n; i++ {
		var b [8]byte
		binary.NativeEndian.PutUint64(b[:], uint64(i))
		require.NoError(t, src.Put(b[:], 1, 0, 0))
	}
	_, err := src.CounterWait(transport.CounterAck, n)
	require.NoError(t, err)
	var b [8]byte
	require.NoError(t, pes[1].region.ReadAt(b[:], 0))
	require.Equal(t, uint64(n-1), binary.NativeEndian.Uint64(b[:]))
}

func TestAtomic(t *testing.T) {
	_, pes := newTestFabric(t, 3, DefaultConfig())
	for _, pe := range pes[1:] {
		require.NoError(t, pe.ep.Atomic(transport.AtomicSum, 1, 8, 0, 0, 16))
		require.Equal(t, transport.EventSend, nextEvent(t, pe.ep).Kind)
		_, err := pe.ep.CounterWait(transport.CounterAck, 1)
		require.NoError(t, err)
	}
	var b [8]byte
	require.NoError(t, pes[0].region.ReadAt(b[:], 16))
	require.Equal(t, uint64(2), binary.NativeEndian.Uint64(b[:]))

	require.Error(t, pes[1].ep.Atomic(transport.AtomicSum, 1, 2, 0, 0, 16))
}

func TestFailures(t *testing.T) {
	_, pes := newTestFabric(t, 2, Config{InboxDepth: 4, MaxOrderedSize: 4})
	src := pes[0].ep

	require.ErrorIs(t, src.Put(make([]byte, 5), 1, 0, 0), transport.ErrSegmentTooLarge)
	require.ErrorIs(t, src.Put([]byte{1}, 2, 0, 0), transport.ErrInvalidPE)
	require.ErrorIs(t, src.Get([]byte{1}, -1, 0, 0), transport.ErrInvalidPE)

	// out of range at the target is acknowledged as a failure
	require.NoError(t, src.Put([]byte{1, 2}, 1, 0, 255))
	require.Equal(t, transport.EventSend, nextEvent(t, src).Kind)
	ct, err := src.CounterWait(transport.CounterAck, 1)
	require.NoError(t, err)
	require.Equal(t, transport.Counter{Failure: 1}, ct)

	require.NoError(t, src.Get(make([]byte, 4), 1, 3, 0))
	ev := nextEvent(t, src)
	require.Equal(t, transport.EventReply, ev.Kind)
	require.True(t, ev.Failed)
}

func TestAttach(t *testing.T) {
	f, _ := newTestFabric(t, 2, DefaultConfig())
	_, err := f.Attach(1, symheap.NewTranslator())
	require.Error(t, err)
	_, err = f.Attach(2, symheap.NewTranslator())
	require.ErrorIs(t, err, transport.ErrInvalidPE)
}

func TestCloseUnblocks(t *testing.T) {
	f := New(1)
	ep, err := f.Attach(0, symheap.NewTranslator())
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() {
		_, err := ep.NextEvent()
		errs <- err
	}()
	go func() {
		_, err := ep.CounterWait(transport.CounterTarget, 1)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, f.Close())
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, transport.ErrClosed)
		case <-time.After(time.Second):
			require.FailNow(t, "waiter not released")
		}
	}
	require.ErrorIs(t, ep.Put([]byte{1}, 0, 0, 0), transport.ErrClosed)
}
