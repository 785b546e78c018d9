package shmem

import (
	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/common/util"
	"github.com/spacemeshos/go-shmem/log"
	"github.com/spacemeshos/go-shmem/symheap"
	"github.com/spacemeshos/go-shmem/transport"
)

// PutNB copies source to target on pe without waiting for the local completion and returns
// the number of EventSend events the caller has to consume with WaitEvents before it may
// reuse source. Copies larger than the transport limit are issued as several segments.
func (r *Runtime) PutNB(target symheap.Addr, source []byte, pe int) int {
	n := uint64(len(source))
	d := r.translate(target, n, pe)
	events := 0
	for sent := uint64(0); sent < n; sent += r.segment {
		size := min(r.segment, n-sent)
		if err := r.tr.Put(source[sent:sent+size], d.PE, d.Table, d.Offset+sent); err != nil {
			r.abort(log.ErrTransportRejected("put", err))
		}
		r.pending++
		events++
		putSegments.Inc()
	}
	putBytes.Add(float64(n))
	return events
}

// PutMem copies source to target on pe and returns once source may be reused. The data is
// not guaranteed to be visible at the target until Quiet.
func (r *Runtime) PutMem(target symheap.Addr, source []byte, pe int) {
	r.WaitEvents(r.PutNB(target, source, pe), transport.EventSend)
}

// GetNB requests the bytes at source on pe into target and returns the number of EventReply
// events to consume before target holds the data.
func (r *Runtime) GetNB(target []byte, source symheap.Addr, pe int) int {
	n := uint64(len(target))
	d := r.translate(source, n, pe)
	if err := r.tr.Get(target, d.PE, d.Table, d.Offset); err != nil {
		r.abort(log.ErrTransportRejected("get", err))
	}
	gets.Inc()
	getBytes.Add(float64(n))
	return 1
}

// GetMem copies the bytes at source on pe into target and returns once they arrived.
func (r *Runtime) GetMem(target []byte, source symheap.Addr, pe int) {
	r.WaitEvents(r.GetNB(target, source, pe), transport.EventReply)
}

// WaitEvents consumes n events of kind from the event queue. Any other kind or a failed
// event is fatal.
func (r *Runtime) WaitEvents(n int, kind transport.EventKind) {
	for ; n > 0; n-- {
		ev, err := r.tr.NextEvent()
		if err != nil {
			r.abort(log.ErrTransportWait(kind.String()+" event", err))
		}
		if ev.Kind != kind {
			r.abort(log.ErrUnexpectedEvent(kind, ev.Kind))
		}
		if ev.Failed {
			r.abort(log.ErrRemoteFailure(kind.String(), errFailedEvent))
		}
	}
}

func (r *Runtime) iput(target symheap.Addr, source []byte, elem uintptr, tst, sst, n int, pe int) {
	events := 0
	for i := 0; i < n; i++ {
		soff := uintptr(i*sst) * elem
		events += r.PutNB(
			target.Add(int64(i*tst)*int64(elem)),
			source[soff:soff+elem],
			pe,
		)
	}
	r.WaitEvents(events, transport.EventSend)
}

func (r *Runtime) iget(target []byte, source symheap.Addr, elem uintptr, tst, sst, n int, pe int) {
	events := 0
	for i := 0; i < n; i++ {
		toff := uintptr(i*tst) * elem
		dst := target[toff : toff+elem]
		src := source.Add(int64(i*sst) * int64(elem))
		if r.cfg.BatchStridedGets {
			events += r.GetNB(dst, src, pe)
		} else {
			r.GetMem(dst, src, pe)
		}
	}
	r.WaitEvents(events, transport.EventReply)
}

// Put32 copies the words of source to target on pe.
func (r *Runtime) Put32(target symheap.Addr, source []uint32, pe int) {
	r.PutMem(target, util.SliceAsBytes(source), pe)
}

// Put64 copies the words of source to target on pe.
func (r *Runtime) Put64(target symheap.Addr, source []uint64, pe int) {
	r.PutMem(target, util.SliceAsBytes(source), pe)
}

// Put128 copies the words of source to target on pe.
func (r *Runtime) Put128(target symheap.Addr, source []types.Uint128, pe int) {
	r.PutMem(target, util.SliceAsBytes(source), pe)
}

// Get32 copies len(target) words at source on pe into target.
func (r *Runtime) Get32(target []uint32, source symheap.Addr, pe int) {
	r.GetMem(util.SliceAsBytes(target), source, pe)
}

// Get64 copies len(target) words at source on pe into target.
func (r *Runtime) Get64(target []uint64, source symheap.Addr, pe int) {
	r.GetMem(util.SliceAsBytes(target), source, pe)
}

// Get128 copies len(target) words at source on pe into target.
func (r *Runtime) Get128(target []types.Uint128, source symheap.Addr, pe int) {
	r.GetMem(util.SliceAsBytes(target), source, pe)
}

// IPut32 copies n words of source taken every sst elements to target on pe, every tst
// elements. Strides are counted in elements.
func (r *Runtime) IPut32(target symheap.Addr, source []uint32, tst, sst, n int, pe int) {
	r.iput(target, util.SliceAsBytes(source), 4, tst, sst, n, pe)
}

// IPut64 is IPut32 for 64-bit words.
func (r *Runtime) IPut64(target symheap.Addr, source []uint64, tst, sst, n int, pe int) {
	r.iput(target, util.SliceAsBytes(source), 8, tst, sst, n, pe)
}

// IPut128 is IPut32 for 128-bit words.
func (r *Runtime) IPut128(target symheap.Addr, source []types.Uint128, tst, sst, n int, pe int) {
	r.iput(target, util.SliceAsBytes(source), 16, tst, sst, n, pe)
}

// IGet32 copies n words at source on pe taken every sst elements into target, every tst
// elements.
func (r *Runtime) IGet32(target []uint32, source symheap.Addr, tst, sst, n int, pe int) {
	r.iget(util.SliceAsBytes(target), source, 4, tst, sst, n, pe)
}

// IGet64 is IGet32 for 64-bit words.
func (r *Runtime) IGet64(target []uint64, source symheap.Addr, tst, sst, n int, pe int) {
	r.iget(util.SliceAsBytes(target), source, 8, tst, sst, n, pe)
}

// IGet128 is IGet32 for 128-bit words.
func (r *Runtime) IGet128(target []types.Uint128, source symheap.Addr, tst, sst, n int, pe int) {
	r.iget(util.SliceAsBytes(target), source, 16, tst, sst, n, pe)
}
