package netfabric

import (
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/go-shmem/common/types"
	"github.com/spacemeshos/go-shmem/transport"
)

const (
	// maxPayload bounds the data carried by a single frame.
	maxPayload = 1 << 24
	// frameOverhead is the largest encoding of a frame without its data.
	frameOverhead = 64
)

type opcode byte

const (
	opPut opcode = iota + 1
	opGet
	opAtomic
)

func (op opcode) String() string {
	switch op {
	case opPut:
		return "put"
	case opGet:
		return "get"
	case opAtomic:
		return "atomic"
	default:
		return fmt.Sprintf("op(%d)", byte(op))
	}
}

// hello is the first frame in both directions of a connection.
type hello struct {
	JobID [16]byte
	Rank  uint32
	Size  uint32
}

// request is sent by the source of an operation. Fields past Offset depend on Op.
type request struct {
	Op     opcode
	Table  types.TableIndex
	Offset uint64

	// put
	Data []byte
	// get
	Length uint64
	// atomic
	Atomic  transport.AtomicOp
	Width   uint8
	Operand uint64
}

// EncodeScale implements scale.Encodable.
func (r *request) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeByte(enc, byte(r.Op))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, byte(r.Table))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, r.Offset)
		if err != nil {
			return total, err
		}
		total += n
	}
	switch r.Op {
	case opPut:
		n, err := scale.EncodeByteSliceWithLimit(enc, r.Data, maxPayload)
		if err != nil {
			return total, err
		}
		total += n
	case opGet:
		n, err := scale.EncodeCompact64(enc, r.Length)
		if err != nil {
			return total, err
		}
		total += n
	case opAtomic:
		for _, b := range []byte{byte(r.Atomic), r.Width} {
			n, err := scale.EncodeByte(enc, b)
			if err != nil {
				return total, err
			}
			total += n
		}
		n, err := scale.EncodeCompact64(enc, r.Operand)
		if err != nil {
			return total, err
		}
		total += n
	default:
		return total, fmt.Errorf("encode request: unknown %s", r.Op)
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (r *request) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Op = opcode(field)
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Table = types.TableIndex(field)
	}
	{
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Offset = field
	}
	switch r.Op {
	case opPut:
		field, n, err := scale.DecodeByteSliceWithLimit(dec, maxPayload)
		if err != nil {
			return total, err
		}
		total += n
		r.Data = field
	case opGet:
		field, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		if field > maxPayload {
			return total, fmt.Errorf("get of %d bytes exceeds %d", field, maxPayload)
		}
		r.Length = field
	case opAtomic:
		op, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Atomic = transport.AtomicOp(op)
		width, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Width = width
		operand, n, err := scale.DecodeCompact64(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Operand = operand
	default:
		return total, fmt.Errorf("decode request: unknown %s", r.Op)
	}
	return total, nil
}

// response is sent by the target for every request, in request order.
type response struct {
	Op     opcode
	Failed bool
	// get
	Data []byte
}

// EncodeScale implements scale.Encodable.
func (r *response) EncodeScale(enc *scale.Encoder) (total int, err error) {
	var failed byte
	if r.Failed {
		failed = 1
	}
	for _, b := range []byte{byte(r.Op), failed} {
		n, err := scale.EncodeByte(enc, b)
		if err != nil {
			return total, err
		}
		total += n
	}
	if r.Op == opGet {
		n, err := scale.EncodeByteSliceWithLimit(enc, r.Data, maxPayload)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale.Decodable.
func (r *response) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Op = opcode(field)
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Failed = field != 0
	}
	if r.Op == opGet {
		field, n, err := scale.DecodeByteSliceWithLimit(dec, maxPayload)
		if err != nil {
			return total, err
		}
		total += n
		r.Data = field
	}
	return total, nil
}
