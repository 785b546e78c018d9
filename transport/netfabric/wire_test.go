package netfabric

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-shmem/codec"
	"github.com/spacemeshos/go-shmem/transport"
)

func TestRequestEncoding(t *testing.T) {
	for _, req := range []request{
		{Op: opPut, Table: 1, Offset: 1 << 40, Data: []byte{1, 2, 3}},
		{Op: opGet, Table: 0, Offset: 8, Length: 4096},
		{Op: opAtomic, Offset: 16, Atomic: transport.AtomicSum, Width: 8, Operand: ^uint64(0)},
	} {
		t.Run(req.Op.String(), func(t *testing.T) {
			buf, err := codec.Encode(&req)
			require.NoError(t, err)
			var got request
			require.NoError(t, codec.Decode(buf, &got))
			require.Equal(t, req, got)
		})
	}
}

func TestRequestUnknownOp(t *testing.T) {
	_, err := codec.Encode(&request{Op: 42})
	require.Error(t, err)

	var req request
	require.Error(t, codec.Decode([]byte{42, 0, 0}, &req))
}

func TestGetLengthLimit(t *testing.T) {
	buf, err := codec.Encode(&request{Op: opGet, Length: maxPayload + 1})
	require.NoError(t, err)
	var req request
	require.Error(t, codec.Decode(buf, &req))
}

func TestResponseEncoding(t *testing.T) {
	for _, resp := range []response{
		{Op: opPut},
		{Op: opAtomic, Failed: true},
		{Op: opGet, Data: []byte("payload")},
	} {
		buf, err := codec.Encode(&resp)
		require.NoError(t, err)
		var got response
		require.NoError(t, codec.Decode(buf, &got))
		require.Equal(t, resp, got)
	}
}

func TestHelloEncoding(t *testing.T) {
	h := hello{JobID: [16]byte{1, 2, 3}, Rank: 3, Size: 4}
	buf, err := codec.Encode(&h)
	require.NoError(t, err)
	var got hello
	require.NoError(t, codec.Decode(buf, &got))
	require.Equal(t, h, got)
}
