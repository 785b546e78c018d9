package util

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsBytes(t *testing.T) {
	v := uint32(0x01020304)
	b := AsBytes(&v)
	require.Len(t, b, 4)
	require.Equal(t, v, binary.NativeEndian.Uint32(b))

	binary.NativeEndian.PutUint32(b, 7)
	require.Equal(t, uint32(7), v)
}

func TestSliceAsBytes(t *testing.T) {
	require.Nil(t, SliceAsBytes([]int64{}))

	s := []int16{1, 2, 3}
	b := SliceAsBytes(s)
	require.Len(t, b, 6)
	require.Equal(t, uint16(2), binary.NativeEndian.Uint16(b[2:]))
	require.Equal(t, uintptr(16), SizeOf[[2]uint64]())
}
