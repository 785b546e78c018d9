package types

import (
	"fmt"
)

// Uint128 is an opaque 16-byte element. It carries the 128-bit width of the strided and bulk
// operations and the storage of an extended precision (long double) value.
type Uint128 struct {
	Lo, Hi uint64
}

// String implements fmt.Stringer.
func (u Uint128) String() string {
	return fmt.Sprintf("0x%016x%016x", u.Hi, u.Lo)
}
