package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestSum(t *testing.T) {
	require.Equal(t, blake3.Sum256([]byte("onetwo")), Sum([]byte("one"), []byte("two")))
	require.Equal(t, blake3.Sum256(nil), Sum())
	// pooled hashers are reset before reuse
	require.Equal(t, Sum([]byte("x")), Sum([]byte("x")))
}
