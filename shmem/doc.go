// Package shmem is the one-sided communication core of the runtime: blocking and non-blocking
// put and get of contiguous and strided data, completion and ordering (quiet, fence), waiting
// on symmetric variables and a centralized barrier.
//
// All state of a PE lives in a Runtime created once per process. Element types of the typed
// operations map to the usual scalar families:
//
//	char       int8         short  int16
//	int        int32        long   int64
//	long long  int64        float  float32
//	double     float64      long double, 128-bit  types.Uint128
//
// A PE runs one logical thread of control. Calls on a Runtime must not be made concurrently.
//
// Operations either complete or terminate the process: a rejected issue, an unexpected
// completion event or a failed acknowledgment leave remote memory in a state that cannot be
// unwound.
package shmem
