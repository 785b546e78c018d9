//go:build unix

package symheap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func mapAnonymous(size int) ([]byte, func([]byte) error, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return mem, unix.Munmap, nil
}
