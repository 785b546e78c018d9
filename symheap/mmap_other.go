//go:build !unix

package symheap

func mapAnonymous(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}
