package mmap

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Mapping represents an anonymous memory mapping.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	prot   Protection
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// MapAnon creates a read-write anonymous mapping of at least size bytes.
// The length is rounded up to the page size; Size reports the requested size.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	page := os.Getpagesize()
	length := (size + page - 1) / page * page

	data, unmapFunc, err := osMapAnon(length)
	if err != nil {
		return nil, fmt.Errorf("mmap: map %d bytes: %w", length, err)
	}

	return &Mapping{
		data:  data,
		size:  size,
		prot:  ProtReadWrite,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the first Size bytes of the mapping.
// Warning: The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data[:m.size:m.size]
}

// Size returns the requested size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Protection returns the current access mode.
func (m *Mapping) Protection() Protection {
	return m.prot
}

// Protect changes the access mode of the whole mapping.
func (m *Mapping) Protect(prot Protection) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if prot == m.prot {
		return nil
	}
	if err := osProtect(m.data, prot); err != nil {
		return fmt.Errorf("mmap: protect %s: %w", prot, err)
	}
	m.prot = prot
	return nil
}
