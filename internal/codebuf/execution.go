package codebuf

import (
	"fmt"

	"github.com/hupe1980/bitjit/internal/mmap"
)

// ExecutionBuffer holds finalized code in a read-only mapping.
type ExecutionBuffer struct {
	m *mmap.Mapping
	n int
}

// NewExecutionBuffer maps capacity bytes and protects them read-only.
func NewExecutionBuffer(capacity int) (*ExecutionBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	m, err := mmap.MapAnon(capacity)
	if err != nil {
		return nil, err
	}
	if err := m.Protect(mmap.ProtRead); err != nil {
		_ = m.Close()
		return nil, err
	}
	return &ExecutionBuffer{m: m}, nil
}

// Load replaces the buffer contents with code. On error the previous code
// is discarded.
func (e *ExecutionBuffer) Load(code []byte) error {
	if len(code) > e.m.Size() {
		e.n = 0
		return fmt.Errorf("%w: %d bytes into %d", ErrBufferFull, len(code), e.m.Size())
	}
	if err := e.m.Protect(mmap.ProtReadWrite); err != nil {
		e.n = 0
		return err
	}
	e.n = copy(e.m.Bytes(), code)
	return e.m.Protect(mmap.ProtRead)
}

// Code returns the loaded code.
func (e *ExecutionBuffer) Code() []byte {
	b := e.m.Bytes()
	if b == nil {
		return nil
	}
	return b[:e.n]
}

// Len returns the size of the loaded code.
func (e *ExecutionBuffer) Len() int {
	return e.n
}

// Cap returns the capacity in bytes.
func (e *ExecutionBuffer) Cap() int {
	return e.m.Size()
}

// Protection returns the current access mode of the mapping.
func (e *ExecutionBuffer) Protection() mmap.Protection {
	return e.m.Protection()
}

// Close unmaps the buffer. It is idempotent.
func (e *ExecutionBuffer) Close() error {
	e.n = 0
	return e.m.Close()
}
