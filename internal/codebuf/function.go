package codebuf

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitjit/internal/vm"
)

var (
	// ErrBufferFull is returned when code does not fit the buffer capacity.
	ErrBufferFull = errors.New("codebuf: buffer full")
	// ErrInvalidCapacity is returned for a capacity that cannot hold code.
	ErrInvalidCapacity = errors.New("codebuf: invalid capacity")
)

// FunctionBuffer accumulates the instructions of one function.
type FunctionBuffer struct {
	buf []byte
	n   int
}

// NewFunctionBuffer returns a buffer with room for capacity bytes, rounded
// down to whole instructions.
func NewFunctionBuffer(capacity int) (*FunctionBuffer, error) {
	capacity -= capacity % vm.InstrSize
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &FunctionBuffer{buf: make([]byte, capacity)}, nil
}

// Emit appends one instruction.
func (f *FunctionBuffer) Emit(in vm.Instr) error {
	if f.n+vm.InstrSize > len(f.buf) {
		return ErrBufferFull
	}
	in.Encode(f.buf[f.n:])
	f.n += vm.InstrSize
	return nil
}

// Reset discards the emitted code.
func (f *FunctionBuffer) Reset() {
	f.n = 0
}

// Bytes returns the emitted code. The slice is valid until the next Emit
// or Reset.
func (f *FunctionBuffer) Bytes() []byte {
	return f.buf[:f.n]
}

// Len returns the number of bytes emitted.
func (f *FunctionBuffer) Len() int {
	return f.n
}

// Cap returns the capacity in bytes.
func (f *FunctionBuffer) Cap() int {
	return len(f.buf)
}
