package mmap

import "errors"

// Protection is the access mode of a mapping.
type Protection int

const (
	// ProtRead allows reads only.
	ProtRead Protection = iota
	// ProtReadWrite allows reads and writes.
	ProtReadWrite
)

func (p Protection) String() string {
	switch p {
	case ProtRead:
		return "r"
	case ProtReadWrite:
		return "rw"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned when attempting to use a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
)
