package arena

import "unsafe"

const defaultSlabChunk = 64

// Slab hands out values of one type, charging their size against the
// owning Arena's budget. Chunks live on the Go heap so T may contain
// pointers; they are retained across Reset.
type Slab[T any] struct {
	arena  *Arena
	chunks [][]T
	chunk  int
	next   int
	size   int
}

// NewSlab creates a slab bound to a. The slab rewinds whenever a is Reset.
func NewSlab[T any](a *Arena) *Slab[T] {
	var zero T
	s := &Slab[T]{
		arena: a,
		size:  int(unsafe.Sizeof(zero)),
	}
	a.typed = append(a.typed, s)
	return s
}

// New returns a pointer to a zeroed T.
func (s *Slab[T]) New() (*T, error) {
	out, err := s.Make(1)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Make returns a zeroed, contiguous slice of n values.
func (s *Slab[T]) Make(n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := s.arena.charge(n * max(s.size, 1)); err != nil {
		return nil, err
	}

	for s.chunk < len(s.chunks) && s.next+n > len(s.chunks[s.chunk]) {
		s.chunk++
		s.next = 0
	}
	if s.chunk == len(s.chunks) {
		s.chunks = append(s.chunks, make([]T, max(n, defaultSlabChunk)))
	}

	c := s.chunks[s.chunk]
	out := c[s.next : s.next+n : s.next+n]
	clear(out)
	s.next += n
	return out, nil
}

// Len returns the number of chunks currently retained.
func (s *Slab[T]) Len() int {
	return len(s.chunks)
}

func (s *Slab[T]) reset() {
	s.chunk = 0
	s.next = 0
}

type slabPosition struct {
	chunk int
	next  int
}

func (s *Slab[T]) position() slabPosition {
	return slabPosition{chunk: s.chunk, next: s.next}
}

func (s *Slab[T]) rewind(p slabPosition) {
	s.chunk = p.chunk
	s.next = p.next
}
