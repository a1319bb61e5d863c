package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// MemoryAcquirer reserves and returns memory from a shared budget.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrArenaFull is returned when an allocation would exceed the arena budget.
	ErrArenaFull = errors.New("arena: budget exhausted")
	// ErrInvalidBudget is returned when an arena is created with a non-positive budget.
	ErrInvalidBudget = errors.New("arena: invalid budget")
	// ErrClosed is returned when allocating from a freed arena.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultAlignment is the alignment applied to byte allocations.
	DefaultAlignment = 8
	// slabSize is the size of one byte slab. Smaller budgets use a single slab
	// of exactly the budget size.
	slabSize = 4 * 1024
)

// Stats tracks arena usage.
//
//   - Capacity: the byte budget
//   - BytesUsed: bytes charged since the last Reset
//   - HighWater: largest BytesUsed ever observed
//   - TotalAllocs: cumulative allocation count
//   - Resets: number of Reset calls
type Stats struct {
	Capacity    int
	BytesUsed   int
	HighWater   int
	TotalAllocs uint64
	Resets      uint64
}

type resetter interface {
	reset()
	position() slabPosition
	rewind(slabPosition)
}

// Mark is an arena position taken by Mark and restored by Rewind.
type Mark struct {
	generation uint32
	used       int
	cur        int
	off        int
	typed      []slabPosition
}

// Arena is a fixed-budget bump allocator.
type Arena struct {
	name     string
	capacity int
	used     int

	slabs [][]byte
	cur   int // index of the slab being filled
	off   int // offset within slabs[cur]

	typed      []resetter
	generation uint32
	stats      Stats
	acquirer   MemoryAcquirer
	closed     bool
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges the arena budget against a shared acquirer at
// construction and returns it on Free.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithName labels the arena in errors and String output.
func WithName(name string) Option {
	return func(a *Arena) {
		a.name = name
	}
}

// New creates an arena with the given byte budget.
func New(budget int, opts ...Option) (*Arena, error) {
	a := &Arena{name: "arena", capacity: budget}
	for _, opt := range opts {
		opt(a)
	}

	if budget <= 0 {
		return nil, fmt.Errorf("%s: %w: %d bytes", a.name, ErrInvalidBudget, budget)
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(budget)); err != nil {
			return nil, fmt.Errorf("%s: reserve %d bytes: %w", a.name, budget, err)
		}
	}

	a.slabs = append(a.slabs, make([]byte, min(budget, slabSize)))
	a.generation = 1
	a.stats.Capacity = budget
	return a, nil
}

// Name returns the arena label.
func (a *Arena) Name() string {
	return a.name
}

// Generation returns the current generation. It changes on every Reset.
func (a *Arena) Generation() uint32 {
	return a.generation
}

// Capacity returns the byte budget.
func (a *Arena) Capacity() int {
	return a.capacity
}

// Used returns the bytes charged since the last Reset.
func (a *Arena) Used() int {
	return a.used
}

// charge reserves n bytes of budget without handing out storage.
func (a *Arena) charge(n int) error {
	if a.closed {
		return ErrClosed
	}
	if n < 0 || a.used+n > a.capacity {
		return fmt.Errorf("%s: %w: need %d bytes, %d of %d in use", a.name, ErrArenaFull, n, a.used, a.capacity)
	}
	a.used += n
	a.stats.TotalAllocs++
	if a.used > a.stats.HighWater {
		a.stats.HighWater = a.used
	}
	return nil
}

// Alloc allocates size bytes aligned to DefaultAlignment.
// The returned slice is zeroed.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}

	const mask = DefaultAlignment - 1
	aligned := (size + mask) &^ mask
	if err := a.charge(aligned); err != nil {
		return nil, err
	}

	if a.off+aligned > len(a.slabs[a.cur]) {
		a.nextSlab(aligned)
	}

	slab := a.slabs[a.cur]
	out := slab[a.off : a.off+size : a.off+size]
	clear(out)
	a.off += aligned
	return out, nil
}

// nextSlab moves to a retained slab that can hold n bytes, or appends one.
func (a *Arena) nextSlab(n int) {
	for i := a.cur + 1; i < len(a.slabs); i++ {
		if len(a.slabs[i]) >= n {
			a.slabs[a.cur+1], a.slabs[i] = a.slabs[i], a.slabs[a.cur+1]
			a.cur++
			a.off = 0
			return
		}
	}
	a.slabs = append(a.slabs, nil)
	copy(a.slabs[a.cur+2:], a.slabs[a.cur+1:])
	a.slabs[a.cur+1] = make([]byte, max(n, slabSize))
	a.cur++
	a.off = 0
}

// AllocString copies s into the arena and returns the arena-backed copy.
func (a *Arena) AllocString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	b, err := a.Alloc(len(s))
	if err != nil {
		return "", err
	}
	copy(b, s)
	return unsafe.String(&b[0], len(b)), nil //nolint:gosec // arena-owned storage
}

// Mark records the current allocation position.
func (a *Arena) Mark() Mark {
	m := Mark{
		generation: a.Generation(),
		used:       a.used,
		cur:        a.cur,
		off:        a.off,
		typed:      make([]slabPosition, len(a.typed)),
	}
	for i, t := range a.typed {
		m.typed[i] = t.position()
	}
	return m
}

// Rewind releases every allocation made since m was taken. Values
// allocated after m become invalid. A mark taken before the last Reset is
// ignored.
func (a *Arena) Rewind(m Mark) {
	if a.closed || m.generation != a.Generation() {
		return
	}
	a.used = m.used
	a.cur = m.cur
	a.off = m.off
	for i, t := range a.typed {
		if i < len(m.typed) {
			t.rewind(m.typed[i])
		} else {
			t.reset()
		}
	}
}

// Reset releases every allocation and rewinds all registered slabs.
//
// IMPORTANT: values allocated before Reset become invalid. Slabs are
// retained so the next epoch allocates nothing until it outgrows them.
func (a *Arena) Reset() {
	a.used = 0
	a.cur = 0
	a.off = 0
	a.generation++
	a.stats.Resets++
	for _, t := range a.typed {
		t.reset()
	}
}

// Free returns the budget to the acquirer and drops all storage.
// After Free the arena cannot be reused.
func (a *Arena) Free() {
	if a.closed {
		return
	}
	a.closed = true
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(a.capacity))
	}
	a.slabs = nil
	a.typed = nil
	a.used = 0
	a.generation++
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.BytesUsed = a.used
	return s
}

// Usage returns the budget usage percentage.
func (a *Arena) Usage() float64 {
	if a.capacity == 0 {
		return 0
	}
	return float64(a.used) / float64(a.capacity) * 100
}

func (a *Arena) String() string {
	return fmt.Sprintf(
		"Arena{name: %s, used: %d B, capacity: %d B, high-water: %d B, usage: %.1f%%, allocs: %d, resets: %d}",
		a.name,
		a.used,
		a.capacity,
		a.stats.HighWater,
		a.Usage(),
		a.stats.TotalAllocs,
		a.stats.Resets,
	)
}
