// Package regalloc assigns the values of one compiled expression to a fixed
// bank of registers, falling back to spill slots when the bank is full.
//
// Values are identified by their post-order sequence number and carry the
// sequence number of the instruction that consumes them (their next use).
// When every register is bound, the value whose next use is furthest away
// is evicted to a spill slot; ties go to the value bound first. A new value
// that is itself used later than every bound value goes straight to a spill
// slot instead.
//
// The allocator is owned by a single compiler and reset per compilation.
// Misuse, such as releasing a free register, is a compiler defect and panics.
package regalloc

import (
	"fmt"
)

// LocationKind tells where a value lives.
type LocationKind uint8

const (
	InRegister LocationKind = iota
	InSpill
)

// Location is a register index in [0, count) or a spill slot index.
type Location struct {
	Kind  LocationKind
	Index int
}

// Register returns the location of register i.
func Register(i int) Location { return Location{Kind: InRegister, Index: i} }

// Spill returns the location of spill slot i.
func Spill(i int) Location { return Location{Kind: InSpill, Index: i} }

// IsRegister reports whether l is a register.
func (l Location) IsRegister() bool { return l.Kind == InRegister }

func (l Location) String() string {
	if l.IsRegister() {
		return fmt.Sprintf("r%d", l.Index)
	}
	return fmt.Sprintf("s%d", l.Index)
}

// Eviction reports that Value moved from Register to spill Slot. The caller
// must emit the store before using Register for anything else.
type Eviction struct {
	Value    int
	Register int
	Slot     int
}

type binding struct {
	bound   bool
	value   int
	nextUse int
	order   uint64
}

// Allocator is the register bank state.
type Allocator struct {
	base  int
	slots []binding
	order uint64
	live  int

	spillUsed []bool
	spillLive int
	spills    int
}

// New returns an allocator for count registers numbered from base.
func New(base, count int) *Allocator {
	if count <= 0 {
		panic(fmt.Sprintf("regalloc: invalid register count %d", count))
	}
	return &Allocator{base: base, slots: make([]binding, count)}
}

// Name returns the machine name of register i, e.g. R8 for i=0 with base 8.
func (a *Allocator) Name(i int) string { return fmt.Sprintf("R%d", a.base+i) }

// Acquire finds a location for value. It never fails: when no register can
// be granted the value, or an evicted value, goes to a spill slot.
func (a *Allocator) Acquire(value, nextUse int) (Location, *Eviction) {
	a.order++
	for i := range a.slots {
		if !a.slots[i].bound {
			a.bind(i, value, nextUse)
			return Register(i), nil
		}
	}

	victim := 0
	for i := 1; i < len(a.slots); i++ {
		s, v := a.slots[i], a.slots[victim]
		if s.nextUse > v.nextUse || (s.nextUse == v.nextUse && s.order < v.order) {
			victim = i
		}
	}

	slot := a.allocSpill()
	if a.slots[victim].nextUse <= nextUse {
		return Spill(slot), nil
	}

	ev := &Eviction{Value: a.slots[victim].value, Register: victim, Slot: slot}
	a.live--
	a.bind(victim, value, nextUse)
	return Register(victim), ev
}

func (a *Allocator) bind(i, value, nextUse int) {
	a.slots[i] = binding{bound: true, value: value, nextUse: nextUse, order: a.order}
	a.live++
}

func (a *Allocator) allocSpill() int {
	a.spills++
	a.spillLive++
	for i, used := range a.spillUsed {
		if !used {
			a.spillUsed[i] = true
			return i
		}
	}
	a.spillUsed = append(a.spillUsed, true)
	return len(a.spillUsed) - 1
}

// Rebind hands the register at loc to a new value, as when an operation
// leaves its result in an operand's register.
func (a *Allocator) Rebind(loc Location, value, nextUse int) {
	if !loc.IsRegister() || !a.slots[loc.Index].bound {
		panic(fmt.Sprintf("regalloc: rebind of unbound location %s", loc))
	}
	a.order++
	a.slots[loc.Index] = binding{bound: true, value: value, nextUse: nextUse, order: a.order}
}

// Release frees a register or spill slot.
func (a *Allocator) Release(loc Location) {
	if loc.IsRegister() {
		if loc.Index < 0 || loc.Index >= len(a.slots) || !a.slots[loc.Index].bound {
			panic(fmt.Sprintf("regalloc: release of free register %s", a.Name(loc.Index)))
		}
		a.slots[loc.Index] = binding{}
		a.live--
		return
	}
	if loc.Index < 0 || loc.Index >= len(a.spillUsed) || !a.spillUsed[loc.Index] {
		panic(fmt.Sprintf("regalloc: release of free spill slot %d", loc.Index))
	}
	a.spillUsed[loc.Index] = false
	a.spillLive--
}

// Value returns the value bound to register i, if any.
func (a *Allocator) Value(i int) (int, bool) {
	s := a.slots[i]
	return s.value, s.bound
}

// Live returns the number of bound registers.
func (a *Allocator) Live() int { return a.live }

// Spills returns how many values were placed in spill slots since Reset.
func (a *Allocator) Spills() int { return a.spills }

// SpillSlots returns the number of distinct spill slots used since Reset.
func (a *Allocator) SpillSlots() int { return len(a.spillUsed) }

// Reset frees every register and spill slot.
func (a *Allocator) Reset() {
	clear(a.slots)
	a.order = 0
	a.live = 0
	a.spillUsed = a.spillUsed[:0]
	a.spillLive = 0
	a.spills = 0
}

// CheckClean reports registers or spill slots still held.
func (a *Allocator) CheckClean() error {
	if a.live != 0 || a.spillLive != 0 {
		return fmt.Errorf("regalloc: %d registers and %d spill slots still live", a.live, a.spillLive)
	}
	return nil
}
