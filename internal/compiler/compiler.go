package compiler

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/internal/codebuf"
	"github.com/hupe1980/bitjit/internal/conv"
	"github.com/hupe1980/bitjit/internal/regalloc"
	"github.com/hupe1980/bitjit/internal/vm"
	"github.com/hupe1980/bitjit/matchtree"
)

var (
	// ErrCodeBufferFull is returned when the code does not fit the function
	// buffer.
	ErrCodeBufferFull = errors.New("compiler: code buffer full")
	// ErrExpressionBudget is returned when the expression arena is exhausted.
	ErrExpressionBudget = errors.New("compiler: expression budget exhausted")
	// ErrTooManyRows is returned when the row table cannot be addressed.
	ErrTooManyRows = errors.New("compiler: too many rows")
	// ErrTooManySpills is returned when a spill slot cannot be addressed.
	ErrTooManySpills = errors.New("compiler: too many spill slots")
)

// ActiveRowName names the active-document row in the row table.
const ActiveRowName = "active"

// Stats describes one compilation.
type Stats struct {
	// Nodes is the number of expression nodes allocated.
	Nodes int
	// Rows is the size of the row table.
	Rows int
	// Instructions and CodeBytes measure the emitted code.
	Instructions int
	CodeBytes    int
	// Spills counts values placed in spill slots; SpillSlots is the number
	// of distinct slots the program needs.
	Spills     int
	SpillSlots int
	// ExpressionBytes is the expression arena usage.
	ExpressionBytes int
}

// Program is the output of Compile. It is valid until the next Compile.
type Program struct {
	// Code is the emitted code, a view into the function buffer.
	Code []byte
	// Rows is the row table addressed by LOADROW and SPILLROW.
	Rows [][]uint64
	// RowNames describes each row-table entry.
	RowNames []string
	// SpillSlots is the spill memory the program needs, in words.
	SpillSlots int
	// Expr is the compiled expression.
	Expr *Expr
}

// Compiler turns term-match trees into programs for one index.
type Compiler struct {
	idx   index.Index
	arena *arena.Arena
	exprs *arena.Slab[Expr]
	regs  *regalloc.Allocator
	code  *codebuf.FunctionBuffer

	rows     [][]uint64
	rowNames []string
	rowOf    map[index.Term]uint32

	locs  []regalloc.Location
	seq   int
	stats Stats
}

// New returns a compiler that allocates expressions from exprArena and
// emits into code.
func New(idx index.Index, exprArena *arena.Arena, code *codebuf.FunctionBuffer) *Compiler {
	return &Compiler{
		idx:   idx,
		arena: exprArena,
		exprs: arena.NewSlab[Expr](exprArena),
		regs:  regalloc.New(vm.RegisterBase, vm.NumRegisters),
		code:  code,
		rowOf: make(map[index.Term]uint32),
	}
}

// LiveRegisters returns the number of registers currently bound.
func (c *Compiler) LiveRegisters() int {
	return c.regs.Live()
}

// Stats returns the statistics of the last compilation.
func (c *Compiler) Stats() Stats {
	return c.stats
}

func (c *Compiler) reset() {
	c.arena.Reset()
	c.regs.Reset()
	c.code.Reset()
	c.rows = c.rows[:0]
	c.rowNames = c.rowNames[:0]
	clear(c.rowOf)
	c.locs = c.locs[:0]
	c.seq = 0
	c.stats = Stats{}
}

// Compile translates tree. A nil tree compiles to a program that matches
// nothing. On error all compiler state is rolled back.
func (c *Compiler) Compile(tree *matchtree.Node) (*Program, error) {
	c.reset()

	prog, err := c.compile(tree)
	if err != nil {
		c.reset()
		return nil, err
	}
	return prog, nil
}

func (c *Compiler) compile(tree *matchtree.Node) (*Program, error) {
	root, err := c.lower(tree)
	if err != nil {
		return nil, err
	}

	active, err := c.alloc(ExprRow, nil, nil)
	if err != nil {
		return nil, err
	}
	if active.Row, err = c.addRow(ActiveRowName, index.Term{}, c.idx.ActiveRow()); err != nil {
		return nil, err
	}
	if root.Kind != ExprFalse {
		if root, err = c.and(root, active); err != nil {
			return nil, err
		}
	}

	if root.Kind != ExprFalse {
		c.number(root)
		root.NextUse = c.seq
		c.locs = append(c.locs[:0], make([]regalloc.Location, c.seq)...)

		if err := c.emitExpr(root); err != nil {
			return nil, err
		}
		loc := c.locs[root.Seq]
		reg, err := c.materialize(loc)
		if err != nil {
			return nil, err
		}
		if err := c.emit(vm.Instr{Op: vm.OpEmit, A: reg}); err != nil {
			return nil, err
		}
		c.regs.Release(loc)
	}
	if err := c.emit(vm.Instr{Op: vm.OpEnd}); err != nil {
		return nil, err
	}

	if err := c.regs.CheckClean(); err != nil {
		panic(err)
	}

	c.stats.Rows = len(c.rows)
	c.stats.CodeBytes = c.code.Len()
	c.stats.Spills = c.regs.Spills()
	c.stats.SpillSlots = c.regs.SpillSlots()
	c.stats.ExpressionBytes = c.arena.Used()

	return &Program{
		Code:       c.code.Bytes(),
		Rows:       c.rows,
		RowNames:   c.rowNames,
		SpillSlots: c.regs.SpillSlots(),
		Expr:       root,
	}, nil
}

func (c *Compiler) addRow(name string, t index.Term, row []uint64) (uint32, error) {
	if name != ActiveRowName {
		if i, ok := c.rowOf[t]; ok {
			return i, nil
		}
	}
	i, err := conv.IntToUint32(len(c.rows))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTooManyRows, err)
	}
	c.rows = append(c.rows, row)
	c.rowNames = append(c.rowNames, name)
	if name != ActiveRowName {
		c.rowOf[t] = i
	}
	return i, nil
}

// spillSlot converts a spill slot to the 16-bit destination field.
func spillSlot(i int) (uint16, error) {
	s, err := conv.IntToUint16(i)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTooManySpills, err)
	}
	return s, nil
}

func (c *Compiler) emit(in vm.Instr) error {
	if err := c.code.Emit(in); err != nil {
		if errors.Is(err, codebuf.ErrBufferFull) {
			return fmt.Errorf("%w: %d bytes", ErrCodeBufferFull, c.code.Cap())
		}
		return err
	}
	c.stats.Instructions++
	return nil
}

// acquire finds a location for e and emits the store of any evicted value.
func (c *Compiler) acquire(e *Expr) (regalloc.Location, error) {
	loc, ev := c.regs.Acquire(e.Seq, e.NextUse)
	if ev != nil {
		slot, err := spillSlot(ev.Slot)
		if err != nil {
			return loc, err
		}
		if err := c.emit(vm.Instr{Op: vm.OpStoreSpill, A: slot, B: uint32(ev.Register)}); err != nil { //nolint:gosec // < NumRegisters
			return loc, err
		}
		c.locs[ev.Value] = regalloc.Spill(ev.Slot)
	}
	c.locs[e.Seq] = loc
	return loc, nil
}

// materialize returns a register holding the value at loc, reloading a
// spilled value into the scratch register.
func (c *Compiler) materialize(loc regalloc.Location) (uint16, error) {
	if loc.IsRegister() {
		return uint16(loc.Index), nil //nolint:gosec // < NumRegisters
	}
	err := c.emit(vm.Instr{Op: vm.OpLoadSpill, A: vm.ScratchRegister, B: uint32(loc.Index)}) //nolint:gosec // bounded
	return vm.ScratchRegister, err
}

func operand(loc regalloc.Location) (vm.Mode, uint32) {
	if loc.IsRegister() {
		return vm.ModeRegister, uint32(loc.Index) //nolint:gosec // < NumRegisters
	}
	return vm.ModeSpill, uint32(loc.Index) //nolint:gosec // bounded
}

func logicOp(k ExprKind) vm.Op {
	switch k {
	case ExprAnd:
		return vm.OpAnd
	case ExprOr:
		return vm.OpOr
	default:
		return vm.OpAndNot
	}
}

func (c *Compiler) emitExpr(e *Expr) error {
	switch e.Kind {
	case ExprRow:
		loc, err := c.acquire(e)
		if err != nil {
			return err
		}
		if loc.IsRegister() {
			return c.emit(vm.Instr{Op: vm.OpLoadRow, A: uint16(loc.Index), B: e.Row}) //nolint:gosec // < NumRegisters
		}
		slot, err := spillSlot(loc.Index)
		if err != nil {
			return err
		}
		return c.emit(vm.Instr{Op: vm.OpSpillRow, A: slot, B: e.Row})
	case ExprNot:
		return c.emitNot(e)
	case ExprAnd, ExprOr, ExprAndNot:
		return c.emitBinary(e)
	}
	return fmt.Errorf("compiler: unexpected %s in emission", e)
}

func (c *Compiler) emitNot(e *Expr) error {
	if err := c.emitExpr(e.Left); err != nil {
		return err
	}
	child := c.locs[e.Left.Seq]

	if child.IsRegister() {
		if err := c.emit(vm.Instr{Op: vm.OpNot, A: uint16(child.Index)}); err != nil { //nolint:gosec // < NumRegisters
			return err
		}
		c.regs.Rebind(child, e.Seq, e.NextUse)
		c.locs[e.Seq] = child
		return nil
	}

	return c.viaRegister(e, func(reg uint16) error {
		if err := c.emit(vm.Instr{Op: vm.OpLoadSpill, A: reg, B: uint32(child.Index)}); err != nil { //nolint:gosec // bounded
			return err
		}
		return c.emit(vm.Instr{Op: vm.OpNot, A: reg})
	}, child)
}

func (c *Compiler) emitBinary(e *Expr) error {
	if err := c.emitExpr(e.Left); err != nil {
		return err
	}
	if err := c.emitExpr(e.Right); err != nil {
		return err
	}
	// Emitting the right operand may have evicted the left one.
	left, right := c.locs[e.Left.Seq], c.locs[e.Right.Seq]
	op := logicOp(e.Kind)

	var dst, src regalloc.Location
	switch {
	case left.IsRegister():
		dst, src = left, right
	case right.IsRegister() && e.Kind != ExprAndNot:
		dst, src = right, left
	case right.IsRegister():
		// x &^ y with only y in a register: y = ^y & x.
		if err := c.emit(vm.Instr{Op: vm.OpNot, A: uint16(right.Index)}); err != nil { //nolint:gosec // < NumRegisters
			return err
		}
		dst, src, op = right, left, vm.OpAnd
	default:
		return c.viaRegister(e, func(reg uint16) error {
			if err := c.emit(vm.Instr{Op: vm.OpLoadSpill, A: reg, B: uint32(left.Index)}); err != nil { //nolint:gosec // bounded
				return err
			}
			return c.emit(vm.Instr{Op: op, Mode: vm.ModeSpill, A: reg, B: uint32(right.Index)}) //nolint:gosec // bounded
		}, left, right)
	}

	mode, b := operand(src)
	if err := c.emit(vm.Instr{Op: op, Mode: mode, A: uint16(dst.Index), B: b}); err != nil { //nolint:gosec // < NumRegisters
		return err
	}
	c.regs.Release(src)
	c.regs.Rebind(dst, e.Seq, e.NextUse)
	c.locs[e.Seq] = dst
	return nil
}

// viaRegister computes e from spilled operands. The result location is
// acquired while the operand slots are still held, so an eviction cannot
// overwrite them. A result placed in a spill slot is computed in the
// scratch register and stored.
func (c *Compiler) viaRegister(e *Expr, body func(reg uint16) error, operands ...regalloc.Location) error {
	loc, err := c.acquire(e)
	if err != nil {
		return err
	}
	reg := uint16(vm.ScratchRegister)
	if loc.IsRegister() {
		reg = uint16(loc.Index) //nolint:gosec // < NumRegisters
	}
	if err := body(reg); err != nil {
		return err
	}
	if !loc.IsRegister() {
		slot, err := spillSlot(loc.Index)
		if err != nil {
			return err
		}
		if err := c.emit(vm.Instr{Op: vm.OpStoreSpill, A: slot, B: uint32(reg)}); err != nil {
			return err
		}
	}
	for _, op := range operands {
		c.regs.Release(op)
	}
	return nil
}
