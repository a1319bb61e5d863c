package vm

import (
	"fmt"
	"math/bits"
	"strings"
)

// Sink receives matching row positions in ascending order. Returning an
// error stops execution and Exec returns that error.
type Sink func(pos uint32) error

// Machine executes programs. Its working memory is reused across runs; a
// Machine is not safe for concurrent use.
type Machine struct {
	reg   [NumRegisters + 1]uint64
	spill []uint64
}

// Exec runs code once per 64-row block over rowCount row positions. rows is
// the row table addressed by LOADROW and SPILLROW; every row must hold at
// least (rowCount+63)/64 words. Bits beyond rowCount are never reported.
func (m *Machine) Exec(code []byte, rows [][]uint64, spills int, rowCount uint32, sink Sink) error {
	prog, err := Decode(code)
	if err != nil {
		return err
	}
	if err := Validate(prog, len(rows), spills); err != nil {
		return err
	}

	blocks := int((uint64(rowCount) + 63) / 64)
	for i, r := range rows {
		if len(r) < blocks {
			return fmt.Errorf("%w: row %d has %d words, need %d", ErrInvalidProgram, i, len(r), blocks)
		}
	}
	if cap(m.spill) < spills {
		m.spill = make([]uint64, spills)
	}
	spill := m.spill[:spills]

	tail := ^uint64(0)
	if rem := rowCount % 64; rem != 0 {
		tail = (uint64(1) << rem) - 1
	}

	for blk := range blocks {
	block:
		for _, in := range prog {
			switch in.Op {
			case OpEnd:
				break block
			case OpLoadRow:
				m.reg[in.A] = rows[in.B][blk]
			case OpSpillRow:
				spill[in.A] = rows[in.B][blk]
			case OpLoadSpill:
				m.reg[in.A] = spill[in.B]
			case OpStoreSpill:
				spill[in.A] = m.reg[in.B]
			case OpAnd:
				m.reg[in.A] &= m.operand(in, spill)
			case OpOr:
				m.reg[in.A] |= m.operand(in, spill)
			case OpAndNot:
				m.reg[in.A] &^= m.operand(in, spill)
			case OpNot:
				m.reg[in.A] = ^m.reg[in.A]
			case OpEmit:
				w := m.reg[in.A]
				if blk == blocks-1 {
					w &= tail
				}
				base := uint32(blk) * 64 //nolint:gosec // blk < blocks <= 2^26
				for w != 0 {
					if err := sink(base + uint32(bits.TrailingZeros64(w))); err != nil {
						return err
					}
					w &= w - 1
				}
			}
		}
	}
	return nil
}

func (m *Machine) operand(in Instr, spill []uint64) uint64 {
	if in.Mode == ModeSpill {
		return spill[in.B]
	}
	return m.reg[in.B]
}

// Disassemble renders code one instruction per line, prefixed with the
// byte offset.
func Disassemble(code []byte) (string, error) {
	prog, err := Decode(code)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, in := range prog {
		fmt.Fprintf(&sb, "%04x  %s\n", i*InstrSize, in)
	}
	return sb.String(), nil
}
