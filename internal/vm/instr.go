package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// InstrSize is the encoded size of one instruction.
const InstrSize = 8

// NumRegisters is the number of allocatable registers.
const NumRegisters = 8

// ScratchRegister is the index of the reserved scratch register.
const ScratchRegister = NumRegisters

// RegisterBase is the number of the first allocatable register as shown by
// the disassembler, so register 0 prints as R8.
const RegisterBase = 8

// Op is an opcode.
type Op uint8

const (
	OpEnd        Op = iota // stop the current block
	OpLoadRow              // reg[A] = row[B]
	OpSpillRow             // spill[A] = row[B]
	OpLoadSpill            // reg[A] = spill[B]
	OpStoreSpill           // spill[A] = reg[B]
	OpAnd                  // reg[A] &= src(B)
	OpOr                   // reg[A] |= src(B)
	OpAndNot               // reg[A] &^= src(B)
	OpNot                  // reg[A] = ^reg[A]
	OpEmit                 // report the set bits of reg[A]
	opCount
)

var opNames = [...]string{
	OpEnd:        "END",
	OpLoadRow:    "LOADROW",
	OpSpillRow:   "SPILLROW",
	OpLoadSpill:  "LOADSPILL",
	OpStoreSpill: "STORESPILL",
	OpAnd:        "AND",
	OpOr:         "OR",
	OpAndNot:     "ANDNOT",
	OpNot:        "NOT",
	OpEmit:       "EMIT",
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return fmt.Sprintf("OP(%d)", uint8(o))
}

// Mode selects how a logic op reads operand B.
type Mode uint8

const (
	ModeRegister Mode = iota
	ModeSpill
)

// ErrInvalidProgram is returned for code that fails validation.
var ErrInvalidProgram = errors.New("vm: invalid program")

// Instr is a decoded instruction.
type Instr struct {
	Op   Op
	Mode Mode
	A    uint16
	B    uint32
}

// Encode writes the instruction into dst, which must hold InstrSize bytes.
func (in Instr) Encode(dst []byte) {
	_ = dst[InstrSize-1]
	dst[0] = byte(in.Op)
	dst[1] = byte(in.Mode)
	binary.LittleEndian.PutUint16(dst[2:], in.A)
	binary.LittleEndian.PutUint32(dst[4:], in.B)
}

// DecodeInstr reads one instruction from src.
func DecodeInstr(src []byte) Instr {
	_ = src[InstrSize-1]
	return Instr{
		Op:   Op(src[0]),
		Mode: Mode(src[1]),
		A:    binary.LittleEndian.Uint16(src[2:]),
		B:    binary.LittleEndian.Uint32(src[4:]),
	}
}

// Decode splits code into instructions. It checks framing and opcodes only;
// operand ranges are checked by Validate.
func Decode(code []byte) ([]Instr, error) {
	if len(code)%InstrSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidProgram, len(code), InstrSize)
	}
	prog := make([]Instr, len(code)/InstrSize)
	for i := range prog {
		in := DecodeInstr(code[i*InstrSize:])
		if in.Op >= opCount {
			return nil, fmt.Errorf("%w: bad opcode %d at %d", ErrInvalidProgram, in.Op, i)
		}
		if in.Mode > ModeSpill {
			return nil, fmt.Errorf("%w: bad mode %d at %d", ErrInvalidProgram, in.Mode, i)
		}
		prog[i] = in
	}
	return prog, nil
}

// Validate checks that every operand is in range for rows row-table
// entries and spills spill slots, and that the program ends with END.
func Validate(prog []Instr, rows, spills int) error {
	if len(prog) == 0 || prog[len(prog)-1].Op != OpEnd {
		return fmt.Errorf("%w: missing END", ErrInvalidProgram)
	}
	bad := func(i int, what string) error {
		return fmt.Errorf("%w: %s out of range at %d (%s)", ErrInvalidProgram, what, i, prog[i])
	}
	reg := func(v uint32) bool { return v <= ScratchRegister }

	for i, in := range prog {
		switch in.Op {
		case OpLoadRow:
			if !reg(uint32(in.A)) {
				return bad(i, "register")
			}
			if int(in.B) >= rows {
				return bad(i, "row")
			}
		case OpSpillRow:
			if int(in.A) >= spills {
				return bad(i, "spill slot")
			}
			if int(in.B) >= rows {
				return bad(i, "row")
			}
		case OpLoadSpill:
			if !reg(uint32(in.A)) {
				return bad(i, "register")
			}
			if int(in.B) >= spills {
				return bad(i, "spill slot")
			}
		case OpStoreSpill:
			if int(in.A) >= spills {
				return bad(i, "spill slot")
			}
			if !reg(in.B) {
				return bad(i, "register")
			}
		case OpAnd, OpOr, OpAndNot:
			if !reg(uint32(in.A)) {
				return bad(i, "register")
			}
			if in.Mode == ModeRegister && !reg(in.B) {
				return bad(i, "register")
			}
			if in.Mode == ModeSpill && int(in.B) >= spills {
				return bad(i, "spill slot")
			}
		case OpNot, OpEmit:
			if !reg(uint32(in.A)) {
				return bad(i, "register")
			}
		}
	}
	return nil
}

// RegisterName returns the display name of register index r.
func RegisterName(r uint32) string {
	if r == ScratchRegister {
		return "RX"
	}
	return fmt.Sprintf("R%d", r+RegisterBase)
}

func (in Instr) String() string {
	src := func() string {
		if in.Mode == ModeSpill {
			return fmt.Sprintf("[s%d]", in.B)
		}
		return RegisterName(in.B)
	}
	a := RegisterName(uint32(in.A))

	switch in.Op {
	case OpEnd:
		return "END"
	case OpLoadRow:
		return fmt.Sprintf("LOADROW %s, row%d", a, in.B)
	case OpSpillRow:
		return fmt.Sprintf("SPILLROW [s%d], row%d", in.A, in.B)
	case OpLoadSpill:
		return fmt.Sprintf("LOADSPILL %s, [s%d]", a, in.B)
	case OpStoreSpill:
		return fmt.Sprintf("STORESPILL [s%d], %s", in.A, RegisterName(in.B))
	case OpAnd, OpOr, OpAndNot:
		return fmt.Sprintf("%s %s, %s", in.Op, a, src())
	case OpNot, OpEmit:
		return fmt.Sprintf("%s %s", in.Op, a)
	default:
		return in.Op.String()
	}
}
