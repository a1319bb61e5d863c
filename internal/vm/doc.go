// Package vm defines the instruction set the query compiler targets and the
// loop that executes it.
//
// A program is straight-line code over row words. It runs once per block of
// 64 row positions: LOADROW brings one word of a term row into a register,
// the logic ops combine registers (or a register and a spill slot), and EMIT
// reports every set bit of its register as a matching row position.
//
// # Encoding
//
// Every instruction is 8 bytes, little endian:
//
//	byte 0    Op
//	byte 1    Mode (operand B is a register or a spill slot)
//	byte 2-3  A, the destination register or spill slot
//	byte 4-7  B, the source register, spill slot or row-table index
//
// # Registers
//
// There are NumRegisters allocatable registers plus one scratch register,
// ScratchRegister, reserved for reloading a spilled operand when every
// allocatable register is busy.
package vm
