// Package compiler translates a term-match tree into a vm program.
//
// Compilation runs in three passes over an expression tree built in the
// expression arena:
//
//  1. Lowering resolves terms to rows of the index row table, folds
//     constants (an absent term is constant false), rewrites
//     AND(x, NOT y) into ANDNOT(x, y) and conjoins the root with the
//     active-document row.
//  2. Numbering assigns post-order sequence numbers. A value's next use is
//     the sequence number of its consumer.
//  3. Emission walks the tree in the same order, asking the register
//     allocator for a location for every value and emitting loads, spills
//     and logic ops into the function buffer.
//
// A Compiler is reused across queries and is not safe for concurrent use.
// The expression arena, register allocator and function buffer are reset at
// the start of every Compile and again when it fails.
package compiler
