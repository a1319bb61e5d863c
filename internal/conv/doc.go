// Package conv provides checked integer conversions.
//
// The compiler encodes row-table indices, spill slots and register numbers
// into fixed-width instruction fields. These helpers reject values that would
// not survive the narrowing instead of silently truncating them.
package conv
