// Package arena provides the fixed-budget bump allocators used by the query
// engine.
//
// Two arenas exist per engine: the match-tree arena, which owns the nodes a
// parse produces, and the expression arena, which owns the intermediate
// representation built while compiling one query. Both are sized once at
// engine construction and never grow past their byte budget.
//
// # Memory Model
//
// An Arena charges every allocation against its budget. Byte and string
// storage comes from retained slabs; typed values come from Slab[T], which
// keeps element chunks on the Go heap so values may hold pointers safely.
// Reset rewinds every slab registered with the arena and bumps the
// generation. Chunks are kept for reuse, so steady-state queries allocate
// nothing.
//
// # Safety
//
// Values handed out before Reset must not be used afterwards. The arena is
// not safe for concurrent use; the engine owning it is single-threaded.
package arena
