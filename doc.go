// Package bitjit provides a compiled boolean query engine for bitmap search
// indexes.
//
// A query such as
//
//	title:"new york" (hotel | hostel) -fact:closed
//
// is parsed into a term-match tree, compiled into straight-line
// register-machine code and executed over the index rows 64 documents at a
// time. Values live in a bank of eight registers (R8..R15); when a query
// needs more at once, the values used furthest in the future are spilled
// to memory and reloaded on use.
//
// # Quick Start
//
//	b := index.NewBuilder()
//	_ = b.AddDocument(1, map[streamconfig.StreamID]string{0: "a b"})
//	idx := b.Build()
//
//	eng, _ := bitjit.New(idx, streamconfig.Default(), 64<<10, 64<<10)
//	defer eng.Close()
//
//	tree, _ := eng.Parse("a -c")
//	results := bitjit.NewResultsBuffer(1000)
//	_ = eng.Run(tree, nil, results)
//	eng.Reset() // release the parsed tree
//
// # Memory
//
// Every engine has two fixed budgets given at construction. The tree
// budget bounds the match-tree allocator (trees returned by Parse) and the
// expression allocator (compiler scratch). The code budget bounds the
// function buffer and the read-only execution buffer. Exceeding a budget
// is an error, never a reallocation:
//
//   - *AllocationError: a budget could not be reserved by New
//   - *ParseError: malformed text, or the tree budget ran out in Parse
//   - *CompileError: the query needs more code or expression memory
//   - *BufferOverflowError: the results buffer filled up during Run
//
// Parse never resets the match-tree allocator. Trees accumulate until
// Engine.Reset, which invalidates all of them.
//
// # Concurrency
//
// An Engine is single-threaded. Pool owns one engine per worker and runs
// batches with bounded parallelism and optional rate limiting through a
// resource.Controller.
//
// # Reference Evaluation
//
// Interpreter evaluates trees directly on roaring bitmaps. It implements
// the same QueryEngine interface and returns the same results as Engine.
//
// # Diagnostics
//
// EnableDiagnostic("compile") writes the compiled expression, its
// disassembly and register statistics to the diagnostic stream; see the
// Diag* keywords.
package bitjit
