// Package testutil provides testing utilities for bitjit.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and generators for documents,
// indexes and term-match trees.
//
// # Random Corpora
//
//	rng := testutil.NewRNG(seed)
//	vocab := testutil.Vocabulary(50)
//	idx := rng.Index(500, vocab, 12)   // Zipfian term frequencies
//
// # Random Queries
//
//	tree := rng.Tree(vocab, 20)        // 20 leaves, arbitrary shape
package testutil
