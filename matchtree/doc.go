// Package matchtree defines the term-match tree: the boolean expression over
// index terms that the parser produces and the engines evaluate.
//
// # Node Kinds
//
//	KindUnigram  a single term in a stream
//	KindPhrase   an ordered run of terms in a stream
//	KindFact     a boolean document fact
//	KindAnd      Left AND Right
//	KindOr       Left OR Right
//	KindNot      NOT Left
//
// A nil *Node is the empty tree and matches nothing.
//
// # Allocation
//
// Trees built during parsing live in an Allocator backed by a fixed-budget
// arena. The engine owns that arena; its Reset invalidates every tree built
// from it. Trees built with the package-level constructors live on the Go
// heap and are never invalidated.
//
// Nodes are immutable once built. Engines never modify a tree they run.
package matchtree
