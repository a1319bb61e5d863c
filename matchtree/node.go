package matchtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/bitjit/streamconfig"
)

// Kind is the node type.
type Kind uint8

const (
	KindUnigram Kind = iota
	KindPhrase
	KindFact
	KindAnd
	KindOr
	KindNot
)

func (k Kind) String() string {
	switch k {
	case KindUnigram:
		return "Unigram"
	case KindPhrase:
		return "Phrase"
	case KindFact:
		return "Fact"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindNot:
		return "Not"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Node is one node of a term-match tree.
type Node struct {
	Kind Kind

	// Left and Right are the operands of And and Or. Not uses Left only.
	Left  *Node
	Right *Node

	// Stream applies to Unigram and Phrase.
	Stream streamconfig.StreamID
	// Text is the unigram text or the fact name.
	Text string
	// Grams are the phrase terms in order.
	Grams []string
}

// IsLeaf reports whether n references index rows directly.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindUnigram || n.Kind == KindPhrase || n.Kind == KindFact
}

// LeafCount returns the number of leaves in the tree rooted at n.
func (n *Node) LeafCount() int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return n.Left.LeafCount() + n.Right.LeafCount()
}

// Depth returns the height of the tree rooted at n.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// Walk visits the tree in post-order. Returning false stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !n.Left.Walk(fn) || !n.Right.Walk(fn) {
		return false
	}
	return fn(n)
}

// String renders the tree in constructor notation, e.g.
// And(Unigram("a", 0), Not(Unigram("b", 0))).
func (n *Node) String() string {
	if n == nil {
		return "<empty>"
	}
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	switch n.Kind {
	case KindUnigram:
		fmt.Fprintf(sb, "Unigram(%s, %d)", strconv.Quote(n.Text), n.Stream)
	case KindPhrase:
		fmt.Fprintf(sb, "Phrase(%d", n.Stream)
		for _, g := range n.Grams {
			sb.WriteString(", ")
			sb.WriteString(strconv.Quote(g))
		}
		sb.WriteByte(')')
	case KindFact:
		fmt.Fprintf(sb, "Fact(%s)", strconv.Quote(n.Text))
	case KindNot:
		sb.WriteString("Not(")
		n.Left.format(sb)
		sb.WriteByte(')')
	case KindAnd, KindOr:
		sb.WriteString(n.Kind.String())
		sb.WriteByte('(')
		n.Left.format(sb)
		sb.WriteString(", ")
		n.Right.format(sb)
		sb.WriteByte(')')
	default:
		sb.WriteString(n.Kind.String())
	}
}

// Unigram returns a heap-allocated unigram node.
func Unigram(text string, stream streamconfig.StreamID) *Node {
	return &Node{Kind: KindUnigram, Text: text, Stream: stream}
}

// Phrase returns a heap-allocated phrase node.
func Phrase(stream streamconfig.StreamID, grams ...string) *Node {
	return &Node{Kind: KindPhrase, Stream: stream, Grams: grams}
}

// Fact returns a heap-allocated fact node.
func Fact(name string) *Node {
	return &Node{Kind: KindFact, Text: name, Stream: streamconfig.FactStream}
}

// And returns a heap-allocated conjunction.
func And(left, right *Node) *Node {
	return &Node{Kind: KindAnd, Left: left, Right: right}
}

// Or returns a heap-allocated disjunction.
func Or(left, right *Node) *Node {
	return &Node{Kind: KindOr, Left: left, Right: right}
}

// Not returns a heap-allocated negation.
func Not(child *Node) *Node {
	return &Node{Kind: KindNot, Left: child}
}

// AndAll folds nodes into a right-deep conjunction:
// And(n0, And(n1, ... nk)). It returns nil for no nodes.
func AndAll(nodes ...*Node) *Node {
	return chain(KindAnd, nodes)
}

// OrAll folds nodes into a right-deep disjunction.
func OrAll(nodes ...*Node) *Node {
	return chain(KindOr, nodes)
}

func chain(kind Kind, nodes []*Node) *Node {
	if len(nodes) == 0 {
		return nil
	}
	out := nodes[len(nodes)-1]
	for i := len(nodes) - 2; i >= 0; i-- {
		out = &Node{Kind: kind, Left: nodes[i], Right: out}
	}
	return out
}
