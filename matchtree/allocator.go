package matchtree

import (
	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/streamconfig"
)

// Allocator builds nodes inside an arena. Text is copied into the arena, so
// callers may reuse their buffers.
type Allocator struct {
	arena *arena.Arena
	nodes *arena.Slab[Node]
	grams *arena.Slab[string]
}

// NewAllocator returns an allocator that draws from a.
func NewAllocator(a *arena.Arena) *Allocator {
	return &Allocator{
		arena: a,
		nodes: arena.NewSlab[Node](a),
		grams: arena.NewSlab[string](a),
	}
}

// Arena returns the backing arena.
func (al *Allocator) Arena() *arena.Arena {
	return al.arena
}

// Reset invalidates every node built since the previous Reset.
func (al *Allocator) Reset() {
	al.arena.Reset()
}

// Unigram allocates a unigram node.
func (al *Allocator) Unigram(text string, stream streamconfig.StreamID) (*Node, error) {
	s, err := al.arena.AllocString(text)
	if err != nil {
		return nil, err
	}
	n, err := al.nodes.New()
	if err != nil {
		return nil, err
	}
	n.Kind = KindUnigram
	n.Text = s
	n.Stream = stream
	return n, nil
}

// Phrase allocates a phrase node.
func (al *Allocator) Phrase(stream streamconfig.StreamID, grams []string) (*Node, error) {
	owned, err := al.grams.Make(len(grams))
	if err != nil {
		return nil, err
	}
	for i, g := range grams {
		if owned[i], err = al.arena.AllocString(g); err != nil {
			return nil, err
		}
	}
	n, err := al.nodes.New()
	if err != nil {
		return nil, err
	}
	n.Kind = KindPhrase
	n.Stream = stream
	n.Grams = owned
	return n, nil
}

// Fact allocates a fact node.
func (al *Allocator) Fact(name string) (*Node, error) {
	n, err := al.Unigram(name, streamconfig.FactStream)
	if err != nil {
		return nil, err
	}
	n.Kind = KindFact
	return n, nil
}

// And allocates a conjunction.
func (al *Allocator) And(left, right *Node) (*Node, error) {
	return al.binary(KindAnd, left, right)
}

// Or allocates a disjunction.
func (al *Allocator) Or(left, right *Node) (*Node, error) {
	return al.binary(KindOr, left, right)
}

// Not allocates a negation.
func (al *Allocator) Not(child *Node) (*Node, error) {
	n, err := al.nodes.New()
	if err != nil {
		return nil, err
	}
	n.Kind = KindNot
	n.Left = child
	return n, nil
}

func (al *Allocator) binary(kind Kind, left, right *Node) (*Node, error) {
	n, err := al.nodes.New()
	if err != nil {
		return nil, err
	}
	n.Kind = kind
	n.Left = left
	n.Right = right
	return n, nil
}
