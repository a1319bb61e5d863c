package matchtree

import (
	"testing"

	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/streamconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_String(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"empty", nil, "<empty>"},
		{"unigram", Unigram("a", 0), `Unigram("a", 0)`},
		{"phrase", Phrase(1, "new", "york"), `Phrase(1, "new", "york")`},
		{"fact", Fact("english"), `Fact("english")`},
		{"and not", And(Unigram("a", 0), Not(Unigram("b", 0))), `And(Unigram("a", 0), Not(Unigram("b", 0)))`},
		{"or", Or(Unigram("a", 0), Unigram("b", 2)), `Or(Unigram("a", 0), Unigram("b", 2))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.String())
		})
	}
}

func TestNode_Shape(t *testing.T) {
	leaves := []*Node{Unigram("a", 0), Unigram("b", 0), Unigram("c", 0)}
	tree := AndAll(leaves...)

	assert.Equal(t, `And(Unigram("a", 0), And(Unigram("b", 0), Unigram("c", 0)))`, tree.String())
	assert.Equal(t, 3, tree.LeafCount())
	assert.Equal(t, 3, tree.Depth())
	assert.Nil(t, AndAll())
	assert.Same(t, leaves[0], OrAll(leaves[0]))

	var order []string
	tree.Walk(func(n *Node) bool {
		order = append(order, n.Kind.String())
		return true
	})
	assert.Equal(t, []string{"Unigram", "Unigram", "Unigram", "And", "And"}, order)

	visited := 0
	tree.Walk(func(n *Node) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestAllocator(t *testing.T) {
	a, err := arena.New(4096)
	require.NoError(t, err)
	al := NewAllocator(a)

	buf := []byte("alpha")
	u, err := al.Unigram(string(buf), 0)
	require.NoError(t, err)
	buf[0] = 'X'

	p, err := al.Phrase(1, []string{"new", "york"})
	require.NoError(t, err)
	f, err := al.Fact("english")
	require.NoError(t, err)
	assert.Equal(t, streamconfig.FactStream, f.Stream)

	n, err := al.Not(p)
	require.NoError(t, err)
	and, err := al.And(u, n)
	require.NoError(t, err)
	or, err := al.Or(and, f)
	require.NoError(t, err)

	assert.Equal(t, `Or(And(Unigram("alpha", 0), Not(Phrase(1, "new", "york"))), Fact("english"))`, or.String())
	assert.Positive(t, a.Used())

	al.Reset()
	assert.Equal(t, 0, a.Used())
	assert.Same(t, a, al.Arena())
}

func TestAllocator_Budget(t *testing.T) {
	a, err := arena.New(64)
	require.NoError(t, err)
	al := NewAllocator(a)

	var last error
	for range 100 {
		if _, last = al.Unigram("term", 0); last != nil {
			break
		}
	}
	assert.ErrorIs(t, last, arena.ErrArenaFull)
}
