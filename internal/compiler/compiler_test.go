package compiler

import (
	"fmt"
	"testing"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/internal/codebuf"
	"github.com/hupe1980/bitjit/internal/vm"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/streamconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, docs map[index.DocID]string, deleted ...index.DocID) *index.MemoryIndex {
	t.Helper()
	b := index.NewBuilder(index.WithMaxGramSize(2))
	for id := index.DocID(1); int(id) <= len(docs); id++ {
		require.NoError(t, b.AddDocument(id, map[streamconfig.StreamID]string{0: docs[id]}))
	}
	for _, id := range deleted {
		require.NoError(t, b.Delete(id))
	}
	return b.Build()
}

// abIndex has a in {1,3} and b in {2,3}.
func abIndex(t *testing.T) *index.MemoryIndex {
	return buildIndex(t, map[index.DocID]string{1: "a", 2: "b", 3: "a b"})
}

func newCompiler(t *testing.T, idx index.Index, exprBytes, codeBytes int) *Compiler {
	t.Helper()
	a, err := arena.New(exprBytes)
	require.NoError(t, err)
	code, err := codebuf.NewFunctionBuffer(codeBytes)
	require.NoError(t, err)
	return New(idx, a, code)
}

func run(t *testing.T, idx index.Index, prog *Program) []index.DocID {
	t.Helper()
	var m vm.Machine
	out := []index.DocID{}
	require.NoError(t, m.Exec(prog.Code, prog.Rows, prog.SpillSlots, idx.RowCount(), func(pos uint32) error {
		out = append(out, idx.DocID(pos))
		return nil
	}))
	return out
}

func u(text string) *matchtree.Node { return matchtree.Unigram(text, 0) }

func TestCompile_Basic(t *testing.T) {
	idx := abIndex(t)
	c := newCompiler(t, idx, 4096, 1024)

	tests := []struct {
		name string
		tree *matchtree.Node
		want []index.DocID
		expr string
	}{
		{"and", matchtree.And(u("a"), u("b")), []index.DocID{3}, "And(And(row0, row1), row2)"},
		{"or", matchtree.Or(u("a"), u("b")), []index.DocID{1, 2, 3}, "And(Or(row0, row1), row2)"},
		{"and not", matchtree.And(u("a"), matchtree.Not(u("b"))), []index.DocID{1}, "And(AndNot(row0, row1), row2)"},
		{"not and", matchtree.And(matchtree.Not(u("b")), u("a")), []index.DocID{1}, "And(AndNot(row1, row0), row2)"},
		{"not root", matchtree.Not(u("a")), []index.DocID{2}, "AndNot(row1, row0)"},
		{"double not", matchtree.Not(matchtree.Not(u("a"))), []index.DocID{1, 3}, "And(row0, row1)"},
		{"absent term", u("zzz"), []index.DocID{}, "false"},
		{"absent in or", matchtree.Or(u("zzz"), u("b")), []index.DocID{2, 3}, "And(row0, row1)"},
		{"not absent", matchtree.Not(u("zzz")), []index.DocID{1, 2, 3}, "row0"},
		{"empty", nil, []index.DocID{}, "false"},
		{"phrase", matchtree.Phrase(0, "a", "b"), []index.DocID{3}, "And(row0, row1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := c.Compile(tt.tree)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, prog.Expr.String())
			assert.Equal(t, tt.want, run(t, idx, prog))
			assert.Equal(t, 0, c.LiveRegisters())
		})
	}
}

func TestCompile_FalseRootIsEndOnly(t *testing.T) {
	idx := abIndex(t)
	c := newCompiler(t, idx, 4096, 1024)

	prog, err := c.Compile(matchtree.And(u("a"), u("zzz")))
	require.NoError(t, err)
	assert.Len(t, prog.Code, vm.InstrSize)
	assert.Equal(t, vm.OpEnd, vm.DecodeInstr(prog.Code).Op)
}

func TestCompile_SharedRows(t *testing.T) {
	idx := abIndex(t)
	c := newCompiler(t, idx, 4096, 1024)

	prog, err := c.Compile(matchtree.Or(u("a"), matchtree.And(u("a"), u("b"))))
	require.NoError(t, err)
	assert.Equal(t, []string{`0:"a"`, `0:"b"`, ActiveRowName}, prog.RowNames)
	assert.Equal(t, 3, c.Stats().Rows)
}

func TestCompile_DeletedDocumentsNeverMatch(t *testing.T) {
	idx := buildIndex(t, map[index.DocID]string{1: "a", 2: "a", 3: "b"}, 2)
	c := newCompiler(t, idx, 4096, 1024)

	prog, err := c.Compile(u("a"))
	require.NoError(t, err)
	assert.Equal(t, []index.DocID{1}, run(t, idx, prog))

	prog, err = c.Compile(matchtree.Not(u("a")))
	require.NoError(t, err)
	assert.Equal(t, []index.DocID{3}, run(t, idx, prog))
}

func TestCompile_LongPhrase(t *testing.T) {
	idx := buildIndex(t, map[index.DocID]string{
		1: "new york city hall",
		2: "new york city",
		3: "york city hall",
	})
	c := newCompiler(t, idx, 4096, 1024)

	prog, err := c.Compile(matchtree.Phrase(0, "new", "york", "city"))
	require.NoError(t, err)
	assert.Equal(t, []index.DocID{1, 2}, run(t, idx, prog))
	assert.Equal(t, "And(And(row0, row1), row2)", prog.Expr.String())
}

func chainIndex(t *testing.T, n int) (*index.MemoryIndex, []*matchtree.Node) {
	t.Helper()
	all, missFirst, missLast := "", "", ""
	leaves := make([]*matchtree.Node, n)
	for i := range n {
		term := fmt.Sprintf("t%d", i)
		leaves[i] = u(term)
		all += " " + term
		if i != 0 {
			missFirst += " " + term
		}
		if i != n-1 {
			missLast += " " + term
		}
	}
	return buildIndex(t, map[index.DocID]string{1: all, 2: missFirst, 3: missLast}), leaves
}

func TestCompile_RegisterPressure(t *testing.T) {
	t.Run("eight leaves fit", func(t *testing.T) {
		idx, leaves := chainIndex(t, vm.NumRegisters)
		c := newCompiler(t, idx, 8192, 4096)

		prog, err := c.Compile(matchtree.AndAll(leaves...))
		require.NoError(t, err)
		assert.Equal(t, 0, c.Stats().Spills)
		assert.Equal(t, 0, prog.SpillSlots)
		assert.Equal(t, []index.DocID{1}, run(t, idx, prog))
	})

	t.Run("nine leaves spill", func(t *testing.T) {
		idx, leaves := chainIndex(t, vm.NumRegisters+1)
		c := newCompiler(t, idx, 8192, 4096)

		prog, err := c.Compile(matchtree.AndAll(leaves...))
		require.NoError(t, err)
		assert.Equal(t, 1, c.Stats().Spills)
		assert.Equal(t, 1, prog.SpillSlots)
		assert.Equal(t, []index.DocID{1}, run(t, idx, prog))
		assert.Equal(t, 0, c.LiveRegisters())

		prog, err = c.Compile(matchtree.OrAll(leaves...))
		require.NoError(t, err)
		assert.Equal(t, []index.DocID{1, 2, 3}, run(t, idx, prog))
	})

	t.Run("deep mixed tree", func(t *testing.T) {
		idx, leaves := chainIndex(t, 20)
		c := newCompiler(t, idx, 1<<16, 1<<14)

		// Right-deep chain of (ti AND NOT tj) ORs keeps every left operand
		// live until the end.
		nodes := make([]*matchtree.Node, 0, 10)
		for i := 0; i < 20; i += 2 {
			nodes = append(nodes, matchtree.And(leaves[i], matchtree.Not(leaves[i+1])))
		}
		prog, err := c.Compile(matchtree.OrAll(nodes...))
		require.NoError(t, err)
		assert.Positive(t, c.Stats().Spills)
		// doc 2 lacks t0 so (t0 AND NOT t1) is false; doc 3 lacks t19 so
		// (t18 AND NOT t19) holds.
		assert.Equal(t, []index.DocID{3}, run(t, idx, prog))
	})
}

func TestCompile_CodeBudget(t *testing.T) {
	idx := abIndex(t)
	c := newCompiler(t, idx, 4096, 2*vm.InstrSize)

	_, err := c.Compile(matchtree.And(u("a"), u("b")))
	require.ErrorIs(t, err, ErrCodeBufferFull)
	assert.Equal(t, 0, c.LiveRegisters())
	assert.Equal(t, Stats{}, c.Stats())

	prog, err := c.Compile(u("zzz"))
	require.NoError(t, err, "the same compiler recovers")
	assert.Empty(t, run(t, idx, prog))
}

func TestCompile_ExpressionBudget(t *testing.T) {
	idx := abIndex(t)
	c := newCompiler(t, idx, 64, 1024)

	_, err := c.Compile(matchtree.OrAll(u("a"), u("b"), u("a"), u("b")))
	require.ErrorIs(t, err, ErrExpressionBudget)
	assert.ErrorIs(t, err, arena.ErrArenaFull)
	assert.Equal(t, 0, c.LiveRegisters())
}

func TestSpillSlotRange(t *testing.T) {
	s, err := spillSlot(65535)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), s)

	_, err = spillSlot(65536)
	assert.ErrorIs(t, err, ErrTooManySpills)
}
