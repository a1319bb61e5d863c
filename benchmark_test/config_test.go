package benchmark_test

import (
	"testing"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/testutil"
)

// Standard index sizes.
const (
	sizeSmall  = 10_000  // Quick iteration
	sizeMedium = 100_000 // Default CI
)

// Budgets large enough for every generated tree.
const (
	treeBytes = 1 << 20
	codeBytes = 1 << 20
)

const (
	vocabSize  = 500
	docLength  = 40
	indexSeed  = 42
	querySeed  = 7
	numQueries = 64
)

type fixture struct {
	idx     *index.MemoryIndex
	queries []*matchtree.Node
}

func newFixture(b *testing.B, docs, leaves int) *fixture {
	b.Helper()
	vocab := testutil.Vocabulary(vocabSize)
	idx := testutil.NewRNG(indexSeed).Index(docs, vocab, docLength)

	rng := testutil.NewRNG(querySeed)
	queries := make([]*matchtree.Node, numQueries)
	for i := range queries {
		queries[i] = rng.Tree(vocab, leaves)
	}
	return &fixture{idx: idx, queries: queries}
}
