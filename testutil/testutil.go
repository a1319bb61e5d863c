package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/streamconfig"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
// s=1.0 gives standard Zipf, s=1.5 gives heavy-tail (80/20 rule).
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// Vocabulary returns n distinct words: t0, t1, ...
func Vocabulary(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("t%d", i)
	}
	return words
}

// Text returns a document body of length words drawn from vocab with
// Zipfian frequencies, so early words are common and late words rare.
func (r *RNG) Text(vocab []string, length int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	words := make([]string, length)
	for i := range words {
		words[i] = vocab[r.zipfLocked(len(vocab), 1.0)]
	}
	return strings.Join(words, " ")
}

// Index builds an index of numDocs documents in stream 0. Roughly one
// document in ten is deleted and one in four carries the fact "even" or
// "odd" by id parity.
func (r *RNG) Index(numDocs int, vocab []string, length int) *index.MemoryIndex {
	b := index.NewBuilder(index.WithMaxGramSize(2))
	for i := range numDocs {
		id := index.DocID(1000 + i)
		if err := b.AddDocument(id, map[streamconfig.StreamID]string{0: r.Text(vocab, length)}); err != nil {
			panic(err)
		}
		if r.Intn(4) == 0 {
			fact := "odd"
			if id%2 == 0 {
				fact = "even"
			}
			_ = b.AddFact(id, fact)
		}
		if r.Intn(10) == 0 {
			_ = b.Delete(id)
		}
	}
	return b.Build()
}

// Tree returns a random term-match tree with the given number of leaves.
// Leaves are mostly unigrams over vocab, with occasional phrases, facts
// and absent terms; inner nodes are And, Or and Not in random shapes.
func (r *RNG) Tree(vocab []string, leaves int) *matchtree.Node {
	if leaves <= 1 {
		return r.maybeNot(r.leaf(vocab))
	}
	left := 1 + r.Intn(leaves-1)
	l := r.Tree(vocab, left)
	rt := r.Tree(vocab, leaves-left)

	var n *matchtree.Node
	if r.Intn(2) == 0 {
		n = matchtree.And(l, rt)
	} else {
		n = matchtree.Or(l, rt)
	}
	return r.maybeNot(n)
}

func (r *RNG) maybeNot(n *matchtree.Node) *matchtree.Node {
	if r.Intn(5) == 0 {
		return matchtree.Not(n)
	}
	return n
}

func (r *RNG) leaf(vocab []string) *matchtree.Node {
	switch k := r.Intn(20); {
	case k == 0:
		return matchtree.Unigram("absent", 0)
	case k == 1:
		if r.Intn(2) == 0 {
			return matchtree.Fact("even")
		}
		return matchtree.Fact("odd")
	case k < 4:
		n := 2 + r.Intn(2)
		grams := make([]string, n)
		for i := range grams {
			grams[i] = vocab[r.Zipf(len(vocab), 1.0)]
		}
		return matchtree.Phrase(0, grams...)
	default:
		return matchtree.Unigram(vocab[r.Zipf(len(vocab), 1.0)], 0)
	}
}
