package index

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitjit/streamconfig"
)

// Option configures a Builder.
type Option func(*Builder)

// WithMaxGramSize sets the longest phrase that is indexed as a single term.
// Values below 1 are ignored.
func WithMaxGramSize(n int) Option {
	return func(b *Builder) {
		if n >= 1 {
			b.maxGram = n
		}
	}
}

// WithCaseFold controls whether tokens are lowercased.
func WithCaseFold(fold bool) Option {
	return func(b *Builder) {
		b.caseFold = fold
	}
}

// Builder accumulates documents into postings. It is not safe for
// concurrent use.
type Builder struct {
	maxGram  int
	caseFold bool

	docs     []DocID
	rowOf    map[DocID]uint32
	postings map[Term]*roaring.Bitmap
	deleted  *roaring.Bitmap
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		maxGram:  DefaultMaxGramSize,
		caseFold: true,
		rowOf:    make(map[DocID]uint32),
		postings: make(map[Term]*roaring.Bitmap),
		deleted:  roaring.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tokenize splits text into words at every rune that is neither a letter
// nor a digit.
func Tokenize(text string, caseFold bool) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if caseFold {
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
	}
	return words
}

// AddDocument indexes the fields of a new document. Each stream's text is
// tokenized and every run of 1..MaxGramSize words becomes a term.
func (b *Builder) AddDocument(id DocID, fields map[streamconfig.StreamID]string) error {
	if _, ok := b.rowOf[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateDocument, id)
	}
	if len(b.docs) >= math.MaxUint32 {
		return ErrTooManyDocuments
	}
	row := uint32(len(b.docs)) //nolint:gosec // checked above
	b.docs = append(b.docs, id)
	b.rowOf[id] = row

	for stream, text := range fields {
		words := Tokenize(text, b.caseFold)
		for n := 1; n <= b.maxGram; n++ {
			for i := 0; i+n <= len(words); i++ {
				b.add(Term{Stream: stream, Text: strings.Join(words[i:i+n], " ")}, row)
			}
		}
	}
	return nil
}

// AddFact marks a document as having a fact.
func (b *Builder) AddFact(id DocID, fact string) error {
	row, ok := b.rowOf[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDocument, id)
	}
	b.add(FactTerm(fact), row)
	return nil
}

// Delete soft-deletes a document.
func (b *Builder) Delete(id DocID) error {
	row, ok := b.rowOf[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDocument, id)
	}
	b.deleted.Add(row)
	return nil
}

// Len returns the number of documents added, deleted ones included.
func (b *Builder) Len() int {
	return len(b.docs)
}

func (b *Builder) add(t Term, row uint32) {
	bm, ok := b.postings[t]
	if !ok {
		bm = roaring.New()
		b.postings[t] = bm
	}
	bm.Add(row)
}

// Build materializes the dense rows. The builder may keep accumulating
// afterwards; the returned index does not observe later changes.
func (b *Builder) Build() *MemoryIndex {
	count := uint32(len(b.docs)) //nolint:gosec // bounded by AddDocument
	words := WordsFor(count)

	m := &MemoryIndex{
		rows:     make(map[Term][]uint64, len(b.postings)),
		postings: make(map[Term]*roaring.Bitmap, len(b.postings)),
		docs:     append([]DocID(nil), b.docs...),
		maxGram:  b.maxGram,
	}

	for t, bm := range b.postings {
		clone := bm.Clone()
		clone.RunOptimize()
		m.postings[t] = clone
		m.rows[t] = dense(clone, words)
	}

	m.active = roaring.Flip(b.deleted, 0, uint64(count))
	m.activeW = dense(m.active, words)
	return m
}

func dense(bm *roaring.Bitmap, words int) []uint64 {
	row := make([]uint64, words)
	it := bm.Iterator()
	for it.HasNext() {
		pos := it.Next()
		row[pos/64] |= 1 << (pos % 64)
	}
	return row
}
