package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitjit/streamconfig"
)

// DocID is the caller's document identifier.
type DocID uint64

// Term is a (stream, text) pair.
type Term struct {
	Stream streamconfig.StreamID
	Text   string
}

func (t Term) String() string {
	return fmt.Sprintf("%d:%q", t.Stream, t.Text)
}

// FactTerm returns the term under which a fact is indexed.
func FactTerm(name string) Term {
	return Term{Stream: streamconfig.FactStream, Text: name}
}

// DefaultMaxGramSize is the longest phrase indexed by default.
const DefaultMaxGramSize = 3

var (
	// ErrDuplicateDocument is returned when a document id is added twice.
	ErrDuplicateDocument = errors.New("index: duplicate document")
	// ErrUnknownDocument is returned for operations on an absent document.
	ErrUnknownDocument = errors.New("index: unknown document")
	// ErrTooManyDocuments is returned when the row space is exhausted.
	ErrTooManyDocuments = errors.New("index: too many documents")
)

// Index is the read side consumed by the query engines.
type Index interface {
	// Row returns the row of a term. Absent terms report false.
	Row(term Term) ([]uint64, bool)
	// ActiveRow returns the row of documents that are not deleted.
	ActiveRow() []uint64
	// RowCount returns the number of row positions.
	RowCount() uint32
	// DocID maps a row position to its document.
	DocID(row uint32) DocID
	// Postings returns the term's row positions as a bitmap, or nil.
	Postings(term Term) *roaring.Bitmap
	// Active returns the active row positions as a bitmap.
	Active() *roaring.Bitmap
	// MaxGramSize returns the longest indexed phrase length.
	MaxGramSize() int
}

// Words returns the number of uint64 words in a row of idx.
func Words(idx Index) int {
	return WordsFor(idx.RowCount())
}

// WordsFor returns the number of uint64 words needed for n row positions.
func WordsFor(n uint32) int {
	return int((uint64(n) + 63) / 64)
}

// MemoryIndex is an immutable in-memory Index.
type MemoryIndex struct {
	rows     map[Term][]uint64
	postings map[Term]*roaring.Bitmap
	active   *roaring.Bitmap
	activeW  []uint64
	docs     []DocID
	maxGram  int
}

var _ Index = (*MemoryIndex)(nil)

// Row implements Index.
func (m *MemoryIndex) Row(term Term) ([]uint64, bool) {
	row, ok := m.rows[term]
	return row, ok
}

// ActiveRow implements Index.
func (m *MemoryIndex) ActiveRow() []uint64 {
	return m.activeW
}

// RowCount implements Index.
func (m *MemoryIndex) RowCount() uint32 {
	return uint32(len(m.docs)) //nolint:gosec // bounded by the builder
}

// DocID implements Index.
func (m *MemoryIndex) DocID(row uint32) DocID {
	return m.docs[row]
}

// Postings implements Index.
func (m *MemoryIndex) Postings(term Term) *roaring.Bitmap {
	return m.postings[term]
}

// Active implements Index.
func (m *MemoryIndex) Active() *roaring.Bitmap {
	return m.active
}

// MaxGramSize implements Index.
func (m *MemoryIndex) MaxGramSize() int {
	return m.maxGram
}

// TermCount returns the number of distinct terms.
func (m *MemoryIndex) TermCount() int {
	return len(m.rows)
}

// DocumentCount returns the number of active documents.
func (m *MemoryIndex) DocumentCount() uint64 {
	return m.active.GetCardinality()
}

// Terms calls fn for every term until fn returns false. Order is unspecified.
func (m *MemoryIndex) Terms(fn func(Term) bool) {
	for t := range m.rows {
		if !fn(t) {
			return
		}
	}
}

// PhraseTerms returns the terms whose conjunction stands for a phrase. A
// phrase no longer than maxGram is one term; a longer one is covered by
// its overlapping maxGram-word windows.
func PhraseTerms(stream streamconfig.StreamID, grams []string, maxGram int) []Term {
	if maxGram < 1 {
		maxGram = 1
	}
	if len(grams) <= maxGram {
		return []Term{{Stream: stream, Text: strings.Join(grams, " ")}}
	}
	terms := make([]Term, 0, len(grams)-maxGram+1)
	for i := 0; i+maxGram <= len(grams); i++ {
		terms = append(terms, Term{Stream: stream, Text: strings.Join(grams[i:i+maxGram], " ")})
	}
	return terms
}
