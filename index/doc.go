// Package index provides the bitmap index the query engines evaluate.
//
// Every document occupies one row position. For every term the index holds
// a row: a dense bit vector over row positions, one uint64 word per 64
// documents, with bit (pos % 64) of word (pos / 64) set when the document
// contains the term. Phrases of up to MaxGramSize words are indexed as terms
// whose text is the words joined by a single space.
//
// The active row marks documents that have not been deleted. Deletion is
// soft: rows keep their bits and engines mask results with the active row.
//
// A MemoryIndex is immutable once built and safe for concurrent readers.
//
//	b := index.NewBuilder(index.WithMaxGramSize(2))
//	_ = b.AddDocument(1, map[streamconfig.StreamID]string{0: "new york city"})
//	idx := b.Build()
//	row, ok := idx.Row(index.Term{Stream: 0, Text: "new york"})
package index
