package bitjit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/queryparser"
	"github.com/hupe1980/bitjit/streamconfig"
)

// Interpreter evaluates trees directly over the index postings without
// generating code. It defines the results the compiled Engine must produce
// and is the baseline it is measured against.
//
// Trees from Parse live on the Go heap. An Interpreter is safe for
// concurrent Run calls when its diagnostic stream and collectors are.
type Interpreter struct {
	idx  index.Index
	cfg  *streamconfig.Config
	opts options
}

// NewInterpreter returns an interpreter over idx. A nil cfg uses
// streamconfig.Default.
func NewInterpreter(idx index.Index, cfg *streamconfig.Config, optFns ...Option) *Interpreter {
	if cfg == nil {
		cfg = streamconfig.Default()
	}
	return &Interpreter{idx: idx, cfg: cfg, opts: applyOptions(optFns)}
}

// Parse implements QueryEngine.
func (in *Interpreter) Parse(query string) (*matchtree.Node, error) {
	start := time.Now()
	tree, err := queryparser.Parse(query, in.cfg)
	err = translateError(err, query, 0)

	in.opts.metricsCollector.RecordParse(time.Since(start), err)
	in.opts.logger.LogParse(context.Background(), query, tree.LeafCount(), err)
	if err != nil {
		return nil, err
	}
	if in.opts.diagnostics.IsEnabled(DiagParseTree) {
		fmt.Fprintf(in.opts.diagnostics.Writer(), "%s: %s\n", DiagParseTree, tree)
	}
	return tree, nil
}

// Run implements QueryEngine.
func (in *Interpreter) Run(tree *matchtree.Node, inst QueryInstrumentation, results *ResultsBuffer) error {
	if results == nil {
		return ErrNilResults
	}
	if inst == nil {
		inst = NoopInstrumentation{}
	}

	inst.Record(EventCompileStart, EventInfo{})
	inst.Record(EventCompileDone, EventInfo{})

	start := time.Now()
	matches := 0
	var err error
	it := in.Evaluate(tree).Iterator()
	for it.HasNext() {
		if err = results.Append(in.idx.DocID(it.Next())); err != nil {
			break
		}
		matches++
	}
	elapsed := time.Since(start)

	inst.Record(EventExecuteDone, EventInfo{Elapsed: elapsed, Rows: in.idx.RowCount(), Matches: matches, Err: err})
	in.opts.metricsCollector.RecordExecute(matches, elapsed, err)
	in.opts.logger.LogRun(context.Background(), matches, elapsed, err)
	if in.opts.diagnostics.IsEnabled(DiagRunMatches) {
		writeMatches(in.opts.diagnostics.Writer(), matches, in.idx.RowCount())
	}
	return err
}

func writeMatches(w io.Writer, matches int, rows uint32) {
	fmt.Fprintf(w, "%s: %d matches of %d rows\n", DiagRunMatches, matches, rows)
}

// Evaluate returns the row positions matching tree, restricted to active
// documents.
func (in *Interpreter) Evaluate(tree *matchtree.Node) *roaring.Bitmap {
	if tree == nil {
		return roaring.New()
	}
	return roaring.And(in.eval(tree), in.idx.Active())
}

func (in *Interpreter) postings(t index.Term) *roaring.Bitmap {
	if bm := in.idx.Postings(t); bm != nil {
		return bm
	}
	return roaring.New()
}

func (in *Interpreter) eval(n *matchtree.Node) *roaring.Bitmap {
	switch n.Kind {
	case matchtree.KindUnigram:
		return in.postings(index.Term{Stream: n.Stream, Text: n.Text})
	case matchtree.KindFact:
		return in.postings(index.FactTerm(n.Text))
	case matchtree.KindPhrase:
		var out *roaring.Bitmap
		for _, t := range index.PhraseTerms(n.Stream, n.Grams, in.idx.MaxGramSize()) {
			if out == nil {
				out = in.postings(t).Clone()
				continue
			}
			out.And(in.postings(t))
		}
		return out
	case matchtree.KindAnd:
		return roaring.And(in.eval(n.Left), in.eval(n.Right))
	case matchtree.KindOr:
		return roaring.Or(in.eval(n.Left), in.eval(n.Right))
	case matchtree.KindNot:
		return roaring.Flip(in.eval(n.Left), 0, uint64(in.idx.RowCount()))
	}
	return roaring.New()
}

// EnableDiagnostic implements QueryEngine.
func (in *Interpreter) EnableDiagnostic(prefix string) {
	in.opts.diagnostics.Enable(prefix)
}

// DisableDiagnostic implements QueryEngine.
func (in *Interpreter) DisableDiagnostic(prefix string) {
	in.opts.diagnostics.Disable(prefix)
}
