package bitjit

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/streamconfig"
	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one query in a batch.
type BatchResult struct {
	Query   string
	Results []index.DocID
	Err     error
}

// Pool runs queries concurrently on a fixed set of engines, one query per
// engine at a time. Each query parses, runs and resets on the engine it
// was given, so trees never outlive their query.
type Pool struct {
	engines chan *Engine
	all     []*Engine
	opts    options
}

// NewPool creates size engines over idx with the given budgets. A size
// below 1 uses the resource controller's worker count, or GOMAXPROCS
// without one.
func NewPool(idx index.Index, cfg *streamconfig.Config, size, treeAllocatorBytes, codeAllocatorBytes int, optFns ...Option) (*Pool, error) {
	o := applyOptions(optFns)
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
		if o.controller != nil {
			size = int(o.controller.MaxWorkers())
		}
	}

	p := &Pool{engines: make(chan *Engine, size), opts: o}
	for range size {
		eng, err := New(idx, cfg, treeAllocatorBytes, codeAllocatorBytes, optFns...)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.all = append(p.all, eng)
		p.engines <- eng
	}
	return p, nil
}

// Size returns the number of engines.
func (p *Pool) Size() int {
	return len(p.all)
}

// RunBatch runs every query with a results buffer of the given capacity.
// Query failures are reported per result. The returned error is set only
// when ctx ends before every query was admitted; ctx is checked between
// queries, never during one.
func (p *Pool) RunBatch(ctx context.Context, queries []string, capacity int) ([]BatchResult, error) {
	start := time.Now()
	out := make([]BatchResult, len(queries))
	rc := p.opts.controller

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(p.all))

	for i, q := range queries {
		out[i].Query = q
		g.Go(func() error {
			if err := rc.AcquireWorker(gctx); err != nil {
				out[i].Err = err
				return err
			}
			defer rc.ReleaseWorker()
			if err := rc.WaitQuery(gctx); err != nil {
				out[i].Err = err
				return err
			}

			eng := <-p.engines
			defer func() { p.engines <- eng }()

			out[i].Results, out[i].Err = runOne(eng, q, capacity)
			return nil
		})
	}

	err := g.Wait()

	failed := 0
	for i := range out {
		if out[i].Err != nil {
			failed++
		}
	}
	p.opts.metricsCollector.RecordBatch(len(queries), failed, time.Since(start))
	p.opts.logger.LogBatch(ctx, len(queries), failed)
	return out, err
}

// TryRun runs one query if an engine, a worker slot and a rate token are
// all free right now, and returns ErrBusy otherwise.
func (p *Pool) TryRun(query string, capacity int) ([]index.DocID, error) {
	var eng *Engine
	select {
	case eng = <-p.engines:
	default:
		return nil, ErrBusy
	}
	defer func() { p.engines <- eng }()

	rc := p.opts.controller
	if !rc.TryAcquireWorker() {
		return nil, ErrBusy
	}
	defer rc.ReleaseWorker()
	if !rc.TryQuery() {
		return nil, ErrBusy
	}
	return runOne(eng, query, capacity)
}

// EnableDiagnostic enables prefix on every engine.
func (p *Pool) EnableDiagnostic(prefix string) {
	for _, eng := range p.all {
		eng.EnableDiagnostic(prefix)
	}
}

// DisableDiagnostic disables prefix on every engine.
func (p *Pool) DisableDiagnostic(prefix string) {
	for _, eng := range p.all {
		eng.DisableDiagnostic(prefix)
	}
}

func runOne(eng *Engine, query string, capacity int) ([]index.DocID, error) {
	defer eng.Reset()

	tree, err := eng.Parse(query)
	if err != nil {
		return nil, err
	}
	results := NewResultsBuffer(capacity)
	err = eng.Run(tree, nil, results)
	return results.Results(), err
}

// Close closes every engine.
func (p *Pool) Close() error {
	var errs []error
	for _, eng := range p.all {
		errs = append(errs, eng.Close())
	}
	return errors.Join(errs...)
}
