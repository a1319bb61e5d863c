package bitjit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/internal/codebuf"
	"github.com/hupe1980/bitjit/internal/compiler"
	"github.com/hupe1980/bitjit/internal/vm"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/queryparser"
	"github.com/hupe1980/bitjit/streamconfig"
)

// QueryEngine parses and runs queries against an index.
type QueryEngine interface {
	// Parse turns query text into a term-match tree. Blank text yields a
	// nil tree.
	Parse(query string) (*matchtree.Node, error)
	// Run evaluates tree and appends the matching documents to results.
	// inst may be nil.
	Run(tree *matchtree.Node, inst QueryInstrumentation, results *ResultsBuffer) error
	// EnableDiagnostic turns on diagnostic keywords starting with prefix.
	EnableDiagnostic(prefix string)
	// DisableDiagnostic reverses EnableDiagnostic.
	DisableDiagnostic(prefix string)
}

var (
	_ QueryEngine = (*Engine)(nil)
	_ QueryEngine = (*Interpreter)(nil)
)

// CompileStats describes the most recent compilation.
type CompileStats struct {
	Nodes           int
	Rows            int
	Instructions    int
	CodeBytes       int
	Spills          int
	SpillSlots      int
	ExpressionBytes int
}

func compileStats(s compiler.Stats) CompileStats {
	return CompileStats(s)
}

// Engine compiles every query into register-machine code and runs it block
// by block over the index rows.
//
// Memory is fixed at construction. Trees returned by Parse live in the
// match-tree allocator and stay valid until Reset; the allocator is never
// reset implicitly, so a long-lived engine must call Reset between
// queries. The expression allocator, register allocator and code buffers
// are reset at the start of every Run.
//
// An Engine is not safe for concurrent use. Use a Pool, or one engine per
// goroutine.
type Engine struct {
	idx  index.Index
	cfg  *streamconfig.Config
	opts options

	treeArena *arena.Arena
	trees     *matchtree.Allocator
	exprArena *arena.Arena
	function  *codebuf.FunctionBuffer
	exec      *codebuf.ExecutionBuffer
	compiler  *compiler.Compiler
	machine   vm.Machine

	codeBudget   int
	codeReserved int64
	last         CompileStats
	diagBuf      bytes.Buffer
	closed       bool
}

// New creates an engine over idx. treeAllocatorBytes bounds both the
// match-tree and the expression allocator; codeAllocatorBytes bounds the
// function and execution buffers. Both are hard ceilings. A nil cfg uses
// streamconfig.Default.
func New(idx index.Index, cfg *streamconfig.Config, treeAllocatorBytes, codeAllocatorBytes int, optFns ...Option) (*Engine, error) {
	if idx == nil {
		return nil, errors.New("bitjit: nil index")
	}
	if cfg == nil {
		cfg = streamconfig.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(optFns)
	e := &Engine{idx: idx, cfg: cfg, opts: o, codeBudget: codeAllocatorBytes}

	if err := e.allocate(treeAllocatorBytes, codeAllocatorBytes); err != nil {
		e.release()
		o.logger.Error("engine allocation failed", "error", err)
		return nil, err
	}

	e.trees = matchtree.NewAllocator(e.treeArena)
	e.compiler = compiler.New(idx, e.exprArena, e.function)
	return e, nil
}

func (e *Engine) allocate(treeBytes, codeBytes int) error {
	var arenaOpts []arena.Option
	if e.opts.controller != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(e.opts.controller))
	}

	var err error
	e.treeArena, err = arena.New(treeBytes, append(arenaOpts, arena.WithName(e.opts.name+"/tree"))...)
	if err != nil {
		return &AllocationError{Resource: "match-tree allocator", Bytes: treeBytes, cause: err}
	}
	e.exprArena, err = arena.New(treeBytes, append(arenaOpts, arena.WithName(e.opts.name+"/expr"))...)
	if err != nil {
		return &AllocationError{Resource: "expression allocator", Bytes: treeBytes, cause: err}
	}

	if e.opts.controller != nil {
		if err := e.opts.controller.AcquireMemory(2 * int64(codeBytes)); err != nil {
			return &AllocationError{Resource: "code buffers", Bytes: 2 * codeBytes, cause: err}
		}
		e.codeReserved = 2 * int64(codeBytes)
	}

	if e.function, err = codebuf.NewFunctionBuffer(codeBytes); err != nil {
		return &AllocationError{Resource: "function buffer", Bytes: codeBytes, cause: err}
	}
	if e.exec, err = codebuf.NewExecutionBuffer(codeBytes); err != nil {
		return &AllocationError{Resource: "execution buffer", Bytes: codeBytes, cause: err}
	}
	return nil
}

func (e *Engine) release() {
	if e.treeArena != nil {
		e.treeArena.Free()
	}
	if e.exprArena != nil {
		e.exprArena.Free()
	}
	if e.exec != nil {
		_ = e.exec.Close()
	}
	if e.codeReserved > 0 {
		e.opts.controller.ReleaseMemory(e.codeReserved)
		e.codeReserved = 0
	}
}

// Parse implements QueryEngine. The tree is allocated in the match-tree
// allocator; running out of it is reported as a *ParseError.
func (e *Engine) Parse(query string) (*matchtree.Node, error) {
	if e.closed {
		return nil, ErrClosed
	}
	ctx := context.Background()
	start := time.Now()

	mark := e.treeArena.Mark()
	tree, err := queryparser.ParseWith(e.trees, query, e.cfg)
	if err != nil {
		e.treeArena.Rewind(mark)
		tree = nil
	}
	err = translateError(err, query, e.codeBudget)

	e.opts.metricsCollector.RecordParse(time.Since(start), err)
	e.opts.logger.LogParse(ctx, query, tree.LeafCount(), err)
	if err != nil {
		return nil, err
	}

	e.diag(DiagParseTree, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s\n", DiagParseTree, tree)
	})
	return tree, nil
}

// Run implements QueryEngine. A nil tree matches nothing. On a
// *CompileError the results buffer is untouched; on a *BufferOverflowError
// it holds every match appended before the overflow.
func (e *Engine) Run(tree *matchtree.Node, inst QueryInstrumentation, results *ResultsBuffer) error {
	if e.closed {
		return ErrClosed
	}
	if results == nil {
		return ErrNilResults
	}
	if inst == nil {
		inst = NoopInstrumentation{}
	}
	ctx := context.Background()

	inst.Record(EventCompileStart, EventInfo{})
	start := time.Now()

	prog, err := e.compiler.Compile(tree)
	if err == nil {
		err = e.exec.Load(prog.Code)
	}
	err = translateError(err, "", e.codeBudget)
	elapsed := time.Since(start)

	e.last = compileStats(e.compiler.Stats())
	if err != nil {
		e.last = CompileStats{}
	}
	inst.Record(EventCompileDone, EventInfo{Elapsed: elapsed, Compile: e.last, Err: err})
	e.opts.metricsCollector.RecordCompile(e.last.CodeBytes, e.last.Spills, elapsed, err)
	e.opts.logger.LogCompile(ctx, e.last, err)
	if err != nil {
		return err
	}
	e.traceCompile(prog)

	start = time.Now()
	matches := 0
	err = e.machine.Exec(e.exec.Code(), prog.Rows, prog.SpillSlots, e.idx.RowCount(), func(pos uint32) error {
		if err := results.Append(e.idx.DocID(pos)); err != nil {
			return err
		}
		matches++
		return nil
	})
	elapsed = time.Since(start)

	inst.Record(EventExecuteDone, EventInfo{Elapsed: elapsed, Rows: e.idx.RowCount(), Matches: matches, Err: err})
	e.opts.metricsCollector.RecordExecute(matches, elapsed, err)
	e.opts.logger.LogRun(ctx, matches, elapsed, err)

	e.diag(DiagRunMatches, func(w io.Writer) {
		writeMatches(w, matches, e.idx.RowCount())
	})
	return err
}

func (e *Engine) traceCompile(prog *compiler.Program) {
	e.diag(DiagCompileExpr, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s\n", DiagCompileExpr, prog.Expr)
		for i, name := range prog.RowNames {
			fmt.Fprintf(w, "%s: row%d = %s\n", DiagCompileExpr, i, name)
		}
	})
	e.diag(DiagCompileCode, func(w io.Writer) {
		text, err := vm.Disassemble(e.exec.Code())
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", DiagCompileCode, err)
			return
		}
		fmt.Fprintf(w, "%s:\n%s", DiagCompileCode, text)
	})
	e.diag(DiagCompileRegs, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d spills, %d spill slots, %d live\n",
			DiagCompileRegs, e.last.Spills, e.last.SpillSlots, e.compiler.LiveRegisters())
	})
}

func (e *Engine) diag(keyword string, write func(io.Writer)) {
	if !e.opts.diagnostics.IsEnabled(keyword) {
		return
	}
	// One Write per report keeps multi-line output intact on a shared stream.
	e.diagBuf.Reset()
	write(&e.diagBuf)
	_, _ = e.opts.diagnostics.Writer().Write(e.diagBuf.Bytes())
}

// EnableDiagnostic implements QueryEngine.
func (e *Engine) EnableDiagnostic(prefix string) {
	e.opts.diagnostics.Enable(prefix)
}

// DisableDiagnostic implements QueryEngine.
func (e *Engine) DisableDiagnostic(prefix string) {
	e.opts.diagnostics.Disable(prefix)
}

// Diagnostics returns the engine's diagnostic stream.
func (e *Engine) Diagnostics() DiagnosticStream {
	return e.opts.diagnostics
}

// Reset releases every tree built by Parse. Trees obtained earlier must
// not be used afterwards.
func (e *Engine) Reset() {
	if e.closed {
		return
	}
	e.trees.Reset()
}

// Close releases the engine's memory. It is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.release()
	return nil
}

// LiveRegisters returns the number of registers bound in the compiler's
// register allocator. It is zero between runs.
func (e *Engine) LiveRegisters() int {
	return e.compiler.LiveRegisters()
}

// LastCompile returns the statistics of the most recent successful
// compilation, or zero after a failed one.
func (e *Engine) LastCompile() CompileStats {
	return e.last
}

// TreeBytesUsed returns the bytes held by the match-tree allocator.
func (e *Engine) TreeBytesUsed() int {
	return e.treeArena.Used()
}

// Code returns a disassembly of the most recently loaded code.
func (e *Engine) Code() (string, error) {
	return vm.Disassemble(e.exec.Code())
}
