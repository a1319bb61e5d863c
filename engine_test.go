package bitjit

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/internal/arena"
	"github.com/hupe1980/bitjit/internal/vm"
	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/resource"
	"github.com/hupe1980/bitjit/streamconfig"
	"github.com/hupe1980/bitjit/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTreeBytes = 64 << 10
	testCodeBytes = 64 << 10
)

func buildIndex(t testing.TB, docs map[index.DocID]string, deleted ...index.DocID) *index.MemoryIndex {
	t.Helper()
	b := index.NewBuilder()
	for id := index.DocID(1); int(id) <= len(docs); id++ {
		require.NoError(t, b.AddDocument(id, map[streamconfig.StreamID]string{0: docs[id]}))
	}
	for _, id := range deleted {
		require.NoError(t, b.Delete(id))
	}
	return b.Build()
}

// abIndex has a in {1,3} and b in {2,3}.
func abIndex(t testing.TB) *index.MemoryIndex {
	return buildIndex(t, map[index.DocID]string{1: "a", 2: "b", 3: "a b"})
}

func newEngine(t testing.TB, idx index.Index, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(idx, nil, testTreeBytes, testCodeBytes, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func query(t testing.TB, qe QueryEngine, q string) []index.DocID {
	t.Helper()
	tree, err := qe.Parse(q)
	require.NoError(t, err)
	results := NewResultsBuffer(1024)
	require.NoError(t, qe.Run(tree, nil, results))
	return results.Results()
}

func TestEngine_BooleanQueries(t *testing.T) {
	idx := abIndex(t)
	eng := newEngine(t, idx)
	interp := NewInterpreter(idx, nil)

	tests := []struct {
		query string
		want  []index.DocID
	}{
		{"a & b", []index.DocID{3}},
		{"a | b", []index.DocID{1, 2, 3}},
		{"a -b", []index.DocID{1}},
		{"-a", []index.DocID{2}},
		{"a missing", []index.DocID{}},
		{"a | missing", []index.DocID{1, 3}},
		{`"a b"`, []index.DocID{3}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, query(t, eng, tt.query))
			assert.Equal(t, tt.want, query(t, interp, tt.query))
			assert.Equal(t, 0, eng.LiveRegisters())
		})
	}
}

func TestEngine_EmptyTree(t *testing.T) {
	eng := newEngine(t, abIndex(t))

	tree, err := eng.Parse("   ")
	require.NoError(t, err)
	assert.Nil(t, tree)

	rec := &Recorder{}
	results := NewResultsBuffer(4)
	require.NoError(t, eng.Run(nil, rec, results))
	assert.Equal(t, 0, results.Len())
	assert.Equal(t, []Event{EventCompileStart, EventCompileDone, EventExecuteDone}, rec.Events())
	assert.True(t, rec.Data().Succeeded)
	assert.Equal(t, 0, eng.LiveRegisters())
}

func TestEngine_RegisterPressure(t *testing.T) {
	vocab := testutil.Vocabulary(vm.NumRegisters + 1)
	all := ""
	for _, w := range vocab {
		all += w + " "
	}
	idx := buildIndex(t, map[index.DocID]string{1: all, 2: "t1 t2 t3"})
	eng := newEngine(t, idx)

	leaves := make([]*matchtree.Node, len(vocab))
	for i, w := range vocab {
		leaves[i] = matchtree.Unigram(w, 0)
	}

	results := NewResultsBuffer(8)
	require.NoError(t, eng.Run(matchtree.AndAll(leaves[:vm.NumRegisters]...), nil, results))
	assert.Equal(t, []index.DocID{1}, results.Results())
	assert.Equal(t, 0, eng.LastCompile().Spills)
	assert.Equal(t, 0, eng.LiveRegisters())

	results.Reset()
	require.NoError(t, eng.Run(matchtree.AndAll(leaves...), nil, results))
	assert.Equal(t, []index.DocID{1}, results.Results())
	assert.Positive(t, eng.LastCompile().Spills)
	assert.Equal(t, 0, eng.LiveRegisters())
}

func TestEngine_CompileError(t *testing.T) {
	idx := abIndex(t)
	eng, err := New(idx, nil, testTreeBytes, 2*vm.InstrSize)
	require.NoError(t, err)
	defer eng.Close()

	tree, err := eng.Parse("a b")
	require.NoError(t, err)

	rec := &Recorder{}
	results := NewResultsBuffer(4)
	require.NoError(t, results.Append(42))

	err = eng.Run(tree, rec, results)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2*vm.InstrSize, ce.CodeBudget)
	assert.Equal(t, []index.DocID{42}, results.Results())
	assert.Equal(t, 0, eng.LiveRegisters())
	assert.Equal(t, CompileStats{}, eng.LastCompile())
	assert.Equal(t, []Event{EventCompileStart, EventCompileDone}, rec.Events())

	// A query that fits still runs on the same engine.
	tree, err = eng.Parse("missing")
	require.NoError(t, err)
	require.NoError(t, eng.Run(tree, nil, results))
}

func TestEngine_BufferOverflow(t *testing.T) {
	eng := newEngine(t, abIndex(t))
	tree, err := eng.Parse("a | b")
	require.NoError(t, err)

	results := NewResultsBuffer(2)
	err = eng.Run(tree, nil, results)

	var be *BufferOverflowError
	require.ErrorAs(t, err, &be)
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, 2, be.Written)
	assert.Equal(t, []index.DocID{1, 2}, results.Results())
	assert.Equal(t, 0, eng.LiveRegisters())
}

func TestEngine_ParseError(t *testing.T) {
	eng := newEngine(t, abIndex(t))

	_, err := eng.Parse("a | (b")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 4, pe.Pos)
	assert.Equal(t, "a | (b", pe.Query)

	tiny, err := New(abIndex(t), nil, 64, testCodeBytes)
	require.NoError(t, err)
	defer tiny.Close()

	_, err = tiny.Parse("alpha beta gamma delta epsilon")
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, arena.ErrArenaFull)
}

func TestEngine_ParseErrorReleasesTreeBytes(t *testing.T) {
	eng, err := New(abIndex(t), nil, 512, testCodeBytes)
	require.NoError(t, err)
	defer eng.Close()

	before := eng.TreeBytesUsed()
	for range 10 {
		_, err := eng.Parse("a b a b (")
		require.Error(t, err)
		assert.Equal(t, before, eng.TreeBytesUsed())
	}

	tree, err := eng.Parse("a b")
	require.NoError(t, err)
	used := eng.TreeBytesUsed()
	assert.Positive(t, used)

	// A failure after a successful parse keeps the earlier tree.
	_, err = eng.Parse("a | (b")
	require.Error(t, err)
	assert.Equal(t, used, eng.TreeBytesUsed())

	results := NewResultsBuffer(4)
	require.NoError(t, eng.Run(tree, nil, results))
	assert.Equal(t, []index.DocID{3}, results.Results())
}

func TestEngine_TreeAllocatorLifecycle(t *testing.T) {
	eng := newEngine(t, abIndex(t))

	first, err := eng.Parse("a b")
	require.NoError(t, err)
	used := eng.TreeBytesUsed()
	assert.Positive(t, used)

	_, err = eng.Parse("a | b")
	require.NoError(t, err)
	assert.Greater(t, eng.TreeBytesUsed(), used, "parse accumulates")

	// Earlier trees stay valid until Reset.
	results := NewResultsBuffer(4)
	require.NoError(t, eng.Run(first, nil, results))
	assert.Equal(t, []index.DocID{3}, results.Results())

	eng.Reset()
	assert.Equal(t, 0, eng.TreeBytesUsed())
}

func TestEngine_SoftDeletes(t *testing.T) {
	idx := buildIndex(t, map[index.DocID]string{1: "a", 2: "a", 3: "b"}, 2)
	eng := newEngine(t, idx)

	assert.Equal(t, []index.DocID{1}, query(t, eng, "a"))
	assert.Equal(t, []index.DocID{3}, query(t, eng, "-a"))
}

func TestEngine_Facts(t *testing.T) {
	b := index.NewBuilder()
	require.NoError(t, b.AddDocument(1, map[streamconfig.StreamID]string{0: "go"}))
	require.NoError(t, b.AddDocument(2, map[streamconfig.StreamID]string{0: "go"}))
	require.NoError(t, b.AddFact(2, "archived"))
	eng := newEngine(t, b.Build())

	assert.Equal(t, []index.DocID{1}, query(t, eng, "go -fact:archived"))
	assert.Equal(t, []index.DocID{2}, query(t, eng, "fact:archived"))
}

func TestEngine_MatchesInterpreter(t *testing.T) {
	for _, seed := range []int64{1, 7, 4711} {
		rng := testutil.NewRNG(seed)
		vocab := testutil.Vocabulary(30)
		idx := rng.Index(300, vocab, 10)

		eng := newEngine(t, idx)
		interp := NewInterpreter(idx, nil)

		for i := range 150 {
			tree := rng.Tree(vocab, 1+rng.Intn(40))

			want := NewResultsBuffer(int(idx.RowCount()))
			require.NoError(t, interp.Run(tree, nil, want))

			got := NewResultsBuffer(int(idx.RowCount()))
			require.NoError(t, eng.Run(tree, nil, got), "seed %d tree %d: %s", seed, i, tree)

			require.Equal(t, want.Results(), got.Results(), "seed %d tree %d: %s", seed, i, tree)
			require.Equal(t, 0, eng.LiveRegisters())
		}
	}
}

func TestEngine_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	ds := NewDiagnosticStream(&buf)
	eng := newEngine(t, abIndex(t), WithDiagnosticStream(ds))

	eng.EnableDiagnostic("compile")
	eng.EnableDiagnostic("compile")
	assert.Equal(t, []string{"compile"}, ds.Prefixes())

	query(t, eng, "a -b")
	out := buf.String()
	assert.Contains(t, out, "compile/expr: And(AndNot(row0, row1), row2)")
	assert.Contains(t, out, "LOADROW R8, row0")
	assert.Contains(t, out, "compile/regalloc: 0 spills")
	assert.NotContains(t, out, "run/matches")

	eng.DisableDiagnostic("compile")
	eng.DisableDiagnostic("compile")
	eng.DisableDiagnostic("never-enabled")
	assert.Empty(t, ds.Prefixes())

	buf.Reset()
	query(t, eng, "a")
	assert.Empty(t, buf.String())

	eng.EnableDiagnostic("run/")
	query(t, eng, "a")
	assert.Equal(t, "run/matches: 2 matches of 3 rows\n", buf.String())
	assert.Same(t, ds, eng.Diagnostics())
}

func TestEngine_MetricsAndLogging(t *testing.T) {
	var logs bytes.Buffer
	metrics := &BasicMetricsCollector{}
	logger := NewLogger(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := newEngine(t, abIndex(t), WithMetricsCollector(metrics), WithLogger(logger))

	query(t, eng, "a | b")
	_, _ = eng.Parse("(")

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.ParseCount)
	assert.Equal(t, int64(1), stats.ParseErrors)
	assert.Equal(t, int64(1), stats.CompileCount)
	assert.Equal(t, int64(1), stats.ExecuteCount)
	assert.Equal(t, int64(3), stats.Matches)
	assert.Positive(t, stats.CodeBytes)

	assert.Contains(t, logs.String(), `"msg":"compile completed"`)
	assert.Contains(t, logs.String(), `"msg":"parse failed"`)
}

func TestEngine_ResourceController(t *testing.T) {
	idx := abIndex(t)

	t.Run("limit exceeded", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1000})
		_, err := New(idx, nil, 4096, 4096, WithResourceController(rc))

		var ae *AllocationError
		require.ErrorAs(t, err, &ae)
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})

	t.Run("code buffers exceed limit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 10000})
		_, err := New(idx, nil, 4096, 4096, WithResourceController(rc))

		var ae *AllocationError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "code buffers", ae.Resource)
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})

	t.Run("reserved until close", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
		eng, err := New(idx, nil, 4096, 4096, WithResourceController(rc))
		require.NoError(t, err)
		assert.Equal(t, int64(4*4096), rc.MemoryUsage())

		require.NoError(t, eng.Close())
		require.NoError(t, eng.Close())
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}

func TestEngine_InvalidConstruction(t *testing.T) {
	_, err := New(abIndex(t), nil, 0, testCodeBytes)
	var ae *AllocationError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, arena.ErrInvalidBudget)

	_, err = New(abIndex(t), nil, testTreeBytes, 0)
	require.ErrorAs(t, err, &ae)

	_, err = New(nil, nil, testTreeBytes, testCodeBytes)
	assert.Error(t, err)

	_, err = New(abIndex(t), &streamconfig.Config{}, testTreeBytes, testCodeBytes)
	assert.ErrorIs(t, err, streamconfig.ErrNoStreams)
}

func TestEngine_Closed(t *testing.T) {
	eng := newEngine(t, abIndex(t))
	require.NoError(t, eng.Close())

	_, err := eng.Parse("a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, eng.Run(nil, nil, NewResultsBuffer(1)), ErrClosed)
	eng.Reset()
}

func TestEngine_NilResults(t *testing.T) {
	eng := newEngine(t, abIndex(t))
	assert.ErrorIs(t, eng.Run(nil, nil, nil), ErrNilResults)
	assert.ErrorIs(t, NewInterpreter(abIndex(t), nil).Run(nil, nil, nil), ErrNilResults)
}

func TestEngine_Code(t *testing.T) {
	eng := newEngine(t, abIndex(t))
	query(t, eng, "a")

	text, err := eng.Code()
	require.NoError(t, err)
	assert.Equal(t, "0000  LOADROW R8, row0\n"+
		"0008  LOADROW R9, row1\n"+
		"0010  AND R8, R9\n"+
		"0018  EMIT R8\n"+
		"0020  END\n", text)
	assert.Equal(t, 5, eng.LastCompile().Instructions)
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil, "", 0))

	other := errors.New("other")
	assert.Same(t, other, translateError(other, "", 0))
}
