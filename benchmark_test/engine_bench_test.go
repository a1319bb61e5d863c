package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/bitjit"
	"github.com/hupe1980/bitjit/queryparser"
	"github.com/hupe1980/bitjit/streamconfig"
)

// BenchmarkRun compares the compiled engine with the interpreter across
// index sizes and query widths. Queries wider than eight leaves spill.
func BenchmarkRun(b *testing.B) {
	for _, size := range []int{sizeSmall, sizeMedium} {
		for _, leaves := range []int{4, 8, 16, 32} {
			f := newFixture(b, size, leaves)

			b.Run(fmt.Sprintf("Engine/docs=%d/leaves=%d", size, leaves), func(b *testing.B) {
				eng, err := bitjit.New(f.idx, nil, treeBytes, codeBytes)
				if err != nil {
					b.Fatal(err)
				}
				defer eng.Close()
				results := bitjit.NewResultsBuffer(size)

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					results.Reset()
					if err := eng.Run(f.queries[i%len(f.queries)], nil, results); err != nil {
						b.Fatal(err)
					}
				}
			})

			b.Run(fmt.Sprintf("Interpreter/docs=%d/leaves=%d", size, leaves), func(b *testing.B) {
				interp := bitjit.NewInterpreter(f.idx, nil)
				results := bitjit.NewResultsBuffer(size)

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					results.Reset()
					if err := interp.Run(f.queries[i%len(f.queries)], nil, results); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func formatQueries(f *fixture, cfg *streamconfig.Config) []string {
	texts := make([]string, len(f.queries))
	for i, q := range f.queries {
		texts[i] = queryparser.Format(q, cfg)
	}
	return texts
}

// BenchmarkParse measures parsing into the match-tree allocator.
func BenchmarkParse(b *testing.B) {
	f := newFixture(b, 1000, 16)
	cfg := streamconfig.Default()
	texts := formatQueries(f, cfg)

	eng, err := bitjit.New(f.idx, cfg, treeBytes, codeBytes)
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Parse(texts[i%len(texts)]); err != nil {
			b.Fatal(err)
		}
		eng.Reset()
	}
}

// BenchmarkPool measures batch throughput on a pool of engines.
func BenchmarkPool(b *testing.B) {
	f := newFixture(b, sizeSmall, 12)
	cfg := streamconfig.Default()
	texts := formatQueries(f, cfg)

	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			pool, err := bitjit.NewPool(f.idx, cfg, workers, treeBytes, codeBytes)
			if err != nil {
				b.Fatal(err)
			}
			defer pool.Close()
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := pool.RunBatch(ctx, texts, sizeSmall); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
