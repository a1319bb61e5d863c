package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/bitjit"
	"github.com/hupe1980/bitjit/resource"
	"github.com/spf13/cobra"
)

type batchFlags struct {
	queriesPath string
	workers     int
	qps         float64
	capacity    int
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a file of queries, one per line, on a pool of engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, g, f)
		},
	}
	cmd.Flags().StringVarP(&f.queriesPath, "queries", "q", "-", "query file, '-' for stdin")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 4, "number of engines")
	cmd.Flags().Float64Var(&f.qps, "qps", 0, "query admission rate (0 = unlimited)")
	cmd.Flags().IntVarP(&f.capacity, "capacity", "n", 1000, "results buffer capacity per query")
	return cmd
}

func readQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, sc.Err()
}

func runBatch(cmd *cobra.Command, g *globalFlags, f *batchFlags) error {
	var in io.Reader = cmd.InOrStdin()
	if f.queriesPath != "-" {
		file, err := os.Open(f.queriesPath)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	queries, err := readQueries(in)
	if err != nil {
		return fmt.Errorf("read queries: %w", err)
	}

	cfg, idx, err := g.load()
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes: g.memoryLimit,
		MaxWorkers:       int64(f.workers),
		QueriesPerSecond: f.qps,
		QueryBurst:       f.workers,
	})
	opts, err := g.options(cmd, rc)
	if err != nil {
		return err
	}

	pool, err := bitjit.NewPool(idx, cfg, f.workers, g.treeBytes, g.codeBytes, opts...)
	if err != nil {
		return err
	}
	defer pool.Close()
	enableDiagnostics(pool, g.diagnostics)

	results, err := pool.RunBatch(cmd.Context(), queries, f.capacity)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		var overflow *bitjit.BufferOverflowError
		if r.Err != nil && !errors.As(r.Err, &overflow) {
			failed++
			fmt.Fprintf(out, "%s: error: %v\n", r.Query, r.Err)
			continue
		}
		printResults(out, r.Query, r.Results, overflow != nil)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}
