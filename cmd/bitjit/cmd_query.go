package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/bitjit"
	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/resource"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	capacity  int
	interpret bool
	stats     bool
}

func newQueryCmd(g *globalFlags) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query [query...]",
		Short: "Run one or more queries and print the matching document ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, g, f, args)
		},
	}
	cmd.Flags().IntVarP(&f.capacity, "capacity", "n", 1000, "results buffer capacity")
	cmd.Flags().BoolVar(&f.interpret, "interpret", false, "evaluate with the interpreter instead of compiling")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "print compile statistics after each query")
	return cmd
}

func runQuery(cmd *cobra.Command, g *globalFlags, f *queryFlags, queries []string) error {
	cfg, idx, err := g.load()
	if err != nil {
		return err
	}

	rc := resource.NewController(resource.Config{MemoryLimitBytes: g.memoryLimit})
	opts, err := g.options(cmd, rc)
	if err != nil {
		return err
	}

	var qe bitjit.QueryEngine
	var eng *bitjit.Engine
	if f.interpret {
		qe = bitjit.NewInterpreter(idx, cfg, opts...)
	} else {
		eng, err = bitjit.New(idx, cfg, g.treeBytes, g.codeBytes, opts...)
		if err != nil {
			return err
		}
		defer eng.Close()
		qe = eng
	}
	enableDiagnostics(qe, g.diagnostics)

	out := cmd.OutOrStdout()
	results := bitjit.NewResultsBuffer(f.capacity)
	for _, q := range queries {
		results.Reset()

		tree, err := qe.Parse(q)
		if err != nil {
			return err
		}
		err = qe.Run(tree, nil, results)
		if eng != nil {
			eng.Reset()
		}

		var overflow *bitjit.BufferOverflowError
		if err != nil && !errors.As(err, &overflow) {
			return err
		}
		printResults(out, q, results.Results(), overflow != nil)
		if f.stats && eng != nil {
			s := eng.LastCompile()
			fmt.Fprintf(out, "  rows=%d instructions=%d code=%dB spills=%d slots=%d\n",
				s.Rows, s.Instructions, s.CodeBytes, s.Spills, s.SpillSlots)
		}
	}
	return nil
}

func printResults(w io.Writer, query string, ids []index.DocID, truncated bool) {
	suffix := ""
	if truncated {
		suffix = " (truncated)"
	}
	fmt.Fprintf(w, "%s: %d match(es)%s\n", query, len(ids), suffix)
	for _, id := range ids {
		fmt.Fprintf(w, "  %d\n", id)
	}
}
