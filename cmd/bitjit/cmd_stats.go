package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, idx, err := g.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := cfg.Names()
			sort.Strings(names)
			fmt.Fprintf(out, "streams:   %v (default %s)\n", names, cfg.DefaultStream)
			fmt.Fprintf(out, "documents: %d\n", idx.DocumentCount())
			fmt.Fprintf(out, "rows:      %d\n", idx.RowCount())
			fmt.Fprintf(out, "terms:     %d\n", idx.TermCount())
			fmt.Fprintf(out, "max gram:  %d\n", idx.MaxGramSize())
			return nil
		},
	}
}
