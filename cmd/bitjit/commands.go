package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/bitjit"
	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/resource"
	"github.com/hupe1980/bitjit/streamconfig"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	docsPath    string
	streamsPath string
	treeBytes   int
	codeBytes   int
	memoryLimit int64
	logLevel    string
	diagnostics []string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "bitjit",
		Short: "Compile and run boolean queries over a bitmap index",
		Long: `bitjit loads documents from a YAML file into an in-memory bitmap
index and evaluates boolean queries with the compiled query engine.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.docsPath, "docs", "d", "", "YAML document file to index (required)")
	pf.StringVarP(&g.streamsPath, "streams", "s", "", "YAML stream configuration (default: single body stream)")
	pf.IntVar(&g.treeBytes, "tree-bytes", 1<<20, "match-tree and expression allocator budget in bytes")
	pf.IntVar(&g.codeBytes, "code-bytes", 1<<20, "function and execution buffer budget in bytes")
	pf.Int64Var(&g.memoryLimit, "memory-limit", 0, "total bytes all engines may reserve (0 = unlimited)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error); empty disables logging")
	pf.StringSliceVar(&g.diagnostics, "diag", nil, "diagnostic prefixes to enable, e.g. compile/code")
	_ = rootCmd.MarkPersistentFlagRequired("docs")

	rootCmd.AddCommand(
		newQueryCmd(g),
		newBatchCmd(g),
		newStatsCmd(g),
	)
	return rootCmd
}

func (g *globalFlags) loadConfig() (*streamconfig.Config, error) {
	if g.streamsPath == "" {
		return streamconfig.Default(), nil
	}
	f, err := os.Open(g.streamsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return streamconfig.LoadYAML(f)
}

func (g *globalFlags) loadIndex(cfg *streamconfig.Config) (*index.MemoryIndex, error) {
	f, err := os.Open(g.docsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return index.LoadYAML(f, cfg)
}

func (g *globalFlags) load() (*streamconfig.Config, *index.MemoryIndex, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load streams: %w", err)
	}
	idx, err := g.loadIndex(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	return cfg, idx, nil
}

func (g *globalFlags) options(cmd *cobra.Command, rc *resource.Controller) ([]bitjit.Option, error) {
	// Logs share the diagnostic writer so batch workers never interleave
	// writes to stderr.
	ds := bitjit.NewDiagnosticStream(cmd.ErrOrStderr())
	opts := []bitjit.Option{
		bitjit.WithDiagnosticStream(ds),
		bitjit.WithResourceController(rc),
	}

	if g.logLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", g.logLevel)
		}
		opts = append(opts, bitjit.WithLogger(bitjit.NewLogger(
			slog.NewTextHandler(ds.Writer(), &slog.HandlerOptions{Level: level}),
		)))
	}
	return opts, nil
}

type diagnosticTarget interface {
	EnableDiagnostic(prefix string)
}

func enableDiagnostics(target diagnosticTarget, prefixes []string) {
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			target.EnableDiagnostic(p)
		}
	}
}
