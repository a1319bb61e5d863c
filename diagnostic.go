package bitjit

import (
	"io"
	"sort"
	"strings"
	"sync"
)

// Diagnostic keywords written by the engine.
const (
	DiagParseTree   = "parse/tree"
	DiagCompileExpr = "compile/expr"
	DiagCompileCode = "compile/code"
	DiagCompileRegs = "compile/regalloc"
	DiagRunMatches  = "run/matches"
)

// DiagnosticStream decides which diagnostic keywords are written and where.
// A keyword is enabled when any enabled prefix is a prefix of it.
type DiagnosticStream interface {
	Enable(prefix string)
	Disable(prefix string)
	IsEnabled(keyword string) bool
	Writer() io.Writer
}

// PrefixDiagnostics is the default DiagnosticStream.
type PrefixDiagnostics struct {
	mu       sync.RWMutex
	prefixes map[string]struct{}
	w        *lockedWriter
}

// lockedWriter serializes writes from engines sharing one stream.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// NewDiagnosticStream returns a stream writing to w. A nil w discards.
func NewDiagnosticStream(w io.Writer) *PrefixDiagnostics {
	if w == nil {
		w = io.Discard
	}
	return &PrefixDiagnostics{prefixes: make(map[string]struct{}), w: &lockedWriter{w: w}}
}

// Enable turns on every keyword starting with prefix. Enabling twice has
// no further effect.
func (d *PrefixDiagnostics) Enable(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prefixes[prefix] = struct{}{}
}

// Disable removes a prefix added by Enable. Disabling an absent prefix is
// a no-op.
func (d *PrefixDiagnostics) Disable(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.prefixes, prefix)
}

// IsEnabled implements DiagnosticStream.
func (d *PrefixDiagnostics) IsEnabled(keyword string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for p := range d.prefixes {
		if strings.HasPrefix(keyword, p) {
			return true
		}
	}
	return false
}

// Writer implements DiagnosticStream. The returned writer is safe for
// concurrent use; each Write reaches the underlying writer whole.
func (d *PrefixDiagnostics) Writer() io.Writer {
	return d.w
}

// Prefixes returns the enabled prefixes in sorted order.
func (d *PrefixDiagnostics) Prefixes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.prefixes))
	for p := range d.prefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
