package queryparser

import (
	"strings"
	"unicode"

	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/streamconfig"
)

// Format renders n as query text. Binary operands that are themselves
// binary are parenthesized, so parsing the output rebuilds the same shape.
// The empty tree formats as "".
func Format(n *matchtree.Node, cfg *streamconfig.Config) string {
	if n == nil {
		return ""
	}
	if cfg == nil {
		cfg = streamconfig.Default()
	}
	var sb strings.Builder
	format(&sb, n, cfg)
	return sb.String()
}

func format(sb *strings.Builder, n *matchtree.Node, cfg *streamconfig.Config) {
	switch n.Kind {
	case matchtree.KindUnigram:
		writeStream(sb, n.Stream, cfg)
		writeWord(sb, n.Text, false)
	case matchtree.KindPhrase:
		writeStream(sb, n.Stream, cfg)
		sb.WriteByte('"')
		for i, g := range n.Grams {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeWord(sb, g, true)
		}
		sb.WriteByte('"')
	case matchtree.KindFact:
		sb.WriteString(FactPrefix)
		sb.WriteByte(':')
		writeWord(sb, n.Text, false)
	case matchtree.KindNot:
		sb.WriteByte('-')
		operand(sb, n.Left, cfg)
	case matchtree.KindAnd, matchtree.KindOr:
		operand(sb, n.Left, cfg)
		if n.Kind == matchtree.KindAnd {
			sb.WriteString(" & ")
		} else {
			sb.WriteString(" | ")
		}
		operand(sb, n.Right, cfg)
	}
}

func operand(sb *strings.Builder, n *matchtree.Node, cfg *streamconfig.Config) {
	if n.Kind == matchtree.KindAnd || n.Kind == matchtree.KindOr {
		sb.WriteByte('(')
		format(sb, n, cfg)
		sb.WriteByte(')')
		return
	}
	format(sb, n, cfg)
}

func writeStream(sb *strings.Builder, id streamconfig.StreamID, cfg *streamconfig.Config) {
	if id == cfg.DefaultID() {
		return
	}
	writeWord(sb, cfg.Name(id), false)
	sb.WriteByte(':')
}

func writeWord(sb *strings.Builder, w string, inPhrase bool) {
	for i, r := range w {
		escape := unicode.IsSpace(r) || r == '"' || r == '\\'
		if !inPhrase {
			escape = escape || isSpecial(r) || (i == 0 && r == '-')
		}
		if escape {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
}
