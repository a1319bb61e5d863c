package compiler

import (
	"fmt"
	"strings"

	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/matchtree"
)

// ExprKind is the expression node type.
type ExprKind uint8

const (
	ExprFalse ExprKind = iota
	ExprTrue
	ExprRow
	ExprAnd
	ExprOr
	ExprAndNot
	ExprNot
)

// Expr is a node of the compiled expression. Constants only ever appear as
// the whole expression; folding removes them everywhere else.
type Expr struct {
	Kind  ExprKind
	Left  *Expr
	Right *Expr
	// Row is the row-table index of an ExprRow.
	Row uint32

	// Seq is the post-order sequence number, NextUse the Seq of the
	// consumer.
	Seq     int
	NextUse int
}

var (
	falseExpr = &Expr{Kind: ExprFalse}
	trueExpr  = &Expr{Kind: ExprTrue}
)

func (e *Expr) String() string {
	var sb strings.Builder
	e.format(&sb)
	return sb.String()
}

func (e *Expr) format(sb *strings.Builder) {
	switch e.Kind {
	case ExprFalse:
		sb.WriteString("false")
	case ExprTrue:
		sb.WriteString("true")
	case ExprRow:
		fmt.Fprintf(sb, "row%d", e.Row)
	case ExprNot:
		sb.WriteString("Not(")
		e.Left.format(sb)
		sb.WriteByte(')')
	default:
		switch e.Kind {
		case ExprAnd:
			sb.WriteString("And(")
		case ExprOr:
			sb.WriteString("Or(")
		default:
			sb.WriteString("AndNot(")
		}
		e.Left.format(sb)
		sb.WriteString(", ")
		e.Right.format(sb)
		sb.WriteByte(')')
	}
}

func (c *Compiler) alloc(kind ExprKind, left, right *Expr) (*Expr, error) {
	e, err := c.exprs.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExpressionBudget, err)
	}
	e.Kind = kind
	e.Left = left
	e.Right = right
	c.stats.Nodes++
	return e, nil
}

func (c *Compiler) not(x *Expr) (*Expr, error) {
	switch x.Kind {
	case ExprFalse:
		return trueExpr, nil
	case ExprTrue:
		return falseExpr, nil
	case ExprNot:
		return x.Left, nil
	}
	return c.alloc(ExprNot, x, nil)
}

func (c *Compiler) and(l, r *Expr) (*Expr, error) {
	switch {
	case l.Kind == ExprFalse || r.Kind == ExprFalse:
		return falseExpr, nil
	case l.Kind == ExprTrue:
		return r, nil
	case r.Kind == ExprTrue:
		return l, nil
	case r.Kind == ExprNot:
		return c.alloc(ExprAndNot, l, r.Left)
	case l.Kind == ExprNot:
		return c.alloc(ExprAndNot, r, l.Left)
	}
	return c.alloc(ExprAnd, l, r)
}

func (c *Compiler) or(l, r *Expr) (*Expr, error) {
	switch {
	case l.Kind == ExprTrue || r.Kind == ExprTrue:
		return trueExpr, nil
	case l.Kind == ExprFalse:
		return r, nil
	case r.Kind == ExprFalse:
		return l, nil
	}
	return c.alloc(ExprOr, l, r)
}

func (c *Compiler) term(t index.Term) (*Expr, error) {
	row, ok := c.idx.Row(t)
	if !ok {
		return falseExpr, nil
	}
	e, err := c.alloc(ExprRow, nil, nil)
	if err != nil {
		return nil, err
	}
	if e.Row, err = c.addRow(t.String(), t, row); err != nil {
		return nil, err
	}
	return e, nil
}

// lower builds the expression for n.
func (c *Compiler) lower(n *matchtree.Node) (*Expr, error) {
	if n == nil {
		return falseExpr, nil
	}

	switch n.Kind {
	case matchtree.KindUnigram:
		return c.term(index.Term{Stream: n.Stream, Text: n.Text})
	case matchtree.KindFact:
		return c.term(index.FactTerm(n.Text))
	case matchtree.KindPhrase:
		var out *Expr
		for _, t := range index.PhraseTerms(n.Stream, n.Grams, c.idx.MaxGramSize()) {
			e, err := c.term(t)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = e
				continue
			}
			if out, err = c.and(out, e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case matchtree.KindNot:
		x, err := c.lower(n.Left)
		if err != nil {
			return nil, err
		}
		return c.not(x)
	case matchtree.KindAnd, matchtree.KindOr:
		l, err := c.lower(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := c.lower(n.Right)
		if err != nil {
			return nil, err
		}
		if n.Kind == matchtree.KindAnd {
			return c.and(l, r)
		}
		return c.or(l, r)
	}
	return nil, fmt.Errorf("compiler: unknown node kind %s", n.Kind)
}

// number assigns post-order sequence numbers below e.
func (c *Compiler) number(e *Expr) {
	if e.Left != nil {
		c.number(e.Left)
	}
	if e.Right != nil {
		c.number(e.Right)
	}
	e.Seq = c.seq
	c.seq++
	if e.Left != nil {
		e.Left.NextUse = e.Seq
	}
	if e.Right != nil {
		e.Right.NextUse = e.Seq
	}
}
