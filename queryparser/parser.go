package queryparser

import (
	"fmt"
	"strings"

	"github.com/hupe1980/bitjit/matchtree"
	"github.com/hupe1980/bitjit/streamconfig"
)

// FactPrefix is the stream qualifier that selects a document fact.
const FactPrefix = "fact"

// maxDepth bounds recursion on deeply nested input.
const maxDepth = 1024

// ParseError describes malformed query text. Err is set when the failure
// came from node allocation rather than from the text itself.
type ParseError struct {
	Pos int
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("queryparser: %s at position %d: %v", e.Msg, e.Pos, e.Err)
	}
	return fmt.Sprintf("queryparser: %s at position %d", e.Msg, e.Pos)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Builder creates tree nodes. *matchtree.Allocator implements it.
type Builder interface {
	Unigram(text string, stream streamconfig.StreamID) (*matchtree.Node, error)
	Phrase(stream streamconfig.StreamID, grams []string) (*matchtree.Node, error)
	Fact(name string) (*matchtree.Node, error)
	And(left, right *matchtree.Node) (*matchtree.Node, error)
	Or(left, right *matchtree.Node) (*matchtree.Node, error)
	Not(child *matchtree.Node) (*matchtree.Node, error)
}

type heapBuilder struct{}

func (heapBuilder) Unigram(text string, stream streamconfig.StreamID) (*matchtree.Node, error) {
	return matchtree.Unigram(text, stream), nil
}

func (heapBuilder) Phrase(stream streamconfig.StreamID, grams []string) (*matchtree.Node, error) {
	return matchtree.Phrase(stream, grams...), nil
}

func (heapBuilder) Fact(name string) (*matchtree.Node, error) {
	return matchtree.Fact(name), nil
}

func (heapBuilder) And(left, right *matchtree.Node) (*matchtree.Node, error) {
	return matchtree.And(left, right), nil
}

func (heapBuilder) Or(left, right *matchtree.Node) (*matchtree.Node, error) {
	return matchtree.Or(left, right), nil
}

func (heapBuilder) Not(child *matchtree.Node) (*matchtree.Node, error) {
	return matchtree.Not(child), nil
}

// Parse parses query into a heap-allocated tree. Blank input yields a nil
// tree and no error.
func Parse(query string, cfg *streamconfig.Config) (*matchtree.Node, error) {
	return ParseWith(heapBuilder{}, query, cfg)
}

// ParseWith parses query, creating nodes with b.
func ParseWith(b Builder, query string, cfg *streamconfig.Config) (*matchtree.Node, error) {
	if cfg == nil {
		cfg = streamconfig.Default()
	}
	p := &parser{
		lex: lexer{src: query},
		b:   b,
		cfg: cfg,
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ == tokEOF {
		return nil, nil
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokEOF {
		return nil, p.unexpected()
	}
	return root, nil
}

type parser struct {
	lex   lexer
	tok   token
	b     Builder
	cfg   *streamconfig.Config
	depth int
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected() error {
	return &ParseError{Pos: p.tok.pos, Msg: "unexpected " + p.tok.typ.String()}
}

func (p *parser) alloc(n *matchtree.Node, err error) (*matchtree.Node, error) {
	if err != nil {
		return nil, &ParseError{Pos: p.tok.pos, Msg: "node allocation failed", Err: err}
	}
	return n, nil
}

func (p *parser) parseOr() (*matchtree.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.typ == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if left, err = p.alloc(p.b.Or(left, right)); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func startsUnary(t tokenType) bool {
	return t == tokNot || t == tokLParen || t == tokWord || t == tokPhrase
}

func (p *parser) parseAnd() (*matchtree.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.tok.typ == tokAnd:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case startsUnary(p.tok.typ):
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if left, err = p.alloc(p.b.And(left, right)); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary() (*matchtree.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, &ParseError{Pos: p.tok.pos, Msg: "query nests too deeply"}
	}

	switch p.tok.typ {
	case tokNot:
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.alloc(p.b.Not(child))
	case tokLParen:
		open := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.typ == tokRParen {
			return nil, &ParseError{Pos: open, Msg: "empty group"}
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.typ != tokRParen {
			return nil, &ParseError{Pos: open, Msg: "unbalanced '('"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	case tokWord, tokPhrase:
		return p.parseTerm()
	default:
		return nil, p.unexpected()
	}
}

func (p *parser) parseTerm() (*matchtree.Node, error) {
	stream := p.cfg.DefaultID()
	fact := false

	if p.tok.typ == tokWord && p.lex.pos < len(p.lex.src) && p.lex.src[p.lex.pos] == ':' {
		name, pos := p.tok.text, p.tok.pos
		if id, ok := p.cfg.Lookup(name); ok {
			stream = id
		} else if name == FactPrefix {
			fact = true
		} else {
			return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("unknown stream %q", name)}
		}
		if err := p.advance(); err != nil { // ':'
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.typ != tokWord && !(p.tok.typ == tokPhrase && !fact) {
			return nil, &ParseError{Pos: p.tok.pos, Msg: fmt.Sprintf("expected term after %q", name+":")}
		}
	}

	tok := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch {
	case fact:
		return p.alloc(p.b.Fact(tok.text))
	case tok.typ == tokPhrase && len(tok.words) > 1:
		grams := make([]string, len(tok.words))
		for i, w := range tok.words {
			grams[i] = p.fold(w)
		}
		return p.alloc(p.b.Phrase(stream, grams))
	case tok.typ == tokPhrase:
		return p.alloc(p.b.Unigram(p.fold(tok.words[0]), stream))
	default:
		if tok.text == "" {
			return nil, &ParseError{Pos: tok.pos, Msg: "empty term"}
		}
		return p.alloc(p.b.Unigram(p.fold(tok.text), stream))
	}
}

func (p *parser) fold(s string) string {
	if p.cfg.CaseFold {
		return strings.ToLower(s)
	}
	return s
}
