package queryparser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType uint8

const (
	tokEOF tokenType = iota
	tokWord
	tokPhrase
	tokLParen
	tokRParen
	tokOr
	tokAnd
	tokNot
	tokColon
)

func (t tokenType) String() string {
	switch t {
	case tokEOF:
		return "end of query"
	case tokWord:
		return "word"
	case tokPhrase:
		return "phrase"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokOr:
		return "'|'"
	case tokAnd:
		return "'&'"
	case tokNot:
		return "'-'"
	case tokColon:
		return "':'"
	default:
		return "token"
	}
}

type token struct {
	typ   tokenType
	pos   int
	text  string   // tokWord
	words []string // tokPhrase
}

type lexer struct {
	src string
	pos int
	sb  strings.Builder
}

func isSpecial(r rune) bool {
	switch r {
	case '(', ')', '|', '&', '"', ':', '\\':
		return true
	}
	return false
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	if l.pos >= len(l.src) {
		return token{typ: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	single := func(t tokenType) (token, error) {
		l.pos++
		return token{typ: t, pos: start}, nil
	}

	switch l.src[l.pos] {
	case '(':
		return single(tokLParen)
	case ')':
		return single(tokRParen)
	case '|':
		return single(tokOr)
	case '&':
		return single(tokAnd)
	case '-':
		return single(tokNot)
	case ':':
		return single(tokColon)
	case '"':
		return l.phrase()
	}

	text, err := l.word(false)
	if err != nil {
		return token{}, err
	}
	return token{typ: tokWord, pos: start, text: text}, nil
}

// word scans up to the next whitespace or special character. Inside a
// phrase only whitespace and the closing quote end a word.
func (l *lexer) word(inPhrase bool) (string, error) {
	l.sb.Reset()
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if unicode.IsSpace(r) || r == '"' {
			break
		}
		if !inPhrase && isSpecial(r) && r != '\\' {
			break
		}
		if r == '\\' {
			if l.pos+size >= len(l.src) {
				return "", &ParseError{Pos: l.pos, Msg: "dangling escape"}
			}
			l.pos += size
			r, size = utf8.DecodeRuneInString(l.src[l.pos:])
		}
		l.sb.WriteRune(r)
		l.pos += size
	}
	return l.sb.String(), nil
}

func (l *lexer) phrase() (token, error) {
	start := l.pos
	l.pos++ // opening quote

	var words []string
	for {
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if !unicode.IsSpace(r) {
				break
			}
			l.pos += size
		}
		if l.pos >= len(l.src) {
			return token{}, &ParseError{Pos: start, Msg: "unterminated phrase"}
		}
		if l.src[l.pos] == '"' {
			l.pos++
			break
		}
		w, err := l.word(true)
		if err != nil {
			return token{}, err
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return token{}, &ParseError{Pos: start, Msg: "empty phrase"}
	}
	return token{typ: tokPhrase, pos: start, words: words}, nil
}
