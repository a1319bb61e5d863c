// Package queryparser turns query text into a term-match tree.
//
// Grammar:
//
//	or    := and ('|' and)*
//	and   := unary (['&'] unary)*
//	unary := '-' unary | '(' or ')' | term
//	term  := [stream ':'] (word | '"' word+ '"')
//
// Adjacent terms are conjoined. A quoted run of two or more words is a
// phrase. The stream prefix "fact" names a document fact rather than a
// stream. A backslash makes the next character literal, so `a\:b` is the
// single word "a:b".
//
// Format renders a tree back into query text that parses to the same tree.
package queryparser
