package bitjit

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bitjit/internal/codebuf"
	"github.com/hupe1980/bitjit/internal/compiler"
	"github.com/hupe1980/bitjit/queryparser"
)

var (
	// ErrBufferOverflow is matched by every *BufferOverflowError.
	ErrBufferOverflow = errors.New("results buffer overflow")
	// ErrClosed is returned by an engine after Close.
	ErrClosed = errors.New("engine closed")
	// ErrNilResults is returned when Run is given no results buffer.
	ErrNilResults = errors.New("nil results buffer")
	// ErrBusy is returned by Pool.TryRun when no engine, worker slot or
	// rate token is free.
	ErrBusy = errors.New("pool busy")
)

// ParseError reports malformed query text, or a query whose tree does not
// fit the match-tree budget. The engine is unaffected.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ParseError struct {
	Query string
	Pos   int
	Msg   string
	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.cause }

// CompileError reports a tree whose code or expression does not fit the
// configured budgets. Partial code is discarded and the results buffer is
// untouched.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type CompileError struct {
	CodeBudget int
	cause      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error (code budget %d bytes): %v", e.CodeBudget, e.cause)
}

func (e *CompileError) Unwrap() error { return e.cause }

// AllocationError reports that an engine buffer could not be reserved.
// No engine is returned alongside it.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type AllocationError struct {
	Resource string
	Bytes    int
	cause    error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation of %s (%d bytes) failed: %v", e.Resource, e.Bytes, e.cause)
}

func (e *AllocationError) Unwrap() error { return e.cause }

// BufferOverflowError reports that the results buffer filled up during
// execution. The Written results already in the buffer are intact.
type BufferOverflowError struct {
	Capacity int
	Written  int
}

func (e *BufferOverflowError) Error() string {
	return fmt.Sprintf("%v: capacity %d, %d written", ErrBufferOverflow, e.Capacity, e.Written)
}

func (e *BufferOverflowError) Unwrap() error { return ErrBufferOverflow }

func translateError(err error, query string, codeBudget int) error {
	if err == nil {
		return nil
	}

	var pe *queryparser.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Query: query, Pos: pe.Pos, Msg: pe.Msg, cause: err}
	}

	if errors.Is(err, compiler.ErrCodeBufferFull) ||
		errors.Is(err, compiler.ErrExpressionBudget) ||
		errors.Is(err, compiler.ErrTooManyRows) ||
		errors.Is(err, compiler.ErrTooManySpills) ||
		errors.Is(err, codebuf.ErrBufferFull) {
		return &CompileError{CodeBudget: codeBudget, cause: err}
	}

	return err
}
