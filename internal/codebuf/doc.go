// Package codebuf holds compiled query code.
//
// A FunctionBuffer is the staging area the compiler emits into. Once a
// function is complete it is loaded into an ExecutionBuffer: an anonymous
// memory mapping that is writable only for the duration of Load and
// read-only otherwise. Both have a fixed capacity set at construction.
package codebuf
