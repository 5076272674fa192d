/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package engineerr defines the error taxonomy shared by every layer of
// the tablet engine, from the on-disk file format up through query
// execution.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so that callers can decide how to react
// without parsing message text.
type Kind int

const (
	// Io covers failures reading or writing the database file.
	Io Kind = iota
	// Corruption covers checksum mismatches and invariant violations
	// detected while loading or checking a tablet.
	Corruption
	// OutOfSpace covers a tablet or meta-index that has no more room
	// and cannot be grown further.
	OutOfSpace
	// AllPinned covers a slot cache with no evictable slot left.
	AllPinned
	// CompileError covers a SELECT that failed to compile to opcodes.
	CompileError
	// InvalidArgument covers bad caller input: unknown table, wrong
	// column count, name too long, and so on.
	InvalidArgument
	// Exhausted covers a reader or cursor that has no more rows.
	Exhausted
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Corruption:
		return "corruption"
	case OutOfSpace:
		return "out of space"
	case AllPinned:
		return "all pinned"
	case CompileError:
		return "compile error"
	case InvalidArgument:
		return "invalid argument"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-carrying error. Op names the operation that
// failed (e.g. "tablet.AddRows"), and Err, if set, wraps an underlying
// cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind for the given operation.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given kind, following
// wrapped errors the way errors.Is does for sentinels.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ErrExhausted is a sentinel of kind Exhausted. pkg/reader does not
// return it: its Row signals that every row of every result tablet
// has been consumed by returning a nil Row and a nil error.
var ErrExhausted = New(Exhausted, "reader.Row", nil)

// ErrNotFound mirrors the sorted.KeyValue convention of a dedicated
// sentinel for a missing lookup key, used by the catalog when a table
// or column name cannot be resolved.
var ErrNotFound = errors.New("engine: not found")
