// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

const (
	// ErrBlockNotFound indicates the requested block is not in the store.
	ErrBlockNotFound = ErrorKind("ErrBlockNotFound")

	// ErrCorruptBlock indicates the stored data for a block could not be
	// decoded or does not hash to the requested block.
	ErrCorruptBlock = ErrorKind("ErrCorruptBlock")

	// ErrStoreCorruption indicates the underlying database is corrupt.
	ErrStoreCorruption = ErrorKind("ErrStoreCorruption")

	// ErrStoreNotOpen indicates the underlying database is closed.
	ErrStoreNotOpen = ErrorKind("ErrStoreNotOpen")

	// ErrStore indicates any other error from the underlying database.
	ErrStore = ErrorKind("ErrStore")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// ContextError wraps an error with additional context.  It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific
// wrapped error.
//
// RawErr contains the original error in the case where an error has been
// converted.
type ContextError struct {
	Err         error
	Description string
	RawErr      error
}

// Error satisfies the error interface and prints human-readable errors.
func (e ContextError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e ContextError) Unwrap() error {
	return e.Err
}

// contextError creates a ContextError given a set of arguments.
func contextError(kind ErrorKind, desc string) ContextError {
	return ContextError{Err: kind, Description: desc}
}
