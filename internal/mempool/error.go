// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

const (
	// ErrDuplicate indicates the transaction already exists in the mempool.
	ErrDuplicate = ErrorKind("ErrDuplicate")

	// ErrMempoolDoubleSpend indicates the transaction attempts to spend an
	// output that is already spent by another transaction in the mempool.
	ErrMempoolDoubleSpend = ErrorKind("ErrMempoolDoubleSpend")

	// ErrTooManyAncestors indicates the transaction would have more
	// unconfirmed parents or ancestors in the mempool than allowed.
	ErrTooManyAncestors = ErrorKind("ErrTooManyAncestors")

	// ErrAncestorSizeLimit indicates the combined size of the transaction
	// and its unconfirmed ancestors would exceed the allowed size.
	ErrAncestorSizeLimit = ErrorKind("ErrAncestorSizeLimit")

	// ErrTooManyDescendants indicates that accepting the transaction would
	// give one of its ancestors, or the transaction itself, more in-mempool
	// descendants than allowed.
	ErrTooManyDescendants = ErrorKind("ErrTooManyDescendants")

	// ErrDescendantSizeLimit indicates that accepting the transaction would
	// push the combined size of the descendants of one of its ancestors, or
	// of the transaction itself, over the allowed size.
	ErrDescendantSizeLimit = ErrorKind("ErrDescendantSizeLimit")

	// ErrFeeTooHigh indicates the transaction pays fees above the maximum
	// allowed by the mempool.
	ErrFeeTooHigh = ErrorKind("ErrFeeTooHigh")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a transaction failed due to one of the mempool policy rules.
// It has full support for errors.Is and errors.As, so the caller can
// ascertain the specific reason for the error by checking the underlying
// error.
type RuleError struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates an Error given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// panicf is a convenience function that formats according to the given format
// specifier and arguments and logs it as a critical error before panicking
// with an AssertError.
func panicf(format string, args ...interface{}) {
	str := AssertError(fmt.Sprintf(format, args...))
	log.Critical(str)
	panic(str)
}
