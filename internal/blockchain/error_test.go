// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"io"
	"testing"
)

// TestErrorKindStringer tests the stringized output for the ErrorKind type.
func TestErrorKindStringer(t *testing.T) {
	tests := []struct {
		in   ErrorKind
		want string
	}{
		{ErrDuplicateBlock, "ErrDuplicateBlock"},
		{ErrMissingParent, "ErrMissingParent"},
		{ErrBadBlockHeight, "ErrBadBlockHeight"},
		{ErrMultipleGenesis, "ErrMultipleGenesis"},
		{ErrUnknownBlock, "ErrUnknownBlock"},
		{ErrKnownInvalidBlock, "ErrKnownInvalidBlock"},
	}

	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("#%d: got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// TestRuleError tests the error output for the RuleError and ContextError
// types.
func TestRuleError(t *testing.T) {
	tests := []struct {
		in   error
		want string
	}{
		{RuleError{Description: "duplicate block"}, "duplicate block"},
		{ContextError{Description: "block is not known"}, "block is not known"},
		{AssertError("bad height"), "assertion failed: bad height"},
	}

	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("#%d: got: %s want: %s", i, result, test.want)
			continue
		}
	}
}

// TestErrorKindIsAs ensures both ErrorKind and the wrapping error types can be
// identified as being a specific error kind via errors.Is and unwrapped via
// errors.As.
func TestErrorKindIsAs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
		wantAs    ErrorKind
	}{{
		name:      "ErrDuplicateBlock == ErrDuplicateBlock",
		err:       ErrDuplicateBlock,
		target:    ErrDuplicateBlock,
		wantMatch: true,
		wantAs:    ErrDuplicateBlock,
	}, {
		name:      "RuleError.ErrMissingParent == ErrMissingParent",
		err:       ruleError(ErrMissingParent, ""),
		target:    ErrMissingParent,
		wantMatch: true,
		wantAs:    ErrMissingParent,
	}, {
		name:      "ContextError.ErrUnknownBlock == ErrUnknownBlock",
		err:       unknownBlockError(mustParseHash("00")),
		target:    ErrUnknownBlock,
		wantMatch: true,
		wantAs:    ErrUnknownBlock,
	}, {
		name:      "RuleError.ErrMissingParent != ErrDuplicateBlock",
		err:       ruleError(ErrMissingParent, ""),
		target:    ErrDuplicateBlock,
		wantMatch: false,
		wantAs:    ErrMissingParent,
	}, {
		name:      "RuleError.ErrBadBlockHeight != io.EOF",
		err:       ruleError(ErrBadBlockHeight, ""),
		target:    io.EOF,
		wantMatch: false,
		wantAs:    ErrBadBlockHeight,
	}}

	for _, test := range tests {
		// Ensure the error matches or not depending on the expected result.
		result := errors.Is(test.err, test.target)
		if result != test.wantMatch {
			t.Errorf("%s: incorrect error identification -- got %v, want %v",
				test.name, result, test.wantMatch)
			continue
		}

		// Ensure the underlying error kind can be unwrapped and is the
		// expected kind.
		var kind ErrorKind
		if !errors.As(test.err, &kind) {
			t.Errorf("%s: unable to unwrap to error kind", test.name)
			continue
		}
		if kind != test.wantAs {
			t.Errorf("%s: unexpected unwrapped error kind -- got %v, want %v",
				test.name, kind, test.wantAs)
			continue
		}
	}
}
