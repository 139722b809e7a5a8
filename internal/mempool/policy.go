// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2017-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
)

const (
	// DefaultAncestorLimit is the default maximum number of in-mempool
	// ancestors, including the transaction itself, a transaction may have.
	DefaultAncestorLimit = 50

	// DefaultAncestorSizeLimitKB is the default maximum combined size in
	// kilobytes of a transaction and its in-mempool ancestors.
	DefaultAncestorSizeLimitKB = 101

	// DefaultDescendantLimit is the default maximum number of in-mempool
	// descendants, including the transaction itself, a transaction may
	// have.
	DefaultDescendantLimit = 50

	// DefaultDescendantSizeLimitKB is the default maximum combined size in
	// kilobytes of a transaction and its in-mempool descendants.
	DefaultDescendantSizeLimitKB = 101

	// DefaultMaxTxFee is the default maximum fee a single transaction may
	// pay to be accepted into the mempool.
	DefaultMaxTxFee = dcrutil.Amount(1e8 / 10)

	// DefaultRejectCacheSize is the default number of recently rejected
	// transaction hashes to remember.
	DefaultRejectCacheSize = 50000

	// DefaultExpiry is the default age after which transactions are evicted
	// from the mempool.
	DefaultExpiry = 336 * time.Hour

	// DefaultMaxMempoolSize is the default maximum combined serialized size
	// of all transactions in the mempool.
	DefaultMaxMempoolSize = 300 * 1000 * 1000
)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MaxAncestors is the maximum number of in-mempool ancestors, including
	// the transaction itself, an accepted transaction may have.
	MaxAncestors int64

	// MaxAncestorSizeKB is the maximum combined size in kilobytes of an
	// accepted transaction and its in-mempool ancestors.
	MaxAncestorSizeKB int64

	// MaxDescendants is the maximum number of in-mempool descendants,
	// including the transaction itself, any transaction in the mempool may
	// have after accepting a new one.
	MaxDescendants int64

	// MaxDescendantSizeKB is the maximum combined size in kilobytes of any
	// transaction in the mempool and its in-mempool descendants after
	// accepting a new one.
	MaxDescendantSizeKB int64

	// MaxTxFee is the maximum fee a transaction may pay.  Zero disables the
	// check.
	MaxTxFee dcrutil.Amount

	// RejectCacheSize is the number of transactions rejected by the package
	// limits to remember until a transaction leaves the pool.  Zero disables
	// the cache.
	RejectCacheSize uint32

	// SanityChecks enables a full recomputation of the ancestor and
	// descendant aggregates after every change to the pool.  A mismatch is
	// treated as an unrecoverable internal error.
	SanityChecks bool
}

// DefaultPolicy returns the default mempool policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAncestors:        DefaultAncestorLimit,
		MaxAncestorSizeKB:   DefaultAncestorSizeLimitKB,
		MaxDescendants:      DefaultDescendantLimit,
		MaxDescendantSizeKB: DefaultDescendantSizeLimitKB,
		MaxTxFee:            DefaultMaxTxFee,
		RejectCacheSize:     DefaultRejectCacheSize,
	}
}

// Limits houses the package limits enforced on transactions entering the
// mempool, with sizes expressed in bytes.
type Limits struct {
	AncestorCount   int64
	AncestorSize    int64
	DescendantCount int64
	DescendantSize  int64
}

// Limits returns the package limits of the policy with the configured
// kilobyte sizes converted to bytes.
func (p *Policy) Limits() Limits {
	return Limits{
		AncestorCount:   p.MaxAncestors,
		AncestorSize:    p.MaxAncestorSizeKB * 1000,
		DescendantCount: p.MaxDescendants,
		DescendantSize:  p.MaxDescendantSizeKB * 1000,
	}
}
