// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"encoding/binary"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
)

// testPolicy returns a policy with package limits that are large enough to
// never be hit by the tests unless they override them.
func testPolicy() Policy {
	return Policy{
		MaxAncestors:        1000,
		MaxAncestorSizeKB:   10000,
		MaxDescendants:      1000,
		MaxDescendantSizeKB: 10000,
		SanityChecks:        true,
	}
}

// testReporter is the subset of the test interfaces shared by *testing.T and
// *rapid.T that the harness reports failures through.
type testReporter interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// poolHarness provides a memory pool along with helpers to create chains of
// transactions that spend each other.
type poolHarness struct {
	t     testReporter
	pool  *TxPool
	nonce uint32
}

// newPoolHarness returns a harness with a new pool using the provided policy.
func newPoolHarness(t testReporter, policy Policy) *poolHarness {
	return &poolHarness{t: t, pool: New(&Config{Policy: policy})}
}

// confirmedOutPoint returns a unique outpoint that is not spendable from any
// pool transaction.
func (h *poolHarness) confirmedOutPoint() wire.OutPoint {
	var hash chainhash.Hash
	binary.LittleEndian.PutUint32(hash[:], h.nonce)
	hash[31] = 0xff
	h.nonce++
	return wire.OutPoint{Hash: hash, Tree: wire.TxTreeRegular}
}

// newTx returns a transaction with the requested number of outputs, each with
// a pkScript of the provided size, that spends the provided outpoints.  A
// confirmed outpoint is spent when none are provided.
func (h *poolHarness) newTx(numOutputs, scriptSize int, spends ...wire.OutPoint) *dcrutil.Tx {
	if len(spends) == 0 {
		spends = []wire.OutPoint{h.confirmedOutPoint()}
	}
	msgTx := wire.NewMsgTx()
	for i := range spends {
		msgTx.AddTxIn(wire.NewTxIn(&spends[i], 1000, nil))
	}
	for i := 0; i < numOutputs; i++ {
		msgTx.AddTxOut(wire.NewTxOut(1000, make([]byte, scriptSize)))
	}
	msgTx.LockTime = h.nonce
	h.nonce++
	return dcrutil.NewTx(msgTx)
}

// spendTx returns a transaction with two outputs that spends the provided
// outpoints.
func (h *poolHarness) spendTx(spends ...wire.OutPoint) *dcrutil.Tx {
	return h.newTx(2, 25, spends...)
}

// accept adds the provided transaction to the pool with the provided fee and
// fails the test on error.
func (h *poolHarness) accept(tx *dcrutil.Tx, fee dcrutil.Amount) {
	h.t.Helper()
	if err := h.pool.MaybeAcceptTransaction(tx, fee, 100, LockPoints{}); err != nil {
		h.t.Fatalf("MaybeAcceptTransaction(%v): unexpected error: %v",
			tx.Hash(), err)
	}
}

// stats returns the aggregates of the pool transaction for the provided tx
// and fails the test when it is not in the pool.
func (h *poolHarness) stats(tx *dcrutil.Tx) PackageStats {
	h.t.Helper()
	txDesc, ok := h.pool.FetchTxDesc(tx.Hash())
	if !ok {
		h.t.Fatalf("transaction %v is not in the pool", tx.Hash())
	}
	return txDesc.PackageStats
}

// outPoint returns the regular tree outpoint for the provided output index of
// the transaction.
func outPoint(tx *dcrutil.Tx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: *tx.Hash(), Index: index, Tree: wire.TxTreeRegular}
}

// txSize returns the serialized size of the provided transaction.
func txSize(tx *dcrutil.Tx) int64 {
	return int64(tx.MsgTx().SerializeSize())
}
