// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
)

// LockPoints records the chain state a transaction's relative lock times were
// last evaluated against.  The mempool stores them on behalf of the validation
// code and does not interpret them.
type LockPoints struct {
	Height        int64
	Time          int64
	MaxInputBlock *chainhash.Hash
}

// PackageStats houses the aggregate statistics of a transaction together with
// its in-pool ancestors and, separately, its in-pool descendants.  Both sets
// include the transaction itself.
type PackageStats struct {
	CountWithAncestors int64
	SizeWithAncestors  int64
	FeesWithAncestors  dcrutil.Amount

	CountWithDescendants int64
	SizeWithDescendants  int64
	FeesWithDescendants  dcrutil.Amount
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *dcrutil.Tx

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Height is the best chain height when the entry was added to the pool.
	Height int64

	// Fee is the total fee the transaction associated with the entry pays.
	Fee dcrutil.Amount

	// TxSize is the serialized size of the transaction.
	TxSize int64

	// LockPoints are the lock points the transaction was accepted with.
	LockPoints LockPoints

	PackageStats
}

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy
}

// TxPool is used as a source of transactions that need to be mined into blocks
// and relayed to other peers.  It tracks the in-pool spend dependencies of the
// transactions along with the ancestor and descendant aggregates derived from
// them.
//
// It is safe for concurrent access from multiple peers.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated.

	mtx       sync.RWMutex
	cfg       Config
	limits    Limits
	pool      map[chainhash.Hash]*TxDesc
	outpoints map[wire.OutPoint]*dcrutil.Tx
	graph     *txGraph
	totalSize int64

	// rejected maps the transactions rejected by the package limits to the
	// reason they were rejected.  Package limits only relax when
	// transactions leave the pool, so it is cleared on every removal.  It is
	// nil when disabled.
	rejected *lru.Map[chainhash.Hash, error]
}

// haveTransaction returns whether or not the passed transaction hash exists in
// the pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) haveTransaction(hash *chainhash.Hash) bool {
	_, exists := mp.pool[*hash]
	return exists
}

// HaveTransaction returns whether or not the passed transaction hash exists in
// the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(hash *chainhash.Hash) bool {
	mp.mtx.RLock()
	haveTx := mp.haveTransaction(hash)
	mp.mtx.RUnlock()
	return haveTx
}

// inPoolParents returns the unique in-pool transactions the provided
// transaction spends outputs of.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) inPoolParents(tx *dcrutil.Tx) []*TxDesc {
	var parents []*TxDesc
	seen := make(map[chainhash.Hash]struct{}, len(tx.MsgTx().TxIn))
	for _, txIn := range tx.MsgTx().TxIn {
		parentHash := txIn.PreviousOutPoint.Hash
		if _, ok := seen[parentHash]; ok {
			continue
		}
		seen[parentHash] = struct{}{}
		if parent, ok := mp.pool[parentHash]; ok {
			parents = append(parents, parent)
		}
	}
	return parents
}

// inPoolChildren returns the unique in-pool transactions that spend outputs of
// the provided transaction.  This is only ever non-empty for a transaction
// that returns to the pool after its spenders were accepted, such as one from
// a disconnected block.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) inPoolChildren(tx *dcrutil.Tx) []*TxDesc {
	var children []*TxDesc
	seen := make(map[chainhash.Hash]struct{})
	prevOut := wire.OutPoint{Hash: *tx.Hash(), Tree: wire.TxTreeRegular}
	for i := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(i)
		redeemer, ok := mp.outpoints[prevOut]
		if !ok {
			continue
		}
		childHash := *redeemer.Hash()
		if _, ok := seen[childHash]; ok {
			continue
		}
		seen[childHash] = struct{}{}
		children = append(children, mp.pool[childHash])
	}
	return children
}

// unionStats returns the number, combined size and combined fees of the
// transactions in the provided sets, counting any transaction that appears in
// more than one set once.
func unionStats(sets ...map[chainhash.Hash]*TxDesc) (int64, int64, dcrutil.Amount) {
	var count, size int64
	var fees dcrutil.Amount
	seen := make(map[chainhash.Hash]struct{})
	for _, set := range sets {
		for hash, txDesc := range set {
			if _, ok := seen[hash]; ok {
				continue
			}
			seen[hash] = struct{}{}
			count++
			size += txDesc.TxSize
			fees += txDesc.Fee
		}
	}
	return count, size, fees
}

// checkPackageLimits ensures that adding the provided transaction to the pool
// keeps every affected transaction within the ancestor and descendant limits
// of the pool policy.  The transaction is not yet part of the pool and nothing
// is modified.
//
// The ancestor limits are checked first against the full ancestor closure of
// the transaction.  Only once they pass are the descendant limits checked
// against the full descendant closure of every ancestor.  All limits are
// inclusive, so a package exactly at a limit is accepted.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkPackageLimits(txDesc *TxDesc, parents, children []*TxDesc) error {
	limits := mp.limits
	txHash := txDesc.Tx.Hash()
	self := map[chainhash.Hash]*TxDesc{*txHash: txDesc}

	if int64(len(parents))+1 > limits.AncestorCount {
		str := fmt.Sprintf("too many unconfirmed parents [limit: %d]",
			limits.AncestorCount)
		return ruleError(ErrTooManyAncestors, str)
	}

	ancestors := closure(parents, mp.graph.parentsOf)
	descendants := closure(children, mp.graph.childrenOf)

	// Phase one: the transaction and its ancestors.
	ancestorCount, ancestorSize, _ := unionStats(self, ancestors)
	if ancestorCount > limits.AncestorCount {
		str := fmt.Sprintf("too many unconfirmed ancestors [limit: %d]",
			limits.AncestorCount)
		return ruleError(ErrTooManyAncestors, str)
	}
	if ancestorSize > limits.AncestorSize {
		str := fmt.Sprintf("exceeds ancestor size limit [limit: %d]",
			limits.AncestorSize)
		return ruleError(ErrAncestorSizeLimit, str)
	}

	// Any spenders already in the pool inherit the transaction and all of
	// its ancestors.
	for hash, desc := range descendants {
		count, size, _ := unionStats(map[chainhash.Hash]*TxDesc{hash: desc},
			mp.graph.ancestors(&hash), self, ancestors)
		if count > limits.AncestorCount {
			str := fmt.Sprintf("too many unconfirmed ancestors for tx %v "+
				"[limit: %d]", hash, limits.AncestorCount)
			return ruleError(ErrTooManyAncestors, str)
		}
		if size > limits.AncestorSize {
			str := fmt.Sprintf("exceeds ancestor size limit for tx %v "+
				"[limit: %d]", hash, limits.AncestorSize)
			return ruleError(ErrAncestorSizeLimit, str)
		}
	}

	// Phase two: the transaction and every ancestor with the full set of
	// descendants each would have after acceptance.
	count, size, _ := unionStats(self, descendants)
	if count > limits.DescendantCount {
		str := fmt.Sprintf("too many descendants for tx %v [limit: %d]",
			txHash, limits.DescendantCount)
		return ruleError(ErrTooManyDescendants, str)
	}
	if size > limits.DescendantSize {
		str := fmt.Sprintf("exceeds descendant size limit for tx %v "+
			"[limit: %d]", txHash, limits.DescendantSize)
		return ruleError(ErrDescendantSizeLimit, str)
	}
	for hash, ancestor := range ancestors {
		count, size, _ := unionStats(
			map[chainhash.Hash]*TxDesc{hash: ancestor},
			mp.graph.descendants(&hash), self, descendants)
		if count > limits.DescendantCount {
			str := fmt.Sprintf("too many descendants for tx %v "+
				"[limit: %d]", hash, limits.DescendantCount)
			return ruleError(ErrTooManyDescendants, str)
		}
		if size > limits.DescendantSize {
			str := fmt.Sprintf("exceeds descendant size limit for tx %v "+
				"[limit: %d]", hash, limits.DescendantSize)
			return ruleError(ErrDescendantSizeLimit, str)
		}
	}

	return nil
}

// calcPackageStats computes the aggregate statistics of the provided pool
// transaction by traversing its full ancestor and descendant sets.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) calcPackageStats(txDesc *TxDesc) PackageStats {
	txHash := txDesc.Tx.Hash()
	self := map[chainhash.Hash]*TxDesc{*txHash: txDesc}

	var stats PackageStats
	stats.CountWithAncestors, stats.SizeWithAncestors,
		stats.FeesWithAncestors = unionStats(self, mp.graph.ancestors(txHash))
	stats.CountWithDescendants, stats.SizeWithDescendants,
		stats.FeesWithDescendants = unionStats(self, mp.graph.descendants(txHash))
	return stats
}

// updateAggregates recomputes the aggregate statistics of every provided pool
// transaction.  It is the only place the aggregates are written and must be
// called with every transaction whose ancestor or descendant set changed.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) updateAggregates(affected map[chainhash.Hash]*TxDesc) {
	for _, txDesc := range affected {
		txDesc.PackageStats = mp.calcPackageStats(txDesc)
	}
}

// checkAggregates recomputes the aggregates of every pool transaction from
// scratch and returns an error describing the first one that does not match
// the stored values.  It also verifies the tracked total pool size.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkAggregates() error {
	var totalSize int64
	for hash, txDesc := range mp.pool {
		totalSize += txDesc.TxSize
		want := mp.calcPackageStats(txDesc)
		if txDesc.PackageStats != want {
			return fmt.Errorf("aggregates for tx %v are %+v, but "+
				"traversal gives %+v", hash, txDesc.PackageStats, want)
		}
	}
	if totalSize != mp.totalSize {
		return fmt.Errorf("tracked pool size is %d, but transactions "+
			"total %d", mp.totalSize, totalSize)
	}
	return nil
}

// CheckAggregates recomputes the ancestor and descendant aggregates of every
// transaction in the pool and returns an error when any of them differ from
// the stored values.
//
// This function is safe for concurrent access.
func (mp *TxPool) CheckAggregates() error {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.checkAggregates()
}

// maybeSanityCheck performs a full consistency check of the pool aggregates
// when enabled by the policy.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) maybeSanityCheck() {
	if !mp.cfg.Policy.SanityChecks {
		return
	}
	if err := mp.checkAggregates(); err != nil {
		panicf("mempool inconsistency: %v", err)
	}
}

// addTransaction adds the passed transaction to the memory pool and relates it
// to its in-pool parents and children.  It should not be called directly as
// it doesn't perform any policy checks.  This is a helper for
// maybeAcceptTransaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addTransaction(txDesc *TxDesc, parents, children []*TxDesc) {
	tx := txDesc.Tx
	txHash := *tx.Hash()
	mp.pool[txHash] = txDesc
	for _, txIn := range tx.MsgTx().TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = tx
	}
	mp.totalSize += txDesc.TxSize
	for _, parent := range parents {
		mp.graph.addEdge(parent, txDesc)
	}
	for _, child := range children {
		mp.graph.addEdge(txDesc, child)
	}

	affected := mp.graph.ancestors(&txHash)
	for hash, desc := range mp.graph.descendants(&txHash) {
		affected[hash] = desc
	}
	affected[txHash] = txDesc
	mp.updateAggregates(affected)

	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	mp.maybeSanityCheck()
}

// removeTransactions removes the provided set of transactions from the pool
// and recomputes the aggregates of the remaining transactions that were
// related to them.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransactions(set map[chainhash.Hash]*TxDesc) {
	if len(set) == 0 {
		return
	}

	// Determine the remaining transactions whose ancestor or descendant
	// sets shrink before the edges are gone.
	affected := make(map[chainhash.Hash]*TxDesc)
	for hash := range set {
		for relHash, desc := range mp.graph.ancestors(&hash) {
			affected[relHash] = desc
		}
		for relHash, desc := range mp.graph.descendants(&hash) {
			affected[relHash] = desc
		}
	}
	for hash := range set {
		delete(affected, hash)
	}

	for hash, txDesc := range set {
		log.Tracef("Removing transaction %v", hash)

		// Mark the referenced outpoints as unspent by the pool.
		for _, txIn := range txDesc.Tx.MsgTx().TxIn {
			delete(mp.outpoints, txIn.PreviousOutPoint)
		}
		mp.graph.remove(&hash)
		delete(mp.pool, hash)
		mp.totalSize -= txDesc.TxSize
	}
	mp.updateAggregates(affected)
	mp.clearRejected()

	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
	mp.maybeSanityCheck()
}

// clearRejected forgets all transactions rejected by the package limits.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) clearRejected() {
	if mp.rejected != nil {
		mp.rejected.Clear()
	}
}

// withDescendants returns the provided pool transaction together with all of
// its in-pool descendants.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) withDescendants(txDesc *TxDesc) map[chainhash.Hash]*TxDesc {
	return closure([]*TxDesc{txDesc}, mp.graph.childrenOf)
}

// removeTransaction is the internal function which implements the public
// RemoveTransaction.  See the comment for RemoveTransaction for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(txHash *chainhash.Hash, removeRedeemers bool) {
	txDesc, exists := mp.pool[*txHash]
	if !exists {
		return
	}
	set := map[chainhash.Hash]*TxDesc{*txHash: txDesc}
	if removeRedeemers {
		set = mp.withDescendants(txDesc)
	}
	mp.removeTransactions(set)
}

// RemoveTransaction removes the passed transaction from the mempool.  When the
// removeRedeemers flag is set, any transactions that redeem outputs from the
// removed transaction will also be removed recursively from the mempool, as
// they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *dcrutil.Tx, removeRedeemers bool) {
	mp.mtx.Lock()
	mp.removeTransaction(tx.Hash(), removeRedeemers)
	mp.mtx.Unlock()
}

// removeDoubleSpends removes all transactions which spend outputs spent by the
// passed transaction along with their descendants.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeDoubleSpends(tx *dcrutil.Tx) {
	for _, txIn := range tx.MsgTx().TxIn {
		txRedeemer, ok := mp.outpoints[txIn.PreviousOutPoint]
		if !ok || txRedeemer.Hash().IsEqual(tx.Hash()) {
			continue
		}
		log.Debugf("Removing double spend transaction %v of %v",
			txRedeemer.Hash(), tx.Hash())
		mp.removeTransaction(txRedeemer.Hash(), true)
	}
}

// RemoveDoubleSpends removes all transactions which spend outputs spent by the
// passed transaction from the memory pool.  Removing those transactions then
// leads to removing all transactions which rely on them, recursively.  This is
// necessary when a block is connected to the main chain because the block may
// contain transactions which were previously unknown to the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveDoubleSpends(tx *dcrutil.Tx) {
	mp.mtx.Lock()
	mp.removeDoubleSpends(tx)
	mp.mtx.Unlock()
}

// RemoveConfirmed removes the transactions of a newly connected block from the
// pool.  The confirmed transactions themselves are removed without their
// descendants, which remain valid and now spend confirmed outputs, while any
// pool transactions that conflict with them are removed along with their
// descendants.  The recently rejected transactions are forgotten since the
// new chain state may allow them.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveConfirmed(txns []*dcrutil.Tx) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, tx := range txns {
		mp.removeTransaction(tx.Hash(), false)
		mp.removeDoubleSpends(tx)
	}
	mp.clearRejected()
}

// Expire removes all transactions added to the pool before the provided cutoff
// time, along with their descendants, and returns the number of transactions
// removed.
//
// This function is safe for concurrent access.
func (mp *TxPool) Expire(cutoff time.Time) int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	set := make(map[chainhash.Hash]*TxDesc)
	for _, txDesc := range mp.pool {
		if !txDesc.Added.Before(cutoff) {
			continue
		}
		for hash, desc := range mp.withDescendants(txDesc) {
			set[hash] = desc
		}
	}
	mp.removeTransactions(set)
	if len(set) > 0 {
		log.Debugf("Expired %d %s (remaining: %d)", len(set),
			pickNoun(len(set), "transaction", "transactions"), len(mp.pool))
	}
	return len(set)
}

// lowerDescendantScore returns whether the first transaction pays a lower fee
// rate than the second when each is considered together with its descendants.
// Ties are broken by hash so the order is total.
func lowerDescendantScore(a, b *TxDesc) bool {
	rateA := float64(a.FeesWithDescendants) / float64(a.SizeWithDescendants)
	rateB := float64(b.FeesWithDescendants) / float64(b.SizeWithDescendants)
	if rateA != rateB {
		return rateA < rateB
	}
	return bytes.Compare(a.Tx.Hash()[:], b.Tx.Hash()[:]) < 0
}

// TrimToSize evicts transactions until the combined serialized size of the
// pool is no more than the provided number of bytes.  The transaction with the
// lowest fee rate including its descendants is evicted first, together with
// its descendants.  It returns the number of transactions removed.
//
// This function is safe for concurrent access.
func (mp *TxPool) TrimToSize(maxSize int64) int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var numRemoved int
	for mp.totalSize > maxSize && len(mp.pool) > 0 {
		var worst *TxDesc
		for _, txDesc := range mp.pool {
			if worst == nil || lowerDescendantScore(txDesc, worst) {
				worst = txDesc
			}
		}
		set := mp.withDescendants(worst)
		mp.removeTransactions(set)
		numRemoved += len(set)
	}
	if numRemoved > 0 {
		log.Debugf("Trimmed %d %s to keep the pool under %d bytes",
			numRemoved, pickNoun(numRemoved, "transaction",
				"transactions"), maxSize)
	}
	return numRemoved
}

// newTxDesc returns a descriptor for the provided transaction that is not yet
// part of the pool.
func newTxDesc(tx *dcrutil.Tx, fee dcrutil.Amount, height int64, lockPoints LockPoints) *TxDesc {
	return &TxDesc{
		Tx:         tx,
		Added:      time.Now(),
		Height:     height,
		Fee:        fee,
		TxSize:     int64(tx.MsgTx().SerializeSize()),
		LockPoints: lockPoints,
	}
}

// maybeAcceptTransaction is the internal function which implements the public
// MaybeAcceptTransaction.  See the comment for MaybeAcceptTransaction for
// more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *dcrutil.Tx, fee dcrutil.Amount, height int64, lockPoints LockPoints) error {
	txHash := tx.Hash()

	// Don't accept the transaction if it already exists in the pool.
	if mp.haveTransaction(txHash) {
		str := fmt.Sprintf("already have transaction %v", txHash)
		return ruleError(ErrDuplicate, str)
	}

	// Don't reevaluate a transaction the package limits rejected while the
	// pool has only grown since.
	if mp.rejected != nil {
		if err, ok := mp.rejected.Get(*txHash); ok {
			return err
		}
	}

	// Reject absurdly high fees.
	if maxFee := mp.cfg.Policy.MaxTxFee; maxFee > 0 && fee > maxFee {
		str := fmt.Sprintf("transaction %v has %v fees which is above the "+
			"allowed max of %v", txHash, fee, maxFee)
		return ruleError(ErrFeeTooHigh, str)
	}

	// The transaction may not use any of the same outputs as other
	// transactions already in the pool as that would ultimately result in a
	// double spend.
	for _, txIn := range tx.MsgTx().TxIn {
		if txR, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			str := fmt.Sprintf("output %v already spent by transaction %v "+
				"in the memory pool", txIn.PreviousOutPoint, txR.Hash())
			return ruleError(ErrMempoolDoubleSpend, str)
		}
	}

	tx.SetTree(wire.TxTreeRegular)
	txDesc := newTxDesc(tx, fee, height, lockPoints)
	parents := mp.inPoolParents(tx)
	children := mp.inPoolChildren(tx)
	if err := mp.checkPackageLimits(txDesc, parents, children); err != nil {
		if mp.rejected != nil {
			mp.rejected.Put(*txHash, err)
		}
		return err
	}

	mp.addTransaction(txDesc, parents, children)

	log.Debugf("Accepted transaction %v (pool size: %v)", txHash,
		len(mp.pool))
	return nil
}

// MaybeAcceptTransaction adds the provided transaction to the pool when doing
// so keeps it and every related pool transaction within the ancestor and
// descendant limits of the pool policy.  The fee, best chain height and lock
// points are those determined by the validation code.
//
// Either the transaction is added and every affected aggregate is updated, or
// an error is returned and the pool is left untouched.  Errors are of type
// RuleError.
//
// This function is safe for concurrent access.
func (mp *TxPool) MaybeAcceptTransaction(tx *dcrutil.Tx, fee dcrutil.Amount, height int64, lockPoints LockPoints) error {
	mp.mtx.Lock()
	err := mp.maybeAcceptTransaction(tx, fee, height, lockPoints)
	mp.mtx.Unlock()
	return err
}

// CheckChainLimits returns an error when adding the provided transaction to
// the pool would violate the ancestor or descendant limits of the pool
// policy.  The pool is not modified.
//
// This function is safe for concurrent access.
func (mp *TxPool) CheckChainLimits(tx *dcrutil.Tx) error {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	txDesc := newTxDesc(tx, 0, 0, LockPoints{})
	return mp.checkPackageLimits(txDesc, mp.inPoolParents(tx),
		mp.inPoolChildren(tx))
}

// TransactionAncestry returns the number of in-pool ancestors of the
// transaction with the provided hash, and the largest number of in-pool
// descendants of the transaction or any of those ancestors.  Both counts
// include the transaction itself.  It returns false when the transaction is
// not in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TransactionAncestry(txHash *chainhash.Hash) (int64, int64, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	txDesc, ok := mp.pool[*txHash]
	if !ok {
		return 0, 0, false
	}
	descendants := txDesc.CountWithDescendants
	for _, ancestor := range mp.graph.ancestors(txHash) {
		if ancestor.CountWithDescendants > descendants {
			descendants = ancestor.CountWithDescendants
		}
	}
	return txDesc.CountWithAncestors, descendants, true
}

// HasDescendants returns whether the transaction with the provided hash is in
// the pool and has at least one in-pool descendant.
//
// This function is safe for concurrent access.
func (mp *TxPool) HasDescendants(txHash *chainhash.Hash) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	txDesc, ok := mp.pool[*txHash]
	return ok && txDesc.CountWithDescendants > 1
}

// FetchTxDesc returns a copy of the descriptor of the transaction with the
// provided hash, or false when it is not in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTxDesc(txHash *chainhash.Hash) (TxDesc, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	txDesc, ok := mp.pool[*txHash]
	if !ok {
		return TxDesc{}, false
	}
	return *txDesc, true
}

// Count returns the number of transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()

	return count
}

// TotalSize returns the combined serialized size of the transactions in the
// pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TotalSize() int64 {
	mp.mtx.RLock()
	size := mp.totalSize
	mp.mtx.RUnlock()

	return size
}

// TxDescs returns a slice of copies of the descriptors for all the
// transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []TxDesc {
	mp.mtx.RLock()
	descs := make([]TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, *desc)
	}
	mp.mtx.RUnlock()

	return descs
}

// LastUpdated returns the last time a transaction was added to or removed from
// the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// Policy returns the policy the pool was created with.
func (mp *TxPool) Policy() Policy {
	return mp.cfg.Policy
}

// New returns a new memory pool for tracking unconfirmed transactions and
// their spend dependencies until they are mined into a block.
func New(cfg *Config) *TxPool {
	mp := &TxPool{
		cfg:       *cfg,
		limits:    cfg.Policy.Limits(),
		pool:      make(map[chainhash.Hash]*TxDesc),
		outpoints: make(map[wire.OutPoint]*dcrutil.Tx),
		graph:     newTxGraph(),
	}
	if cfg.Policy.RejectCacheSize > 0 {
		mp.rejected = lru.NewMap[chainhash.Hash, error](
			cfg.Policy.RejectCacheSize)
	}
	return mp
}
