// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/apbf"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"
	"github.com/ngocviet/lotusd/internal/blockchain"
	"github.com/ngocviet/lotusd/internal/mempool"
)

const (
	// maxRecentlyConfirmedTxns is the minimum number of recently confirmed
	// transaction hashes to remember.
	maxRecentlyConfirmedTxns = 23000

	// recentlyConfirmedTxnsFPRate is the false positive rate of the filter
	// that tracks recently confirmed transactions.
	recentlyConfirmedTxnsFPRate = 0.0000001
)

// BlockStore provides access to the full data of stored blocks.
type BlockStore interface {
	// PutBlock stores the provided block keyed by its hash.
	PutBlock(block *wire.MsgBlock) error

	// FetchBlock returns the block with the provided hash.
	FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)

	// DeleteBlock removes the block with the provided hash.  Deleting a
	// block that is not stored is not an error.
	DeleteBlock(hash *chainhash.Hash) error
}

// Relayer announces inventory to the network.  Announcements are fire and
// forget.
type Relayer interface {
	// RelayInventory announces the provided inventory to connected peers.
	RelayInventory(iv *wire.InvVect)
}

// Config is a descriptor which specifies the chain state facade
// configuration.
type Config struct {
	// Chain is the block index and best chain the facade guards.
	Chain *blockchain.BlockChain

	// TxPool is the memory pool of unconfirmed transactions.
	TxPool *mempool.TxPool

	// BlockStore provides the full data of stored blocks.  It may be nil, in
	// which case block data is neither stored nor returned.
	BlockStore BlockStore

	// Relayer announces transactions to the network.  It may be nil.
	Relayer Relayer
}

// Chain guards the block index, best chain and memory pool behind the chain
// state lock and hands out capabilities to query and modify them.
//
// The chain state lock is always acquired before the mempool lock.  The
// mempool never calls back into the chain state, so the reverse order can't
// arise.
type Chain struct {
	chainMtx sync.Mutex
	chain    *blockchain.BlockChain
	txPool   *mempool.TxPool
	store    BlockStore
	relayer  Relayer

	// recentlyConfirmed tracks transactions confirmed by recently connected
	// blocks so requests and announcements for them can be skipped.  It
	// never gates mempool acceptance since a reorg may return those
	// transactions to the pool.
	confirmedMtx      sync.Mutex
	recentlyConfirmed *apbf.Filter
}

// New returns a chain state facade using the provided configuration details.
func New(cfg *Config) *Chain {
	return &Chain{
		chain:   cfg.Chain,
		txPool:  cfg.TxPool,
		store:   cfg.BlockStore,
		relayer: cfg.Relayer,
		recentlyConfirmed: apbf.NewFilter(maxRecentlyConfirmedTxns,
			recentlyConfirmedTxnsFPRate),
	}
}

// Lock is a capability proving the chain state lock is held.  All chain
// queries and chain writers are methods on it.
//
// A Lock must only be used by the goroutine that obtained it.  Using it after
// it is released is a programming error that panics.
type Lock struct {
	c        *Chain
	held     bool
	released bool
}

// Lock acquires the chain state lock and returns a capability for it.  When
// tryLock is set and the lock is held elsewhere, nil is returned immediately
// instead of waiting, meaning the chain state is temporarily unavailable.
//
// Callers must release the returned lock, typically with a deferred Release.
func (c *Chain) Lock(tryLock bool) *Lock {
	if tryLock {
		if !c.chainMtx.TryLock() {
			return nil
		}
	} else {
		c.chainMtx.Lock()
	}
	return &Lock{c: c, held: true}
}

// AssumeLocked returns a capability for a chain state lock the caller already
// holds through some other means, such as a callback invoked with the lock
// held.  It is not checked at runtime, so calling it without actually holding
// the lock is a programming error.  Releasing the returned capability does
// not release the lock.
func (c *Chain) AssumeLocked() *Lock {
	return &Lock{c: c}
}

// WithLock acquires the chain state lock, invokes the provided function with
// it and releases it on every path out of the function, including panics.
func (c *Chain) WithLock(f func(l *Lock) error) error {
	l := c.Lock(false)
	defer l.Release()
	return f(l)
}

// Release releases the chain state lock when the capability acquired it and
// invalidates the capability.  It is safe to call more than once.
func (l *Lock) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	if l.held {
		l.held = false
		l.c.chainMtx.Unlock()
	}
}

// live returns the chain guarded by the capability and panics when the
// capability was already released.
func (l *Lock) live() *Chain {
	if l.released {
		panicf("use of released chain state lock")
	}
	return l.c
}

// Height returns the height of the best chain tip, or false when the chain is
// empty.
func (l *Lock) Height() (int64, bool) {
	return l.live().chain.BestHeight()
}

// TipHash returns the hash of the best chain tip, or false when the chain is
// empty.
func (l *Lock) TipHash() (chainhash.Hash, bool) {
	return l.live().chain.TipHash()
}

// BlockHash returns the hash of the best chain block at the provided height.
// The height must be in the range of the best chain.
func (l *Lock) BlockHash(height int64) chainhash.Hash {
	return l.live().chain.BlockHashByHeight(height)
}

// BlockTime returns the timestamp of the best chain block at the provided
// height.  The height must be in the range of the best chain.
func (l *Lock) BlockTime(height int64) time.Time {
	return l.live().chain.BlockTimeByHeight(height)
}

// BlockMedianTimePast returns the median time past of the best chain block at
// the provided height.  The height must be in the range of the best chain.
func (l *Lock) BlockMedianTimePast(height int64) time.Time {
	return l.live().chain.BlockMedianTimePastByHeight(height)
}

// HaveBlockOnDisk returns whether the best chain block at the provided height
// has its data stored and contains transactions.
func (l *Lock) HaveBlockOnDisk(height int64) bool {
	return l.live().chain.HaveBlockOnDisk(height)
}

// BlockHeight returns the height of the block with the provided hash, or
// false when it is unknown or not part of the best chain.
func (l *Lock) BlockHeight(hash *chainhash.Hash) (int64, bool) {
	return l.live().chain.BlockHeightByHash(hash)
}

// BlockDepth returns the number of confirmations of the block with the
// provided hash, or zero when it is not part of the best chain.
func (l *Lock) BlockDepth(hash *chainhash.Hash) int64 {
	return l.live().chain.BlockDepth(hash)
}

// LookupBlock returns the index metadata of the block with the provided hash,
// or false when it is unknown.
func (l *Lock) LookupBlock(hash *chainhash.Hash) (blockchain.BlockInfo, bool) {
	return l.live().chain.LookupBlock(hash)
}

// FindFirstBlockWithTimeAndHeight returns the height and hash of the first
// best chain block with a timestamp and height of at least the provided ones.
func (l *Lock) FindFirstBlockWithTimeAndHeight(timestamp time.Time, height int64) (int64, chainhash.Hash, bool) {
	return l.live().chain.FindFirstBlockWithTimeAndHeight(timestamp, height)
}

// FindPruned returns the highest height in the provided range whose block
// data has been pruned.  See blockchain.BlockChain.FindPruned.
func (l *Lock) FindPruned(startHeight, stopHeight int64, hasStop bool) (int64, bool) {
	return l.live().chain.FindPruned(startHeight, stopHeight, hasStop)
}

// FindFork returns the height of the most recent block the best chain shares
// with the branch ending in the provided block along with the height of that
// block.
func (l *Lock) FindFork(hash *chainhash.Hash) (int64, int64, bool) {
	return l.live().chain.FindFork(hash)
}

// IsPotentialTip returns whether the provided block is the best chain tip or
// a descendant of it.
func (l *Lock) IsPotentialTip(hash *chainhash.Hash) bool {
	return l.live().chain.IsPotentialTip(hash)
}

// Locator returns a block locator for the best chain tip.
func (l *Lock) Locator() blockchain.BlockLocator {
	return l.live().chain.LatestBlockLocator()
}

// LocatorFromHash returns a block locator for the block with the provided
// hash.
func (l *Lock) LocatorFromHash(hash *chainhash.Hash) blockchain.BlockLocator {
	return l.live().chain.BlockLocatorFromHash(hash)
}

// FindLocatorFork returns the height of the first locator entry that resolves
// to the best chain.
func (l *Lock) FindLocatorFork(locator blockchain.BlockLocator) (int64, bool) {
	return l.live().chain.FindLocatorFork(locator)
}

// GuessVerificationProgress estimates the fraction of all transactions that
// the chain ending in the provided block includes.
func (l *Lock) GuessVerificationProgress(hash *chainhash.Hash) float64 {
	return l.live().chain.GuessVerificationProgress(hash)
}

// IsInitialBlockDownload returns whether the chain is still catching up to
// the network.
func (l *Lock) IsInitialBlockDownload() bool {
	return l.live().chain.IsInitialBlockDownload()
}

// AddBlockHeader inserts the provided header into the block index.
func (l *Lock) AddBlockHeader(header *wire.BlockHeader, numTxns uint64) error {
	return l.live().chain.AddBlockHeader(header, numTxns)
}

// SetBlockDataStored marks the data of the provided block as stored.
func (l *Lock) SetBlockDataStored(hash *chainhash.Hash) error {
	return l.live().chain.SetBlockDataStored(hash)
}

// MarkBlockPruned marks the data of the provided block as no longer stored.
func (l *Lock) MarkBlockPruned(hash *chainhash.Hash) error {
	return l.live().chain.MarkBlockPruned(hash)
}

// MarkBlockValidated marks the provided block as fully validated.
func (l *Lock) MarkBlockValidated(hash *chainhash.Hash) error {
	return l.live().chain.MarkBlockValidated(hash)
}

// MarkBlockFailedValidation marks the provided block invalid along with its
// descendants and returns the blocks detached from the best chain, if any.
func (l *Lock) MarkBlockFailedValidation(hash *chainhash.Hash) ([]chainhash.Hash, error) {
	return l.live().chain.MarkBlockFailedValidation(hash)
}

// ActivateBestChain makes the branch ending in the provided block the best
// chain and returns the detached and attached block hashes.
func (l *Lock) ActivateBestChain(hash *chainhash.Hash) ([]chainhash.Hash, []chainhash.Hash, error) {
	return l.live().chain.ActivateBestChain(hash)
}

// ConnectBlockTransactions removes the transactions of a block connected to
// the best chain from the mempool, along with any pool transactions that
// conflict with them, and remembers them as recently confirmed.
func (l *Lock) ConnectBlockTransactions(txns []*dcrutil.Tx) {
	c := l.live()
	c.confirmedMtx.Lock()
	for _, tx := range txns {
		c.recentlyConfirmed.Add(tx.Hash()[:])
	}
	c.confirmedMtx.Unlock()
	c.txPool.RemoveConfirmed(txns)
}

// SubmitToMemoryPool adds the provided transaction, paying the provided fee,
// to the mempool at the current best chain height.  Transactions from blocks
// detached by a reorg are accepted like any other.
func (l *Lock) SubmitToMemoryPool(tx *dcrutil.Tx, fee dcrutil.Amount, lockPoints mempool.LockPoints) error {
	c := l.live()
	height, _ := c.chain.BestHeight()
	return c.txPool.MaybeAcceptTransaction(tx, fee, height, lockPoints)
}

// FindBlock returns the index metadata of the block with the provided hash,
// or false when it is unknown.  The full block data is not loaded, see
// Chain.LoadBlockData.
func (l *Lock) FindBlock(hash *chainhash.Hash) (*FoundBlock, bool) {
	info, ok := l.LookupBlock(hash)
	if !ok {
		return nil, false
	}
	return &FoundBlock{BlockInfo: info}, true
}

// FoundBlock houses the details of a block returned by FindBlock.
type FoundBlock struct {
	blockchain.BlockInfo

	// Block is the full block data.  It is only set when requested and the
	// data is stored.
	Block *wire.MsgBlock
}

// FindBlock returns the details of the block with the provided hash, or false
// when it is unknown.  The full block is loaded from the block store when
// requested and available.
//
// The block index is consulted under the chain state lock while the block
// store is read after releasing it.  It acquires the lock itself, so it must
// NOT be called while holding a Lock.  Use Lock.FindBlock followed by
// LoadBlockData instead.
func (c *Chain) FindBlock(hash *chainhash.Hash, wantData bool) (*FoundBlock, bool, error) {
	l := c.Lock(false)
	found, ok := l.FindBlock(hash)
	l.Release()
	if !ok {
		return nil, false, nil
	}
	if !wantData || !found.HaveData || c.store == nil {
		return found, true, nil
	}
	if err := c.LoadBlockData(found); err != nil {
		return nil, true, err
	}
	return found, true, nil
}

// LoadBlockData loads the full data of a block found with Lock.FindBlock from
// the block store.  It does not touch the chain state, so it may be called
// with or without the lock held.
func (c *Chain) LoadBlockData(found *FoundBlock) error {
	hash := &found.Hash
	if !found.HaveData || c.store == nil {
		str := fmt.Sprintf("data of block %v is not stored", hash)
		return contextError(ErrBlockUnavailable, str)
	}
	block, err := c.store.FetchBlock(hash)
	if err != nil {
		return fmt.Errorf("%w: block %v: %w", ErrBlockUnavailable, hash, err)
	}
	found.Block = block
	return nil
}

// StoreBlock writes the full data of the provided block to the block store
// and then marks it stored in the block index.  The header must already be
// known, otherwise the written data is removed again.
func (c *Chain) StoreBlock(block *wire.MsgBlock) error {
	hash := block.BlockHash()
	if c.store == nil {
		str := fmt.Sprintf("no block store for block %v", hash)
		return contextError(ErrBlockUnavailable, str)
	}
	if err := c.store.PutBlock(block); err != nil {
		return err
	}
	err := c.WithLock(func(l *Lock) error {
		return l.SetBlockDataStored(&hash)
	})
	if err != nil {
		if delErr := c.store.DeleteBlock(&hash); delErr != nil {
			log.Errorf("Unable to remove data of block %v: %v", hash, delErr)
		}
		return err
	}
	return nil
}

// PruneBlock marks the data of the provided block as no longer stored and
// then removes it from the block store.
func (c *Chain) PruneBlock(hash *chainhash.Hash) error {
	err := c.WithLock(func(l *Lock) error {
		return l.MarkBlockPruned(hash)
	})
	if err != nil || c.store == nil {
		return err
	}
	return c.store.DeleteBlock(hash)
}

// IsRecentlyConfirmed returns whether the provided transaction was confirmed
// by a recently connected block, in which case requests and announcements
// for it may be skipped.  False positives are possible but rare.
//
// This function is safe for concurrent access.
func (c *Chain) IsRecentlyConfirmed(txHash *chainhash.Hash) bool {
	c.confirmedMtx.Lock()
	defer c.confirmedMtx.Unlock()
	return c.recentlyConfirmed.Contains(txHash[:])
}

// HasDescendantsInMempool returns whether the provided transaction is in the
// mempool and has in-pool descendants.
func (c *Chain) HasDescendantsInMempool(txHash *chainhash.Hash) bool {
	return c.txPool.HasDescendants(txHash)
}

// TransactionAncestry returns the in-pool ancestor count of the provided
// transaction and the largest in-pool descendant count among it and its
// ancestors.
func (c *Chain) TransactionAncestry(txHash *chainhash.Hash) (int64, int64, bool) {
	return c.txPool.TransactionAncestry(txHash)
}

// CheckChainLimits returns an error when the provided transaction would
// violate the mempool package limits.
func (c *Chain) CheckChainLimits(tx *dcrutil.Tx) error {
	return c.txPool.CheckChainLimits(tx)
}

// RelayTransaction announces the provided transaction to the network unless
// it was confirmed by a recently connected block.
func (c *Chain) RelayTransaction(txHash *chainhash.Hash) {
	if c.relayer == nil || c.IsRecentlyConfirmed(txHash) {
		return
	}
	c.relayer.RelayInventory(wire.NewInvVect(wire.InvTypeTx, txHash))
}

// MaxTxFee returns the maximum fee a transaction may pay to enter the mempool.
func (c *Chain) MaxTxFee() dcrutil.Amount {
	return c.txPool.Policy().MaxTxFee
}

// PruneMode returns whether the node discards old block data.
func (c *Chain) PruneMode() bool {
	return c.chain.PruneMode()
}

// AdjustedTime returns the network adjusted time.
func (c *Chain) AdjustedTime() time.Time {
	return c.chain.AdjustedTime()
}

// AddTimeSample records the time reported by the provided network source for
// the network adjusted time.
func (c *Chain) AddTimeSample(sourceID string, timeVal time.Time) {
	c.chain.AddTimeSample(sourceID, timeVal)
}

// MempoolStats returns the number of transactions in the mempool and their
// combined serialized size.
func (c *Chain) MempoolStats() (int, int64) {
	return c.txPool.Count(), c.txPool.TotalSize()
}

// LimitMempoolSize evicts transactions older than the provided expiry and
// then the lowest fee rate packages until the mempool is no larger than the
// provided number of bytes.
func (c *Chain) LimitMempoolSize(maxSize int64, expiry time.Duration) {
	expired := c.txPool.Expire(time.Now().Add(-expiry))
	trimmed := c.txPool.TrimToSize(maxSize)
	if expired > 0 || trimmed > 0 {
		log.Infof("Removed %d expired and %d low fee mempool transactions",
			expired, trimmed)
	}
}
