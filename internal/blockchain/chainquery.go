// Copyright (c) 2018-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// BlockInfo houses the index metadata about a block.
type BlockInfo struct {
	Hash          chainhash.Hash
	Height        int64
	Timestamp     time.Time
	MaxTimestamp  time.Time
	MedianTime    time.Time
	NumTxns       uint64
	ChainTxCount  uint64
	HaveData      bool
	InActiveChain bool
	Validity      BlockValidity
}

// BestHeight returns the height of the tip of the best chain and true, or
// false when the best chain is empty.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BestHeight() (int64, bool) {
	height := b.bestChain.Height()
	if height < 0 {
		return 0, false
	}
	return height, true
}

// TipHash returns the hash of the tip of the best chain and true, or false
// when the best chain is empty.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) TipHash() (chainhash.Hash, bool) {
	tip := b.bestChain.Tip()
	if tip == nil {
		return chainhash.Hash{}, false
	}
	return tip.hash, true
}

// mustNodeByHeight returns the best chain node at the provided height.  The
// height must be in the range of the best chain, which the caller is expected
// to have checked via BestHeight.  Violating that is a programming error and
// results in a panic.
func (b *BlockChain) mustNodeByHeight(height int64) *blockNode {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		panicf("requested height %d is outside of the best chain "+
			"(tip height %d)", height, b.bestChain.Height())
	}
	return node
}

// BlockHashByHeight returns the hash of the best chain block at the provided
// height.  The height must be in the range of the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockHashByHeight(height int64) chainhash.Hash {
	return b.mustNodeByHeight(height).hash
}

// BlockTimeByHeight returns the timestamp of the best chain block at the
// provided height.  The height must be in the range of the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockTimeByHeight(height int64) time.Time {
	return time.Unix(b.mustNodeByHeight(height).timestamp, 0)
}

// BlockMedianTimePastByHeight returns the median time of the best chain block
// at the provided height and the blocks before it.  The height must be in the
// range of the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockMedianTimePastByHeight(height int64) time.Time {
	return b.mustNodeByHeight(height).CalcPastMedianTime()
}

// HaveBlockOnDisk returns whether the best chain block at the provided height
// has its full data stored and is known to contain transactions.  It returns
// false for heights outside of the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) HaveBlockOnDisk(height int64) bool {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		return false
	}
	return b.index.NodeStatus(node).HaveData() && node.numTxns > 0
}

// BlockHeightByHash returns the height of the block with the provided hash in
// the best chain.  It returns false when the block is unknown or not part of
// the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockHeightByHash(hash *chainhash.Hash) (int64, bool) {
	node := b.index.LookupNode(hash)
	if node == nil || !b.bestChain.Contains(node) {
		return 0, false
	}
	return node.height, true
}

// BlockDepth returns the number of confirmations of the block with the
// provided hash, that is one for the tip and increasing towards genesis.  It
// returns zero when the block is unknown or not part of the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockDepth(hash *chainhash.Hash) int64 {
	height, ok := b.BlockHeightByHash(hash)
	if !ok {
		return 0
	}
	return b.bestChain.Height() - height + 1
}

// LookupBlock returns the index metadata of the block with the provided hash
// whether or not it is part of the best chain.  It returns false when the
// block is unknown.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) LookupBlock(hash *chainhash.Hash) (BlockInfo, bool) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return BlockInfo{}, false
	}
	status := b.index.NodeStatus(node)
	return BlockInfo{
		Hash:          node.hash,
		Height:        node.height,
		Timestamp:     time.Unix(node.timestamp, 0),
		MaxTimestamp:  time.Unix(node.timeMax, 0),
		MedianTime:    node.CalcPastMedianTime(),
		NumTxns:       node.numTxns,
		ChainTxCount:  node.chainTxCount,
		HaveData:      status.HaveData(),
		InActiveChain: b.bestChain.Contains(node),
		Validity:      status.validity(),
	}, true
}

// FindFirstBlockWithTimeAndHeight returns the height and hash of the first
// best chain block, by ascending height, with a timestamp of at least the
// provided time and a height of at least the provided height.  It returns
// false when there is no such block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) FindFirstBlockWithTimeAndHeight(timestamp time.Time, height int64) (int64, chainhash.Hash, bool) {
	node := b.bestChain.FindEarliestAtLeast(timestamp.Unix(), height)
	if node == nil {
		return 0, chainhash.Hash{}, false
	}
	return node.height, node.hash, true
}

// FindFirstBlockWithTime returns the height and hash of the first best chain
// block, by ascending height, with a timestamp of at least the provided time.
// It returns false when there is no such block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) FindFirstBlockWithTime(timestamp time.Time) (int64, chainhash.Hash, bool) {
	return b.FindFirstBlockWithTimeAndHeight(timestamp, 0)
}

// FindPruned walks the best chain backwards from the stop height, or from the
// tip when hasStop is false, down to the start height and returns the first
// height whose block data is not stored.  It returns false when every block in
// the range has its data or the node does not run in prune mode.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) FindPruned(startHeight, stopHeight int64, hasStop bool) (int64, bool) {
	if !b.pruneMode {
		return 0, false
	}

	node := b.bestChain.Tip()
	if hasStop {
		node = b.bestChain.NodeByHeight(stopHeight)
	}
	for ; node != nil && node.height >= startHeight; node = node.parent {
		if !b.index.NodeStatus(node).HaveData() {
			return node.height, true
		}
	}
	return 0, false
}

// FindFork returns the height of the most recent block shared by the best
// chain and the branch ending in the block with the provided hash, along with
// the height of that block.  The block may be off the best chain.  It returns
// false when the block is unknown or there is no common block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) FindFork(hash *chainhash.Hash) (int64, int64, bool) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return 0, 0, false
	}
	fork := b.bestChain.FindFork(node)
	if fork == nil {
		return 0, node.height, false
	}
	return fork.height, node.height, true
}

// IsPotentialTip returns whether the block with the provided hash is either
// the current tip or a descendant of it.  That is, whether the block would be
// the tip or could become it by extending the best chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) IsPotentialTip(hash *chainhash.Hash) bool {
	tip := b.bestChain.Tip()
	if tip == nil {
		return false
	}
	if tip.hash == *hash {
		return true
	}
	node := b.index.LookupNode(hash)
	return node != nil && node.Ancestor(tip.height) == tip
}

// LatestBlockLocator returns a block locator for the current tip of the best
// chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) LatestBlockLocator() BlockLocator {
	return b.bestChain.BlockLocator(nil)
}

// BlockLocatorFromHash returns a block locator for the block with the provided
// hash.  The locator for the current tip is returned when the hash is unknown.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) BlockLocatorFromHash(hash *chainhash.Hash) BlockLocator {
	return b.bestChain.BlockLocator(b.index.LookupNode(hash))
}

// FindLocatorFork returns the height of the first block in the provided
// locator, in its most-recent-first order, that is part of the best chain.  A
// locator entry for a block that descends from the current tip resolves to
// the tip.  It returns false when no entry resolves, in which case callers
// typically fall back to the genesis block.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) FindLocatorFork(locator BlockLocator) (int64, bool) {
	tip := b.bestChain.Tip()
	if tip == nil {
		return 0, false
	}
	for _, hash := range locator {
		node := b.index.LookupNode(hash)
		if node == nil {
			continue
		}
		if b.bestChain.Contains(node) {
			return node.height, true
		}
		if node.Ancestor(tip.height) == tip {
			return tip.height, true
		}
	}
	return 0, false
}

// verificationProgress returns an estimate of the fraction of all
// transactions ever made that are included in the chain ending in the
// provided node.
func (b *BlockChain) verificationProgress(node *blockNode) float64 {
	if node == nil {
		return 0
	}

	now := b.timeSource.AdjustedTime().Unix()
	chainTxCount := float64(node.chainTxCount)
	var txTotal float64
	if node.chainTxCount <= b.txData.TxCount {
		elapsed := now - b.txData.Time.Unix()
		txTotal = float64(b.txData.TxCount) + float64(elapsed)*b.txData.TxRate
	} else {
		elapsed := now - node.timestamp
		txTotal = chainTxCount + float64(elapsed)*b.txData.TxRate
	}
	if txTotal <= 0 {
		return 1
	}
	return math.Min(chainTxCount/txTotal, 1)
}

// GuessVerificationProgress returns an estimate of the fraction of all
// transactions ever made that are included in the chain ending in the block
// with the provided hash.  It returns zero when the block is unknown.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) GuessVerificationProgress(hash *chainhash.Hash) float64 {
	return b.verificationProgress(b.index.LookupNode(hash))
}

// IsInitialBlockDownload returns whether or not the chain believes it is
// still catching up to the network.  The best chain is considered current
// once its tip is no older than the maximum tip age, after which this latches
// to false for the life of the instance.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) IsInitialBlockDownload() bool {
	if b.latchedIBD.Load() {
		return false
	}
	tip := b.bestChain.Tip()
	if tip == nil {
		return true
	}
	minTime := b.timeSource.AdjustedTime().Add(-b.maxTipAge)
	if time.Unix(tip.timestamp, 0).Before(minTime) {
		return true
	}
	log.Info("Leaving initial block download")
	b.latchedIBD.Store(true)
	return false
}
