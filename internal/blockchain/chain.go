// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/wire"
	"github.com/ngocviet/lotusd/internal/progresslog"
)

const (
	// defaultMaxTipAge is the default maximum age of the best chain tip
	// before the chain is considered to be in initial block download.
	defaultMaxTipAge = 24 * time.Hour
)

// ChainTxData describes the transaction history of the chain at some known
// point.  It is used to estimate the verification progress of the chain.
type ChainTxData struct {
	// Time is the timestamp of the last known block.
	Time time.Time

	// TxCount is the total number of transactions between genesis and the
	// last known block.
	TxCount uint64

	// TxRate is the estimated number of transactions per second after the
	// last known block.
	TxRate float64
}

// Config is a descriptor which specifies the block index and best chain
// configuration.
type Config struct {
	// ChainParams identifies which chain parameters the chain is associated
	// with.  When set, the genesis block of the network is inserted into the
	// index and activated on creation.  When nil, the chain starts empty.
	ChainParams *chaincfg.Params

	// PruneMode specifies whether or not the node discards old block data.
	// The pruned block queries are only meaningful when it is set.
	PruneMode bool

	// TxData describes the known transaction history of the chain.
	TxData ChainTxData

	// MaxTipAge is the maximum age of the best chain tip before the chain is
	// considered to be in initial block download.  Zero selects a default.
	MaxTipAge time.Duration

	// TimeSource defines the median time source to use for things such as
	// estimating the verification progress.  The local clock is used when it
	// is not set.
	TimeSource MedianTimeSource
}

// BlockChain provides functions for working with the block index tree and the
// best chain materialized from it.
//
// The block index and chain view carry their own internal mutexes, so each
// individual call is safe for concurrent access.  However, the chain is only
// consistent across several calls, and the writer path is only serialized,
// when the caller holds the chain state lock owned by the chain state facade.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	chainParams *chaincfg.Params
	pruneMode   bool
	txData      ChainTxData
	maxTipAge   time.Duration
	timeSource  MedianTimeSource

	// index houses the entire block index in memory.  The block index is a
	// tree-shaped structure.
	//
	// bestChain tracks the current active chain by making use of an
	// efficient chain view into the block index.
	index     *blockIndex
	bestChain *chainView

	// These loggers show activation and header processing progress.
	progressLogger       *progresslog.Logger
	headerProgressLogger *progresslog.Logger

	// latchedIBD tracks whether the chain has left initial block download.
	// Once set it is never cleared.
	latchedIBD atomic.Bool
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	maxTipAge := config.MaxTipAge
	if maxTipAge == 0 {
		maxTipAge = defaultMaxTipAge
	}
	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = NewMedianTime()
	}

	b := &BlockChain{
		chainParams:          config.ChainParams,
		pruneMode:            config.PruneMode,
		txData:               config.TxData,
		maxTipAge:            maxTipAge,
		timeSource:           timeSource,
		index:                newBlockIndex(),
		bestChain:            newChainView(nil),
		progressLogger:       progresslog.New("Activated", log),
		headerProgressLogger: progresslog.New("Processed", log),
	}

	// Seed the index with the genesis block of the network when the
	// parameters are known.
	if params := config.ChainParams; params != nil {
		genesis := params.GenesisBlock
		node := newBlockNode(&genesis.Header, uint64(len(genesis.Transactions)),
			nil)
		if node.hash != params.GenesisHash {
			str := fmt.Sprintf("genesis block %s does not match the "+
				"network genesis hash %s", node.hash, params.GenesisHash)
			return nil, ruleError(ErrMultipleGenesis, str)
		}
		node.status = statusDataStored | statusValidHeaders | statusValidated
		b.index.AddNode(node)
		b.bestChain.SetTip(node)

		log.Infof("Chain state initialized with %s genesis block %s",
			params.Name, node.hash)
	}

	return b, nil
}

// PruneMode returns whether the chain discards old block data.
func (b *BlockChain) PruneMode() bool {
	return b.pruneMode
}

// AdjustedTime returns the current time adjusted by the median offset of the
// time samples provided by the network.
func (b *BlockChain) AdjustedTime() time.Time {
	return b.timeSource.AdjustedTime()
}

// AddTimeSample adds the time reported by a network source to the samples
// used to compute the adjusted time.  Repeated samples from the same source
// are ignored.
//
// This function is safe for concurrent access.
func (b *BlockChain) AddTimeSample(sourceID string, timeVal time.Time) {
	b.timeSource.AddTimeSample(sourceID, timeVal)
}

// AddBlockHeader inserts the provided header into the block index.  The
// number of transactions is that of the associated block, when known.
//
// The header must connect to a known parent and its height must be exactly
// one more than the parent.  A header at height zero is only accepted as the
// genesis block when the index does not already have one.  Headers that
// descend from a block known to be invalid are added with an invalid ancestor
// status.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) AddBlockHeader(header *wire.BlockHeader, numTxns uint64) error {
	hash := header.BlockHash()
	if b.index.HaveBlock(&hash) {
		str := fmt.Sprintf("already have block %s", hash)
		return ruleError(ErrDuplicateBlock, str)
	}

	var parent *blockNode
	if header.Height == 0 {
		if genesis := b.index.Genesis(); genesis != nil {
			str := fmt.Sprintf("block %s claims height zero while genesis "+
				"block %s is already known", hash, genesis.hash)
			return ruleError(ErrMultipleGenesis, str)
		}
	} else {
		parent = b.index.LookupNode(&header.PrevBlock)
		if parent == nil {
			str := fmt.Sprintf("previous block %s of block %s is not known",
				header.PrevBlock, hash)
			return ruleError(ErrMissingParent, str)
		}
		if int64(header.Height) != parent.height+1 {
			str := fmt.Sprintf("block header commitment to height %d does "+
				"not match chain height %d", header.Height, parent.height+1)
			return ruleError(ErrBadBlockHeight, str)
		}
	}

	node := newBlockNode(header, numTxns, parent)
	node.status = statusValidHeaders
	if parent != nil && b.index.NodeStatus(parent).KnownInvalid() {
		node.status |= statusInvalidAncestor
	}
	b.index.AddNode(node)

	b.headerProgressLogger.LogHeaderProgress(1, false, func() float64 {
		return b.verificationProgress(node)
	})
	return nil
}

// lookupNodeOrErr returns the node for the provided hash or an error that
// wraps ErrUnknownBlock when it is not in the index.
func (b *BlockChain) lookupNodeOrErr(hash *chainhash.Hash) (*blockNode, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return nil, unknownBlockError(hash)
	}
	return node, nil
}

// SetBlockDataStored marks the full block data for the provided hash as
// available from the block store.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) SetBlockDataStored(hash *chainhash.Hash) error {
	node, err := b.lookupNodeOrErr(hash)
	if err != nil {
		return err
	}
	b.index.SetStatusFlags(node, statusDataStored)
	return nil
}

// MarkBlockPruned marks the full block data for the provided hash as no
// longer available.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) MarkBlockPruned(hash *chainhash.Hash) error {
	node, err := b.lookupNodeOrErr(hash)
	if err != nil {
		return err
	}
	b.index.UnsetStatusFlags(node, statusDataStored)
	return nil
}

// MarkBlockValidated marks the block for the provided hash as fully
// validated.  Blocks already known to be invalid are rejected.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) MarkBlockValidated(hash *chainhash.Hash) error {
	node, err := b.lookupNodeOrErr(hash)
	if err != nil {
		return err
	}
	if b.index.NodeStatus(node).KnownInvalid() {
		str := fmt.Sprintf("block %s is known to be invalid", hash)
		return ruleError(ErrKnownInvalidBlock, str)
	}
	b.index.SetStatusFlags(node, statusValidated)
	return nil
}

// MarkBlockFailedValidation marks the block for the provided hash as having
// failed validation and all of its descendants as having an invalid ancestor.
//
// When the block is part of the best chain, the best chain is rewound to its
// parent and the hashes of the detached blocks are returned, tip first.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) MarkBlockFailedValidation(hash *chainhash.Hash) ([]chainhash.Hash, error) {
	node, err := b.lookupNodeOrErr(hash)
	if err != nil {
		return nil, err
	}

	numMarked := b.index.MarkBlockFailedValidation(node)
	log.Debugf("Marked block %s (height %d) invalid along with %d descendants",
		node.hash, node.height, numMarked)

	if !b.bestChain.Contains(node) {
		return nil, nil
	}

	var detached []chainhash.Hash
	for n := b.bestChain.Tip(); n != node.parent; n = n.parent {
		detached = append(detached, n.hash)
	}
	b.bestChain.SetTip(node.parent)
	log.Infof("Rewound best chain by %d blocks to height %d after block %s "+
		"failed validation", len(detached), node.height-1, node.hash)
	return detached, nil
}

// ActivateBestChain sets the best chain to the branch ending in the provided
// block.  It returns the hashes of the blocks that were disconnected from the
// previous best chain, tip first, and those that were connected, in
// ascending height order.
//
// The new best chain replaces the previous one as a whole, so callers holding
// the chain state lock observe either the chain before or after the
// reorganization.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) ActivateBestChain(hash *chainhash.Hash) ([]chainhash.Hash, []chainhash.Hash, error) {
	node, err := b.lookupNodeOrErr(hash)
	if err != nil {
		return nil, nil, err
	}
	if b.index.NodeStatus(node).KnownInvalid() {
		str := fmt.Sprintf("block %s is known to be invalid", hash)
		return nil, nil, ruleError(ErrKnownInvalidBlock, str)
	}

	// Determine the blocks to detach from the current best chain and the
	// blocks to attach from the target branch.  A nil fork point means the
	// view is empty and the entire branch is attached.
	fork := b.bestChain.FindFork(node)
	var detached []chainhash.Hash
	if tip := b.bestChain.Tip(); tip != nil {
		for n := tip; n != fork; n = n.parent {
			detached = append(detached, n.hash)
		}
	}
	var attachNodes []*blockNode
	for n := node; n != fork; n = n.parent {
		attachNodes = append(attachNodes, n)
	}
	attached := make([]chainhash.Hash, len(attachNodes))
	for i := range attachNodes {
		attached[i] = attachNodes[len(attachNodes)-1-i].hash
	}

	b.bestChain.SetTip(node)

	if len(detached) > 0 && fork != nil {
		log.Infof("REORGANIZE: Chain forks at %s (height %d)", fork.hash,
			fork.height)
		log.Infof("REORGANIZE: Old best chain had %d blocks after the fork, "+
			"new best chain has %d", len(detached), len(attached))
	}
	for i := len(attachNodes) - 1; i >= 0; i-- {
		n := attachNodes[i]
		b.progressLogger.LogProgress(n.height, n.numTxns,
			time.Unix(n.timestamp, 0), n == node, func() float64 {
				return b.verificationProgress(n)
			})
	}

	return detached, attached, nil
}
