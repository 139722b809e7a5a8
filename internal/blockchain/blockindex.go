// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2018-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
)

// medianTimeBlocks is the number of previous blocks which should be used to
// calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

// blockStatus is a bit field representing the validation state of the block.
type blockStatus byte

// The following constants specify possible status bit flags for a block.
//
// NOTE: This section specifically does not use iota since the block status may
// be persisted by a storage collaborator and must be stable.
const (
	// statusNone indicates that the block has no validation state flags set.
	statusNone blockStatus = 0

	// statusDataStored indicates that the block's payload is stored on disk.
	statusDataStored blockStatus = 1 << 0

	// statusValidated indicates that the block has been fully validated.  It
	// also means that all of its ancestors have also been validated.
	statusValidated blockStatus = 1 << 1

	// statusValidateFailed indicates that the block has failed validation.
	statusValidateFailed blockStatus = 1 << 2

	// statusInvalidAncestor indicates that one of the ancestors of the block
	// has failed validation, thus the block is also invalid.
	statusInvalidAncestor blockStatus = 1 << 3

	// statusValidHeaders indicates that the header connected to a known
	// parent and passed the positional checks of the block index.
	statusValidHeaders blockStatus = 1 << 4
)

// HaveData returns whether the full block data is stored in the database.  This
// will return false for a block node where only the header is downloaded or
// stored, as well as for blocks whose data was pruned.
func (status blockStatus) HaveData() bool {
	return status&statusDataStored != 0
}

// HasValidated returns whether the block is known to have been successfully
// validated.  A return value of false in no way implies the block is invalid.
func (status blockStatus) HasValidated() bool {
	return status&statusValidated != 0
}

// KnownInvalid returns whether either the block itself is known to be invalid
// or to have an invalid ancestor.  A return value of false in no way implies
// the block is valid or only has valid ancestors.
func (status blockStatus) KnownInvalid() bool {
	return status&(statusValidateFailed|statusInvalidAncestor) != 0
}

// KnownInvalidAncestor returns whether the block is known to have an invalid
// ancestor.
func (status blockStatus) KnownInvalidAncestor() bool {
	return status&(statusInvalidAncestor) != 0
}

// BlockValidity describes how far validation of a block has progressed.
type BlockValidity uint8

// These constants define the possible validity states of a block.
const (
	// ValidityUnknown indicates nothing is known about the block beyond its
	// presence in the index.
	ValidityUnknown BlockValidity = iota

	// ValidityHeaders indicates the header is valid and connects to the
	// block tree.
	ValidityHeaders

	// ValidityData indicates the full block has been validated.
	ValidityData

	// ValidityInvalid indicates the block, or one of its ancestors, failed
	// validation.
	ValidityInvalid
)

// String returns the validity state as a human-readable name.
func (v BlockValidity) String() string {
	switch v {
	case ValidityUnknown:
		return "unknown"
	case ValidityHeaders:
		return "valid-headers"
	case ValidityData:
		return "valid-data"
	case ValidityInvalid:
		return "invalid"
	}
	return "unrecognized"
}

// validity maps the status flags to the coarse validity state.
func (status blockStatus) validity() BlockValidity {
	switch {
	case status.KnownInvalid():
		return ValidityInvalid
	case status.HasValidated():
		return ValidityData
	case status&statusValidHeaders != 0:
		return ValidityHeaders
	}
	return ValidityUnknown
}

// blockNode represents a block within the block tree.  The identity fields
// (hash, height, parent, skipToAncestor) are immutable once the node is added
// to the index.  Only the status may change afterwards.
type blockNode struct {
	// parent is the parent block for this node.  It is a back reference into
	// the index and is nil for the genesis block.
	parent *blockNode

	// skipToAncestor is used to provide a skip list to significantly speed up
	// traversal to ancestors deep in history.
	skipToAncestor *blockNode

	// hash is the hash of the block this node represents.
	hash chainhash.Hash

	// height is the position of the block in the tree.  Genesis is zero.
	height int64

	// timestamp is the block time from the header and timeMax is the maximum
	// timestamp seen across this block and all of its ancestors.  Unlike the
	// raw timestamps, timeMax is monotonic along any chain.
	timestamp int64
	timeMax   int64

	// numTxns is the number of transactions in the block and chainTxCount is
	// the total number of transactions in the chain up to and including it.
	numTxns      uint64
	chainTxCount uint64

	// status is a bitfield representing the validation state of the block.
	// It must only be accessed or updated using the concurrent-safe
	// NodeStatus, SetStatusFlags, and UnsetStatusFlags methods on blockIndex
	// once the node has been added to the index.
	status blockStatus
}

// clearLowestOneBit clears the lowest set bit in the passed value.
func clearLowestOneBit(n int64) int64 {
	return n & (n - 1)
}

// calcSkipListHeight calculates the height of an ancestor block to use when
// constructing the ancestor traversal skip list.
//
// Since the tree is append only, a single deterministic level is enough to get
// reasonably close to O(log n) traversal.  The only real requirement is that
// the calculated height is less than the provided height.
func calcSkipListHeight(height int64) int64 {
	if height < 0 {
		return 0
	}
	return clearLowestOneBit(clearLowestOneBit(height))
}

// newBlockNode returns a new block node for the given block header, number of
// transactions, and parent node.  The parent is nil for the genesis block.
//
// This function is NOT safe for concurrent access.  It must only be called when
// initially creating a node.
func newBlockNode(blockHeader *wire.BlockHeader, numTxns uint64, parent *blockNode) *blockNode {
	timestamp := blockHeader.Timestamp.Unix()
	node := &blockNode{
		hash:         blockHeader.BlockHash(),
		height:       int64(blockHeader.Height),
		timestamp:    timestamp,
		timeMax:      timestamp,
		numTxns:      numTxns,
		chainTxCount: numTxns,
		status:       statusNone,
	}
	if parent != nil {
		node.parent = parent
		node.skipToAncestor = parent.Ancestor(calcSkipListHeight(node.height))
		if parent.timeMax > node.timeMax {
			node.timeMax = parent.timeMax
		}
		node.chainTxCount += parent.chainTxCount
	}
	return node
}

// Ancestor returns the ancestor block node at the provided height by following
// the chain backwards from this node.  The returned block will be nil when a
// height is requested that is after the height of the passed node or is less
// than zero.
//
// This function is safe for concurrent access.
func (node *blockNode) Ancestor(height int64) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for n != nil && n.height != height {
		// Skip to the linked ancestor when it won't overshoot the target
		// height.
		if n.skipToAncestor != nil && calcSkipListHeight(n.height) >= height {
			n = n.skipToAncestor
			continue
		}

		n = n.parent
	}

	return n
}

// timeSorter implements sort.Interface to allow a slice of timestamps to
// be sorted.
type timeSorter []int64

func (s timeSorter) Len() int           { return len(s) }
func (s timeSorter) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s timeSorter) Less(i, j int) bool { return s[i] < s[j] }

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
//
// This function is safe for concurrent access.
func (node *blockNode) CalcPastMedianTime() time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	for n := node; n != nil && len(timestamps) < medianTimeBlocks; n = n.parent {
		timestamps = append(timestamps, n.timestamp)
	}
	sort.Sort(timeSorter(timestamps))

	// NOTE: This intentionally does not average the middle two elements for
	// an even number of blocks, which only happens near the start of the
	// chain.  medianTimeBlocks must remain odd.
	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// blockIndex provides facilities for keeping track of an in-memory index of the
// block chain.  Although the name block chain suggests a single chain of
// blocks, it is actually a tree-shaped structure where any node can have
// multiple children.  However, there can only be one active branch which does
// indeed form a chain from the tip all the way back to the genesis block.
type blockIndex struct {
	// These following fields are protected by the embedded mutex.
	//
	// index contains an entry for every known block tracked by the block
	// index.
	//
	// chainTips contains the tip of every known branch.  It is used to find
	// all descendants of a block without walking the entire index.
	sync.RWMutex
	index     map[chainhash.Hash]*blockNode
	chainTips map[*blockNode]struct{}
	genesis   *blockNode
}

// newBlockIndex returns a new empty instance of a block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{
		index:     make(map[chainhash.Hash]*blockNode),
		chainTips: make(map[*blockNode]struct{}),
	}
}

// HaveBlock returns whether or not the block index contains the provided hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// addNode adds the provided node to the block index.  Duplicate entries are not
// checked so it is up to caller to avoid adding them.
//
// This function MUST be called with the block index lock held (for writes).
func (bi *blockIndex) addNode(node *blockNode) {
	bi.index[node.hash] = node
	if node.parent == nil {
		bi.genesis = node
	}

	// All new nodes are either extending an existing branch or starting a new
	// one, but in either case are a new tip.  The parent of a node that
	// extends a branch is no longer a tip.
	bi.chainTips[node] = struct{}{}
	if node.parent != nil {
		delete(bi.chainTips, node.parent)
	}
}

// AddNode adds the provided node to the block index.  Duplicate entries are not
// checked so it is up to caller to avoid adding them.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.Lock()
	bi.addNode(node)
	bi.Unlock()
}

// lookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function MUST be called with the block index lock held (for reads).
func (bi *blockIndex) lookupNode(hash *chainhash.Hash) *blockNode {
	return bi.index[*hash]
}

// LookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.RLock()
	node := bi.lookupNode(hash)
	bi.RUnlock()
	return node
}

// Genesis returns the genesis node of the index or nil when no genesis block
// has been added yet.
//
// This function is safe for concurrent access.
func (bi *blockIndex) Genesis() *blockNode {
	bi.RLock()
	genesis := bi.genesis
	bi.RUnlock()
	return genesis
}

// NodeStatus returns the status associated with the provided node.
//
// This function is safe for concurrent access.
func (bi *blockIndex) NodeStatus(node *blockNode) blockStatus {
	bi.RLock()
	status := node.status
	bi.RUnlock()
	return status
}

// SetStatusFlags sets the provided status flags for the given block node
// regardless of their previous state.  It does not unset any flags.
//
// This function is safe for concurrent access.
func (bi *blockIndex) SetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	node.status |= flags
	bi.Unlock()
}

// UnsetStatusFlags unsets the provided status flags for the given block node
// regardless of their previous state.
//
// This function is safe for concurrent access.
func (bi *blockIndex) UnsetStatusFlags(node *blockNode, flags blockStatus) {
	bi.Lock()
	node.status &^= flags
	bi.Unlock()
}

// MarkBlockFailedValidation marks the passed node as having failed validation
// and then marks all of its descendants (if any) as having a failed ancestor.
// It returns the number of descendants that were newly marked.
//
// This function is safe for concurrent access.
func (bi *blockIndex) MarkBlockFailedValidation(node *blockNode) int {
	bi.Lock()
	defer bi.Unlock()

	node.status |= statusValidateFailed
	node.status &^= statusValidated

	// Walk every known chain tip that descends from the failed block and mark
	// everything between the tip and the failed block as having an invalid
	// ancestor.
	//
	// Blocks that are already marked are not skipped as a whole branch since
	// a block deeper in a branch may have been marked before an earlier one,
	// which would leave the intermediate blocks unmarked.
	var numMarked int
	for tip := range bi.chainTips {
		if tip.height <= node.height || tip.Ancestor(node.height) != node {
			continue
		}
		for n := tip; n != node; n = n.parent {
			if n.status.KnownInvalidAncestor() {
				continue
			}
			n.status |= statusInvalidAncestor
			n.status &^= statusValidated
			numMarked++
		}
	}
	return numMarked
}
