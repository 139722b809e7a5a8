// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/wire"
)

var (
	// testNoncePrng provides a deterministic prng for the nonce in generated
	// fake nodes.  The ensures that the nodes have unique hashes.
	testNoncePrng    = rand.New(rand.NewSource(0))
	testNoncePrngMtx sync.Mutex
)

// nextTestNonce returns the next nonce from the shared test prng.
func nextTestNonce() uint32 {
	testNoncePrngMtx.Lock()
	defer testNoncePrngMtx.Unlock()
	return testNoncePrng.Uint32()
}

// mustParseHash converts the passed big-endian hex string into a
// chainhash.Hash and will panic if there is an error.  It only differs from the
// one available in chainhash in that it will panic so errors in the source code
// be detected.  It will only (and must only) be called with hard-coded, and
// therefore known good, hashes.
func mustParseHash(s string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic("invalid hash in source file: " + s)
	}
	return hash
}

// fixedTimeSource is a median time source that always reports the same time.
type fixedTimeSource struct {
	MedianTimeSource
	now time.Time
}

// AdjustedTime returns the fixed time of the source.
func (s fixedTimeSource) AdjustedTime() time.Time {
	return s.now
}

// newFakeChain returns a chain that is usable for synthetic tests.  It is
// seeded with the genesis block of the provided parameters, or is empty when
// the parameters are nil.
func newFakeChain(params *chaincfg.Params) *BlockChain {
	b, err := New(&Config{ChainParams: params})
	if err != nil {
		panic(err)
	}
	return b
}

// fakeHeader returns a made up header that extends the provided parent, or a
// genesis header when the parent is nil.
func fakeHeader(parent *blockNode, timestamp time.Time) *wire.BlockHeader {
	var prevHash chainhash.Hash
	var height uint32
	if parent != nil {
		prevHash = parent.hash
		height = uint32(parent.height + 1)
	}
	return &wire.BlockHeader{
		Version:   1,
		PrevBlock: prevHash,
		VoteBits:  0x01,
		Height:    height,
		Timestamp: timestamp,
		Nonce:     nextTestNonce(),
	}
}

// newFakeNode creates a block node connected to the passed parent with the
// provided fields populated and fake values for the other fields.
func newFakeNode(parent *blockNode, numTxns uint64, timestamp time.Time) *blockNode {
	node := newBlockNode(fakeHeader(parent, timestamp), numTxns, parent)
	node.status = statusDataStored | statusValidHeaders | statusValidated
	return node
}

// chainedFakeNodes returns the specified number of nodes constructed such that
// each subsequent node points to the previous one to create a chain.  The first
// node will point to the passed parent which can be nil if desired.
func chainedFakeNodes(parent *blockNode, numNodes int) []*blockNode {
	nodes := make([]*blockNode, numNodes)
	tip := parent
	blockTime := time.Unix(1514764800, 0) // 2018-01-01 00:00:00 +0000 UTC
	if tip != nil {
		blockTime = time.Unix(tip.timestamp, 0)
	}
	for i := 0; i < numNodes; i++ {
		blockTime = blockTime.Add(time.Second)
		node := newFakeNode(tip, 1, blockTime)
		tip = node

		nodes[i] = node
	}
	return nodes
}

// chainedFakeSkipListNodes returns the specified number of nodes populated with
// only the fields specifically needed to test the skip list functionality and
// constructed such that each subsequent node points to the previous one to
// create a chain.  The first node will point to the passed parent which can be
// nil if desired.
//
// This is used over the chainedFakeNodes function for skip list testing because
// the skip list tests involve large numbers of nodes which take much longer to
// create with all of the other fields populated by said function.
func chainedFakeSkipListNodes(parent *blockNode, numNodes int) []*blockNode {
	nodes := make([]*blockNode, numNodes)
	for i := 0; i < numNodes; i++ {
		node := &blockNode{parent: parent, height: int64(i)}
		if parent != nil {
			node.skipToAncestor = nodes[calcSkipListHeight(int64(i))]
		}
		parent = node

		nodes[i] = node
	}
	return nodes
}

// branchTip is a convenience function to grab the tip of a chain of block nodes
// created via chainedFakeNodes.
func branchTip(nodes []*blockNode) *blockNode {
	return nodes[len(nodes)-1]
}

// addFakeBranch adds the specified number of headers extending the block with
// the provided hash to the chain via the writer path and returns their hashes
// in ascending height order.
func addFakeBranch(t *testing.T, b *BlockChain, parentHash chainhash.Hash, numBlocks int) []chainhash.Hash {
	t.Helper()

	parent := b.index.LookupNode(&parentHash)
	if parent == nil {
		t.Fatalf("unknown parent block %s", parentHash)
	}
	hashes := make([]chainhash.Hash, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		blockTime := time.Unix(parent.timestamp, 0).Add(5 * time.Minute)
		header := fakeHeader(parent, blockTime)
		if err := b.AddBlockHeader(header, 2); err != nil {
			t.Fatalf("AddBlockHeader: unexpected error: %v", err)
		}
		hash := header.BlockHash()
		parent = b.index.LookupNode(&hash)
		hashes = append(hashes, hash)
	}
	return hashes
}
