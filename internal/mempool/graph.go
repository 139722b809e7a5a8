// Copyright (c) 2020 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// txEdges maps a transaction hash to the transactions directly related to it
// in one direction.
type txEdges map[chainhash.Hash]map[chainhash.Hash]*TxDesc

// txGraph relates the transactions in the pool to their in-pool parents and
// children.  It only stores transactions that have at least one edge relating
// to another.
type txGraph struct {
	childrenOf txEdges
	parentsOf  txEdges
}

// newTxGraph creates a new transaction graph instance.
func newTxGraph() *txGraph {
	return &txGraph{
		childrenOf: make(txEdges),
		parentsOf:  make(txEdges),
	}
}

// addEdge records that the child transaction spends an output of the parent
// transaction.
func (g *txGraph) addEdge(parent, child *TxDesc) {
	parentHash, childHash := *parent.Tx.Hash(), *child.Tx.Hash()
	if _, exists := g.childrenOf[parentHash]; !exists {
		g.childrenOf[parentHash] = make(map[chainhash.Hash]*TxDesc,
			len(parent.Tx.MsgTx().TxOut))
	}
	g.childrenOf[parentHash][childHash] = child

	if _, exists := g.parentsOf[childHash]; !exists {
		g.parentsOf[childHash] = make(map[chainhash.Hash]*TxDesc,
			len(child.Tx.MsgTx().TxIn))
	}
	g.parentsOf[childHash][parentHash] = parent
}

// closure returns every transaction reachable from the provided starting
// transactions by following the provided edges, including the starting
// transactions themselves.  Each transaction is visited once no matter how
// many paths lead to it.
func closure(start []*TxDesc, edges txEdges) map[chainhash.Hash]*TxDesc {
	seen := make(map[chainhash.Hash]*TxDesc, len(start))
	queue := make([]*TxDesc, 0, len(start))
	for _, txDesc := range start {
		hash := *txDesc.Tx.Hash()
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = txDesc
		queue = append(queue, txDesc)
	}
	for len(queue) > 0 {
		txDesc := queue[0]
		queue = queue[1:]
		for hash, next := range edges[*txDesc.Tx.Hash()] {
			if _, ok := seen[hash]; ok {
				continue
			}
			seen[hash] = next
			queue = append(queue, next)
		}
	}
	return seen
}

// related returns the transactions directly related to the provided hash by
// the given edges.
func related(txHash *chainhash.Hash, edges txEdges) []*TxDesc {
	direct := edges[*txHash]
	if len(direct) == 0 {
		return nil
	}
	descs := make([]*TxDesc, 0, len(direct))
	for _, txDesc := range direct {
		descs = append(descs, txDesc)
	}
	return descs
}

// ancestors returns all in-pool transactions the provided transaction depends
// on, excluding the transaction itself.
func (g *txGraph) ancestors(txHash *chainhash.Hash) map[chainhash.Hash]*TxDesc {
	return closure(related(txHash, g.parentsOf), g.parentsOf)
}

// descendants returns all in-pool transactions that depend on the provided
// transaction, excluding the transaction itself.
func (g *txGraph) descendants(txHash *chainhash.Hash) map[chainhash.Hash]*TxDesc {
	return closure(related(txHash, g.childrenOf), g.childrenOf)
}

// remove deletes the provided txn hash from the graph along with every edge
// relating it to other transactions.
func (g *txGraph) remove(txHash *chainhash.Hash) {
	// Remove references to tx from all children.
	for childHash := range g.childrenOf[*txHash] {
		delete(g.parentsOf[childHash], *txHash)

		// If the child has no more parents, remove reference.
		if len(g.parentsOf[childHash]) == 0 {
			delete(g.parentsOf, childHash)
		}
	}

	// Remove references to tx from all parents.
	for parentHash := range g.parentsOf[*txHash] {
		delete(g.childrenOf[parentHash], *txHash)

		// If the parent has no more children, remove reference.
		if len(g.childrenOf[parentHash]) == 0 {
			delete(g.childrenOf, parentHash)
		}
	}

	delete(g.parentsOf, *txHash)
	delete(g.childrenOf, *txHash)
}
