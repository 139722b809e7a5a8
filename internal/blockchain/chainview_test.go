// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2018-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// nodeHashes is a convenience function that returns the hashes for all of the
// passed indexes of the provided nodes.  It is used to construct expected hash
// slices in the tests.
func nodeHashes(nodes []*blockNode, indexes ...int) []chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(indexes))
	for _, idx := range indexes {
		hashes = append(hashes, nodes[idx].hash)
	}
	return hashes
}

// locatorHashes is a convenience function that returns the hashes of the
// passed locator.
func locatorHashes(locator BlockLocator) []chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(locator))
	for _, hash := range locator {
		hashes = append(hashes, *hash)
	}
	return hashes
}

// zipLocators is a convenience function that returns a single block locator
// given a variable number of them and is used in the tests.
func zipLocators(locators ...BlockLocator) BlockLocator {
	var hashes BlockLocator
	for _, locator := range locators {
		hashes = append(hashes, locator...)
	}
	return hashes
}

// TestChainView ensures all of the exported functionality of chain views works
// as intended with the exception of some special cases which are handled in
// other tests.
func TestChainView(t *testing.T) {
	// Construct a synthetic block index consisting of the following
	// structure.
	// 0 -> 1 -> 2  -> 3  -> 4
	//       \-> 2a -> 3a -> 4a  -> 5a -> 6a -> 7a -> ... -> 26a
	//             \-> 3a'-> 4a' -> 5a'
	branch0Nodes := chainedFakeNodes(nil, 5)
	branch1Nodes := chainedFakeNodes(branch0Nodes[1], 25)
	branch2Nodes := chainedFakeNodes(branch1Nodes[0], 3)

	tip := branchTip
	tests := []struct {
		name       string
		view       *chainView   // active view
		genesis    *blockNode   // expected genesis block of active view
		tip        *blockNode   // expected tip of active view
		side       *chainView   // side chain view
		sideTip    *blockNode   // expected tip of side chain view
		fork       *blockNode   // expected fork node
		contains   []*blockNode // expected nodes in active view
		noContains []*blockNode // expected nodes NOT in active view
		locator    BlockLocator // expected locator for active view tip
	}{
		{
			// Create a view for branch 0 as the active chain and
			// another view for branch 1 as the side chain.
			name:       "chain0-chain1",
			view:       newChainView(tip(branch0Nodes)),
			genesis:    branch0Nodes[0],
			tip:        tip(branch0Nodes),
			side:       newChainView(tip(branch1Nodes)),
			sideTip:    tip(branch1Nodes),
			fork:       branch0Nodes[1],
			contains:   branch0Nodes,
			noContains: branch1Nodes,
			locator:    locatorForNodes(branch0Nodes, 4, 3, 2, 1, 0),
		},
		{
			// Create a view for branch 1 as the active chain and
			// another view for branch 2 as the side chain.
			name:       "chain1-chain2",
			view:       newChainView(tip(branch1Nodes)),
			genesis:    branch0Nodes[0],
			tip:        tip(branch1Nodes),
			side:       newChainView(tip(branch2Nodes)),
			sideTip:    tip(branch2Nodes),
			fork:       branch1Nodes[0],
			contains:   branch1Nodes,
			noContains: branch2Nodes,
			locator: zipLocators(
				locatorForNodes(branch1Nodes, 24, 23, 22, 21, 20,
					19, 18, 17, 16, 15, 14, 13, 11, 7),
				locatorForNodes(branch0Nodes, 1, 0)),
		},
		{
			// Create a view for branch 2 as the active chain and
			// another view for branch 0 as the side chain.
			name:       "chain2-chain0",
			view:       newChainView(tip(branch2Nodes)),
			genesis:    branch0Nodes[0],
			tip:        tip(branch2Nodes),
			side:       newChainView(tip(branch0Nodes)),
			sideTip:    tip(branch0Nodes),
			fork:       branch0Nodes[1],
			contains:   branch2Nodes,
			noContains: branch0Nodes[2:],
			locator: zipLocators(
				locatorForNodes(branch2Nodes, 2, 1, 0),
				locatorForNodes(branch1Nodes, 0),
				locatorForNodes(branch0Nodes, 1, 0)),
		},
	}
testLoop:
	for _, test := range tests {
		// Ensure the active and side chain heights are the expected
		// values.
		if test.view.Height() != test.tip.height {
			t.Errorf("%s: unexpected active view height -- got: %d, "+
				"want: %d", test.name, test.view.Height(),
				test.tip.height)
			continue
		}
		if test.side.Height() != test.sideTip.height {
			t.Errorf("%s: unexpected side view height -- got: %d, "+
				"want: %d", test.name, test.side.Height(),
				test.sideTip.height)
			continue
		}

		// Ensure the active and side chain genesis block is the
		// expected value.
		if genesis := test.view.NodeByHeight(0); genesis != test.genesis {
			t.Errorf("%s: unexpected active view genesis -- got: %v, "+
				"want: %v", test.name, genesis, test.genesis)
			continue
		}
		if genesis := test.side.NodeByHeight(0); genesis != test.genesis {
			t.Errorf("%s: unexpected side view genesis -- got: %v, "+
				"want: %v", test.name, genesis, test.genesis)
			continue
		}

		// Ensure the active and side chain tips are the expected nodes.
		if test.view.Tip() != test.tip {
			t.Errorf("%s: unexpected active view tip -- got: %v, "+
				"want: %v", test.name, test.view.Tip(), test.tip)
			continue
		}
		if test.side.Tip() != test.sideTip {
			t.Errorf("%s: unexpected active view tip -- got: %v, "+
				"want: %v", test.name, test.side.Tip(),
				test.sideTip)
			continue
		}

		// Ensure that regardless of the order the two chains are
		// compared they both return the expected fork point.
		forkNode := test.view.FindFork(test.side.Tip())
		if forkNode != test.fork {
			t.Errorf("%s: unexpected fork node (view, side) -- "+
				"got: %v, want: %v", test.name, forkNode,
				test.fork)
			continue
		}
		forkNode = test.side.FindFork(test.view.Tip())
		if forkNode != test.fork {
			t.Errorf("%s: unexpected fork node (side, view) -- "+
				"got: %v, want: %v", test.name, forkNode,
				test.fork)
			continue
		}

		// Ensure that the fork point for a node that is already part
		// of the chain view is the node itself.
		forkNode = test.view.FindFork(test.view.Tip())
		if forkNode != test.view.Tip() {
			t.Errorf("%s: unexpected fork node (view, tip) -- "+
				"got: %v, want: %v", test.name, forkNode,
				test.view.Tip())
			continue
		}

		// Ensure all expected nodes are contained in the active view.
		for _, node := range test.contains {
			if !test.view.Contains(node) {
				t.Errorf("%s: expected %v in active view",
					test.name, node)
				continue testLoop
			}
		}

		// Ensure all nodes from side chain view are NOT contained in
		// the active view.
		for _, node := range test.noContains {
			if test.view.Contains(node) {
				t.Errorf("%s: unexpected %v in active view",
					test.name, node)
				continue testLoop
			}
		}

		// Ensure all nodes contained in the view return the expected
		// next node.
		for i, node := range test.contains {
			// Final node expects nil for the next node.
			var expected *blockNode
			if i < len(test.contains)-1 {
				expected = test.contains[i+1]
			}
			if next := test.view.Next(node); next != expected {
				t.Errorf("%s: unexpected next node -- got: %v, "+
					"want: %v", test.name, next, expected)
				continue testLoop
			}
		}

		// Ensure nodes that are not contained in the view do not
		// produce a successor node.
		for _, node := range test.noContains {
			if next := test.view.Next(node); next != nil {
				t.Errorf("%s: unexpected next node -- got: %v, "+
					"want: nil", test.name, next)
				continue testLoop
			}
		}

		// Ensure all nodes contained in the view can be retrieved by
		// height.
		for _, wantNode := range test.contains {
			node := test.view.NodeByHeight(wantNode.height)
			if node != wantNode {
				t.Errorf("%s: unexpected node for height %d -- "+
					"got: %v, want: %v", test.name,
					wantNode.height, node, wantNode)
				continue testLoop
			}
		}

		// Ensure the block locator for the tip of the active view
		// consists of the expected hashes.
		locator := test.view.BlockLocator(test.view.Tip())
		if !reflect.DeepEqual(locator, test.locator) {
			t.Errorf("%s: unexpected locator -- got %s, want %s",
				test.name, spew.Sdump(locatorHashes(locator)),
				spew.Sdump(locatorHashes(test.locator)))
			continue
		}
	}
}

// locatorForNodes is a convenience function that returns a block locator made
// of the hashes for all of the passed indexes of the provided nodes.
func locatorForNodes(nodes []*blockNode, indexes ...int) BlockLocator {
	hashes := nodeHashes(nodes, indexes...)
	locator := make(BlockLocator, 0, len(hashes))
	for i := range hashes {
		locator = append(locator, &hashes[i])
	}
	return locator
}

// TestChainViewAtNextAgreement ensures that for every height in the view, the
// node at that height is the successor of the node at the previous height,
// including after the view switches between branches.
func TestChainViewAtNextAgreement(t *testing.T) {
	// Construct a synthetic block index consisting of the following
	// structure.
	// 0 -> 1 -> ... -> 30 -> 31 -> ... -> 59
	//                   \-> 31a -> ... -> 70a
	mainNodes := chainedFakeNodes(nil, 60)
	sideNodes := chainedFakeNodes(mainNodes[30], 40)

	view := newChainView(nil)
	for _, tip := range []*blockNode{branchTip(mainNodes), branchTip(sideNodes),
		mainNodes[45], mainNodes[10], branchTip(sideNodes)} {

		view.SetTip(tip)
		if view.Tip() != tip || view.Height() != tip.height {
			t.Fatalf("unexpected tip after switch -- got %v (height %d), "+
				"want %v (height %d)", view.Tip(), view.Height(), tip,
				tip.height)
		}
		for height := int64(0); height <= view.Height(); height++ {
			node := view.NodeByHeight(height)
			if node == nil || node.height != height {
				t.Fatalf("unexpected node at height %d: %v", height, node)
			}
			if node != tip.Ancestor(height) {
				t.Fatalf("node at height %d is not an ancestor of the tip",
					height)
			}
			if height == 0 {
				continue
			}
			if next := view.Next(view.NodeByHeight(height - 1)); next != node {
				t.Fatalf("next of height %d is %v, want %v", height-1,
					next, node)
			}
		}
		if next := view.Next(tip); next != nil {
			t.Fatalf("unexpected successor of tip: %v", next)
		}
	}
}

// TestChainViewNil ensures that creating and accessing a nil chain view behaves
// as expected.
func TestChainViewNil(t *testing.T) {
	// Ensure the genesis of an uninitialized view does not produce a node.
	view := newChainView(nil)
	if genesis := view.NodeByHeight(0); genesis != nil {
		t.Fatalf("NodeByHeight: unexpected genesis -- got %v, want nil",
			genesis)
	}

	// Ensure the tip of an uninitialized view does not produce a node.
	if tip := view.Tip(); tip != nil {
		t.Fatalf("Tip: unexpected tip -- got %v, want nil", tip)
	}

	// Ensure the height of an uninitialized view is the expected value.
	if height := view.Height(); height != -1 {
		t.Fatalf("Height: unexpected height -- got %d, want -1", height)
	}

	// Ensure attempting to get a node for a height that does not exist does
	// not produce a node.
	if node := view.NodeByHeight(0); node != nil {
		t.Fatalf("NodeByHeight: unexpected node -- got %v, want nil", node)
	}

	// Ensure an uninitialized view does not report it contains nodes.
	fakeNode := chainedFakeNodes(nil, 1)[0]
	if view.Contains(fakeNode) {
		t.Fatalf("Contains: view claims it contains node %v", fakeNode)
	}

	// Ensure the next node for a node that does not exist does not produce
	// a node.
	if next := view.Next(nil); next != nil {
		t.Fatalf("Next: unexpected next node -- got %v, want nil", next)
	}

	// Ensure the next node for a node that exists does not produce a node.
	if next := view.Next(fakeNode); next != nil {
		t.Fatalf("Next: unexpected next node -- got %v, want nil", next)
	}

	// Ensure attempting to find a fork point with a node that doesn't exist
	// doesn't produce a node.
	if fork := view.FindFork(nil); fork != nil {
		t.Fatalf("FindFork: unexpected fork -- got %v, want nil", fork)
	}

	// Ensure attempting to find a fork point with an empty view does not
	// produce a node.
	if fork := view.FindFork(fakeNode); fork != nil {
		t.Fatalf("FindFork: unexpected fork -- got %v, want nil", fork)
	}

	// Ensure attempting to get a block locator for the tip doesn't produce
	// one since the tip is nil.
	if locator := view.BlockLocator(nil); locator != nil {
		t.Fatalf("BlockLocator: unexpected locator -- got %v, want nil",
			locator)
	}

	// Ensure attempting to find a block by time doesn't produce a node.
	if node := view.FindEarliestAtLeast(0, 0); node != nil {
		t.Fatalf("FindEarliestAtLeast: unexpected node -- got %v, want nil",
			node)
	}

	// Ensure a block locator for a node still returns the expected locator.
	locator := view.BlockLocator(fakeNode)
	wantLocator := locatorForNodes([]*blockNode{fakeNode}, 0)
	if !reflect.DeepEqual(locator, wantLocator) {
		t.Fatalf("BlockLocator: unexpected locator -- got %s, want %s",
			spew.Sdump(locatorHashes(locator)),
			spew.Sdump(locatorHashes(wantLocator)))
	}
}

// TestChainViewLocatorSideBranch ensures the block locator for a block that
// is not part of the view walks the side branch until it joins the view and
// doubles the step once the first entries are included.
func TestChainViewLocatorSideBranch(t *testing.T) {
	// Construct a synthetic block index consisting of the following
	// structure.
	// 0 -> 1 -> 2 -> ... -> 15 -> 16  -> 17  -> 18
	//                          \-> 16a -> 17a
	mainNodes := chainedFakeNodes(nil, 19)
	sideNodes := chainedFakeNodes(mainNodes[15], 2)
	view := newChainView(branchTip(mainNodes))

	tests := []struct {
		name string
		node *blockNode
		want BlockLocator
	}{{
		name: "side branch tip",
		node: branchTip(sideNodes),
		want: zipLocators(locatorForNodes(sideNodes, 1, 0),
			locatorForNodes(mainNodes, 15, 14, 13, 12, 11, 10, 9, 8, 7,
				6, 4, 0)),
	}, {
		name: "active tip",
		node: nil,
		want: locatorForNodes(mainNodes, 18, 17, 16, 15, 14, 13, 12, 11, 10,
			9, 8, 7, 5, 1, 0),
	}}
	for _, test := range tests {
		locator := view.BlockLocator(test.node)
		if !reflect.DeepEqual(locator, test.want) {
			t.Errorf("%s: unexpected locator -- got %s, want %s",
				test.name, spew.Sdump(locatorHashes(locator)),
				spew.Sdump(locatorHashes(test.want)))
		}
	}
}

// TestFindEarliestAtLeast ensures searching the view by timestamp returns the
// first block by height whose own timestamp reaches the target even when the
// block timestamps are not in order.
func TestFindEarliestAtLeast(t *testing.T) {
	// Create a chain with timestamps that go backwards at several points.
	timestamps := []int64{100, 150, 130, 200, 190, 195, 260, 250, 300, 299}
	nodes := make([]*blockNode, 0, len(timestamps))
	var parent *blockNode
	for _, ts := range timestamps {
		parent = newFakeNode(parent, 1, time.Unix(ts, 0))
		nodes = append(nodes, parent)
	}
	view := newChainView(branchTip(nodes))

	tests := []struct {
		name       string
		timestamp  int64
		minHeight  int64
		wantHeight int64 // -1 for none
	}{
		{"before genesis", 50, 0, 0},
		{"exact genesis", 100, 0, 0},
		{"between out of order blocks", 140, 0, 1},
		{"skips lower later block", 160, 0, 3},
		{"exact max", 300, 0, 8},
		{"after all blocks", 301, 0, -1},
		{"min height past first match", 140, 2, 3},
		{"min height with earlier max", 190, 4, 4},
		{"min height requires refinement", 196, 4, 6},
		{"min height beyond tip", 0, 10, -1},
		{"negative min height", 100, -5, 0},
	}
	for _, test := range tests {
		node := view.FindEarliestAtLeast(test.timestamp, test.minHeight)
		gotHeight := int64(-1)
		if node != nil {
			gotHeight = node.height
		}
		if gotHeight != test.wantHeight {
			t.Errorf("%s: unexpected height -- got %d, want %d", test.name,
				gotHeight, test.wantHeight)
		}
	}

	// Ensure the search is monotonic in the timestamp.
	prevHeight := int64(-1)
	for ts := int64(0); ts <= 310; ts++ {
		node := view.FindEarliestAtLeast(ts, 0)
		if node == nil {
			prevHeight = int64(len(nodes))
			continue
		}
		if node.height < prevHeight {
			t.Fatalf("search is not monotonic at timestamp %d: height %d "+
				"after %d", ts, node.height, prevHeight)
		}
		prevHeight = node.height
	}
}
