// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/ngocviet/lotusd/internal/blockchain"
)

// activeNetParams is a pointer to the parameters specific to the currently
// active network.
var activeNetParams = mainNetParams()

// params is used to group parameters for various networks such as the main
// network and test networks.
type params struct {
	*chaincfg.Params

	// txData is the known transaction history used to estimate the
	// verification progress of the chain.
	txData blockchain.ChainTxData
}

// mainNetParams returns parameters specific to the main network.
func mainNetParams() *params {
	return &params{
		Params: chaincfg.MainNetParams(),
		txData: blockchain.ChainTxData{
			Time:    time.Unix(1704067200, 0),
			TxCount: 9500000,
			TxRate:  0.3,
		},
	}
}

// testNet3Params returns parameters specific to the test network (version 3).
func testNet3Params() *params {
	return &params{
		Params: chaincfg.TestNet3Params(),
		txData: blockchain.ChainTxData{
			Time:    time.Unix(1704067200, 0),
			TxCount: 1800000,
			TxRate:  0.05,
		},
	}
}

// simNetParams returns parameters specific to the simulation test network.
func simNetParams() *params {
	return &params{Params: chaincfg.SimNetParams()}
}

// regNetParams returns parameters specific to the regression test network.
func regNetParams() *params {
	return &params{Params: chaincfg.RegNetParams()}
}
