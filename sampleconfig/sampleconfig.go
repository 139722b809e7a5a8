// Copyright (c) 2017-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sampleconfig provides the commented example configuration file for
// lotusd.
package sampleconfig

import (
	_ "embed"
)

// sampleLotusdConf is a string containing the commented example config for
// lotusd.
//
//go:embed sample-lotusd.conf
var sampleLotusdConf string

// Lotusd returns a string containing the commented example config for lotusd.
func Lotusd() string {
	return sampleLotusdConf
}
