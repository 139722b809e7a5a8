// Copyright (c) 2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package limits configures the resource limits of the running process.
package limits

import "runtime/debug"

// baseMemoryLimit is the soft memory limit, in bytes, reserved for everything
// other than the mempool.
const baseMemoryLimit = (15 * (1 << 30)) / 10 // 1.5 GiB

// SoftMemoryLimit returns the soft memory limit for a process that holds a
// mempool of up to the provided number of bytes.  The in-memory representation
// of a transaction is larger than its serialized form, so the mempool is
// accounted for at twice its serialized size.
func SoftMemoryLimit(maxMempoolBytes int64) int64 {
	if maxMempoolBytes < 0 {
		maxMempoolBytes = 0
	}
	return baseMemoryLimit + 2*maxMempoolBytes
}

// SetMemoryLimit configures the runtime to use the provided limit as a soft
// memory limit and returns the previous limit.
func SetMemoryLimit(limit int64) int64 {
	return debug.SetMemoryLimit(limit)
}
