// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package limits

import (
	"math"
	"testing"
)

// TestSoftMemoryLimit ensures the soft memory limit accounts for the mempool
// on top of the base limit.
func TestSoftMemoryLimit(t *testing.T) {
	tests := []struct {
		name    string
		mempool int64
		want    int64
	}{
		{"no mempool", 0, baseMemoryLimit},
		{"negative mempool", -1, baseMemoryLimit},
		{"default mempool", 300e6, baseMemoryLimit + 600e6},
	}
	for _, test := range tests {
		if got := SoftMemoryLimit(test.mempool); got != test.want {
			t.Errorf("%s: got %d, want %d", test.name, got, test.want)
		}
	}
}

// TestSetMemoryLimit ensures the runtime limit is updated and the previous
// limit reported.
func TestSetMemoryLimit(t *testing.T) {
	orig := SetMemoryLimit(math.MaxInt64)
	defer SetMemoryLimit(orig)

	const limit = 1 << 40
	SetMemoryLimit(limit)
	if got := SetMemoryLimit(math.MaxInt64); got != limit {
		t.Fatalf("unexpected previous limit -- got %d, want %d", got, limit)
	}
}
