//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFFmpegSeekLocatesPacket covers Testable Property S6: a
// packet-cumulative table [100, 200, 300] and a request at byte 250 locate
// packet index 2 with cumulativeBefore=200, so convertOffset becomes
// (250-200)/sampleSize.
func TestFFmpegSeekLocatesPacket(t *testing.T) {
	cumulative := []int64{100, 200, 300}
	idx, before := locatePacket(cumulative, 3, 250)
	assert.Equal(t, 2, idx)
	assert.Equal(t, int64(200), before)

	const sampleSize = 4 // mono float32
	convertOffset := (250 - before) / sampleSize
	assert.Equal(t, int64(12), convertOffset)
}

// TestFFmpegSeekExactBoundary verifies a target landing exactly on a
// cumulative boundary selects the following packet, matching the ">"
// comparison in §4.5's "first covers" wording.
func TestFFmpegSeekExactBoundary(t *testing.T) {
	cumulative := []int64{100, 200, 300}
	idx, before := locatePacket(cumulative, 3, 200)
	assert.Equal(t, 2, idx)
	assert.Equal(t, int64(200), before)
}

// TestFFmpegSeekPastEnd verifies a target beyond the last cumulative entry
// clamps to the final packet.
func TestFFmpegSeekPastEnd(t *testing.T) {
	cumulative := []int64{100, 200, 300}
	idx, before := locatePacket(cumulative, 3, 1000)
	assert.Equal(t, 2, idx)
	assert.Equal(t, int64(200), before)
}
