//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMonoMSADPCMBlock assembles a single mono MSADPCM block: 1-byte
// predictor, 2-byte delta, 2-byte sample1, 2-byte sample2, then nibble
// bytes.
func buildMonoMSADPCMBlock(predictor byte, delta, sample1, sample2 int16, nibbles []byte) []byte {
	block := make([]byte, 7+len(nibbles))
	block[0] = predictor
	binary.LittleEndian.PutUint16(block[1:], uint16(delta))
	binary.LittleEndian.PutUint16(block[3:], uint16(sample1))
	binary.LittleEndian.PutUint16(block[5:], uint16(sample2))
	copy(block[7:], nibbles)
	return block
}

// TestMSADPCMZeroNibblesStayZero covers Testable Property S3: predictor 0,
// delta 16, sample1=sample2=0, all-zero nibbles decode to all-zero samples.
// The delta floor of 16 is checked by TestMSADPCMDeltaFloor.
func TestMSADPCMZeroNibblesStayZero(t *testing.T) {
	const blockAlign = 256
	layout := newMSADPCMBlockLayout(1, blockAlign)

	nibbleBytes := make([]byte, layout.byteSize-7)
	block := buildMonoMSADPCMBlock(0, 16, 0, 0, nibbleBytes)
	require.Len(t, block, int(layout.byteSize))

	out := make([]int16, layout.sampleCount)
	layout.decodeBlockMono(block, out, "test-voice")

	for i, s := range out {
		assert.Equalf(t, int16(0), s, "sample %d", i)
	}
}

// TestMSADPCMPreambleRoundTripMono covers Invariant 6's mono half: the
// first two decoded samples of a mono block equal sample1, sample2
// verbatim.
func TestMSADPCMPreambleRoundTripMono(t *testing.T) {
	const blockAlign = 64
	layout := newMSADPCMBlockLayout(1, blockAlign)
	nibbleBytes := make([]byte, layout.byteSize-7)
	block := buildMonoMSADPCMBlock(3, 32, 1234, -4321, nibbleBytes)

	out := make([]int16, layout.sampleCount)
	layout.decodeBlockMono(block, out, "test-voice")

	assert.Equal(t, int16(1234), out[0])
	assert.Equal(t, int16(-4321), out[1])
}

// TestMSADPCMPreambleRoundTripStereo covers Invariant 6's stereo half: the
// first four decoded interleaved samples equal
// sample2_L, sample2_R, sample1_L, sample1_R.
func TestMSADPCMPreambleRoundTripStereo(t *testing.T) {
	const blockAlign = 64
	layout := newMSADPCMBlockLayout(2, blockAlign)

	block := make([]byte, layout.byteSize)
	block[0] = 1 // predictor L
	block[1] = 2 // predictor R
	binary.LittleEndian.PutUint16(block[2:], uint16(20))  // delta L
	binary.LittleEndian.PutUint16(block[4:], uint16(24))  // delta R
	binary.LittleEndian.PutUint16(block[6:], uint16(100)) // sample1 L
	binary.LittleEndian.PutUint16(block[8:], uint16(200)) // sample1 R
	binary.LittleEndian.PutUint16(block[10:], uint16(300)) // sample2 L
	binary.LittleEndian.PutUint16(block[12:], uint16(400)) // sample2 R

	out := make([]int16, layout.sampleCount*2)
	layout.decodeBlockStereo(block, out, "test-voice")

	assert.Equal(t, int16(300), out[0]) // sample2_L
	assert.Equal(t, int16(400), out[1]) // sample2_R
	assert.Equal(t, int16(100), out[2]) // sample1_L
	assert.Equal(t, int16(200), out[3]) // sample1_R
}

// TestMSADPCMDeltaFloor verifies the adaptive delta never drops below 16
// regardless of the adaption table entry chosen, per §4.4.
func TestMSADPCMDeltaFloor(t *testing.T) {
	st := msadpcmChannelState{predictor: 0, delta: 16, sample1: 0, sample2: 0}
	for i := 0; i < 200; i++ {
		st.decodeNibble(0) // adaption[0] = 230 < 256, so delta shrinks and is held at the floor
		assert.GreaterOrEqual(t, st.delta, int32(16))
	}
}
