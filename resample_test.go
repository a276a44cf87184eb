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
	"github.com/stretchr/testify/require"
)

// TestUnityMonoConversion covers Testable Property S1: unity ratio, mono,
// exact int16->float conversion with no interpolation.
func TestUnityMonoConversion(t *testing.T) {
	src := []int16{0, 16384, -16384, 32767, -32768, 0, 8192, -8192}
	want := []float32{0, 0.5, -0.5, 0.99997, -1.0, 0, 0.25, -0.25}

	r := NewResampler(1)
	dst := make([]float32, len(src))
	step := computeStep(1.0, 44100, 44100)
	require.True(t, step.isUnity())

	advanced, frac := r.Process(src, 0, step, int64(len(src)), dst)
	assert.Equal(t, int64(len(src)), advanced)
	assert.Equal(t, uint64(0), frac)

	for i := range want {
		assert.InDeltaf(t, want[i], dst[i], 1e-4, "sample %d", i)
	}
}

// TestStereoHalfStepInterpolation covers Testable Property S2: a 0.5 step
// lands exactly halfway between two stereo frames.
func TestStereoHalfStepInterpolation(t *testing.T) {
	src := []int16{0, 0, 32767, -32768}
	r := NewResampler(2)
	dst := make([]float32, 4)

	step := computeStep(1.0, 22050, 44100)
	assert.Equal(t, fixedStep(fixedOne/2), step)

	_, _ = r.Process(src, 0, step, 2, dst)

	wantL0 := s16ToFloat(0)
	wantR0 := s16ToFloat(0)
	assert.InDelta(t, float64(wantL0), float64(dst[0]), 1e-6)
	assert.InDelta(t, float64(wantR0), float64(dst[1]), 1e-6)

	wantMidL := (s16ToFloat(0) + s16ToFloat(32767)) / 2
	wantMidR := (s16ToFloat(0) + s16ToFloat(-32768)) / 2
	assert.InDelta(t, float64(wantMidL), float64(dst[2]), 1e-4)
	assert.InDelta(t, float64(wantMidR), float64(dst[3]), 1e-4)
}

// TestPhaseDriftExact covers Invariant 2: over N ticks at constant step,
// the accumulated phase equals N*outputSamples*step exactly in 64-bit
// fixed point, with no rounding loss.
func TestPhaseDriftExact(t *testing.T) {
	const outputSamples = 64
	const ticks = 37
	step := computeStep(1.5, 48000, 48000)

	src := make([]int16, 4096)
	for i := range src {
		src[i] = int16(i % 100)
	}

	r := NewResampler(1)
	dst := make([]float32, outputSamples)

	var totalAdvance uint64
	frac := uint64(0)
	for tick := 0; tick < ticks; tick++ {
		advanced, newFrac := r.Process(src, frac, step, outputSamples, dst)
		totalAdvance += uint64(advanced)<<fixedFracBits + newFrac - frac
		frac = newFrac
	}

	want := uint64(ticks) * uint64(outputSamples) * uint64(step)
	assert.Equal(t, want, totalAdvance)
}

// TestUnityIdempotence covers Invariant 3: with freqRatio==1.0 and matched
// rates, resampler output is bit-exact src_i16/32768.0 for every sample.
func TestUnityIdempotence(t *testing.T) {
	src := make([]int16, 200)
	for i := range src {
		src[i] = int16((i*977 - 50000) % 32768)
	}

	r := NewResampler(1)
	dst := make([]float32, len(src))
	step := computeStep(1.0, 44100, 44100)
	r.Process(src, 0, step, int64(len(src)), dst)

	for i, s := range src {
		want := float32(s) / 32768.0
		assert.Equal(t, want, dst[i])
	}
}

// TestPitchShiftPhaseAccumulation covers Testable Property S5: a 1.5
// pitch-up ratio at matched sample rates advances the phase accumulator by
// exactly outputCount * (1.5 * 2^32) over one tick.
func TestPitchShiftPhaseAccumulation(t *testing.T) {
	step := computeStep(1.5, 48000, 48000)
	src := make([]int16, 128)
	for i := range src {
		src[i] = int16(i)
	}
	r := NewResampler(1)
	dst := make([]float32, 64)

	advanced, newFrac := r.Process(src, 0, step, 64, dst)
	got := uint64(advanced)<<fixedFracBits + newFrac
	want := uint64(64) * uint64(step)
	assert.Equal(t, want, got)
}
