//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

// genTestSine fills dst with a single windowed sine at the given
// normalized frequency (cycles per sample), amplitude scaled to int16,
// the same "windowed sine as resampler test signal" technique the
// teacher's genWindowedSinesGo/evaluate_quality_test.go use for SNR work.
func genTestSine(freq float64, amp float64, dst []int16) {
	n := len(dst)
	for i := 0; i < n; i++ {
		window := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		v := amp * window * math.Sin(2*math.Pi*freq*float64(i))
		dst[i] = int16(v * 32767)
	}
}

// dominantBin returns the FFT bin with the largest magnitude (excluding
// DC), mirroring the teacher's logMagSpectrumGo peak search but without
// the dB smoothing/floor machinery — enough to verify the resampler
// preserves a tone's dominant frequency.
func dominantBin(samples []float32) int {
	n := len(samples)
	in := make([]float64, n)
	for i, s := range samples {
		in[i] = float64(s)
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, in)

	best := 1
	bestMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		mag := cmplx.Abs(coeffs[i])
		if mag > bestMag {
			bestMag = mag
			best = i
		}
	}
	return best
}

// TestResamplerPreservesDominantFrequency grounds the resampler's quality
// check on the teacher's gonum-FFT SNR technique (evaluate_quality_test.go
// / snr_bw_test.go calculateSnrGo), retargeted at the fixed-point linear
// resampler: upsampling a mono tone by 2x must keep its physical
// frequency, which puts its dominant bin at the same index in the
// twice-as-long output.
func TestResamplerPreservesDominantFrequency(t *testing.T) {
	const n = 2048
	src := make([]int16, n)
	genTestSine(0.02, 0.9, src)

	srcBin := dominantBin(int16ToFloatSlice(src))
	require.Greater(t, srcBin, 0)

	step := computeStep(1.0, 22050, 44100) // upsample x2
	r := NewResampler(1)
	outCount := int64(n * 2)
	dst := make([]float32, outCount)
	r.Process(src, 0, step, outCount, dst)

	dstBin := dominantBin(dst)

	// Upsampling by 2x halves the normalized frequency (cycles per
	// sample), but the FFT also spans twice as many samples, so the tone
	// lands on the same bin index as in the source.
	wantBin := srcBin
	assert.InDelta(t, float64(wantBin), float64(dstBin), 3)
}

func int16ToFloatSlice(src []int16) []float32 {
	out := make([]float32, len(src))
	for i, s := range src {
		out[i] = s16ToFloat(s)
	}
	return out
}
