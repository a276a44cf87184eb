//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// Resampler converts 16-bit decoded samples into normalized float output at
// a (possibly fractional) stride, using linear interpolation between
// consecutive decoded frames (§4.2). It never owns the decode cache it
// reads from - the caller (source/submix mix) guarantees enough frames are
// staged before calling Process, mirroring the teacher's linear.go
// "filter.lastValue" warm-continuity idiom but reading straight out of a
// caller-owned cache instead of carrying its own one-sample lookback.
type Resampler struct {
	channels int
}

// NewResampler constructs a resampler for mono (1) or stereo (2) streams.
// Higher channel counts are out of scope for §4.2.
func NewResampler(channels int) *Resampler {
	return &Resampler{channels: channels}
}

// Process consumes decoded frames from src (interleaved int16, r.channels
// per frame) starting at input frame 0, advancing a fixed-point phase that
// begins at fractional position frac with stride step, and writes exactly
// outCount frames of normalized float32 into dst (interleaved,
// r.channels per frame). It returns the number of whole input frames the
// accumulator advanced across, which the caller uses to know how far to
// move curBufferOffset (§4.6 step (e)), and the resulting fractional
// carry to pass into the next call.
//
// src must hold at least framesNeeded(outCount, step, frac)+1 frames - the
// trailing +1 is the lookahead frame linear interpolation needs at the last
// output sample; callers size decode caches accordingly (see
// extraDecodePadding in voice.go).
func (r *Resampler) Process(src []int16, frac uint64, step fixedStep, outCount int64, dst []float32) (framesAdvanced int64, newFrac uint64) {
	if step.isUnity() && frac == 0 {
		r.convertUnity(src, outCount, dst)
		return outCount, 0
	}
	switch r.channels {
	case 1:
		return resampleMono(src, frac, step, outCount, dst)
	case 2:
		return resampleStereo(src, frac, step, outCount, dst)
	default:
		return resampleMono(src, frac, step, outCount, dst)
	}
}

// convertUnity is the format-conversion short-circuit §4.2/§4.6(d)
// describes for an exact 1.0 ratio: no interpolation, just int16->float.
func (r *Resampler) convertUnity(src []int16, outCount int64, dst []float32) {
	n := int(outCount) * r.channels
	for i := 0; i < n && i < len(src); i++ {
		dst[i] = s16ToFloat(src[i])
	}
}

func s16ToFloat(v int16) float32 {
	return float32(v) / 32768.0
}

func lerp16(a, b int16, weight float64) float32 {
	af := float64(a)
	bf := float64(b)
	return float32((af + (bf-af)*weight) / 32768.0)
}

func resampleMono(src []int16, frac uint64, step fixedStep, outCount int64, dst []float32) (int64, uint64) {
	pos := frac
	var idx int64
	for i := int64(0); i < outCount; i++ {
		s0 := safeSample(src, idx)
		s1 := safeSample(src, idx+1)
		dst[i] = lerp16(s0, s1, float64(pos)/float64(fixedOne))

		pos += uint64(step)
		idx += int64(pos >> fixedFracBits)
		pos &= fixedFracMask
	}
	return idx, pos
}

func resampleStereo(src []int16, frac uint64, step fixedStep, outCount int64, dst []float32) (int64, uint64) {
	pos := frac
	var idx int64
	for i := int64(0); i < outCount; i++ {
		w := float64(pos) / float64(fixedOne)
		l0 := safeSample(src, idx*2)
		l1 := safeSample(src, idx*2+2)
		r0 := safeSample(src, idx*2+1)
		r1 := safeSample(src, idx*2+3)
		dst[i*2] = lerp16(l0, l1, w)
		dst[i*2+1] = lerp16(r0, r1, w)

		pos += uint64(step)
		idx += int64(pos >> fixedFracBits)
		pos &= fixedFracMask
	}
	return idx, pos
}

// safeSample returns src[i] or the last available sample if i runs past the
// end of a short cache, rather than panicking; the decode driver always
// stages enough lookahead (extraDecodePadding) so this is only a defensive
// backstop for the last frame of a stream.
func safeSample(src []int16, i int64) int16 {
	if i < 0 {
		return 0
	}
	if int(i) >= len(src) {
		if len(src) == 0 {
			return 0
		}
		return src[len(src)-1]
	}
	return src[i]
}

// ProcessFloat is Process's counterpart for float input that needs no int16
// scaling:
// a submix's input accumulator holds unclamped float samples (up to
// ±MAX_VOLUME_LEVEL, not ±1.0), so it is resampled directly instead of
// round-tripping through the 16-bit decode cache Process reads from (§3's
// submix pipeline is float accumulator straight through to float output).
func (r *Resampler) ProcessFloat(src []float32, frac uint64, step fixedStep, outCount int64, dst []float32) (framesAdvanced int64, newFrac uint64) {
	if step.isUnity() && frac == 0 {
		r.convertUnityFloat(src, outCount, dst)
		return outCount, 0
	}
	switch r.channels {
	case 1:
		return resampleMonoFloat(src, frac, step, outCount, dst)
	case 2:
		return resampleStereoFloat(src, frac, step, outCount, dst)
	default:
		return resampleMonoFloat(src, frac, step, outCount, dst)
	}
}

func (r *Resampler) convertUnityFloat(src []float32, outCount int64, dst []float32) {
	n := int(outCount) * r.channels
	for i := 0; i < n && i < len(src); i++ {
		dst[i] = src[i]
	}
}

func lerpF32(a, b float32, weight float64) float32 {
	af := float64(a)
	bf := float64(b)
	return float32(af + (bf-af)*weight)
}

func resampleMonoFloat(src []float32, frac uint64, step fixedStep, outCount int64, dst []float32) (int64, uint64) {
	pos := frac
	var idx int64
	for i := int64(0); i < outCount; i++ {
		s0 := safeSampleFloat(src, idx)
		s1 := safeSampleFloat(src, idx+1)
		dst[i] = lerpF32(s0, s1, float64(pos)/float64(fixedOne))

		pos += uint64(step)
		idx += int64(pos >> fixedFracBits)
		pos &= fixedFracMask
	}
	return idx, pos
}

func resampleStereoFloat(src []float32, frac uint64, step fixedStep, outCount int64, dst []float32) (int64, uint64) {
	pos := frac
	var idx int64
	for i := int64(0); i < outCount; i++ {
		w := float64(pos) / float64(fixedOne)
		l0 := safeSampleFloat(src, idx*2)
		l1 := safeSampleFloat(src, idx*2+2)
		r0 := safeSampleFloat(src, idx*2+1)
		r1 := safeSampleFloat(src, idx*2+3)
		dst[i*2] = lerpF32(l0, l1, w)
		dst[i*2+1] = lerpF32(r0, r1, w)

		pos += uint64(step)
		idx += int64(pos >> fixedFracBits)
		pos &= fixedFracMask
	}
	return idx, pos
}

// safeSampleFloat is safeSample's float counterpart for ProcessFloat's
// caches.
func safeSampleFloat(src []float32, i int64) float32 {
	if i < 0 {
		return 0
	}
	if int(i) >= len(src) {
		if len(src) == 0 {
			return 0
		}
		return src[len(src)-1]
	}
	return src[i]
}
