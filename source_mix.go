//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// mixSourceVoice runs the §4.6 per-tick protocol for a single active source
// voice: recompute the resample step if needed, decode-drive and resample
// until outputSamples frames are produced (or the buffer queue runs dry),
// then accumulate into each send destination through its coefficient
// matrix.
func mixSourceVoice(v *Voice, masterRate uint32, outputSamples int64) {
	st := v.Src

	outRate := v.outputRate(masterRate)
	if !st.stepValid || st.cachedFreqRatio != st.FreqRatio || st.cachedOutputRate != outRate {
		st.cachedStep = computeStep(st.FreqRatio, st.Format.SampleRate, outRate)
		st.cachedFreqRatio = st.FreqRatio
		st.cachedOutputRate = outRate
		st.stepValid = true
	}
	step := st.cachedStep

	st.Callbacks.fireVoiceStart(int(outputSamples) * 2)

	mixed := int64(0)
	for mixed < outputSamples && !st.Buffers.empty() {
		remaining := outputSamples - mixed

		toDecode := framesNeeded(remaining, step, st.CurBufferOffsetFrac)
		maxDecode := int64(len(st.decodeCache))/int64(st.Format.Channels) - 1
		if maxDecode < 0 {
			maxDecode = 0
		}
		if toDecode > maxDecode {
			toDecode = maxDecode
		}
		if toDecode <= 0 {
			break
		}

		resetOffset := driveDecode(v.Name, st, toDecode)

		toResample := remaining
		maxByDecoded := framesAdvanceable(toDecode, step, st.CurBufferOffsetFrac)
		if toResample > maxByDecoded {
			toResample = maxByDecoded
		}
		if toResample <= 0 {
			break
		}

		dst := st.resampleCache[mixed*int64(st.Format.Channels) : (mixed+toResample)*int64(st.Format.Channels)]
		advanced, newFrac := st.resampler.Process(st.decodeCache, st.CurBufferOffsetFrac, step, toResample, dst)

		st.CurBufferOffset += advanced - resetOffset
		st.CurBufferOffsetFrac = newFrac

		mixed += toResample
	}

	if mixed > 0 && len(v.Sends) > 0 {
		accumulateSends(v, st.resampleCache, mixed)
	}

	st.Callbacks.fireVoiceEnd()
}

// framesAdvanceable returns how many output frames a phase accumulator
// starting at fractionalCarry with the given step can produce while
// consuming no more than decodedFrames whole input frames - the inverse of
// framesNeeded, used to cap toResample to what was actually decoded (§4.6
// step c).
func framesAdvanceable(decodedFrames int64, step fixedStep, fractionalCarry uint64) int64 {
	if step == 0 {
		return decodedFrames
	}
	budget := uint64(decodedFrames)<<fixedFracBits + fixedFracMask - fractionalCarry
	return int64(budget / uint64(step))
}

// accumulateSends implements §4.6 step 4: for each send, accumulate
// clamp(src[j*iChan+ci]*channelVolume[ci]*volume*coefficient[co*iChan+ci],
// ±MAX_VOLUME_LEVEL) into dst[j*oChan+co]. Each (j, co, ci) term is clamped
// individually before being added; the running destination sum itself is
// never re-clamped (§6: "the final sum is not re-clamped").
func accumulateSends(v *Voice, src []float32, frames int64) {
	iChan := v.Channels
	for _, send := range v.Sends {
		dst := send.Destination
		oChan := dst.Channels
		accum := destinationAccumulator(dst)
		if accum == nil {
			continue
		}
		for j := int64(0); j < frames; j++ {
			for co := 0; co < oChan; co++ {
				idx := j*int64(oChan) + int64(co)
				if int(idx) >= len(accum) {
					continue
				}
				for ci := 0; ci < iChan; ci++ {
					coeff := send.Coefficients[co*iChan+ci]
					s := src[j*int64(iChan)+int64(ci)]
					cv := float32(1.0)
					if ci < len(v.ChannelVolume) {
						cv = v.ChannelVolume[ci]
					}
					term := clampVolume(s * cv * v.Volume * coeff)
					accum[idx] += term
				}
			}
		}
	}
}

// destinationAccumulator returns the input accumulator a send target
// writes into: a submix's InputAccum, or the master's Output buffer
// (borrowed from the caller for the tick, §4.9).
func destinationAccumulator(dst *Voice) []float32 {
	switch dst.Kind {
	case VoiceSubmix:
		return dst.Submix.InputAccum
	case VoiceMaster:
		return dst.Master.Output
	default:
		return nil
	}
}

func clampVolume(v float32) float32 {
	if v > MaxVolumeLevel {
		return MaxVolumeLevel
	}
	if v < -MaxVolumeLevel {
		return -MaxVolumeLevel
	}
	return v
}
