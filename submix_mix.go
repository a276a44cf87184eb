//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// mixSubmixVoice runs §4.8 for a single submix: resample its input
// accumulator (already filled by upstream sends this tick) to the output
// rate, apply channelVolume*volume, then accumulate into its own sends
// using the same coefficient-matrix formula as source mix (§4.6 step 4).
// The input accumulator is zeroed afterward so the next tick starts clean.
func mixSubmixVoice(v *Voice, masterRate uint32, outputSamples int64) {
	sm := v.Submix

	outRate := v.outputRate(masterRate)
	if !sm.stepValid || sm.cachedFreqRatio != 1.0 || sm.cachedOutputRate != outRate {
		sm.cachedStep = computeStep(1.0, sm.InputSampleRate, outRate)
		sm.cachedFreqRatio = 1.0
		sm.cachedOutputRate = outRate
		sm.stepValid = true
	}
	step := sm.cachedStep

	need := framesNeeded(outputSamples, step, sm.phaseFrac) + 1
	if int64(len(sm.InputAccum))/int64(sm.InputChannels) < need {
		need = int64(len(sm.InputAccum)) / int64(sm.InputChannels)
	}
	if need < 0 {
		need = 0
	}

	toResample := outputSamples
	maxByInput := framesAdvanceable(need, step, sm.phaseFrac)
	if toResample > maxByInput {
		toResample = maxByInput
	}
	if toResample < 0 {
		toResample = 0
	}

	if cap(sm.outputCache) < int(outputSamples)*sm.InputChannels {
		sm.outputCache = make([]float32, outputSamples*int64(sm.InputChannels))
	}
	sm.outputCache = sm.outputCache[:outputSamples*int64(sm.InputChannels)]

	if toResample > 0 {
		_, newFrac := sm.resampler.ProcessFloat(sm.InputAccum, sm.phaseFrac, step, toResample, sm.outputCache)
		sm.phaseFrac = newFrac
	}

	applyVoiceVolume(v, sm.outputCache, toResample)

	if toResample > 0 && len(v.Sends) > 0 {
		accumulateSends(v, sm.outputCache, toResample)
	}

	zeroFloat(sm.InputAccum)
}

// applyVoiceVolume scales each sample by channelVolume[channel]*volume in
// place (§4.8's "per-input-channel volume" stage).
func applyVoiceVolume(v *Voice, buf []float32, frames int64) {
	chans := v.Channels
	for j := int64(0); j < frames; j++ {
		for c := 0; c < chans; c++ {
			idx := j*int64(chans) + int64(c)
			if int(idx) >= len(buf) {
				continue
			}
			cv := float32(1.0)
			if c < len(v.ChannelVolume) {
				cv = v.ChannelVolume[c]
			}
			buf[idx] *= cv * v.Volume
		}
	}
}

func zeroFloat(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
