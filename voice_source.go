//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import "fmt"

// maxSamplesPerTick bounds the scratch buffers a source voice allocates;
// NewSourceVoice returns an error for a samplesPerTick above it.
// UpdateEngine does not check its own samplesPerTick argument against it.
const maxSamplesPerTick = 1 << 16

// NewSourceVoice creates a source voice, selecting its decode function
// from the closed set {mono/stereo x {PCM8,PCM16,MSADPCM}} or the FFmpeg
// adaptor (§3, §6 "Format selection"). Codec selection happens once here;
// §4.7 dispatches through the resulting decodeFunc without ever branching
// on the format tag again.
func NewSourceVoice(name string, format SourceFormat, samplesPerTick int, maxSourceFramesPerTick int, callbacks *VoiceCallbacks) (*Voice, error) {
	if format.Channels != 1 && format.Channels != 2 {
		return nil, mapError(ErrUnsupportedFormat)
	}
	if samplesPerTick <= 0 || samplesPerTick > maxSamplesPerTick {
		return nil, fmt.Errorf("xamix: samplesPerTick %d out of range", samplesPerTick)
	}
	if maxSourceFramesPerTick < samplesPerTick {
		maxSourceFramesPerTick = samplesPerTick
	}

	st := &SourceState{
		Format:    format,
		FreqRatio: 1.0,
		Callbacks: callbacks,
		resampler: NewResampler(format.Channels),
	}

	var err error
	st.decode, st.ffmpeg, err = selectDecoder(name, format)
	if err != nil {
		return nil, err
	}

	// §3: "scratch buffers sized to the worst-case samples per tick" - the
	// decode cache must hold maxSourceFramesPerTick (the most source-rate
	// frames a pitched-up voice could need to decode in one tick) plus the
	// §9 overrun padding; the resample cache only ever needs to hold
	// samplesPerTick output frames.
	decodeFrames := maxSourceFramesPerTick + extraDecodePadding
	st.decodeCache = make([]int16, decodeFrames*format.Channels)
	st.resampleCache = make([]float32, (samplesPerTick+extraDecodePadding)*format.Channels)

	return &Voice{
		Name:          name,
		Kind:          VoiceSource,
		Channels:      format.Channels,
		ChannelVolume: onesVector(format.Channels),
		Volume:        1.0,
		Active:        true,
		Src:           st,
	}, nil
}

// selectDecoder performs §6's format-tag dispatch. PCM is further split by
// bit depth and channel count; WMAv2, WMAv3 and XMA2 map to a codec by tag
// alone, so channel count does not change the codec chosen for them. All
// tags outside the supported set are rejected with
// UNSUPPORTED_FORMAT; no partial state is left behind on failure (§7).
func selectDecoder(name string, format SourceFormat) (decodeFunc, *ffmpegState, error) {
	switch format.Tag {
	case TagPCM:
		switch format.BitsPerSample {
		case 8:
			if format.Channels == 1 {
				return decodePCM8Mono, nil, nil
			}
			return decodePCM8Stereo, nil, nil
		case 16:
			if format.Channels == 1 {
				return decodePCM16Mono, nil, nil
			}
			return decodePCM16Stereo, nil, nil
		default:
			return nil, nil, mapError(ErrUnsupportedFormat)
		}
	case TagMSADPCM:
		return newMSADPCMDecoder(format.Channels, format.BlockAlign, name), nil, nil
	case TagWMAv2, TagWMAv3, TagXMA2:
		fs, err := newFFmpegState(format)
		if err != nil {
			return nil, nil, err
		}
		return fs.decode, fs, nil
	default:
		return nil, nil, mapError(ErrUnsupportedFormat)
	}
}

// QueueBuffer appends a buffer to a source voice's playback queue (§3
// "Buffers are submitted by the client, consumed head-first").
func (v *Voice) QueueBuffer(b *Buffer) error {
	if v.Kind != VoiceSource || v.Src == nil {
		return mapError(ErrBadState)
	}
	if len(v.Src.Buffers.items) == 0 {
		// First buffer in an empty queue starts at its own PlayBegin.
		v.Src.CurBufferOffset = b.PlayBegin
		v.Src.CurBufferOffsetFrac = 0
	}
	v.Src.Buffers.push(b)
	return nil
}

// SetFrequencyRatio updates a source voice's pitch ratio (§3). The
// resample step is recomputed lazily on the next tick (§4.6 step 1).
func (v *Voice) SetFrequencyRatio(ratio float64) error {
	if v.Kind != VoiceSource || v.Src == nil {
		return mapError(ErrBadState)
	}
	v.Src.FreqRatio = ratio
	return nil
}
