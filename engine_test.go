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

func pcm16MonoBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// TestEngineSingleTickUnityMono drives Testable Property S1 through a full
// engine tick: a mono PCM16 44100Hz source at freqRatio=1.0, sent directly
// to a 44100Hz mono master, produces the expected float conversion for one
// 8-sample tick.
func TestEngineSingleTickUnityMono(t *testing.T) {
	eng := NewEngine(44100, 1, 1, 8)

	samples := []int16{0, 16384, -16384, 32767, -32768, 0, 8192, -8192}
	format := SourceFormat{Tag: TagPCM, SampleRate: 44100, Channels: 1, BitsPerSample: 16}
	voice, err := NewSourceVoice("s1", format, 8, 8, nil)
	require.NoError(t, err)
	voice.Sends = []Send{NewIdentitySend(eng.Master, 1)}

	require.NoError(t, voice.QueueBuffer(&Buffer{
		Data:       pcm16MonoBytes(samples),
		PlayBegin:  0,
		PlayLength: int64(len(samples)),
		Flags:      BufferEndOfStream,
	}))

	eng.AddSourceVoice(voice)

	out := make([]float32, 8)
	eng.UpdateEngine(out, 8)

	want := []float32{0, 0.5, -0.5, 0.99997, -1.0, 0, 0.25, -0.25}
	for i := range want {
		assert.InDeltaf(t, want[i], out[i], 1e-4, "sample %d", i)
	}
}

// TestEngineInactiveSkipsTick verifies an inactive engine leaves the output
// buffer untouched by the tick logic (§4.9 "if the engine is inactive,
// return").
func TestEngineInactiveSkipsTick(t *testing.T) {
	eng := NewEngine(44100, 1, 1, 8)
	eng.Active = false

	out := []float32{1, 2, 3}
	eng.UpdateEngine(out, 3)

	assert.Equal(t, []float32{1, 2, 3}, out)
}

// TestEngineSubmixStageOrdering verifies a source routed through a submix
// reaches the master output, exercising §4.9's source-then-submix-by-stage
// traversal.
func TestEngineSubmixStageOrdering(t *testing.T) {
	eng := NewEngine(44100, 1, 1, 8)
	submix := NewSubmixVoice("sub", 44100, 1, 0)
	submix.Sends = []Send{NewIdentitySend(eng.Master, 1)}
	eng.AddSubmixVoice(submix)

	samples := make([]int16, 8)
	for i := range samples {
		samples[i] = int16((i + 1) * 1000)
	}
	format := SourceFormat{Tag: TagPCM, SampleRate: 44100, Channels: 1, BitsPerSample: 16}
	voice, err := NewSourceVoice("src", format, 8, 8, nil)
	require.NoError(t, err)
	voice.Sends = []Send{NewIdentitySend(submix, 1)}
	require.NoError(t, voice.QueueBuffer(&Buffer{
		Data:       pcm16MonoBytes(samples),
		PlayBegin:  0,
		PlayLength: int64(len(samples)),
		Flags:      BufferEndOfStream,
	}))
	eng.AddSourceVoice(voice)

	out := make([]float32, 8)
	eng.UpdateEngine(out, 8)

	var anyNonZero bool
	for _, v := range out {
		if v != 0 {
			anyNonZero = true
		}
	}
	assert.True(t, anyNonZero, "submix-routed source should reach master output")
}
