//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// MaxVolumeLevel is the per-accumulation clamp bound referenced by §6 but
// not given a value there; FAudio's own public header defines this as
// 2^24 and we use it verbatim (SPEC_FULL.md §12).
const MaxVolumeLevel = 16777216.0

// extraDecodePadding is the number of extra int16 frames allocated (and
// zero-filled) past the end of a decode request, per the Open Question in
// §9 ("overrun"). Kept as a documented contract, not "fixed".
const extraDecodePadding = 16

// VoiceKind distinguishes the three voice variants of §3. A tagged union
// with lifted common fields is used instead of an inheritance hierarchy,
// per §9's explicit design note.
type VoiceKind int

const (
	VoiceSource VoiceKind = iota
	VoiceSubmix
	VoiceMaster
)

// Send routes a voice's mixed output to a downstream destination with a
// per-channel-pair coefficient matrix (§3 Glossary "Send"). Coefficients
// is row-major by destination channel: Coefficients[co*srcChannels+ci]
// (§4.6 step 4's indexing, SPEC_FULL.md §12).
type Send struct {
	Destination *Voice
	Coefficients []float32
}

// NewIdentitySend builds the common 1-to-1 or 2-to-2 identity routing
// matrix, so callers connecting same-channel-count voices don't have to
// hand-build a coefficient matrix (SPEC_FULL.md §12).
func NewIdentitySend(dst *Voice, channels int) Send {
	coeffs := make([]float32, channels*channels)
	for c := 0; c < channels; c++ {
		coeffs[c*channels+c] = 1.0
	}
	return Send{Destination: dst, Coefficients: coeffs}
}

// Voice is the common record shared by Source, Submix, and Master voices
// (§3): channel count, per-channel volume vector, master volume scalar,
// send list, and (submix only) a processing stage.
type Voice struct {
	Name          string
	Kind          VoiceKind
	Channels      int
	ChannelVolume []float32
	Volume        float32
	Sends         []Send
	Stage         int

	Active bool

	Src    *SourceState
	Submix *SubmixState
	Master *MasterState
}

// outputRate returns the sample rate this voice's first send destination
// mixes at, or the given fallback (the master rate) if there are no
// sends (§4.6 step 1).
func (v *Voice) outputRate(masterRate uint32) uint32 {
	if len(v.Sends) == 0 {
		return masterRate
	}
	dst := v.Sends[0].Destination
	switch dst.Kind {
	case VoiceSubmix:
		return dst.Submix.InputSampleRate
	case VoiceMaster:
		return dst.Master.InputSampleRate
	default:
		return masterRate
	}
}

// SourceFormat describes a source voice's input encoding (§3).
type SourceFormat struct {
	Tag           FormatTag
	SampleRate    uint32
	Channels      int
	BitsPerSample int
	BlockAlign    int
	ExtraBytes    []byte
}

// FormatTag is the closed set of wave format tags §6 supports.
type FormatTag int

const (
	TagPCM FormatTag = iota
	TagMSADPCM
	TagWMAv2
	TagWMAv3
	TagXMA2
)

// SourceState adds source-voice-specific state to Voice (§3).
type SourceState struct {
	Format SourceFormat

	FreqRatio float64

	cachedStep       fixedStep
	cachedFreqRatio  float64
	cachedOutputRate uint32
	stepValid        bool

	Buffers             bufferQueue
	CurBufferOffset     int64
	CurBufferOffsetFrac uint64

	decode decodeFunc
	ffmpeg *ffmpegState

	decodeCache   []int16
	resampleCache []float32
	resampler     *Resampler

	Callbacks *VoiceCallbacks
}

// SubmixState adds submix-voice-specific state to Voice (§3).
type SubmixState struct {
	InputSampleRate uint32
	InputChannels   int

	InputAccum []float32

	outputCache []float32
	resampler   *Resampler

	cachedStep       fixedStep
	cachedFreqRatio  float64
	cachedOutputRate uint32
	stepValid        bool
	phaseFrac        uint64
}

// MasterState adds master-voice-specific state to Voice (§3). Output is
// borrowed from the caller for the duration of a single tick only.
type MasterState struct {
	InputSampleRate uint32
	InputChannels   int
	Output          []float32
}

// NewMasterVoice creates the engine's terminal voice.
func NewMasterVoice(sampleRate uint32, channels int) *Voice {
	return &Voice{
		Name:          "master",
		Kind:          VoiceMaster,
		Channels:      channels,
		ChannelVolume: onesVector(channels),
		Volume:        1.0,
		Active:        true,
		Master: &MasterState{
			InputSampleRate: sampleRate,
			InputChannels:   channels,
		},
	}
}

// NewSubmixVoice creates a submix voice at the given processing stage
// (lower stages run first, §4.9).
func NewSubmixVoice(name string, sampleRate uint32, channels int, stage int) *Voice {
	return &Voice{
		Name:          name,
		Kind:          VoiceSubmix,
		Channels:      channels,
		ChannelVolume: onesVector(channels),
		Volume:        1.0,
		Stage:         stage,
		Active:        true,
		Submix: &SubmixState{
			InputSampleRate: sampleRate,
			InputChannels:   channels,
			resampler:       NewResampler(channels),
		},
	}
}

func onesVector(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1.0
	}
	return v
}
