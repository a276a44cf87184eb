//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// Engine owns the voice graph and drives ticks (§3, §4.9). Voices are
// registered by the caller; the tick order (sources unordered, submixes by
// ascending stage) is enforced here rather than by the caller sorting its
// own slices.
type Engine struct {
	SampleRate     uint32
	SubmixStages   int
	SamplesPerTick int

	Active bool

	Master  *Voice
	Sources []*Voice
	Submixes []*Voice

	Callbacks *EngineCallbacks
}

// NewEngine creates an engine with a master voice at the given rate and
// channel count, and the given number of submix processing stages (§4.9's
// "for stage = 0..submixStages-1").
func NewEngine(sampleRate uint32, masterChannels int, submixStages int, samplesPerTick int) *Engine {
	return &Engine{
		SampleRate:     sampleRate,
		SubmixStages:   submixStages,
		SamplesPerTick: samplesPerTick,
		Active:         true,
		Master:         NewMasterVoice(sampleRate, masterChannels),
	}
}

// AddSourceVoice registers a source voice with the engine.
func (e *Engine) AddSourceVoice(v *Voice) {
	e.Sources = append(e.Sources, v)
}

// AddSubmixVoice registers a submix voice with the engine.
func (e *Engine) AddSubmixVoice(v *Voice) {
	e.Submixes = append(e.Submixes, v)
}

// UpdateEngine runs one tick, writing samplesPerTick frames of interleaved
// float32 master-channel audio into out (§4.9). out must hold at least
// samplesPerTick*masterChannels float32s; it is zeroed before sources and
// submixes accumulate into it through the master voice's sends path, or
// written to directly if voices send straight to master.
func (e *Engine) UpdateEngine(out []float32, samplesPerTick int) {
	if !e.Active {
		return
	}

	fireEngineStart(e.Callbacks)

	zeroFloat(out)
	e.Master.Master.Output = out

	for _, sm := range e.Submixes {
		need := samplesPerTick * sm.Channels
		if len(sm.Submix.InputAccum) < need {
			sm.Submix.InputAccum = make([]float32, need)
		}
	}

	for _, v := range e.Sources {
		if !v.Active || v.Src == nil {
			continue
		}
		mixSourceVoice(v, e.SampleRate, int64(samplesPerTick))
	}

	for stage := 0; stage < e.SubmixStages; stage++ {
		for _, v := range e.Submixes {
			if !v.Active || v.Submix == nil || v.Stage != stage {
				continue
			}
			mixSubmixVoice(v, e.SampleRate, int64(samplesPerTick))
		}
	}

	fireEngineEnd(e.Callbacks)
}

func fireEngineStart(c *EngineCallbacks) {
	if c != nil && c.OnProcessingPassStart != nil {
		c.OnProcessingPassStart()
	}
}

func fireEngineEnd(c *EngineCallbacks) {
	if c != nil && c.OnProcessingPassEnd != nil {
		c.OnProcessingPassEnd()
	}
}
