//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// EngineCallbacks are optional engine-wide lifecycle hooks fired once per
// tick, never from outside a tick (§6).
type EngineCallbacks struct {
	OnProcessingPassStart func()
	OnProcessingPassEnd   func()
}

// VoiceCallbacks are the optional per-source-voice lifecycle hooks of §6.
// Every field may be nil; absent/present is the only dispatch needed (§9
// "Callback interface").
type VoiceCallbacks struct {
	OnVoiceProcessingPassStart func(requestedBytes int)
	OnVoiceProcessingPassEnd   func()
	OnBufferStart              func(ctx any)
	OnBufferEnd                func(ctx any)
	OnLoopEnd                  func(ctx any)
	OnStreamEnd                func()
}

func (c *VoiceCallbacks) fireVoiceStart(bytes int) {
	if c != nil && c.OnVoiceProcessingPassStart != nil {
		c.OnVoiceProcessingPassStart(bytes)
	}
}

func (c *VoiceCallbacks) fireVoiceEnd() {
	if c != nil && c.OnVoiceProcessingPassEnd != nil {
		c.OnVoiceProcessingPassEnd()
	}
}

func (c *VoiceCallbacks) fireBufferStart(ctx any) {
	if c != nil && c.OnBufferStart != nil {
		c.OnBufferStart(ctx)
	}
}

func (c *VoiceCallbacks) fireBufferEnd(ctx any) {
	if c != nil && c.OnBufferEnd != nil {
		c.OnBufferEnd(ctx)
	}
}

func (c *VoiceCallbacks) fireLoopEnd(ctx any) {
	if c != nil && c.OnLoopEnd != nil {
		c.OnLoopEnd(ctx)
	}
}

func (c *VoiceCallbacks) fireStreamEnd() {
	if c != nil && c.OnStreamEnd != nil {
		c.OnStreamEnd()
	}
}
