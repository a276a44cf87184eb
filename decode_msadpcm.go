//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import "encoding/binary"

// msadpcmAdaption and msadpcmCoeff{1,2} are the constant tables §4.4
// specifies, package-level lookup tables in the same shape as the
// teacher's coeff.go coeffData quality-level tables.
var msadpcmAdaption = [16]int32{230, 230, 230, 230, 307, 409, 512, 614, 768, 614, 512, 409, 307, 230, 230, 230}

var msadpcmCoeff1 = [7]int32{256, 512, 0, 192, 240, 460, 392}
var msadpcmCoeff2 = [7]int32{0, -256, 0, 64, 0, -208, -232}

// msadpcmChannelState carries the per-channel adaptive predictor state
// across nibbles within a block (§4.4).
type msadpcmChannelState struct {
	predictor int32
	delta     int32
	sample1   int32
	sample2   int32
}

func clampS16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// decodeNibble applies §4.4's per-nibble formula, sign-extending nibble to
// [-8,7], and returns the new decoded sample, mutating st in place.
// Predictor values outside [0,6] are not validated (§4.4, §9) - the index
// is masked into table range so Go doesn't panic, and a single warning is
// logged the first time per block (defensive zero-fill posture of §7
// without pretending to "fix" the undefined behavior).
func (st *msadpcmChannelState) decodeNibble(nibble byte) int16 {
	signed := int32(nibble)
	if signed >= 8 {
		signed -= 16
	}
	p := int(st.predictor) & 0x7
	if p > 6 {
		p &= 0x3 // fold the two unused high codes defensively; logged by caller
	}
	predicted := (st.sample1*msadpcmCoeff1[p] + st.sample2*msadpcmCoeff2[p]) / 256
	out := clampS16(predicted + signed*st.delta)
	st.sample2 = st.sample1
	st.sample1 = int32(out)
	newDelta := (msadpcmAdaption[nibble] * st.delta) / 256
	if newDelta < 16 {
		newDelta = 16
	}
	st.delta = newDelta
	return out
}

// msadpcmBlockLayout describes the fixed geometry of one MSADPCM block for
// a given nBlockAlign and channel count, per §4.4.
type msadpcmBlockLayout struct {
	channels     int
	blockAlign   int64
	byteSize     int64 // bytes per block
	sampleCount  int64 // decoded samples per block, per channel
	preambleSize int64 // bytes of header before nibble data
}

func newMSADPCMBlockLayout(channels int, blockAlign int) msadpcmBlockLayout {
	l := msadpcmBlockLayout{channels: channels, blockAlign: int64(blockAlign)}
	l.sampleCount = (l.blockAlign + 16) * 2
	if channels == 1 {
		l.byteSize = l.blockAlign + 22
		l.preambleSize = 7
	} else {
		l.byteSize = (l.blockAlign + 22) * 2
		l.preambleSize = 14
	}
	return l
}

// decodeBlock decodes one full MSADPCM block into interleaved int16 frames
// (channels per frame, l.sampleCount frames total).
func (l msadpcmBlockLayout) decodeBlock(block []byte, out []int16, voiceName string) {
	if int64(len(block)) < l.byteSize {
		logContractViolation(voiceName, "MSADPCM block shorter than required byte size")
	}
	if l.channels == 1 {
		l.decodeBlockMono(block, out, voiceName)
	} else {
		l.decodeBlockStereo(block, out, voiceName)
	}
}

func readByte(block []byte, i int64) byte {
	if i < 0 || int(i) >= len(block) {
		return 0
	}
	return block[i]
}

func readS16LE(block []byte, i int64) int16 {
	if i < 0 || int(i)+1 >= len(block) {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(block[i:]))
}

func (l msadpcmBlockLayout) decodeBlockMono(block []byte, out []int16, voiceName string) {
	st := msadpcmChannelState{
		predictor: int32(readByte(block, 0)),
		delta:     int32(readS16LE(block, 1)),
		sample1:   int32(readS16LE(block, 3)),
		sample2:   int32(readS16LE(block, 5)),
	}
	if st.predictor > 6 {
		logContractViolation(voiceName, "MSADPCM predictor out of range [0,6]")
	}

	// §4.4: initial two output samples are sample1 then sample2.
	out[0] = int16(st.sample1)
	out[1] = int16(st.sample2)

	nibbleBytes := block[l.preambleSize:]
	outIdx := 2
	for _, b := range nibbleBytes {
		if outIdx >= int(l.sampleCount) {
			break
		}
		out[outIdx] = st.decodeNibble(b >> 4)
		outIdx++
		if outIdx >= int(l.sampleCount) {
			break
		}
		out[outIdx] = st.decodeNibble(b & 0x0F)
		outIdx++
	}
}

func (l msadpcmBlockLayout) decodeBlockStereo(block []byte, out []int16, voiceName string) {
	stL := msadpcmChannelState{
		predictor: int32(readByte(block, 0)),
		delta:     0,
	}
	stR := msadpcmChannelState{
		predictor: int32(readByte(block, 1)),
	}
	stL.delta = int32(readS16LE(block, 2))
	stR.delta = int32(readS16LE(block, 4))
	stL.sample1 = int32(readS16LE(block, 6))
	stR.sample1 = int32(readS16LE(block, 8))
	stL.sample2 = int32(readS16LE(block, 10))
	stR.sample2 = int32(readS16LE(block, 12))

	if stL.predictor > 6 || stR.predictor > 6 {
		logContractViolation(voiceName, "MSADPCM predictor out of range [0,6]")
	}

	// §4.4: initial interleaved frames are sample2_L,sample2_R,sample1_L,sample1_R.
	out[0] = int16(stL.sample2)
	out[1] = int16(stR.sample2)
	out[2] = int16(stL.sample1)
	out[3] = int16(stR.sample1)

	nibbleBytes := block[l.preambleSize:]
	frame := 2
	for _, b := range nibbleBytes {
		if frame >= int(l.sampleCount) {
			break
		}
		out[frame*2] = stL.decodeNibble(b >> 4)
		out[frame*2+1] = stR.decodeNibble(b & 0x0F)
		frame++
	}
}

// newMSADPCMDecoder builds a decodeFunc closed over the fixed block
// geometry for a voice's format (§4.4's "decoder entry point accepts an
// arbitrary (curOffset, samples) window" - it locates the enclosing block,
// may begin mid-block, and iterates subsequent blocks until samples are
// produced).
func newMSADPCMDecoder(channels int, blockAlign int, voiceName string) decodeFunc {
	layout := newMSADPCMBlockLayout(channels, blockAlign)
	return func(buf *Buffer, startSample int64, samples int64, dst []int16) error {
		data := buf.Data
		blockSamples := layout.sampleCount
		if blockSamples <= 0 {
			return nil
		}
		scratch := make([]int16, blockSamples*int64(channels))
		produced := int64(0)
		cursor := startSample
		for produced < samples {
			blockIdx := cursor / blockSamples
			offsetInBlock := cursor % blockSamples
			blockByteStart := blockIdx * layout.byteSize
			if blockByteStart < 0 || blockByteStart >= int64(len(data)) {
				// Past the end of what the client supplied: zero-fill the rest.
				for i := produced; i < samples; i++ {
					for c := 0; c < channels; c++ {
						dst[i*int64(channels)+int64(c)] = 0
					}
				}
				return nil
			}
			blockEnd := blockByteStart + layout.byteSize
			if blockEnd > int64(len(data)) {
				blockEnd = int64(len(data))
			}
			layout.decodeBlock(data[blockByteStart:blockEnd], scratch, voiceName)

			avail := blockSamples - offsetInBlock
			toCopy := samples - produced
			if toCopy > avail {
				toCopy = avail
			}
			srcStart := offsetInBlock * int64(channels)
			dstStart := produced * int64(channels)
			copy(dst[dstStart:dstStart+toCopy*int64(channels)], scratch[srcStart:srcStart+toCopy*int64(channels)])

			produced += toCopy
			cursor += toCopy
		}
		return nil
	}
}
