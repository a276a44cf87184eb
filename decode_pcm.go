//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import "encoding/binary"

// decodeFunc is the closed-set "decode function pointer" §3/§9 describe:
// one of mono/stereo x {PCM8, PCM16, MSADPCM} or the FFmpeg adaptor,
// selected once at voice creation and dispatched from decode_driver.go. It
// decodes samples frames starting at sample offset startSample within buf
// into dst, which holds interleaved 16-bit signed samples (channels per
// frame). Taking the full *Buffer rather than a raw byte slice lets the
// FFmpeg adaptor reach BufferWMA's packet-cumulative table for seek
// reconciliation (§4.5) through the same "(buffer, curOffset, decodeCache,
// samples)" contract §4.5 calls out explicitly.
type decodeFunc func(buf *Buffer, startSample int64, samples int64, dst []int16) error

// decodePCM8Mono promotes signed 8-bit samples to 16-bit by a left shift of
// 8, per §4.3.
func decodePCM8Mono(buf *Buffer, startSample int64, samples int64, dst []int16) error {
	data := buf.Data
	byteStart := startSample
	for i := int64(0); i < samples; i++ {
		idx := byteStart + i
		if idx < 0 || int(idx) >= len(data) {
			dst[i] = 0
			continue
		}
		dst[i] = int16(int8(data[idx])) << 8
	}
	return nil
}

// decodePCM8Stereo promotes interleaved signed 8-bit L/R samples to 16-bit.
func decodePCM8Stereo(buf *Buffer, startSample int64, samples int64, dst []int16) error {
	data := buf.Data
	byteStart := startSample * 2
	for i := int64(0); i < samples; i++ {
		li := byteStart + i*2
		ri := li + 1
		if li < 0 || int(ri) >= len(data) {
			dst[i*2] = 0
			dst[i*2+1] = 0
			continue
		}
		dst[i*2] = int16(int8(data[li])) << 8
		dst[i*2+1] = int16(int8(data[ri])) << 8
	}
	return nil
}

// decodePCM16Mono is a direct little-endian memory copy, samples*2 bytes
// starting at the (PlayBegin+curOffset)-scaled byte index (§4.3). No
// endian conversion is performed beyond the explicit little-endian read -
// the wire format is always little-endian 16-bit signed.
func decodePCM16Mono(buf *Buffer, startSample int64, samples int64, dst []int16) error {
	data := buf.Data
	byteStart := startSample * 2
	for i := int64(0); i < samples; i++ {
		idx := byteStart + i*2
		if idx < 0 || int(idx)+1 >= len(data) {
			dst[i] = 0
			continue
		}
		dst[i] = int16(binary.LittleEndian.Uint16(data[idx:]))
	}
	return nil
}

// decodePCM16Stereo is the stereo equivalent: samples*4 bytes copied.
func decodePCM16Stereo(buf *Buffer, startSample int64, samples int64, dst []int16) error {
	data := buf.Data
	byteStart := startSample * 4
	for i := int64(0); i < samples; i++ {
		li := byteStart + i*4
		ri := li + 2
		if li < 0 || int(ri)+1 >= len(data) {
			dst[i*2] = 0
			dst[i*2+1] = 0
			continue
		}
		dst[i*2] = int16(binary.LittleEndian.Uint16(data[li:]))
		dst[i*2+1] = int16(binary.LittleEndian.Uint16(data[ri:]))
	}
	return nil
}
