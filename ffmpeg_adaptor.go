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
	"errors"
	"fmt"
	"math"
	"unsafe"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"
)

// codecTrailingPadding is the zero padding FFmpeg's packet-framed audio
// decoders require past the last real byte of a packet (§4.5 "Packet
// feeding"). AV_INPUT_BUFFER_PADDING_SIZE upstream.
const codecTrailingPadding = 64

// ffmpegState is the per-source-voice state §3 "FFmpeg State" describes:
// an encoded-byte cursor, a decoded-sample cursor, a lazily grown padding
// buffer, and a float decoded-frame staging cache with its own read
// offset. Grounded on the push-packet/pull-frame loop and planar-to-
// interleaved transpose in linuxmatters-jivefire's ffmpeg_decoder.go.
type ffmpegState struct {
	format SourceFormat

	codecCtx *ffmpeg.AVCodecContext
	packet   *ffmpeg.AVPacket
	frame    *ffmpeg.AVFrame

	channels   int
	blockAlign int64

	// currentBuf/encOffset track progress through the buffer currently
	// being fed; they're reset whenever the decode entry point is called
	// with a different *Buffer than last time.
	currentBuf *Buffer
	encOffset  int64
	decOffset  int64

	padding []byte

	convertCache  []float32 // interleaved float, channels per frame
	convertSamples int64
	convertOffset  int64

	voiceName string
}

// newFFmpegState allocates and opens the codec context for a WMAv2/WMAv3/
// XMA2 source voice (§6 "Format selection"). There is no demuxer here -
// XAudio2 buffers already hand the core raw encoded packets, so the
// adaptor talks to the codec layer directly instead of via
// AVFormatContext, unlike the donor file (which opens a container).
func newFFmpegState(format SourceFormat) (*ffmpegState, error) {
	codecID, err := ffmpegCodecID(format)
	if err != nil {
		return nil, err
	}

	decoder := ffmpeg.AVCodecFindDecoder(codecID)
	if decoder == nil {
		return nil, mapError(ErrCodecAlloc)
	}

	codecCtx := ffmpeg.AVCodecAllocContext3(decoder)
	if codecCtx == nil {
		return nil, mapError(ErrCodecAlloc)
	}
	codecCtx.SetSampleRate(int(format.SampleRate))
	codecCtx.SetChannels(format.Channels)
	codecCtx.SetBlockAlign(format.BlockAlign)
	if len(format.ExtraBytes) > 0 {
		codecCtx.SetExtraData(format.ExtraBytes)
	}

	if ret, err := ffmpeg.AVCodecOpen2(codecCtx, decoder, nil); err != nil || ret < 0 {
		return nil, mapError(ErrCodecOpen)
	}

	packet := ffmpeg.AVPacketAlloc()
	frame := ffmpeg.AVFrameAlloc()
	if packet == nil || frame == nil {
		return nil, mapError(ErrCodecAlloc)
	}

	return &ffmpegState{
		format:     format,
		codecCtx:   codecCtx,
		packet:     packet,
		frame:      frame,
		channels:   format.Channels,
		blockAlign: int64(format.BlockAlign),
	}, nil
}

func ffmpegCodecID(format SourceFormat) (ffmpeg.AVCodecID, error) {
	switch format.Tag {
	case TagWMAv2:
		return ffmpeg.AV_CODEC_ID_WMAV2, nil
	case TagWMAv3:
		return ffmpeg.AV_CODEC_ID_WMAPRO, nil
	case TagXMA2:
		return ffmpeg.AV_CODEC_ID_XMA2, nil
	default:
		return 0, mapError(ErrUnsupportedFormat)
	}
}

// decode is this adaptor's decodeFunc-compatible entry point, presenting
// the identical (buffer, curOffset, decodeCache, samples) contract the
// PCM/MSADPCM decoders use (§4.5).
func (f *ffmpegState) decode(buf *Buffer, startSample int64, samples int64, dst []int16) error {
	if buf != f.currentBuf {
		f.currentBuf = buf
		f.encOffset = 0
		f.decOffset = 0
		f.convertSamples = 0
		f.convertOffset = 0
	}

	if err := f.reconcilePosition(startSample); err != nil {
		logDecodeError(f.voiceName, err)
		zeroInt16(dst)
		return nil
	}

	produced := int64(0)
	total := samples
	for produced < total {
		if f.convertOffset >= f.convertSamples {
			if err := f.fillOneFrame(); err != nil {
				logDecodeError(f.voiceName, err)
				zeroInt16(dst[produced*int64(f.channels):])
				return nil
			}
		}
		avail := f.convertSamples - f.convertOffset
		n := total - produced
		if n > avail {
			n = avail
		}
		srcStart := f.convertOffset * int64(f.channels)
		for i := int64(0); i < n*int64(f.channels); i++ {
			dst[produced*int64(f.channels)+i] = floatToS16(f.convertCache[srcStart+i])
		}
		f.convertOffset += n
		f.decOffset += n
		produced += n
	}
	return nil
}

// reconcilePosition implements §4.5 "Seek reconciliation": equal cursors
// need no action, a small backward delta rewinds locally within the
// staged frame, and anything else is a packet-level seek driven by the
// buffer's cumulative packet-byte table.
func (f *ffmpegState) reconcilePosition(curBufferOffset int64) error {
	if curBufferOffset == f.decOffset {
		return nil
	}
	if curBufferOffset < f.decOffset {
		delta := f.decOffset - curBufferOffset
		if delta <= f.convertOffset {
			f.convertOffset -= delta
			f.decOffset -= delta
			return nil
		}
	}
	return f.seekToSample(curBufferOffset)
}

// seekToSample performs the packet-level seek §4.5 describes, using the
// buffer's BufferWMA cumulative decoded-byte table to locate the packet
// that first covers the requested sample.
func (f *ffmpegState) seekToSample(targetSample int64) error {
	wma := f.currentBuf.WMA
	if wma == nil || len(wma.PacketCumulativeBytes) == 0 {
		return errors.New("xamix: ffmpeg seek requires BufferWMA cumulative table")
	}
	outputSampleSize := int64(4 * f.channels) // float32 per channel
	targetByte := targetSample * outputSampleSize

	packetIndex, cumulativeBefore := locatePacket(wma.PacketCumulativeBytes, wma.PacketCount, targetByte)

	f.encOffset = int64(packetIndex) * f.blockAlign
	f.convertSamples = 0
	f.convertOffset = 0
	if err := f.fillOneFrame(); err != nil {
		return err
	}
	f.convertOffset = (targetByte - cumulativeBefore) / outputSampleSize
	if f.convertOffset < 0 {
		f.convertOffset = 0
	}
	if f.convertOffset > f.convertSamples {
		f.convertOffset = f.convertSamples
	}
	f.decOffset = targetSample
	return nil
}

// fillOneFrame implements §4.5 "Packet feeding": pull a frame; if the
// codec wants more data, feed one packet of nBlockAlign bytes (padding
// the trailing bytes when the buffer runs short) and retry.
func (f *ffmpegState) fillOneFrame() error {
	for {
		ret, err := ffmpeg.AVCodecReceiveFrame(f.codecCtx, f.frame)
		if err == nil && ret >= 0 {
			return f.stageFrame()
		}
		if !errors.Is(err, ffmpeg.EAgain) {
			return fmt.Errorf("ffmpeg receive frame: %w", err)
		}

		packetData, eof := f.nextPacket()
		if eof && len(packetData) == 0 {
			return errors.New("xamix: ffmpeg adaptor ran out of encoded data")
		}
		ffmpeg.AVPacketFromData(f.packet, packetData)
		if ret, err := ffmpeg.AVCodecSendPacket(f.codecCtx, f.packet); err != nil || ret < 0 {
			ffmpeg.AVPacketUnref(f.packet)
			return fmt.Errorf("ffmpeg send packet: %w", err)
		}
		ffmpeg.AVPacketUnref(f.packet)
	}
}

// nextPacket returns the next nBlockAlign-sized encoded packet from the
// current buffer, padding with zeros (§4.5) when fewer than
// nBlockAlign+codecTrailingPadding bytes remain.
func (f *ffmpegState) nextPacket() (data []byte, eof bool) {
	buf := f.currentBuf.Data
	need := f.blockAlign + codecTrailingPadding
	remaining := int64(len(buf)) - f.encOffset
	if remaining <= 0 {
		return nil, true
	}
	if remaining >= need {
		packet := buf[f.encOffset : f.encOffset+f.blockAlign]
		f.encOffset += f.blockAlign
		return packet, false
	}

	if cap(f.padding) < int(need) {
		f.padding = make([]byte, need)
	}
	f.padding = f.padding[:need]
	for i := range f.padding {
		f.padding[i] = 0
	}
	copy(f.padding, buf[f.encOffset:])
	f.encOffset = int64(len(buf))
	return f.padding, true
}

// stageFrame writes the just-decoded frame into convertCache at
// interleaved float layout, transposing channel-major (planar) frames to
// sample-major, grounded on extractSamples in the donor ffmpeg_decoder.go.
func (f *ffmpegState) stageFrame() error {
	nbSamples := int64(f.frame.NbSamples())
	need := nbSamples * int64(f.channels)
	if int64(cap(f.convertCache)) < need {
		f.convertCache = make([]float32, need)
	}
	f.convertCache = f.convertCache[:need]

	extractFloatSamples(f.frame, f.convertCache, nbSamples, f.channels)

	f.convertSamples = nbSamples
	f.convertOffset = 0
	ffmpeg.AVFrameUnref(f.frame)
	return nil
}

// extractFloatSamples normalizes a decoded AVFrame's samples into
// interleaved float32, handling both packed and planar layouts across the
// sample formats WMA/XMA decoders actually emit (16-bit signed, 32-bit
// signed, and native float), transposing channel-major planar data to
// sample-major as §4.5's "Frame staging" requires. Grounded directly on
// extractSamples in linuxmatters-jivefire's ffmpeg_decoder.go, generalized
// from that file's mono-downmix special case to full interleaved output.
func extractFloatSamples(frame *ffmpeg.AVFrame, dst []float32, nbSamples int64, channels int) {
	format := frame.Format()
	planar := format >= 5

	if !planar {
		packed := unsafe.Pointer(frame.Data().Get(0))
		switch format {
		case 1: // AV_SAMPLE_FMT_S16
			bytesToFloat16(packed, dst, nbSamples*int64(channels))
		case 2: // AV_SAMPLE_FMT_S32
			bytesToFloat32Signed(packed, dst, nbSamples*int64(channels))
		default: // AV_SAMPLE_FMT_FLT and anything else already float-shaped
			bytesToFloatPassthrough(packed, dst, nbSamples*int64(channels))
		}
		return
	}

	for c := 0; c < channels; c++ {
		chanPtr := unsafe.Pointer(frame.Data().Get(uintptr(c)))
		for i := int64(0); i < nbSamples; i++ {
			var v float32
			switch format {
			case 6: // AV_SAMPLE_FMT_S16P
				v = s16ToFloat(readS16Ptr(chanPtr, i))
			case 7: // AV_SAMPLE_FMT_S32P
				v = readS32FloatPtr(chanPtr, i)
			default: // AV_SAMPLE_FMT_FLTP
				v = readFloatPtr(chanPtr, i)
			}
			dst[i*int64(channels)+int64(c)] = v
		}
	}
}

// locatePacket finds the index of the first packet whose cumulative
// decoded-byte count covers targetByte, and the cumulative byte count
// just before that packet (§4.5 "Seek reconciliation"). Factored out of
// seekToSample so the pure index arithmetic is testable without a live
// codec context.
func locatePacket(cumulative []int64, packetCount int, targetByte int64) (packetIndex int, cumulativeBefore int64) {
	for i, cum := range cumulative {
		if cum > targetByte {
			return i, cumulativeBefore
		}
		cumulativeBefore = cum
		packetIndex = i + 1
	}
	if packetIndex >= packetCount {
		packetIndex = packetCount - 1
		if packetIndex > 0 {
			cumulativeBefore = cumulative[packetIndex-1]
		} else {
			cumulativeBefore = 0
		}
	}
	return packetIndex, cumulativeBefore
}

func floatToS16(v float32) int16 {
	scaled := v * 32768.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}

func zeroInt16(dst []int16) {
	for i := range dst {
		dst[i] = 0
	}
}

// The helpers below read raw FFmpeg sample buffers through unsafe.Pointer,
// the same technique the donor ffmpeg_decoder.go uses to interpret
// AVFrame.Data() planes without a cgo struct for every sample format.

func ptrBytes(p unsafe.Pointer, n int64) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

func readS16Ptr(p unsafe.Pointer, sampleIdx int64) int16 {
	b := ptrBytes(p, (sampleIdx+1)*2)
	return int16(binary.LittleEndian.Uint16(b[sampleIdx*2:]))
}

func readS32FloatPtr(p unsafe.Pointer, sampleIdx int64) float32 {
	b := ptrBytes(p, (sampleIdx+1)*4)
	v := int32(binary.LittleEndian.Uint32(b[sampleIdx*4:]))
	return float32(v) / 2147483648.0
}

func readFloatPtr(p unsafe.Pointer, sampleIdx int64) float32 {
	b := ptrBytes(p, (sampleIdx+1)*4)
	bits := binary.LittleEndian.Uint32(b[sampleIdx*4:])
	return math.Float32frombits(bits)
}

func bytesToFloat16(p unsafe.Pointer, dst []float32, count int64) {
	b := ptrBytes(p, count*2)
	for i := int64(0); i < count; i++ {
		dst[i] = s16ToFloat(int16(binary.LittleEndian.Uint16(b[i*2:])))
	}
}

func bytesToFloat32Signed(p unsafe.Pointer, dst []float32, count int64) {
	b := ptrBytes(p, count*4)
	for i := int64(0); i < count; i++ {
		v := int32(binary.LittleEndian.Uint32(b[i*4:]))
		dst[i] = float32(v) / 2147483648.0
	}
}

func bytesToFloatPassthrough(p unsafe.Pointer, dst []float32, count int64) {
	b := ptrBytes(p, count*4)
	for i := int64(0); i < count; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		dst[i] = math.Float32frombits(bits)
	}
}
