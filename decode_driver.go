//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

// driveDecode runs the §4.7 decode-driver protocol: it fills toDecode
// frames of st.decodeCache starting at frame 0, walking the buffer
// queue, firing lifecycle callbacks, and handling loop rewinds and
// end-of-stream transitions. If the queue runs dry the remainder of the
// request is zero-filled, so the caller always gets toDecode frames; the
// extraDecodePadding frames after the request are zero-filled as well.
// It returns resetOffset, the sum of the frames decoded in each segment
// that ended in a loop rewind during this call (§4.6 step (e) subtracts
// this from the integer cursor after the fractional update).
//
// "end" for a head buffer is LoopBegin+LoopLength while it still has
// loop iterations remaining, and PlayBegin+PlayLength once it doesn't;
// this follows from Testable Property S4 (a buffer with PlayLength=100,
// LoopBegin=50, LoopLength=25, LoopCount=2 produces 75+25+50=150 total
// samples with exactly two OnLoopEnd firings) rather than from a literal
// reading of the abbreviated formula in §4.7.
func driveDecode(voiceName string, st *SourceState, toDecode int64) (resetOffset int64) {
	chans := int64(st.Format.Channels)
	var written int64
	defer zeroRange(st.decodeCache, toDecode, toDecode+extraDecodePadding, chans)

	for written < toDecode {
		head := st.Buffers.head()
		if head == nil {
			zeroRange(st.decodeCache, written, toDecode, chans)
			return resetOffset
		}

		if st.CurBufferOffset == head.PlayBegin {
			st.Callbacks.fireBufferStart(head.Context)
		}

		inLoop := head.LoopCount > 0 && head.LoopLength > 0
		var end int64
		if inLoop {
			end = head.LoopBegin + head.LoopLength
		} else {
			end = head.PlayBegin + head.PlayLength
		}

		iterRemaining := toDecode - written
		boundaryDistance := end - st.CurBufferOffset
		if boundaryDistance < 0 {
			logContractViolation(voiceName, "curBufferOffset past computed end bound")
			boundaryDistance = 0
		}
		endRead := boundaryDistance
		if endRead > iterRemaining {
			endRead = iterRemaining
		}
		exhausted := boundaryDistance <= iterRemaining

		if endRead > 0 {
			dst := st.decodeCache[written*chans : (written+endRead)*chans]
			if err := st.decode(head, st.CurBufferOffset, endRead, dst); err != nil {
				logDecodeError(voiceName, err)
				zeroRange(st.decodeCache, written, written+endRead, chans)
			}
			st.CurBufferOffset += endRead
			written += endRead
		}

		if !exhausted {
			continue
		}

		if head.LoopCount > 0 && head.LoopLength > 0 {
			st.CurBufferOffset = head.LoopBegin
			if head.LoopCount != LoopInfinite {
				head.LoopCount--
			}
			resetOffset += endRead
			st.Callbacks.fireLoopEnd(head.Context)
			continue
		}

		eos := head.isEndOfStream()
		if eos {
			st.CurBufferOffsetFrac = 0
		}
		st.Callbacks.fireBufferEnd(head.Context)
		if eos {
			st.Callbacks.fireStreamEnd()
		}
		st.Buffers.popHead()

		if next := st.Buffers.head(); next != nil {
			st.CurBufferOffset = next.PlayBegin
			continue
		}

		zeroRange(st.decodeCache, written, toDecode, chans)
		return resetOffset
	}

	return resetOffset
}

func zeroRange(cache []int16, fromFrame, toFrame, chans int64) {
	start := fromFrame * chans
	end := toFrame * chans
	if start < 0 {
		start = 0
	}
	if end > int64(len(cache)) {
		end = int64(len(cache))
	}
	for i := start; i < end; i++ {
		cache[i] = 0
	}
}
