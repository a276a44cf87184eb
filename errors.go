//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import "fmt"

// ErrorCode is a small closed enum describing the configuration-time and
// mid-tick failure modes of the engine. Mirrors the shape of libsamplerate's
// SRC_ERR_* codes: an internal enum mapped to a Go error at the boundary.
type ErrorCode int

const (
	ErrNoError ErrorCode = iota
	ErrUnsupportedFormat
	ErrCodecAlloc
	ErrCodecOpen
	ErrBadBuffer
	ErrBadChannelCount
	ErrDecodeFailed
	ErrBadState
)

func (e ErrorCode) String() string {
	switch e {
	case ErrNoError:
		return "no error"
	case ErrUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case ErrCodecAlloc:
		return "codec allocation failed"
	case ErrCodecOpen:
		return "codec open failed"
	case ErrBadBuffer:
		return "malformed buffer"
	case ErrBadChannelCount:
		return "invalid channel count"
	case ErrDecodeFailed:
		return "decode failed"
	case ErrBadState:
		return "bad voice state"
	default:
		return fmt.Sprintf("unknown error code %d", int(e))
	}
}

// mapError converts an ErrorCode to a Go error, returning nil for ErrNoError.
// Voice-creation paths (§7 "Configuration errors") always go through this at
// the public boundary, same as the teacher's New/Simple do for SRC_STATE.
func mapError(code ErrorCode) error {
	if code == ErrNoError {
		return nil
	}
	return fmt.Errorf("xamix: %s", code)
}
