//
// Copyright (c) 2025, Antonio Chirizzi <antonio.chirizzi@gmail.com>
// All rights reserved.
//
// This code is released under 3-clause BSD license. Please see the
// file LICENSE
//

package xamix

import (
	"os"

	"github.com/charmbracelet/log"
)

// logger is the package-level sink for the handful of mid-tick log sites
// §7 calls for (FFmpeg decoder errors, defensively-detected client contract
// violations). Callers embedding the engine in a larger program can replace
// it with SetLogger to route into their own logging setup.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "xamix",
})

// SetLogger overrides the package-level logger. Pass nil to restore the
// default stderr logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "xamix"})
		return
	}
	logger = l
}

func logDecodeError(voiceName string, err error) {
	logger.Error("decode request failed, zero-filling remainder", "voice", voiceName, "err", err)
}

func logContractViolation(voiceName string, detail string) {
	logger.Warn("client contract violation detected, continuing defensively", "voice", voiceName, "detail", detail)
}
