// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-lens/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether per-frame logs are shown (every capture, write and publish)
// Use --debug-frames flag to enable these very verbose logs
var Frames bool

// Log emits a debug record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.L().Info(msg, args...)
	}
}

// FrameLog emits a record only if per-frame debug mode is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		log.L().Info(msg, args...)
	}
}
