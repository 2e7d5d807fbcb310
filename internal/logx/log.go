// Package logx holds the shared zerolog logger for the framehost binaries.
package logx

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger, writing console output to stderr.
// Configure rebuilds it and applies the configured level.
var Log = newLogger()

// Configure sets the global level from a tolerant level string and rebuilds
// the logger. The level set matches the config documentation:
// all, debug, info, warn, warning, error, fatal, none.
func Configure(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	Log = newLogger()
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

var levelNames = map[string]zerolog.Level{
	"all":      zerolog.TraceLevel,
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"none":     zerolog.Disabled,
	"off":      zerolog.Disabled,
	"disabled": zerolog.Disabled,
}

// parseLevel maps a level name to its zerolog level; unknown or empty names
// fall back to info.
func parseLevel(level string) zerolog.Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}
