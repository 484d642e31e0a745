// Package observability builds the process logger.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "GIF_MCP_LOG_LEVEL"

// InitLogger returns a console logger on stderr and installs it as the
// global zerolog logger. Stdout is reserved for the JSON-RPC stream.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	logger := NewLogger(output, app, os.Getenv(LevelEnv))
	log.Logger = logger
	return logger
}

// NewLogger builds a logger writing to w at the named level. Unknown or
// empty levels fall back to info.
func NewLogger(w io.Writer, app, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("app", app).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
