package settings

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is shared by all packages, writing human readable lines to stderr so
// stdout stays free for reports.
var Logger zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

// SetLogLevel changes the level of the shared Logger, unknown levels fall back to info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	Logger = Logger.Level(lvl)
}
