// Package logger builds the process-wide logger.  It is the same gommon
// logger echo uses, so request logs and service logs share one format.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

// New returns a JSON logger writing to stdout at the given level.
func New(prefix, level string) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(header)
	l.SetOutput(os.Stdout)
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard returns a logger that drops everything.  Used by tests.
func Discard() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	l.SetLevel(log.OFF)
	return l
}

// ParseLevel maps a LOG_LEVEL value onto a gommon level.  Unknown values
// mean INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
