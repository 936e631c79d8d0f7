package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
)

var (
	currentLevel = getLogLevel()
	base         = newBase(os.Stderr)
)

const (
	APP        = "APP"
	CONFIG     = "CONFIG"
	CONSOLE    = "CONSOLE"
	HANDLER    = "HANDLER"
	HISTORY    = "HISTORY"
	MIDDLEWARE = "MIDDLEWARE"
	PIPELINE   = "PIPELINE"
	REDIS      = "REDIS"
	SERVICE    = "SERVICE"
	SESSION    = "SESSION"
)

func getLogLevel() LogLevel {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Init re-reads LOG_LEVEL. Call it once the environment is final, e.g. after
// a .env file has been loaded.
func Init() {
	currentLevel = getLogLevel()
}

func newBase(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetOutput redirects every namespaced logger to w.
func SetOutput(w io.Writer) {
	base = newBase(w)
}

// Base returns the underlying zerolog logger, for middleware that wants
// structured fields rather than formatted messages.
func Base() zerolog.Logger {
	return base
}

// ZerologLevel maps the LOG_LEVEL setting onto zerolog's levels.
func ZerologLevel() zerolog.Level {
	switch currentLevel {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatMessage(level, namespace, format string, v ...interface{}) string {
	msg := fmt.Sprintf(format, v...)
	return fmt.Sprintf("[%s] [%s] %s", level, namespace, msg)
}

func Debug(namespace, format string, v ...interface{}) {
	if currentLevel >= DEBUG {
		base.Debug().Str("namespace", namespace).Msg(formatMessage("DEBUG", namespace, format, v...))
	}
}

func Info(namespace, format string, v ...interface{}) {
	if currentLevel >= INFO {
		base.Info().Str("namespace", namespace).Msg(formatMessage("INFO", namespace, format, v...))
	}
}

func Warn(namespace, format string, v ...interface{}) {
	if currentLevel >= WARN {
		base.Warn().Str("namespace", namespace).Msg(formatMessage("WARN", namespace, format, v...))
	}
}

func Error(namespace, format string, v ...interface{}) {
	if currentLevel >= ERROR {
		base.Error().Str("namespace", namespace).Msg(formatMessage("ERROR", namespace, format, v...))
	}
}

// Fatal logs at error severity without exiting; callers decide how to stop.
func Fatal(namespace, format string, v ...interface{}) {
	if currentLevel >= ERROR {
		base.WithLevel(zerolog.FatalLevel).Str("namespace", namespace).Msg(formatMessage("FATAL", namespace, format, v...))
	}
}
