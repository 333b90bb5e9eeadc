package slogx

import (
	"fmt"
	"log/slog"
)

// KeyLoggerName is the attribute key naming the component that logged a record.
const KeyLoggerName = "logger"

// Error returns a slog.Attr with the key "error" and the error's message as value.
// A nil error is logged as "<nil>".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// ByteString returns a slog.Attr holding the byte slice as a string, for logging raw frames.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer returns a slog.Attr holding the string representation of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns the attribute naming the component that logs.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
