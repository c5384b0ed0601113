package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New 建立 zerolog Logger
//
// 參數:
//
//	level: "debug", "info", "warn", "error"；無法解析時使用 info
//	pretty: true 時輸出人類可讀格式 (開發用)，否則輸出 JSON
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	}
	return NewWithWriter(w, level)
}

// NewWithWriter 同 New，但輸出到指定的 writer
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
