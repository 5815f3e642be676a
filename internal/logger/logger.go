package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global zerolog instance: pretty console output
// plus a size-rotated file sink. Call it once, before anything logs.
func Init() {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	file := &lumberjack.Logger{
		Filename:   "logs/quokkas.log",
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(io.MultiWriter(console, file)).With().Timestamp().Logger()
}
