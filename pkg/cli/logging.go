package cli

import (
	"io"

	"github.com/matt-steen/taskboard/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// initLogger sends the global logger to a rotating file so the TUI keeps the terminal.
func initLogger(cfg config.Config) (io.Closer, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	logFile := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}

	zerolog.SetGlobalLevel(level)

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: logFile, TimeFormat: "2006-01-02_15:04:05", NoColor: true,
	})

	return logFile, nil
}
