package cli

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/logging"
)

// logFileWriter holds the log file writer for cleanup purposes.
// This is package-level to enable cleanup during shutdown.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// zerologConfigOnce ensures zerolog global settings are configured exactly once.
var zerologConfigOnce sync.Once //nolint:gochecknoglobals // One-time configuration

// configureZerologGlobals sets zerolog global field names to match the log
// entry structure. Safe for concurrent use.
func configureZerologGlobals() {
	zerologConfigOnce.Do(func() {
		zerolog.TimestampFieldName = "ts"
		zerolog.MessageFieldName = "event"
	})
}

// InitLogger creates and configures a zerolog.Logger based on verbosity flags.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Output format is determined by the terminal:
//   - TTY with colors enabled: console writer
//   - Non-TTY or NO_COLOR set: JSON to stderr
//
// The logger also writes to ~/.warden/logs/warden.log with rotation enabled.
// If the log file cannot be created, logging continues console-only.
func InitLogger(verbose, quiet bool) zerolog.Logger {
	configureZerologGlobals()

	level := selectLevel(verbose, quiet)
	console := selectOutput()

	writer := console
	if fileWriter, err := createLogFileWriter(); err == nil {
		logFileWriter = fileWriter
		writer = zerolog.MultiLevelWriter(console, fileWriter)
	}

	return zerolog.New(writer).Level(level).Hook(logging.NewSensitiveDataHook()).With().Timestamp().Logger()
}

// CloseLogFile flushes and closes the rotating log file, if one was opened.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel maps verbosity flags to a zerolog level.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput picks console rendering on a TTY, JSON otherwise.
func selectOutput() io.Writer {
	if os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stderr.Fd())) {
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return os.Stderr
}

// createLogFileWriter opens the rotating log sink under ~/.warden/logs.
func createLogFileWriter() (io.WriteCloser, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(home, constants.WardenHome, constants.LogsDirName)
	if err := os.MkdirAll(logDir, constants.DirPerm); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.LogFileName),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}, nil
}
