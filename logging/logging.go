// Package logging provides the process-wide zerolog logger and the printf
// style helpers used across foodmatch.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error
	Level string

	// Format is json or console
	Format string

	// Output defaults to os.Stderr
	Output io.Writer
}

var (
	log     zerolog.Logger
	logFile *os.File
	mu      sync.RWMutex
	isSetup bool

	// base output and level chosen by Init, kept so SetupLogger can tee
	baseOutput io.Writer
	baseLevel  zerolog.Level
)

//nolint:gochecknoinits // logging must work before Init is called
func init() {
	initLogger(Config{Level: "info", Format: "console"})
}

// Init configures the global logger. Safe to call more than once.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}
	baseOutput, baseLevel = output, parseLevel(cfg.Level)

	if logFile != nil {
		// Debug file stays attached across reconfiguration
		teeToFile()
		return
	}
	log = zerolog.New(output).Level(baseLevel).With().Timestamp().Logger()
}

// teeToFile writes every event to the debug file and events at or above the
// base level to the base output.
func teeToFile() {
	w := zerolog.MultiLevelWriter(levelFilter{w: baseOutput, min: baseLevel}, logFile)
	log = zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetupLogger sends debug level JSON logs to the given file in addition to
// the configured output
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	teeToFile()
	log.Debug().Str("started", time.Now().Format(time.RFC3339)).Msg("foodmatch debug log started")

	isSetup = true
	return nil
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		log.Debug().Str("closed", time.Now().Format(time.RFC3339)).Msg("foodmatch debug log closed")
		logFile.Close()
		logFile = nil
		isSetup = false
		log = zerolog.New(baseOutput).Level(baseLevel).With().Timestamp().Logger()
	}
}

// levelFilter drops events below min before they reach w.
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// Logger returns the global logger
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetLogger replaces the global logger, mostly for tests
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// Debug starts a debug level event
func Debug() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Debug()
}

// Info starts an info level event
func Info() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Info()
}

// Warn starts a warn level event
func Warn() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Warn()
}

// Error starts an error level event
func Error() *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	return log.Error()
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	Info().Msgf(format, args...)
}

// DebugLog logs a message at debug level
func DebugLog(format string, args ...interface{}) {
	Debug().Msgf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	Error().Msgf(format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	Warn().Msgf(format, args...)
}

// LogImageProcessed logs the outcome of processing one photo
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		Debug().Str("path", path).Msg("PROCESSED")
	} else {
		Warn().Str("path", path).Str("error", errMsg).Msg("FAILED")
	}
}
