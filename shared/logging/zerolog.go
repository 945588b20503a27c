package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using zerolog
type ZerologLogger struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	level    Level
	fields   Fields
	errorKey string
	file     *os.File
}

// NewLoggerWithConfig creates a ZerologLogger. With a FilePath the output is
// JSON appended to that file, otherwise a console writer on stdout.
func NewLoggerWithConfig(config *LoggerConfig) (*ZerologLogger, error) {
	var (
		out  io.Writer
		file *os.File
	)
	if config.FilePath != "" {
		f, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.FilePath, err)
		}
		out, file = f, f
	} else {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return newZerologLogger(out, config, file), nil
}

// NewWriterLogger creates a JSON logger on an arbitrary writer
func NewWriterLogger(w io.Writer, config *LoggerConfig) *ZerologLogger {
	if config == nil {
		config = DefaultConfig()
	}
	return newZerologLogger(w, config, nil)
}

func newZerologLogger(w io.Writer, config *LoggerConfig, file *os.File) *ZerologLogger {
	// instance level decides, not the global one
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(w).With().
		Timestamp().
		Str("service", config.ServiceName).
		Str("logger", config.LoggerName).
		Logger().
		Level(levelToZerolog(config.Level))

	return &ZerologLogger{
		logger:   logger,
		level:    config.Level,
		fields:   make(Fields),
		errorKey: "error",
		file:     file,
	}
}

// Close closes the log file
func (z *ZerologLogger) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.file != nil {
		err := z.file.Close()
		z.file = nil
		return err
	}
	return nil
}

func (z *ZerologLogger) SetLevel(level Level) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.level = level
	z.logger = z.logger.Level(levelToZerolog(level))
}

func (z *ZerologLogger) GetLevel() Level {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.level
}

func (z *ZerologLogger) IsLevelEnabled(level Level) bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return level >= z.level
}

func levelToZerolog(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// event creates a zerolog event carrying the logger's fields
func (z *ZerologLogger) event(level Level) *zerolog.Event {
	var event *zerolog.Event
	switch level {
	case DebugLevel:
		event = z.logger.Debug()
	case WarnLevel:
		event = z.logger.Warn()
	case ErrorLevel:
		event = z.logger.Error()
	default:
		event = z.logger.Info()
	}

	z.mu.RLock()
	for key, value := range z.fields {
		event = event.Interface(key, value)
	}
	z.mu.RUnlock()
	return event
}

func (z *ZerologLogger) log(level Level, msg string) {
	if !z.IsLevelEnabled(level) {
		return
	}
	z.event(level).Msg(msg)
}

func (z *ZerologLogger) logf(level Level, format string, args ...interface{}) {
	if !z.IsLevelEnabled(level) {
		return
	}
	z.event(level).Msgf(format, args...)
}

func (z *ZerologLogger) Debug(msg string) { z.log(DebugLevel, msg) }
func (z *ZerologLogger) Info(msg string)  { z.log(InfoLevel, msg) }
func (z *ZerologLogger) Warn(msg string)  { z.log(WarnLevel, msg) }
func (z *ZerologLogger) Error(msg string) { z.log(ErrorLevel, msg) }

func (z *ZerologLogger) Debugf(format string, args ...interface{}) {
	z.logf(DebugLevel, format, args...)
}

func (z *ZerologLogger) Infof(format string, args ...interface{}) {
	z.logf(InfoLevel, format, args...)
}

func (z *ZerologLogger) Warnf(format string, args ...interface{}) {
	z.logf(WarnLevel, format, args...)
}

func (z *ZerologLogger) Errorf(format string, args ...interface{}) {
	z.logf(ErrorLevel, format, args...)
}

func (z *ZerologLogger) Debugw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Debug(msg)
}

func (z *ZerologLogger) Infow(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Info(msg)
}

func (z *ZerologLogger) Warnw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Warn(msg)
}

func (z *ZerologLogger) Errorw(msg string, keysAndValues ...interface{}) {
	z.WithFields(keysAndValuesToFields(keysAndValues...)).Error(msg)
}

func (z *ZerologLogger) WithFields(fields Fields) Logger {
	z.mu.RLock()
	newFields := make(Fields, len(z.fields)+len(fields))
	for k, v := range z.fields {
		newFields[k] = v
	}
	child := &ZerologLogger{
		logger:   z.logger,
		level:    z.level,
		errorKey: z.errorKey,
		file:     z.file, // shared with the parent
	}
	z.mu.RUnlock()

	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		newFields[k] = v
	}
	child.fields = newFields
	return child
}

func (z *ZerologLogger) WithField(key string, value interface{}) Logger {
	return z.WithFields(Fields{key: value})
}

func (z *ZerologLogger) WithError(err error) Logger {
	if err == nil {
		return z
	}
	return z.WithField(z.errorKey, err.Error())
}
