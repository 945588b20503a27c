package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLoggerName  = "test-logger"
	testServiceName = "test-service"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
}

func TestLoggerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggerConfig
		wantErr string
	}{
		{
			name:   "valid console config",
			config: LoggerConfig{LoggerName: testLoggerName, ServiceName: testServiceName},
		},
		{
			name:    "missing logger name",
			config:  LoggerConfig{ServiceName: testServiceName},
			wantErr: "logger name is required",
		},
		{
			name:    "missing service name",
			config:  LoggerConfig{LoggerName: testLoggerName},
			wantErr: "service name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(&LoggerConfig{
		Level:       DebugLevel,
		FilePath:    path,
		LoggerName:  testLoggerName,
		ServiceName: testServiceName,
	})
	require.NoError(t, err)

	logger.WithField("step", "insertOne").Infow("person saved", "name", "Alice")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "person saved", entry["message"])
	assert.Equal(t, testServiceName, entry["service"])
	assert.Equal(t, "insertOne", entry["step"])
	assert.Equal(t, "Alice", entry["name"])
}

func TestNewLoggerBadPath(t *testing.T) {
	_, err := NewLogger(&LoggerConfig{
		FilePath:    filepath.Join(t.TempDir(), "missing", "dir", "app.log"),
		LoggerName:  testLoggerName,
		ServiceName: testServiceName,
	})
	require.Error(t, err)
}

func TestZerologLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, &LoggerConfig{Level: WarnLevel, LoggerName: testLoggerName, ServiceName: testServiceName})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	logger.SetLevel(DebugLevel)
	assert.True(t, logger.IsLevelEnabled(DebugLevel))
	logger.Debugf("now %s", "visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestZerologWithErrorAndFieldIsolation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, nil)

	child := logger.WithError(errors.New("boom"))
	assert.Same(t, logger, logger.WithError(nil))

	child.Error("failed")
	logger.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"error":"boom"`)
	assert.NotContains(t, lines[1], "boom")
}

func TestMockLoggerCapturesEntries(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithField("component", "runner")

	child.Infow("step done", "step", "findByName")
	mock.Errorf("step %s failed", "findById")

	entries := mock.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "runner", entries[0].Fields["component"])
	assert.Equal(t, "findByName", entries[0].Fields["step"])
	assert.Len(t, mock.EntriesAt(ErrorLevel), 1)
	assert.True(t, mock.HasMessage("findById failed"))

	mock.SetLevel(ErrorLevel)
	mock.Info("dropped")
	assert.Len(t, mock.Entries(), 2)

	mock.Reset()
	assert.Empty(t, mock.Entries())
}
