package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a JSON logger writing into the returned buffer
// so tests can assert on the emitted records.
func captureLogger(name string) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{
		Name:   name,
		Format: FormatJSON,
		Level:  slog.LevelDebug,
		Writer: &buf,
	})
	return log, &buf
}

// lastRecord decodes the final JSON log line written to buf.
func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestNewReturnsSlogLogger(t *testing.T) {
	log := New("test-package")
	assert.NotNil(t, log)
	assert.IsType(t, &SlogLogger{}, log)
}

func TestNewWithConfigCarriesPackageName(t *testing.T) {
	log, buf := captureLogger("catalog")
	log.Info("store opened", "path", ":memory:")

	rec := lastRecord(t, buf)
	assert.Equal(t, "catalog", rec["package"])
	assert.Equal(t, "store opened", rec["msg"])
	assert.Equal(t, ":memory:", rec["path"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestWithFileFunctionChain(t *testing.T) {
	log, buf := captureLogger("scanner")
	log.File("parse.go").Function("processFile").Warn("skipping file")

	rec := lastRecord(t, buf)
	assert.Equal(t, "parse.go", rec["file"])
	assert.Equal(t, "processFile", rec["function"])
	assert.Equal(t, "skipping file", rec["msg"])
}

func TestErrorReturnsMessageAsError(t *testing.T) {
	log, buf := captureLogger("test")

	err := log.Error("invalid port", "port", -1)
	require.Error(t, err)
	assert.Equal(t, "invalid port", err.Error())

	rec := lastRecord(t, buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, float64(-1), rec["port"])
}

func TestErrLogsAndReturnsCause(t *testing.T) {
	log, buf := captureLogger("test")
	cause := errors.New("disk full")

	err := log.Err("write failed", cause, "path", "/tmp/x")
	assert.Same(t, cause, err)

	rec := lastRecord(t, buf)
	assert.Equal(t, "write failed", rec["msg"])
	assert.Equal(t, "disk full", rec["error"])
	assert.Equal(t, "/tmp/x", rec["path"])
}

func TestErLogsWithoutReturning(t *testing.T) {
	log, buf := captureLogger("test")
	log.Er("reconcile orphans failed", errors.New("locked"), "table", "artists")

	rec := lastRecord(t, buf)
	assert.Equal(t, "locked", rec["error"])
	assert.Equal(t, "artists", rec["table"])
}

func TestErrorfWrapsMessage(t *testing.T) {
	log, buf := captureLogger("test")

	err := log.Errorf("config rejected", "invalid count: 0")
	require.Error(t, err)
	assert.Equal(t, "error: invalid count: 0", err.Error())

	rec := lastRecord(t, buf)
	assert.Equal(t, "config rejected", rec["msg"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{
		Name:   "test",
		Format: FormatText,
		Level:  slog.LevelInfo,
		Writer: &buf,
	})
	log.Info("hello", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "package=test")
}

func TestDebugBelowLevelIsDropped(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{
		Name:   "test",
		Format: FormatJSON,
		Level:  slog.LevelInfo,
		Writer: &buf,
	})
	log.Debug("too detailed")
	assert.Empty(t, buf.Bytes())
}
