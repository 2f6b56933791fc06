package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func newCapturedGolog() (*GologLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	glogger := golog.New()
	glogger.SetOutput(&buf)
	glogger.SetTimeFormat("")
	return NewGologLogger(glogger), &buf
}

func TestNewGologLogger(t *testing.T) {
	logger, _ := newCapturedGolog()

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger, _ := newCapturedGolog()

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_FormatsArguments(t *testing.T) {
	logger, buf := newCapturedGolog()
	logger.SetLevel(LogLevelDebug)

	logger.Info("selected %d tools for %q", 2, "google ads")

	assert.Contains(t, buf.String(), `selected 2 tools for "google ads"`)
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	logger, buf := newCapturedGolog()
	logger.SetLevel(LogLevelError)

	logger.Debug("debug filtered")
	logger.Info("info filtered")
	logger.Warn("warn filtered")
	logger.Error("synthesis failed")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "synthesis failed")
}
