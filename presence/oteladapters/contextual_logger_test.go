package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/presence-engine/presence/oteladapters"
)

func newBufferedLogger(level slog.Level) (*oteladapters.SlogBridgeLogger, *bytes.Buffer) {
	buffer := &bytes.Buffer{}
	handler := slog.NewTextHandler(buffer, &slog.HandlerOptions{Level: level})

	return oteladapters.NewSlogBridgeLoggerWithHandler(handler), buffer
}

func Test_SlogBridgeLogger_ForwardsMessagesAndAttributes(t *testing.T) {
	// arrange
	logger, buffer := newBufferedLogger(slog.LevelDebug)

	// act
	logger.Info("entry event decided", "total_score", 100)
	logger.Debug("configuration snapshot reloaded", "entry_count", 14)
	logger.Warn("configuration reload failed, serving defaults")
	logger.Error("database query execution failed", "error", "connection refused")

	// assert
	output := buffer.String()
	assert.Contains(t, output, "entry event decided")
	assert.Contains(t, output, "total_score=100")
	assert.Contains(t, output, "configuration snapshot reloaded")
	assert.Contains(t, output, "level=WARN")
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, `error="connection refused"`)
}

func Test_SlogBridgeLogger_ContextVariantsForward(t *testing.T) {
	// arrange
	logger, buffer := newBufferedLogger(slog.LevelDebug)
	ctx := context.Background()

	// act
	logger.InfoContext(ctx, "scan event recorded", "mode", "automatic")
	logger.DebugContext(ctx, "duplicate scan suppressed")
	logger.WarnContext(ctx, "configuration write-through failed, updating in-memory value only")
	logger.ErrorContext(ctx, "database statement execution failed")

	// assert
	output := buffer.String()
	assert.Contains(t, output, "scan event recorded")
	assert.Contains(t, output, "mode=automatic")
	assert.Contains(t, output, "duplicate scan suppressed")
}

func Test_SlogBridgeLogger_HonorsHandlerLevel(t *testing.T) {
	// arrange
	logger, buffer := newBufferedLogger(slog.LevelInfo)

	// act
	logger.Debug("executed sql for: load configuration")

	// assert
	assert.Empty(t, buffer.String())
}
