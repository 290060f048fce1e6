package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetDebugTogglesLevel(t *testing.T) {
	ctx := context.Background()

	SetDebug(true)
	if !defaultLogger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug level not enabled after SetDebug(true)")
	}

	SetDebug(false)
	if defaultLogger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug level still enabled after SetDebug(false)")
	}
	if !defaultLogger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info level must stay enabled")
	}
}

func TestWithModule(t *testing.T) {
	logger := WithModule("ingest")
	if logger == nil {
		t.Fatal("expected a logger")
	}
	logger.Debug("module logger works")
}
