package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&textBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("component", "test")

	logger.Info("interview started", "interview_id", "iv-1")
	logger.Warn("judge slow")

	if !strings.Contains(jsonBuf.String(), `"interview_id":"iv-1"`) || !strings.Contains(jsonBuf.String(), `"component":"test"`) {
		t.Errorf("json output = %s", jsonBuf.String())
	}
	if strings.Contains(textBuf.String(), "interview started") {
		t.Error("text handler should drop info records")
	}
	if !strings.Contains(textBuf.String(), "judge slow") {
		t.Errorf("text output = %s", textBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled on both handlers")
	}
}
