package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "debug", "json"))
	t.Cleanup(func() { SetLogger(prev) })

	DebugWithComponent(ComponentRenderer, "Rendered chart", "kind", "pie")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if entry["component"] != ComponentRenderer || entry["kind"] != "pie" || entry["msg"] != "Rendered chart" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLevelFilterAndText(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(New(&buf, "warn", "text"))
	t.Cleanup(func() { SetLogger(prev) })

	InfoWithComponent(ComponentWorkers, "hidden")
	WarnWithComponent(ComponentWorkers, "queue full", "length", 64)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, "queue full") || !strings.Contains(out, "component=workers") {
		t.Errorf("output = %q", out)
	}
	// Not a terminal, so no ANSI colors.
	if strings.Contains(out, "\x1b[") {
		t.Error("colored output written to a buffer")
	}

	SetLogger(nil)
	if Logger() == nil {
		t.Error("SetLogger(nil) cleared the logger")
	}
}
