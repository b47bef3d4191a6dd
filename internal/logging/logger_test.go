package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "yaml"})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPrettyHandler_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("swap complete", String(FieldComponent, "swap-scheduler"), String(FieldRow, "top"))

	out := buf.String()
	if !strings.Contains(out, "swap-scheduler: swap complete") {
		t.Fatalf("expected component prefix, got %q", out)
	}
	if !strings.Contains(out, "row=top") {
		t.Fatalf("expected row attribute, got %q", out)
	}
	if strings.Contains(out, "component=") {
		t.Fatalf("component should be folded into the prefix, got %q", out)
	}
}

func TestPrettyHandler_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("album loaded", String(FieldAlbum, "summer trip"))

	if !strings.Contains(buf.String(), `album="summer trip"`) {
		t.Fatalf("expected quoted album value, got %q", buf.String())
	}
}

func TestParseLevel_Defaults(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewComponentLogger_NilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "watchdog")
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Info("noop output is fine")
}
