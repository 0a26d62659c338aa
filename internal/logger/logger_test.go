package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestForFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"json", `"run_id":"r1"`},
		{"JSON", `"run_id":"r1"`},
		{"text", "run_id=r1"},
		{"pretty", "run_id=r1"},
		{"", "run_id=r1"},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		ForFormat(tc.format, &buf, slog.LevelInfo).Info("run started", KeyRunID, "r1")
		if !strings.Contains(buf.String(), tc.want) {
			t.Errorf("ForFormat(%q): expected %q in %q", tc.format, tc.want, buf.String())
		}
	}
}

func TestForFormatFiltersLevel(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"json", "text", "pretty"} {
		var buf bytes.Buffer
		log := ForFormat(format, &buf, slog.LevelWarn)
		log.Debug("step")
		log.Info("run finished")
		if buf.Len() != 0 {
			t.Fatalf("%s: expected nothing below warn, got %q", format, buf.String())
		}
		log.Warn("encode failed")
		if !strings.Contains(buf.String(), "encode failed") {
			t.Fatalf("%s: expected warn record, got %q", format, buf.String())
		}
	}
}

func TestForRunScopesRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ForRun(ForFormat("json", &buf, slog.LevelInfo), "abc").Info("run finished", KeyTokens, 12, KeyStop, "eos")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec[KeyRunID] != "abc" || rec[KeyStop] != "eos" || rec[KeyTokens] != float64(12) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.input); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}

	var buf bytes.Buffer
	ctx := WithContext(context.Background(), ForFormat("text", &buf, slog.LevelInfo))
	FromContext(ctx).Info("starting server", "address", "127.0.0.1:8080")
	if !strings.Contains(buf.String(), "address=127.0.0.1:8080") {
		t.Fatalf("expected record via context logger, got %q", buf.String())
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	t.Parallel()
	Discard().With(KeyRunID, "x").WithGroup("g").Error("dropped")
}

func TestPrettyRunLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := ForRun(New(NewPrettyHandler(&buf, nil)), "1f0c2a9e-7b1d-4c55-9a0e-3f1e2d4c5b6a")
	log.Info("run finished", KeyTokens, 12, KeyStop, "stop_sequence", "duration", 1500*time.Microsecond)

	out := buf.String()
	for _, want := range []string{"run finished", "run_id=1f0c2a9e", "tokens=12", "stop=stop_sequence", "duration=1.5ms"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "7b1d") {
		t.Fatalf("run id not shortened: %q", out)
	}
}

func TestPrettyNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true})).Warn("retrying step", "attempt", 1)

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected no escape codes, got %q", out)
	}
	if !strings.Contains(out, "WARN  retrying step attempt=1") {
		t.Fatalf("unexpected layout %q", out)
	}
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected source location, got %q", out)
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	if h.WithGroup("") != h {
		t.Fatal("empty group should return the same handler")
	}

	scoped := h.WithAttrs([]slog.Attr{slog.String("component", "controller")}).WithGroup("run")
	slog.New(scoped).Info("stats", KeyTokens, 3, slog.Group("sampler", "top_p", 0.5))

	out := buf.String()
	for _, want := range []string{"component=controller", "run.tokens=3", "run.sampler.top_p=0.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "run.component") {
		t.Fatalf("attrs added before a group must not take its prefix: %q", out)
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()

	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
	if !NewPrettyHandler(&bytes.Buffer{}, nil).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled by default")
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"eos", false},
		{"", false},
		{"stop_sequence", false},
		{"hello world", true},
		{"line\nbreak", true},
		{`say "hi"`, true},
		{"k=v", true},
	}
	for _, tc := range tests {
		if got := needsQuoting(tc.input); got != tc.want {
			t.Errorf("needsQuoting(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}

	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Info("prompt queued", "prompt", "hello world")
	if !strings.Contains(buf.String(), `prompt="hello world"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}
