package log

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/holon-run/reportbot/pkg/log/internal/testutil"
)

func TestMapLevelToZapLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected string
		wantErr  bool
	}{
		{"debug level", LevelDebug, "debug", false},
		{"info level", LevelInfo, "info", false},
		{"progress level", LevelProgress, "info", false},
		{"minimal level", LevelMinimal, "warn", false},
		{"warn level", LevelWarn, "warn", false},
		{"error level", LevelError, "error", false},
		{"empty level defaults to info", LogLevel(""), "info", false},
		{"unknown level defaults to info", LogLevel("unknown"), "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zapLevel, err := mapLevelToZapLevel(tt.level)
			if zapLevel.String() != tt.expected {
				t.Errorf("mapLevelToZapLevel() = %v, want %v", zapLevel.String(), tt.expected)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("mapLevelToZapLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitWithConfig(t *testing.T) {
	Reset()
	defer Reset()

	levels := []LogLevel{
		LevelDebug,
		LevelInfo,
		LevelProgress,
		LevelMinimal,
		LevelWarn,
		LevelError,
	}

	for _, level := range levels {
		t.Run(string(level), func(t *testing.T) {
			Reset()
			cfg := Config{
				Level:  level,
				Format: FormatConsole,
				Output: &testutil.Buffer{},
			}
			if err := Init(cfg); err != nil {
				t.Errorf("Init() error = %v", err)
			}

			if Get() == nil {
				t.Error("Get() returned nil logger")
			}
		})
	}
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: "loud"}); err == nil {
		t.Error("Init() with unknown level should fail")
	}
	if err := Init(Config{Level: LevelInfo, Format: "xml"}); err == nil {
		t.Error("Init() with unknown format should fail")
	}
}

func TestLevelFiltering(t *testing.T) {
	Reset()
	defer Reset()

	buf := &testutil.Buffer{}
	if err := Init(Config{Level: LevelWarn, Format: FormatConsole, Output: buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Info("hidden info message")
	Debugf("hidden %s", "debug")
	Warn("visible warning")
	Errorf("visible %s", "error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered entries: %q", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("output missing warn/error entries: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	Reset()
	defer Reset()

	buf := &testutil.Buffer{}
	if err := Init(Config{Level: LevelDebug, Format: FormatJSON, Output: buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	Info("created check", "name", "status check - unittests")

	lines := buf.Lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(lines), lines)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["msg"] != "created check" {
		t.Errorf("msg = %v, want %q", entry["msg"], "created check")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["name"] != "status check - unittests" {
		t.Errorf("name = %v", entry["name"])
	}
}

func TestLogLevels(t *testing.T) {
	Reset()
	defer Reset()

	buf := &testutil.Buffer{}
	if err := Init(Config{Level: LevelDebug, Format: FormatConsole, Output: buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{"Debug", func() { Debug("test debug message") }, "test debug message"},
		{"Debugf", func() { Debugf("test debug %s", "formatted") }, "test debug formatted"},
		{"Info", func() { Info("test info message") }, "test info message"},
		{"Infof", func() { Infof("test info %s", "formatted") }, "test info formatted"},
		{"Warn", func() { Warn("test warn message") }, "test warn message"},
		{"Warnf", func() { Warnf("test warn %s", "formatted") }, "test warn formatted"},
		{"Error", func() { Error("test error message") }, "test error message"},
		{"Errorf", func() { Errorf("test error %s", "formatted") }, "test error formatted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn()
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output does not contain %q", tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelProgress {
		t.Errorf("DefaultConfig().Level = %v, want %v", cfg.Level, LevelProgress)
	}
	if cfg.Format != FormatConsole {
		t.Errorf("DefaultConfig().Format = %v, want %v", cfg.Format, FormatConsole)
	}
}

func TestGetInitializesDefaultLogger(t *testing.T) {
	Reset()
	defer Reset()

	logger := Get()
	if logger == nil {
		t.Error("Get() returned nil logger")
	}

	if logger != Get() {
		t.Error("Get() returned different logger instances")
	}
}

func TestWith(t *testing.T) {
	Reset()
	defer Reset()

	buf := &testutil.Buffer{}
	if err := Init(Config{Level: LevelDebug, Format: FormatJSON, Output: buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	With("pr", 42).Info("scoped")
	if !strings.Contains(buf.String(), `"pr":42`) {
		t.Errorf("With() field missing from output: %q", buf.String())
	}
}

func TestSync(t *testing.T) {
	Reset()
	defer Reset()

	if err := Init(Config{Level: LevelDebug, Output: &testutil.Buffer{}}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Sync may fail when syncing stdout; it must not panic.
	_ = Sync()
}

func TestRedact(t *testing.T) {
	Reset()
	defer Reset()

	buf := &testutil.Buffer{}
	redact := func(s string) string { return strings.ReplaceAll(s, "s3cr3t", "***") }
	if err := Init(Config{Level: LevelDebug, Format: FormatJSON, Output: buf, Redact: redact}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	With("token", "s3cr3t").Infow("using s3cr3t", "error", errors.New("bad s3cr3t"), "count", 3)

	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Errorf("output leaks secret: %q", out)
	}
	for _, want := range []string{`"msg":"using ***"`, `"token":"***"`, `"error":"bad ***"`, `"count":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %q", want, out)
		}
	}
}
