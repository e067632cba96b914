package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, append(opts, WithBuffer(buf))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

// TestNew 测试 Logger 创建
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil config", config: nil},
		{name: "empty config uses defaults", config: &Config{}},
		{name: "invalid level", config: &Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: &Config{Format: "xml"}, wantErr: true},
		{name: "buffer without writer", config: &Config{Output: "buffer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithNamespace("keylock"))

	logger.WithNamespace("dlock").With(String("backend", "redis")).Info("lock acquired",
		String("key", "distributedLock:order_1"),
		Error(errors.New("ignored")),
	)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["msg"] != "lock acquired" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", line["level"])
	}
	if line[NamespaceKey] != "keylock.dlock" {
		t.Errorf("namespace = %v, want keylock.dlock", line[NamespaceKey])
	}
	if line["backend"] != "redis" || line["key"] != "distributedLock:order_1" {
		t.Errorf("missing fields: %v", line)
	}
	if line["err_msg"] != "ignored" {
		t.Errorf("err_msg = %v", line["err_msg"])
	}
}

func TestLogger_LevelFilteringAndSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Info("hidden")
	logger.Warn("shown")
	if got := len(decodeLines(t, buf)); got != 1 {
		t.Fatalf("expected 1 line at warn level, got %d", got)
	}

	child := logger.With(String("k", "v"))
	if err := child.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	buf.Reset()
	logger.Debug("now visible")
	if got := len(decodeLines(t, buf)); got != 1 {
		t.Fatalf("SetLevel on child should affect parent, got %d lines", got)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	type ctxKey string
	logger, buf := newBufferLogger(t, "debug", WithContextField(ctxKey("request_id"), "request_id"))

	ctx := context.WithValue(context.Background(), ctxKey("request_id"), "req-42")
	logger.InfoContext(ctx, "with context")
	logger.InfoContext(context.Background(), "without context")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["request_id"] != "req-42" {
		t.Errorf("request_id = %v", lines[0]["request_id"])
	}
	if _, ok := lines[1]["request_id"]; ok {
		t.Errorf("unexpected request_id in %v", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"DEBUG": DebugLevel, "info": InfoLevel, "Warn": WarnLevel, "error": ErrorLevel} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.With(String("a", "b")).WithNamespace("x").Error("nothing")
	if err := l.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
}
