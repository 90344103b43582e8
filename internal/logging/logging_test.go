package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmitFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info)

	logger.Info("repo_connected", F("repo", "octo/hello"), F("issues", 3))

	line := buf.String()
	if !strings.Contains(line, "level=info") {
		t.Fatalf("missing level: %q", line)
	}
	if !strings.Contains(line, "msg=repo_connected") {
		t.Fatalf("missing msg: %q", line)
	}
	if !strings.Contains(line, "repo=octo/hello") {
		t.Fatalf("missing field: %q", line)
	}
	if !strings.Contains(line, "issues=3") {
		t.Fatalf("missing numeric field: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("line not terminated: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("suppressed levels leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn suppressed: %q", out)
	}
}

func TestQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info)

	logger.Info("msg", F("path", "/ok"), F("text", "has spaces"), F("empty", ""))

	line := buf.String()
	if !strings.Contains(line, `text="has spaces"`) {
		t.Fatalf("spaced value not quoted: %q", line)
	}
	if !strings.Contains(line, `empty=""`) {
		t.Fatalf("empty value not quoted: %q", line)
	}
	if !strings.Contains(line, "path=/ok") {
		t.Fatalf("plain value quoted: %q", line)
	}
}

func TestWithBindsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).With(F("request_id", "abc123"))

	logger.Info("first")
	logger.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "request_id=abc123") {
			t.Fatalf("bound field missing: %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"DEBUG":   Debug,
		"info":    Info,
		"warn":    Warn,
		"warning": Warn,
		"error":   Error,
		"":        Info,
		"bogus":   Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("nothing happens")
	if logger.Enabled(Debug) {
		t.Fatal("nop logger should not enable debug")
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if a == "" || a == b {
		t.Fatalf("ids not unique: %q %q", a, b)
	}
}
