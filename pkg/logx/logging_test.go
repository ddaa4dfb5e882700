package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"Error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q (len %d)", got, len(got))
	}
	if got := truncate(long, 5); got != "aaaaa" {
		t.Fatalf("tiny cap got %q", got)
	}
}

func TestFormatTelegramLine(t *testing.T) {
	line := []byte(`{"level":"warn","time":"x","message":"delivery failed","post":7}`)
	got := formatTelegramLine(line)
	if !strings.HasPrefix(got, "[WARN] delivery failed") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "post=7") {
		t.Fatalf("field missing: %q", got)
	}

	// non-JSON input passes through trimmed
	if got := formatTelegramLine([]byte("  plain \n")); got != "plain" {
		t.Fatalf("got %q", got)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	var zero Logger
	zero.Info("ignored") // zero value must not panic
	if zero.IsZero() != true {
		t.Fatal("zero logger must report IsZero")
	}

	n := Nop()
	n.Error("ignored", String("k", "v"), Err(nil))
	if n.IsZero() {
		t.Fatal("Nop is an initialized logger, not zero")
	}
}

func TestWithAddsFields(t *testing.T) {
	base := Nop()
	derived := base.With(String("comp", "test"))
	if len(base.fields) != 0 {
		t.Fatal("With must not mutate the receiver")
	}
	if len(derived.fields) != 1 {
		t.Fatalf("derived fields = %d", len(derived.fields))
	}
}
