package compose

import (
	"testing"
	"time"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	bindings := map[string]string{
		"author": "alice",
		"news":   "launch day",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"single", "by {author}", "by alice"},
		{"repeated", "{author} and {author}", "alice and alice"},
		{"mixed", "{news} — {author}", "launch day — alice"},
		{"unknown kept", "hello {nobody}", "hello {nobody}"},
		{"unterminated", "broken {author", "broken {author"},
		{"empty name", "odd {} spot", "odd {} spot"},
		{"adjacent", "{author}{news}", "alicelaunch day"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Expand(tt.template, bindings); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestExpandNilBindings(t *testing.T) {
	t.Parallel()
	if got := Expand("keep {this}", nil); got != "keep {this}" {
		t.Errorf("got %q", got)
	}
}

func TestBuiltinBindings(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 9, 18, 5, 0, 0, time.UTC)
	b := BuiltinBindings(now)
	if b["date"] != "09.03.2025" {
		t.Errorf("date = %q", b["date"])
	}
	if b["time"] != "18:05" {
		t.Errorf("time = %q", b["time"])
	}
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()
	in := `a < b & c > d "quoted"`
	want := `a &lt; b &amp; c &gt; d "quoted"`
	if got := EscapeHTML(in); got != want {
		t.Errorf("EscapeHTML = %q, want %q", got, want)
	}
}
