package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const yamlConfig = `
telegram:
  token: "123:abc"
  group_log: "-1009999999999"
logging:
  level: "debug"
  console: true
  file:
    enabled: true
    path: "./chanpost.log"
  telegram:
    enabled: false
storage:
  path: "./data/posts.db"
  busy_timeout: "5s"
posting:
  grace_window: "15s"
  sweep_every: "5m"
notifier:
  enabled: true
  workers: 3
`

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
	if cfg.Posting.GraceWindow != "15s" {
		t.Fatalf("grace_window = %q", cfg.Posting.GraceWindow)
	}
	if !cfg.NotifierEnabled() || cfg.Notifier.Workers != 3 {
		t.Fatalf("notifier: %+v", cfg.Notifier)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed snapshot")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json",
		`{"telegram":{"token":"t"},"storage":{"path":"p.db"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "t" || cfg.Storage.Path != "p.db" {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "config.json",
		`{"telegram":{"token":"t"},"shceduler":{"enabled":true}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("typo key must be rejected")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t"}}{"extra":1}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("trailing data must be rejected")
	}
}

func TestNotifierEnabledDefault(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.NotifierEnabled() {
		t.Fatal("notifier must default to enabled")
	}
}

func TestParseDurationField(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"15s", 15 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"-3s", 0, true},
		{"banana", 0, true},
		{"15", 0, true}, // bare numbers are ambiguous
	}
	for _, tt := range tests {
		got, err := ParseDurationField("x", tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDurationField(%q) err = %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	if got, _ := ParseDurationOrDefault("x", "", 9*time.Second); got != 9*time.Second {
		t.Fatalf("empty = %v", got)
	}
	if got, _ := ParseDurationOrDefault("x", "2s", 9*time.Second); got != 2*time.Second {
		t.Fatalf("explicit = %v", got)
	}
	if _, err := ParseDurationOrDefault("x", "nope", time.Second); err == nil {
		t.Fatal("bad value must error, not default")
	}
}

func TestSubscribePublish(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t"}}`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	next := &Config{}
	m.Commit(next)
	m.publish(next)

	select {
	case got := <-ch:
		if got != next {
			t.Fatal("wrong snapshot delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
