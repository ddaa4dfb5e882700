package config

// Config is the full on-disk configuration. JSON and YAML are both accepted;
// YAML is coerced to JSON and decoded strictly, so unknown keys fail early.
//
// All duration fields are Go duration strings (e.g. "15s", "5m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Posting  PostingConfig  `json:"posting"`
	Notifier NotifierConfig `json:"notifier"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// GroupLog is the chat id of the admin log group (optional; enables the
	// Telegram log sink target).
	GroupLog    string `json:"group_log,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// PostingConfig controls the scheduling façade.
//
// Defaults (when fields are omitted/zero):
//   - grace_window: "15s"
//   - sweep_every: "5m"
//   - delivery_timeout: "1m"
type PostingConfig struct {
	GraceWindow     string `json:"grace_window,omitempty"`
	SweepEvery      string `json:"sweep_every,omitempty"`
	DeliveryTimeout string `json:"delivery_timeout,omitempty"`
}

// NotifierConfig controls the async user-notification pipeline. If the whole
// section is omitted the notifier defaults to enabled.
type NotifierConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// NotifierEnabled resolves the tri-state enabled flag.
func (c *Config) NotifierEnabled() bool {
	if c.Notifier.Enabled == nil {
		return true
	}
	return *c.Notifier.Enabled
}
