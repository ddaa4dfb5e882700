package app

import (
	"time"

	"chanpost/internal/config"
	"chanpost/internal/services/notify"
	"chanpost/internal/services/posting"
	logx "chanpost/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapPostingConfig(cfg *config.Config) (posting.Config, error) {
	grace, err := config.ParseDurationOrDefault("posting.grace_window", cfg.Posting.GraceWindow, 15*time.Second)
	if err != nil {
		return posting.Config{}, err
	}
	sweep, err := config.ParseDurationOrDefault("posting.sweep_every", cfg.Posting.SweepEvery, 5*time.Minute)
	if err != nil {
		return posting.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("posting.delivery_timeout", cfg.Posting.DeliveryTimeout, time.Minute)
	if err != nil {
		return posting.Config{}, err
	}
	return posting.Config{
		GraceWindow:     grace,
		SweepEvery:      sweep,
		DeliveryTimeout: timeout,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notify.Config, error) {
	base, err := config.ParseDurationField("notifier.retry_base", cfg.Notifier.RetryBase)
	if err != nil {
		return notify.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", cfg.Notifier.RetryMaxDelay)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{
		Enabled:       cfg.NotifierEnabled(),
		Workers:       cfg.Notifier.Workers,
		QueueSize:     cfg.Notifier.QueueSize,
		RatePerSec:    cfg.Notifier.RatePerSec,
		RetryMax:      cfg.Notifier.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}
