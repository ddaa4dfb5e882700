// Package app wires the configuration, logging, storage and posting services
// into one process and owns their start/stop order.
package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	telegram "chanpost/internal/adapters/telegram"
	"chanpost/internal/config"
	"chanpost/internal/eventbus"
	"chanpost/internal/services/delivery"
	"chanpost/internal/services/jobs"
	"chanpost/internal/services/notify"
	"chanpost/internal/services/posting"
	"chanpost/internal/storage"
	logx "chanpost/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	bus   *eventbus.Bus
	store *storage.Store

	adapter *telegram.Adapter

	notif   *notify.Service
	jobs    *jobs.Service
	posting *posting.Service

	runCtx context.Context
	cancel context.CancelFunc

	unsubEvents func()
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New applies the config immediately. The Telegram sink needs its
	// target set first, so bootstrap with the sink disabled and re-Apply.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	log = log.With(logx.String("comp", "app"))

	if raw := strings.TrimSpace(cfg.Telegram.GroupLog); raw != "" {
		if chatID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
		} else {
			log.Warn("telegram.group_log is not a chat id; telegram log sink disabled",
				logx.String("group_log", raw))
		}
	}
	logSvc.Apply(logCfg)

	busyTimeout, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notify.New(ncfg, ad, log.With(logx.String("comp", "notify")))

	pcfg, err := mapPostingConfig(cfg)
	if err != nil {
		return nil, err
	}
	jobSvc := jobs.New(jobs.Config{RunTimeout: pcfg.DeliveryTimeout},
		log.With(logx.String("comp", "jobs")))
	exec := delivery.New(ad, notifSvc, log.With(logx.String("comp", "delivery")))
	postSvc := posting.New(pcfg, store, jobSvc, exec, notifSvc, bus,
		log.With(logx.String("comp", "posting")))

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		notif:   notifSvc,
		jobs:    jobSvc,
		posting: postSvc,
	}, nil
}

// Posting exposes the scheduling façade to the transport layer.
func (a *App) Posting() *posting.Service { return a.posting }

func (a *App) Start(ctx context.Context) error {
	a.runCtx, a.cancel = context.WithCancel(ctx)

	a.notif.Start(a.runCtx)
	a.jobs.Start(a.runCtx)
	if err := a.posting.Start(a.runCtx); err != nil {
		return err
	}

	// post lifecycle events mirrored into the log stream
	events, unsub := a.bus.Subscribe(64)
	a.unsubEvents = unsub
	go a.logEvents(events)

	// live config reload (logging only; service topology is start-time fixed)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	updates := a.cfgm.Subscribe(4)
	go func() {
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-a.runCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.logs.Apply(mapLogConfig(cfg))
				a.log.Info("logging config applied")
			}
		}
	}()
	go func() { _ = a.cfgm.Watch(a.runCtx) }()

	a.log.Info("app started")
	return nil
}

// Stop shuts services down in reverse dependency order: stop accepting new
// work first, then let in-flight deliveries settle, then close the sinks.
func (a *App) Stop(ctx context.Context) {
	// Services first so in-flight deliveries can drain; the run context is
	// cancelled only after, which also ends the watch/event goroutines.
	a.posting.Stop(ctx)
	a.jobs.Stop(ctx)
	a.notif.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
	}
	if a.unsubEvents != nil {
		a.unsubEvents()
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
	a.log.Info("app stopped")
	_ = a.logs.Close()
}

func (a *App) logEvents(events <-chan eventbus.Event) {
	for ev := range events {
		pe, ok := ev.Data.(posting.PostEvent)
		if !ok {
			a.log.Debug("event", logx.String("type", ev.Type))
			continue
		}
		fields := []logx.Field{
			logx.String("type", ev.Type),
			logx.Int64("post_id", pe.PostID),
			logx.Int64("channel_id", pe.ChannelID),
		}
		if pe.Error != "" {
			fields = append(fields, logx.String("error", pe.Error))
		}
		a.log.Info("post event", fields...)
	}
}
