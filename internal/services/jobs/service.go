package jobs

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	logx "chanpost/pkg/logx"
)

var (
	ErrNotRunning = errors.New("jobs: scheduler not running")
	ErrBadJob     = errors.New("jobs: id and fire time required")
)

// Config controls the job scheduler.
type Config struct {
	// RunTimeout bounds a single fired job. 0 disables the bound.
	RunTimeout time.Duration
}

// Run is the callback handed to Add: everything it needs is captured in
// the closure at scheduling time, so firing never re-reads shared state.
type Run func(ctx context.Context)

type entry struct {
	fireAt time.Time
	timer  *time.Timer
	ver    uint64
	run    Run
}

// Service is the in-memory one-shot job table. Safe for concurrent use.
type Service struct {
	cfg Config
	log logx.Logger

	mu      sync.Mutex
	entries map[string]*entry

	runCtx    context.Context
	runCancel context.CancelFunc
	fireWG    sync.WaitGroup
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, entries: map[string]*entry{}}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.log.Info("job scheduler started")
}

// Stop cancels the run context and stops all pending timers. In-flight fired
// jobs are waited for until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.runCancel
	s.runCtx = nil
	s.runCancel = nil
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.fireWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("job scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out; jobs may still be finishing")
	}
}

// Add registers (or replaces) the job under id. The existing timer for the
// same id is stopped first; its pending callback, if already queued, is
// ignored via the version check.
func (s *Service) Add(id string, fireAt time.Time, run Run) error {
	if strings.TrimSpace(id) == "" || fireAt.IsZero() || run == nil {
		return ErrBadJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return ErrNotRunning
	}

	var ver uint64 = 1
	if old, ok := s.entries[id]; ok {
		old.timer.Stop()
		ver = old.ver + 1
		s.log.Debug("job replaced", logx.String("job", id), logx.Time("fire_at", fireAt))
	}

	e := &entry{fireAt: fireAt, ver: ver, run: run}
	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	localID := id
	localVer := ver
	e.timer = time.AfterFunc(delay, func() { s.fire(localID, localVer) })
	s.entries[id] = e

	s.log.Debug("job registered", logx.String("job", id), logx.Time("fire_at", fireAt), logx.Duration("in", delay))
	return nil
}

// Remove unregisters the job. It returns true when a live job was removed and
// false when no job was present, so the caller can tell "cancelled in time"
// from "already fired or never existed".
func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, id)
	s.log.Debug("job removed", logx.String("job", id))
	return true
}

// Contains reports whether a live job exists under id.
func (s *Service) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of live jobs.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fire runs on the timer goroutine. It claims the entry (so the job fires at
// most once), then executes the callback on a fresh goroutine.
func (s *Service) fire(id string, ver uint64) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.ver != ver {
		// Removed or replaced after the timer was queued; stale callback.
		s.mu.Unlock()
		return
	}
	delete(s.entries, id)
	runCtx := s.runCtx
	run := e.run
	s.mu.Unlock()

	if runCtx == nil {
		s.log.Debug("job fired after stop; dropped", logx.String("job", id))
		return
	}

	s.fireWG.Add(1)
	go func() {
		defer s.fireWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in fired job",
					logx.String("job", id), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			}
		}()

		ctx := runCtx
		if s.cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
			defer cancel()
		}
		run(ctx)
	}()
}
