// Package posting is the scheduling façade: the public entry points that
// decide immediate vs. deferred handling, coordinate the post store with the
// in-memory job table, and keep both sides of that pair consistent.
package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"chanpost/internal/eventbus"
	"chanpost/internal/kit"
	"chanpost/internal/services/delivery"
	"chanpost/internal/services/jobs"
	"chanpost/internal/storage"
	logx "chanpost/pkg/logx"
)

type Service struct {
	cfg   Config
	log   logx.Logger
	store *storage.Store
	jobs  *jobs.Service
	exec  *delivery.Executor
	notif kit.Notifier // optional; best-effort failure notices
	bus   *eventbus.Bus

	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func New(cfg Config, store *storage.Store, jobTable *jobs.Service, exec *delivery.Executor, notif kit.Notifier, bus *eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg.withDefaults(),
		log:   log,
		store: store,
		jobs:  jobTable,
		exec:  exec,
		notif: notif,
		bus:   bus,
	}
}

// Start runs the startup reconciliation pass and begins the periodic
// consistency sweep. The job table must already be started.
func (s *Service) Start(ctx context.Context) error {
	s.runCtx, s.cancel = context.WithCancel(ctx)

	if err := s.Recover(s.runCtx); err != nil {
		return fmt.Errorf("posting: startup reconciliation: %w", err)
	}

	s.c = cron.New()
	every := fmt.Sprintf("@every %s", s.cfg.SweepEvery)
	if _, err := s.c.AddFunc(every, func() { s.sweep(s.runCtx) }); err != nil {
		return fmt.Errorf("posting: register sweep: %w", err)
	}
	s.c.Start()
	s.log.Info("posting service started",
		logx.Duration("grace_window", s.cfg.GraceWindow), logx.Duration("sweep_every", s.cfg.SweepEvery))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	if s.c != nil {
		select {
		case <-s.c.Stop().Done():
		case <-ctx.Done():
		}
		s.c = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.log.Info("posting service stopped")
}

// Schedule persists the draft and either delivers it right away (publish time
// within the grace window) or registers a deferred job. The returned id is
// valid whenever the record was created, even if the synchronous delivery
// then failed (the failure lands in the stored status, not in the error).
// A non-nil error alongside a non-zero id means the record exists but could
// not be armed; it has been marked failed.
func (s *Service) Schedule(ctx context.Context, d storage.Draft) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreatePost(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("posting: persist draft: %w", err)
	}

	payload := delivery.Payload{
		PostID:       id,
		OwnerID:      d.OwnerID,
		ChannelID:    d.ChannelID,
		ChannelTitle: d.ChannelTitle,
		Body:         d.Body,
		MediaRef:     d.MediaRef,
		MediaKind:    d.MediaKind,
	}

	if !d.ScheduledAt.After(time.Now().Add(s.cfg.GraceWindow)) {
		// Near-future: fire synchronously, outside the timer machinery.
		dctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		s.deliverAndSettle(dctx, payload)
		cancel()
		return id, nil
	}

	if err := s.jobs.Add(jobID(id), d.ScheduledAt, func(jctx context.Context) {
		s.deliverAndSettle(jctx, payload)
	}); err != nil {
		s.log.Error("job registration failed; marking post failed",
			logx.Int64("post", id), logx.Err(err))
		s.forceFailed(ctx, id)
		return id, fmt.Errorf("posting: register job for post %d: %w", id, err)
	}

	s.publish(EventScheduled, PostEvent{PostID: id, OwnerID: d.OwnerID, ChannelID: d.ChannelID, Deferred: true})
	s.log.Info("post scheduled",
		logx.Int64("post", id), logx.Int64("channel", d.ChannelID), logx.Time("publish_at", d.ScheduledAt))
	return id, nil
}

// Cancel withdraws a pending post. The live job is removed BEFORE the store
// is updated: updating first could report a cancellation for a post that is
// mid-delivery.
func (s *Service) Cancel(ctx context.Context, postID, userID int64) CancelResult {
	rec, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, storage.ErrNotFound) {
		return CancelNotFound
	}
	if err != nil {
		s.log.Error("cancel: read failed", logx.Int64("post", postID), logx.Err(err))
		return CancelStorageError
	}
	if rec.OwnerID != userID {
		s.log.Warn("cancel: not the owner",
			logx.Int64("post", postID), logx.Int64("owner", rec.OwnerID), logx.Int64("requester", userID))
		return CancelForbidden
	}
	if rec.Status != storage.StatusScheduled {
		return CancelAlreadyResolved
	}

	if !s.jobs.Remove(jobID(postID)) {
		// Store says scheduled but no live job exists. Either the job is
		// firing right now (it will settle the status itself), or it was
		// lost. Re-read to tell the two apart.
		fresh, err := s.store.GetPost(ctx, postID)
		if err == nil && fresh.Status == storage.StatusScheduled {
			s.log.Warn("cancel: scheduled post has no live job; forcing failed",
				logx.Int64("post", postID))
			s.forceFailed(ctx, postID)
		}
		return CancelAlreadyResolved
	}

	affected, err := s.store.UpdateStatus(ctx, postID, storage.StatusScheduled, storage.StatusCancelled, 0)
	if err != nil {
		// Job is gone but the row still says scheduled; the sweep settles it.
		s.log.Error("cancel: status write failed after job removal",
			logx.Int64("post", postID), logx.Err(err))
		return CancelStorageError
	}
	if affected == 0 {
		return CancelAlreadyResolved
	}

	s.publish(EventCancelled, PostEvent{PostID: postID, OwnerID: rec.OwnerID, ChannelID: rec.ChannelID})
	s.log.Info("post cancelled", logx.Int64("post", postID), logx.Int64("owner", userID))
	return CancelOK
}

// ListHistory exposes the owner's post history, newest first.
func (s *Service) ListHistory(ctx context.Context, ownerID int64, limit, offset int) ([]storage.PostRecord, error) {
	return s.store.ListByOwner(ctx, ownerID, limit, offset)
}

// deliverAndSettle executes one delivery attempt and reconciles the stored
// status with the outcome. Storage failures after a send are logged, never
// retried: the message is already out (or definitively not), and a retry
// could double-post.
func (s *Service) deliverAndSettle(ctx context.Context, p delivery.Payload) {
	outcome, err := s.exec.Deliver(ctx, p)
	if err != nil {
		affected, uerr := s.store.UpdateStatus(ctx, p.PostID, storage.StatusScheduled, storage.StatusFailed, 0)
		s.settleWarnings(p.PostID, affected, uerr)
		s.publish(EventFailed, PostEvent{PostID: p.PostID, OwnerID: p.OwnerID, ChannelID: p.ChannelID, Error: err.Error()})
		s.notifyFailure(ctx, p, err)
		return
	}

	affected, uerr := s.store.UpdateStatus(ctx, p.PostID, storage.StatusScheduled, storage.StatusPublished, outcome.MessageID)
	s.settleWarnings(p.PostID, affected, uerr)
	s.publish(EventPublished, PostEvent{PostID: p.PostID, OwnerID: p.OwnerID, ChannelID: p.ChannelID, MessageID: outcome.MessageID})
}

func (s *Service) settleWarnings(postID int64, affected int64, err error) {
	if err != nil {
		s.log.Error("status write failed after delivery; record needs reconciliation",
			logx.Int64("post", postID), logx.Err(err))
		return
	}
	if affected == 0 {
		s.log.Warn("status already settled by someone else; not overwriting",
			logx.Int64("post", postID))
	}
}

func (s *Service) forceFailed(ctx context.Context, postID int64) {
	if _, err := s.store.UpdateStatus(ctx, postID, storage.StatusScheduled, storage.StatusFailed, 0); err != nil {
		s.log.Error("forcing failed status did not stick", logx.Int64("post", postID), logx.Err(err))
	}
}

func (s *Service) notifyFailure(ctx context.Context, p delivery.Payload, cause error) {
	if s.notif == nil || p.OwnerID == 0 {
		return
	}
	title := p.ChannelTitle
	if title == "" {
		title = fmt.Sprintf("channel %d", p.ChannelID)
	}
	n := kit.Notification{
		Target:   kit.ChatTarget{ChatID: p.OwnerID},
		Priority: 7,
		Text:     fmt.Sprintf("Your post (id %d) for «%s» could not be published.\nReason: %v", p.PostID, title, cause),
	}
	if err := s.notif.Notify(ctx, n); err != nil {
		s.log.Debug("failure notice not accepted", logx.Int64("post", p.PostID), logx.Err(err))
	}
}

func (s *Service) publish(typ string, ev PostEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

func jobID(postID int64) string { return fmt.Sprintf("post_%d", postID) }
