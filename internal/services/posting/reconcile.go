package posting

import (
	"context"
	"time"

	"chanpost/internal/services/delivery"
	"chanpost/internal/storage"
	logx "chanpost/pkg/logx"
)

// Recover rebuilds the in-memory job table from the store after a restart.
// Posts still due in the future (or within the grace window in the past) are
// re-registered; posts past due beyond the grace window are marked failed:
// their job was lost with the previous process and late delivery of stale
// content is worse than an explicit failure.
func (s *Service) Recover(ctx context.Context) error {
	pending, err := s.store.ListScheduled(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	cutoff := now.Add(-s.cfg.GraceWindow)
	restored, expired := 0, 0

	for _, p := range pending {
		if p.ScheduledAt.Before(cutoff) {
			s.log.Warn("scheduled post past due at startup; marking failed",
				logx.Int64("post", p.ID), logx.Time("was_due", p.ScheduledAt))
			s.forceFailed(ctx, p.ID)
			s.publish(EventFailed, PostEvent{PostID: p.ID, OwnerID: p.OwnerID, ChannelID: p.ChannelID, Error: "missed publish time across restart"})
			expired++
			continue
		}

		payload := payloadOf(p)
		if err := s.jobs.Add(jobID(p.ID), p.ScheduledAt, func(jctx context.Context) {
			s.deliverAndSettle(jctx, payload)
		}); err != nil {
			s.log.Error("re-registering job failed; marking post failed",
				logx.Int64("post", p.ID), logx.Err(err))
			s.forceFailed(ctx, p.ID)
			expired++
			continue
		}
		restored++
	}

	if restored > 0 || expired > 0 {
		s.log.Info("startup reconciliation finished",
			logx.Int("restored", restored), logx.Int("expired", expired))
	}
	return nil
}

// sweepLag is how far past due a scheduled row must be, with no live job,
// before the sweep declares it lost. Generous on purpose: a job that fired
// seconds ago may still be mid-delivery with its status write pending.
func (s *Service) sweepLag() time.Duration {
	lag := 4 * s.cfg.GraceWindow
	if lag < time.Minute {
		lag = time.Minute
	}
	return lag
}

// sweep settles scheduled rows that no live job will ever fire: the leftovers
// of a cancellation whose status write failed, or of any other path that lost
// the job after the row was created.
func (s *Service) sweep(ctx context.Context) {
	pending, err := s.store.ListScheduled(ctx)
	if err != nil {
		s.log.Warn("consistency sweep: list failed", logx.Err(err))
		return
	}

	cutoff := time.Now().Add(-s.sweepLag())
	for _, p := range pending {
		if !p.ScheduledAt.Before(cutoff) {
			continue
		}
		if s.jobs.Contains(jobID(p.ID)) {
			continue
		}
		s.log.Warn("consistency sweep: scheduled post has no live job; marking failed",
			logx.Int64("post", p.ID), logx.Time("was_due", p.ScheduledAt))
		s.forceFailed(ctx, p.ID)
		s.publish(EventFailed, PostEvent{PostID: p.ID, OwnerID: p.OwnerID, ChannelID: p.ChannelID, Error: "no live job for scheduled post"})
	}
}

func payloadOf(p storage.PostRecord) delivery.Payload {
	return delivery.Payload{
		PostID:       p.ID,
		OwnerID:      p.OwnerID,
		ChannelID:    p.ChannelID,
		ChannelTitle: p.ChannelTitle,
		Body:         p.Body,
		MediaRef:     p.MediaRef,
		MediaKind:    p.MediaKind,
	}
}
