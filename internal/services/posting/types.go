package posting

import (
	"time"
)

// Config controls the scheduling façade.
type Config struct {
	// GraceWindow is the tolerance below which a future publish time is
	// treated as "now" and delivered synchronously instead of registering a
	// timer job.
	GraceWindow time.Duration

	// SweepEvery is the cadence of the background consistency sweep that
	// settles scheduled rows with no live job backing them.
	SweepEvery time.Duration

	// DeliveryTimeout bounds one fired delivery attempt.
	DeliveryTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.GraceWindow <= 0 {
		c.GraceWindow = 15 * time.Second
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 5 * time.Minute
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = time.Minute
	}
	return c
}

// CancelResult is the discriminated outcome of a cancellation request; a raw
// error never crosses the façade boundary for cancel.
type CancelResult string

const (
	CancelOK CancelResult = "ok"
	// CancelAlreadyResolved: the post reached a terminal state before the
	// cancel took effect (fired, failed earlier, or cancelled earlier).
	CancelAlreadyResolved CancelResult = "already_resolved"
	CancelNotFound        CancelResult = "not_found"
	CancelForbidden       CancelResult = "forbidden"
	CancelStorageError    CancelResult = "storage_error"
)

// Bus event types published by the façade and its delivery settlements.
const (
	EventScheduled = "post.scheduled"
	EventPublished = "post.published"
	EventFailed    = "post.failed"
	EventCancelled = "post.cancelled"
)

// PostEvent is the Data payload for the post.* bus events.
type PostEvent struct {
	PostID    int64  `json:"post_id"`
	OwnerID   int64  `json:"owner_id"`
	ChannelID int64  `json:"channel_id"`
	MessageID int64  `json:"message_id,omitempty"`
	Deferred  bool   `json:"deferred,omitempty"`
	Error     string `json:"error,omitempty"`
}
