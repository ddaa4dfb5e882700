package storage

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("post not found")
)

// Config configures the sqlite-backed store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Status is the post lifecycle state. scheduled is the only non-terminal
// state; published, failed and cancelled are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool { return s != StatusScheduled }

// MediaKind classifies an attached media asset. Empty means text-only.
type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Draft is a fully composed, not-yet-persisted post. Body is expected to be
// already expanded from any template; validation here only covers structure.
type Draft struct {
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	Body         string
	MediaRef     string
	MediaKind    MediaKind
	ScheduledAt  time.Time
}

// Validate enforces the structural invariants a row must satisfy before it
// may be persisted. Content policy (banned words etc.) is the composition
// flow's responsibility, not the store's.
func (d Draft) Validate() error {
	if d.OwnerID == 0 {
		return errors.New("draft: owner id required")
	}
	if d.ChannelID == 0 {
		return errors.New("draft: channel id required")
	}
	if d.ScheduledAt.IsZero() {
		return errors.New("draft: scheduled time required")
	}
	if (d.MediaRef == "") != (d.MediaKind == MediaNone) {
		return fmt.Errorf("draft: media ref and media kind must be set together (ref=%q kind=%q)", d.MediaRef, d.MediaKind)
	}
	if d.MediaKind != MediaNone && d.MediaKind != MediaPhoto && d.MediaKind != MediaVideo {
		return fmt.Errorf("draft: unsupported media kind %q", d.MediaKind)
	}
	if d.Body == "" && d.MediaKind == MediaNone {
		return errors.New("draft: empty post (no body, no media)")
	}
	return nil
}

// PostRecord is one durable post intent.
type PostRecord struct {
	ID           int64
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	Body         string
	MediaRef     string
	MediaKind    MediaKind
	ScheduledAt  time.Time
	Status       Status

	// MessageID is the platform message id in the target channel; 0 until the
	// post has been delivered.
	MessageID int64

	CreatedAt time.Time
}
