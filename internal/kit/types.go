package kit

import (
	"context"
	"fmt"
)

// ChatTarget addresses a Telegram chat (channel, group, or user DM).
type ChatTarget struct {
	ChatID   int64
	ThreadID int // forum topic thread id (0 if none)
}

// MessageRef identifies a message that was accepted by the platform.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Notification is a fire-and-forget message to a user chat.
type Notification struct {
	Target   ChatTarget
	Text     string
	Priority int // 0 low .. 10 high
	Options  *SendOptions
}

// Transport is the outbound messaging surface the delivery core depends on.
// Implementations must return *TransportError for platform-side failures so
// callers can classify outcomes deterministically.
type Transport interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, fileRef, caption string, opt *SendOptions) (MessageRef, error)
	SendVideo(ctx context.Context, to ChatTarget, fileRef, caption string, opt *SendOptions) (MessageRef, error)
}

// ErrorKind is the closed set of transport failure classes. Keeping the set
// small makes downstream status decisions testable without a live platform.
type ErrorKind string

const (
	ErrPermission  ErrorKind = "permission"   // bot lacks rights / was removed
	ErrNotFound    ErrorKind = "not_found"    // chat or message does not exist
	ErrRateLimited ErrorKind = "rate_limited" // platform flood control
	ErrUnknown     ErrorKind = "unknown"      // anything else
)

// TransportError wraps a platform error with a stable kind.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport: %s", e.Kind)
	}
	return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Notifier delivers best-effort user notifications. Errors indicate the
// notification was not accepted for delivery; they are never fatal to callers.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
