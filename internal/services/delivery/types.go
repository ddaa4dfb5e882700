package delivery

import (
	"errors"
	"fmt"

	"chanpost/internal/kit"
	"chanpost/internal/storage"
)

// Payload is the snapshot the executor needs to perform one delivery. It is
// captured at scheduling time and never re-read from the store.
type Payload struct {
	PostID       int64
	OwnerID      int64
	ChannelID    int64
	ChannelTitle string
	Body         string
	MediaRef     string
	MediaKind    storage.MediaKind
}

// Outcome describes a successful delivery.
type Outcome struct {
	MessageID int64
}

// FailKind is the closed set of delivery failure classes.
type FailKind string

const (
	FailInvalid     FailKind = "invalid"
	FailPermission  FailKind = "permission"
	FailNotFound    FailKind = "not_found"
	FailRateLimited FailKind = "rate_limited"
	FailUnknown     FailKind = "unknown"
)

// Error is the delivery failure returned instead of a raw transport error.
type Error struct {
	Kind FailKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery: %s", e.Kind)
	}
	return fmt.Sprintf("delivery: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failKindOf(err error) FailKind {
	var te *kit.TransportError
	if errors.As(err, &te) {
		switch te.Kind {
		case kit.ErrPermission:
			return FailPermission
		case kit.ErrNotFound:
			return FailNotFound
		case kit.ErrRateLimited:
			return FailRateLimited
		}
	}
	return FailUnknown
}
