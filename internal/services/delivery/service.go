// Package delivery performs the actual send of a post to its target channel
// and classifies the outcome. It never lets a transport error escape raw: the
// caller always receives either an Outcome or a *Error with a stable kind.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"chanpost/internal/kit"
	"chanpost/internal/storage"
	logx "chanpost/pkg/logx"
)

// parseMode used for channel posts; bodies are expected to carry
// already-escaped HTML (composition flow contract).
const parseMode = "HTML"

type Executor struct {
	transport kit.Transport
	notifier  kit.Notifier
	log       logx.Logger
}

func New(transport kit.Transport, notifier kit.Notifier, log logx.Logger) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{transport: transport, notifier: notifier, log: log}
}

// Deliver sends the payload to its target channel. On success it also fires a
// best-effort "post published" notification to the owner; notification
// failures are logged and do not affect the returned outcome.
func (e *Executor) Deliver(ctx context.Context, p Payload) (Outcome, error) {
	if (p.MediaRef == "") != (p.MediaKind == storage.MediaNone) {
		return Outcome{}, &Error{Kind: FailInvalid,
			Err: fmt.Errorf("media ref and media kind must be set together (ref=%q kind=%q)", p.MediaRef, p.MediaKind)}
	}
	if p.ChannelID == 0 {
		return Outcome{}, &Error{Kind: FailInvalid, Err: fmt.Errorf("post %d has no target channel", p.PostID)}
	}

	to := kit.ChatTarget{ChatID: p.ChannelID}
	opt := &kit.SendOptions{ParseMode: parseMode}

	var (
		ref kit.MessageRef
		err error
	)
	switch p.MediaKind {
	case storage.MediaNone:
		ref, err = e.transport.SendText(ctx, to, p.Body, opt)
	case storage.MediaPhoto:
		ref, err = e.transport.SendPhoto(ctx, to, p.MediaRef, p.Body, opt)
	case storage.MediaVideo:
		ref, err = e.transport.SendVideo(ctx, to, p.MediaRef, p.Body, opt)
	default:
		// Unrecognized kinds don't pass store validation, but legacy rows
		// can still carry one. With a body the post is salvageable as text;
		// without one there is nothing sendable.
		if p.Body == "" {
			return Outcome{}, &Error{Kind: FailInvalid,
				Err: fmt.Errorf("post %d: no body and unrecognized media kind %q", p.PostID, p.MediaKind)}
		}
		e.log.Warn("unrecognized media kind; sending body only",
			logx.Int64("post", p.PostID), logx.String("media_kind", string(p.MediaKind)))
		text := fmt.Sprintf("%s\n[attached media could not be processed: %s]", p.Body, p.MediaRef)
		ref, err = e.transport.SendText(ctx, to, text, &kit.SendOptions{})
	}
	if err != nil {
		e.log.Warn("delivery failed",
			logx.Int64("post", p.PostID), logx.Int64("channel", p.ChannelID), logx.Err(err))
		return Outcome{}, &Error{Kind: failKindOf(err), Err: err}
	}

	e.log.Info("post delivered",
		logx.Int64("post", p.PostID), logx.Int64("channel", p.ChannelID), logx.Int("message_id", ref.MessageID))

	e.notifyPublished(ctx, p, ref)
	return Outcome{MessageID: int64(ref.MessageID)}, nil
}

func (e *Executor) notifyPublished(ctx context.Context, p Payload, ref kit.MessageRef) {
	if e.notifier == nil || p.OwnerID == 0 {
		return
	}
	title := p.ChannelTitle
	if title == "" {
		title = fmt.Sprintf("channel %d", p.ChannelID)
	}
	text := fmt.Sprintf("✅ Post published in «%s»!\n👁‍🗨 View: %s", title, publicLink(p.ChannelID, ref.MessageID))
	n := kit.Notification{
		Target: kit.ChatTarget{ChatID: p.OwnerID},
		Text:   text,
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.Warn("publish notification not accepted",
			logx.Int64("post", p.PostID), logx.Int64("owner", p.OwnerID), logx.Err(err))
	}
}

// publicLink builds the t.me deep link for a channel message. Channel chat
// ids carry a -100 prefix that the web link format drops.
func publicLink(channelID int64, messageID int) string {
	id := strings.TrimPrefix(fmt.Sprintf("%d", channelID), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
}
