package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"chanpost/internal/kit"
	logx "chanpost/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter implements kit.Transport on top of telebot. It is send-only: the
// conversational surface (composition flow, menus) lives outside this repo,
// so no update polling is started here.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, text, sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, classify(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, fileRef, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	photo := &tele.Photo{File: tele.File{FileID: fileRef}, Caption: caption}
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, photo, sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, classify(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

func (a *Adapter) SendVideo(ctx context.Context, to kit.ChatTarget, fileRef, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	video := &tele.Video{File: tele.File{FileID: fileRef}, Caption: caption}
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, video, sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, classify(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

func sendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	return &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
}

// classify converts a telebot error into a *kit.TransportError with a stable
// kind, so callers never branch on platform error strings.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return &kit.TransportError{Kind: kit.ErrRateLimited, Err: err}
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return &kit.TransportError{Kind: kit.ErrPermission, Err: err}
		case apiErr.Code == 429:
			return &kit.TransportError{Kind: kit.ErrRateLimited, Err: err}
		case apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Description), "not found"):
			return &kit.TransportError{Kind: kit.ErrNotFound, Err: err}
		}
	}
	return &kit.TransportError{Kind: kit.ErrUnknown, Err: err}
}
