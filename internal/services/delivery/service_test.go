package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chanpost/internal/kit"
	"chanpost/internal/storage"
	logx "chanpost/pkg/logx"
)

type sentCall struct {
	method  string
	to      kit.ChatTarget
	fileRef string
	text    string
	opt     *kit.SendOptions
}

type fakeTransport struct {
	calls []sentCall
	err   error
	ref   kit.MessageRef
}

func (f *fakeTransport) record(method string, to kit.ChatTarget, fileRef, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.calls = append(f.calls, sentCall{method: method, to: to, fileRef: fileRef, text: text, opt: opt})
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	return f.ref, nil
}

func (f *fakeTransport) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return f.record("text", to, "", text, opt)
}

func (f *fakeTransport) SendPhoto(_ context.Context, to kit.ChatTarget, fileRef, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return f.record("photo", to, fileRef, caption, opt)
}

func (f *fakeTransport) SendVideo(_ context.Context, to kit.ChatTarget, fileRef, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return f.record("video", to, fileRef, caption, opt)
}

type fakeNotifier struct {
	got []kit.Notification
	err error
}

func (f *fakeNotifier) Notify(_ context.Context, n kit.Notification) error {
	f.got = append(f.got, n)
	return f.err
}

func basePayload() Payload {
	return Payload{
		PostID:       7,
		OwnerID:      42,
		ChannelID:    -1001234567890,
		ChannelTitle: "news",
		Body:         "hello <b>world</b>",
	}
}

func TestDeliverTextPost(t *testing.T) {
	tr := &fakeTransport{ref: kit.MessageRef{MessageID: 900}}
	nf := &fakeNotifier{}
	ex := New(tr, nf, logx.Nop())

	out, err := ex.Deliver(context.Background(), basePayload())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.MessageID != 900 {
		t.Fatalf("message id = %d", out.MessageID)
	}
	if len(tr.calls) != 1 || tr.calls[0].method != "text" {
		t.Fatalf("calls: %+v", tr.calls)
	}
	if tr.calls[0].opt == nil || tr.calls[0].opt.ParseMode != "HTML" {
		t.Fatalf("expected HTML parse mode, got %+v", tr.calls[0].opt)
	}
}

func TestDeliverMediaDispatch(t *testing.T) {
	tests := []struct {
		kind   storage.MediaKind
		method string
	}{
		{storage.MediaPhoto, "photo"},
		{storage.MediaVideo, "video"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			tr := &fakeTransport{ref: kit.MessageRef{MessageID: 1}}
			ex := New(tr, nil, logx.Nop())

			p := basePayload()
			p.MediaRef = "file-abc"
			p.MediaKind = tt.kind
			if _, err := ex.Deliver(context.Background(), p); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			if len(tr.calls) != 1 || tr.calls[0].method != tt.method {
				t.Fatalf("calls: %+v", tr.calls)
			}
			if tr.calls[0].fileRef != "file-abc" || tr.calls[0].text != p.Body {
				t.Fatalf("wrong media call: %+v", tr.calls[0])
			}
		})
	}
}

func TestDeliverUnknownKindFallsBackToText(t *testing.T) {
	tr := &fakeTransport{ref: kit.MessageRef{MessageID: 2}}
	ex := New(tr, nil, logx.Nop())

	p := basePayload()
	p.MediaRef = "file-xyz"
	p.MediaKind = "sticker"
	out, err := ex.Deliver(context.Background(), p)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.MessageID != 2 {
		t.Fatalf("message id = %d", out.MessageID)
	}
	if len(tr.calls) != 1 || tr.calls[0].method != "text" {
		t.Fatalf("calls: %+v", tr.calls)
	}
	if !strings.Contains(tr.calls[0].text, p.Body) ||
		!strings.Contains(tr.calls[0].text, "file-xyz") {
		t.Fatalf("fallback text = %q", tr.calls[0].text)
	}
}

func TestDeliverUnknownKindNoBodyIsInvalid(t *testing.T) {
	tr := &fakeTransport{}
	ex := New(tr, nil, logx.Nop())

	p := basePayload()
	p.Body = ""
	p.MediaRef = "file-xyz"
	p.MediaKind = "sticker"
	_, err := ex.Deliver(context.Background(), p)

	var de *Error
	if !errors.As(err, &de) || de.Kind != FailInvalid {
		t.Fatalf("expected invalid failure, got %v", err)
	}
	if len(tr.calls) != 0 {
		t.Fatalf("no send expected, got %+v", tr.calls)
	}
}

func TestDeliverStructuralChecks(t *testing.T) {
	ex := New(&fakeTransport{}, nil, logx.Nop())

	p := basePayload()
	p.MediaRef = "file-abc" // kind still empty
	if _, err := ex.Deliver(context.Background(), p); err == nil {
		t.Fatal("expected invalid error for ref without kind")
	}

	p = basePayload()
	p.ChannelID = 0
	var de *Error
	_, err := ex.Deliver(context.Background(), p)
	if !errors.As(err, &de) || de.Kind != FailInvalid {
		t.Fatalf("expected invalid failure, got %v", err)
	}
}

func TestDeliverClassifiesTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailKind
	}{
		{"permission", &kit.TransportError{Kind: kit.ErrPermission, Err: errors.New("bot was kicked")}, FailPermission},
		{"not found", &kit.TransportError{Kind: kit.ErrNotFound, Err: errors.New("chat not found")}, FailNotFound},
		{"rate limited", &kit.TransportError{Kind: kit.ErrRateLimited, Err: errors.New("retry after 30")}, FailRateLimited},
		{"unknown transport", &kit.TransportError{Kind: kit.ErrUnknown, Err: errors.New("weird")}, FailUnknown},
		{"raw error", errors.New("conn reset"), FailUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{err: tt.err}
			nf := &fakeNotifier{}
			ex := New(tr, nf, logx.Nop())

			_, err := ex.Deliver(context.Background(), basePayload())
			var de *Error
			if !errors.As(err, &de) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if de.Kind != tt.want {
				t.Fatalf("kind = %q, want %q", de.Kind, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Fatal("original error lost from chain")
			}
			if len(nf.got) != 0 {
				t.Fatal("failed delivery must not notify success")
			}
		})
	}
}

func TestDeliverNotifiesOwnerWithLink(t *testing.T) {
	tr := &fakeTransport{ref: kit.MessageRef{MessageID: 777}}
	nf := &fakeNotifier{}
	ex := New(tr, nf, logx.Nop())

	if _, err := ex.Deliver(context.Background(), basePayload()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(nf.got) != 1 {
		t.Fatalf("notifications: %+v", nf.got)
	}
	n := nf.got[0]
	if n.Target.ChatID != 42 {
		t.Fatalf("notified chat %d, want owner 42", n.Target.ChatID)
	}
	if !strings.Contains(n.Text, "https://t.me/c/1234567890/777") {
		t.Fatalf("missing deep link in %q", n.Text)
	}
	if !strings.Contains(n.Text, "news") {
		t.Fatalf("missing channel title in %q", n.Text)
	}
}

func TestDeliverNotifierFailureIsBestEffort(t *testing.T) {
	tr := &fakeTransport{ref: kit.MessageRef{MessageID: 3}}
	nf := &fakeNotifier{err: errors.New("queue full")}
	ex := New(tr, nf, logx.Nop())

	out, err := ex.Deliver(context.Background(), basePayload())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if out.MessageID != 3 {
		t.Fatalf("outcome lost: %+v", out)
	}
}

func TestPublicLink(t *testing.T) {
	if got := publicLink(-1001234567890, 55); got != "https://t.me/c/1234567890/55" {
		t.Fatalf("publicLink = %q", got)
	}
	// non-supergroup ids pass through unchanged
	if got := publicLink(12345, 1); got != "https://t.me/c/12345/1" {
		t.Fatalf("publicLink = %q", got)
	}
}
