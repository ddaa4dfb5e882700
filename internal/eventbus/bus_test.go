package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: "post.published", Data: 7})

	select {
	case ev := <-ch:
		if ev.Type != "post.published" || ev.Data != 7 {
			t.Fatalf("got %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatal("publish must stamp the time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: "post.scheduled"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	unsub()
	unsub() // idempotent

	b.Publish(Event{Type: "post.failed"})

	if _, ok := <-ch; ok {
		t.Fatal("closed channel yielded an event")
	}
}

func TestFanout(t *testing.T) {
	b := New()
	ch1, u1 := b.Subscribe(1)
	ch2, u2 := b.Subscribe(1)
	defer u1()
	defer u2()

	b.Publish(Event{Type: "post.cancelled"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != "post.cancelled" {
				t.Fatalf("sub %d got %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub %d missed the event", i)
		}
	}
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	b.Publish(Event{Type: "noop"}) // must not panic
}
