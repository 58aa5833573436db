package eventbus

import (
	"testing"
	"time"
)

func TestPublishCallsLocalHandlers(t *testing.T) {
	bus := New()
	defer bus.Close()

	var got []Event
	bus.Subscribe(WindowCreated, func(ev Event) {
		got = append(got, ev)
	})
	bus.Subscribe(WindowDestroyed, func(ev Event) {
		t.Errorf("unexpected %s event", ev.Name)
	})

	bus.Publish(WindowCreated, Payload{"window_id": 1, "title": "term"})
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Payload["title"] != "term" {
		t.Errorf("unexpected payload %v", got[0].Payload)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	calls := 0
	unsubscribe := bus.Subscribe(WindowFocused, func(Event) { calls++ })
	bus.Publish(WindowFocused, nil)
	unsubscribe()
	bus.Publish(WindowFocused, nil)
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRemoteListenerReceivesEvents(t *testing.T) {
	bus := New()
	defer bus.Close()

	rec, err := bus.Listen("client-1")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	bus.Publish(OutputAdded, Payload{"name": "WL-1"})
	select {
	case ev := <-rec:
		if ev.Name != OutputAdded {
			t.Errorf("expected %s, got %s", OutputAdded, ev.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("remote listener got nothing")
	}
}

func TestRequestsAreServedThroughPost(t *testing.T) {
	bus := New()

	toggled := make(chan struct{}, 1)
	bus.Subscribe(MultitaskToggle, func(Event) {
		toggled <- struct{}{}
	})
	// Stand-in for the event loop: run posted funcs right away
	go bus.ServeRequests(func(fn func()) error {
		fn()
		return nil
	})

	if err := bus.Request(Event{Name: MultitaskToggle}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	select {
	case <-toggled:
	case <-time.After(time.Second):
		t.Fatal("request was not delivered")
	}
	bus.Close()
	if err := bus.Request(Event{Name: MultitaskToggle}); err == nil {
		t.Error("expected error after close")
	}
}
