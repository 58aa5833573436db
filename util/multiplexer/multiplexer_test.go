package multiplexer

import (
	"errors"
	"testing"
	"time"
)

func TestOneToManyDistributesToAllReceivers(t *testing.T) {
	plexer := NewOneToMany[string](4)
	go plexer.StartPlexer()
	defer plexer.CloseSender(true)

	a, err := plexer.MakeReceiver("a")
	if err != nil {
		t.Fatalf("failed to make receiver a: %v", err)
	}
	b, err := plexer.MakeReceiver("b")
	if err != nil {
		t.Fatalf("failed to make receiver b: %v", err)
	}
	if err = plexer.Send("hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	for name, rec := range map[string]<-chan string{"a": a, "b": b} {
		select {
		case msg := <-rec:
			if msg != "hello" {
				t.Errorf("receiver %s got %q", name, msg)
			}
		case <-time.After(time.Second):
			t.Errorf("receiver %s got nothing", name)
		}
	}
}

func TestOneToManyRejectsDuplicateReceiver(t *testing.T) {
	plexer := NewOneToMany[int](1)
	if _, err := plexer.MakeReceiver("x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := plexer.MakeReceiver("x"); !errors.Is(err, ErrReceiverExists) {
		t.Errorf("expected ErrReceiverExists, got %v", err)
	}
}

func TestOneToManySendDoesNotBlockWhenFull(t *testing.T) {
	plexer := NewOneToMany[int](1)
	// Not started, so the inbound buffer fills up
	if err := plexer.Send(1); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := plexer.Send(2); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestOneToManyCloseClosesReceivers(t *testing.T) {
	plexer := NewOneToMany[int](1)
	go plexer.StartPlexer()
	rec, _ := plexer.MakeReceiver("r")
	plexer.CloseSender(true)
	if _, ok := <-rec; ok {
		t.Error("receiver still open after close")
	}
	if err := plexer.Send(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestManyToOneClosed(t *testing.T) {
	ch := make(chan int, 1)
	plexer := NewManyToOne(ch)
	if err := plexer.Send(1); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	plexer.Close()
	if err := plexer.Send(2); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
