package main

import (
	"context"
	"testing"
	"time"
)

// Observers in these tests have no connection; the tests read their queues
// directly instead of running the write loop.

func newTestHub(t *testing.T, observerQueue, publishQueue int) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(discardLogger(), HubConfig{
		ObserverQueue: observerQueue,
		PublishQueue:  publishQueue,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("hub did not stop")
		}
	}
	return hub, stop
}

func joinObserver(t *testing.T, hub *Hub, addr string) *observer {
	t.Helper()
	o := hub.newObserver(nil, addr)
	if !hub.add(o) {
		t.Fatalf("hub refused observer %s", addr)
	}
	return o
}

func receive(t *testing.T, o *observer) []byte {
	t.Helper()
	select {
	case b, ok := <-o.out:
		if !ok {
			t.Fatalf("%s: queue closed", o.addr)
		}
		return b
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("%s: timeout waiting for message", o.addr)
	}
	return nil
}

func TestHub_PublishReachesEveryObserver(t *testing.T) {
	hub, stop := newTestHub(t, 4, 8)
	defer stop()

	o1 := joinObserver(t, hub, "o1")
	o2 := joinObserver(t, hub, "o2")
	if hub.Len() != 2 {
		t.Fatalf("expected 2 observers, got %d", hub.Len())
	}

	msg := []byte(`{"type":"scale_changed","data":{"scale":2.5}}`)
	hub.Publish(msg)

	for _, o := range []*observer{o1, o2} {
		if got := receive(t, o); string(got) != string(msg) {
			t.Fatalf("%s got %q", o.addr, got)
		}
	}
}

func TestHub_StalledObserverDropped(t *testing.T) {
	hub, stop := newTestHub(t, 1, 8)
	defer stop()

	stalled := joinObserver(t, hub, "stalled")
	healthy := joinObserver(t, hub, "healthy")

	hub.Publish([]byte(`"first"`))
	receive(t, healthy)

	// stalled still holds "first", so the second publish overflows it.
	hub.Publish([]byte(`"second"`))
	if got := receive(t, healthy); string(got) != `"second"` {
		t.Fatalf("healthy got %q", got)
	}

	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Len() == 1 }, "stalled observer dropped")

	<-stalled.out // the queued "first"
	if _, ok := <-stalled.out; ok {
		t.Fatalf("expected stalled queue to be closed")
	}
	select {
	case <-stalled.closed:
	default:
		t.Fatalf("expected stalled observer to be closed")
	}
}

func TestHub_LeaveRemovesObserver(t *testing.T) {
	hub, stop := newTestHub(t, 4, 8)
	defer stop()

	o := joinObserver(t, hub, "o")
	hub.leave <- o

	waitUntil(t, 500*time.Millisecond, func() bool { return hub.Len() == 0 }, "observer removed")
	if _, ok := <-o.out; ok {
		t.Fatalf("expected queue closed after leave")
	}
}

func TestHub_DeliverTargetsOneObserver(t *testing.T) {
	hub, stop := newTestHub(t, 1, 8)
	defer stop()

	o1 := joinObserver(t, hub, "o1")
	o2 := joinObserver(t, hub, "o2")

	if !hub.deliver(o1, []byte(`"init"`)) {
		t.Fatalf("deliver to o1 failed")
	}
	if got := receive(t, o1); string(got) != `"init"` {
		t.Fatalf("o1 got %q", got)
	}
	select {
	case b := <-o2.out:
		t.Fatalf("o2 got unexpected %q", b)
	default:
	}

	// A full queue drops the observer instead of blocking.
	o2.out <- []byte(`"queued"`)
	if hub.deliver(o2, []byte(`"init"`)) {
		t.Fatalf("expected deliver to a full queue to fail")
	}
	if hub.Len() != 1 {
		t.Fatalf("expected o2 dropped, have %d observers", hub.Len())
	}
}

func TestHub_StopClosesObservers(t *testing.T) {
	hub, stop := newTestHub(t, 4, 8)
	o := joinObserver(t, hub, "o")

	stop()

	if _, ok := <-o.out; ok {
		t.Fatalf("expected queue closed on stop")
	}
	if hub.add(hub.newObserver(nil, "late")) {
		t.Fatalf("expected stopped hub to refuse observers")
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	// Not running: nothing drains the publish queue.
	hub := NewHub(discardLogger(), HubConfig{PublishQueue: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.Publish([]byte("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}
}
