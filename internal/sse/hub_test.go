package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
)

func newTestHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewSSEHub(log)
}

func TestBroadcastReachesSubscribedChannelOnly(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewSSEClient(uuid.New())
	b := hub.NewSSEClient(uuid.New())
	hub.AddChannel(a, CourseChannel("cs101"))
	hub.AddChannel(b, CourseChannel("cs202"))

	hub.Broadcast(SSEMessage{Channel: CourseChannel("cs101"), Event: SSEEventCallInserted})

	select {
	case msg := <-a.Outbound:
		if msg.Event != SSEEventCallInserted {
			t.Fatalf("unexpected event %q", msg.Event)
		}
	default:
		t.Fatal("expected subscribed client to receive the message")
	}
	select {
	case msg := <-b.Outbound:
		t.Fatalf("unsubscribed client received %q", msg.Event)
	default:
	}
}

func TestBroadcastDropsWhenOutboundFull(t *testing.T) {
	hub := newTestHub(t)
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, CourseChannel("cs101"))

	// Nothing drains Outbound, so overflow must drop rather than block.
	for i := 0; i < cap(c.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: CourseChannel("cs101"), Event: SSEEventMessageInserted})
	}
	if got := len(c.Outbound); got != cap(c.Outbound) {
		t.Fatalf("outbound len = %d, want %d", got, cap(c.Outbound))
	}
}

func TestCloseClientIsIdempotentAndUnsubscribes(t *testing.T) {
	hub := newTestHub(t)
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, CourseChannel("cs101"))

	hub.CloseClient(c)
	hub.CloseClient(c)

	// Broadcast after close must not panic on the closed channel.
	hub.Broadcast(SSEMessage{Channel: CourseChannel("cs101"), Event: SSEEventMessageInserted})

	if _, open := <-c.Outbound; open {
		t.Fatal("expected outbound channel closed")
	}
}

func TestRemoveChannelStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, CourseChannel("cs101"))
	hub.RemoveChannel(c, CourseChannel("cs101"))

	hub.Broadcast(SSEMessage{Channel: CourseChannel("cs101"), Event: SSEEventPinInserted})
	if got := len(c.Outbound); got != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", got)
	}
}
