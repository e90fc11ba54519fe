package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pagemenu/server/menu"
)

func TestHubRenderWithoutViewers(t *testing.T) {
	hub := NewHub()

	// A session may start before any viewer connects. The view is kept
	// for replay instead of failing the render.
	handle, err := hub.Render(context.Background(), "s1", menu.View{})
	if err != nil {
		t.Fatalf("render without viewers failed: %v", err)
	}
	if handle == "" {
		t.Error("expected a message handle")
	}
	if _, ok := hub.views["s1"]; !ok {
		t.Error("expected view kept for replay")
	}

	// Ephemeral views are actor-scoped and have nobody to go to.
	_, err = hub.Render(context.Background(), "s1", menu.View{Ephemeral: "alice"})
	if !errors.Is(err, ErrNoViewers) {
		t.Errorf("expected ErrNoViewers for ephemeral render, got %v", err)
	}

	// Deleting the message drops the kept view.
	if err := hub.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := hub.views["s1"]; ok {
		t.Error("expected kept view dropped after delete")
	}
}

func TestHubPressQueuesEvent(t *testing.T) {
	hub := NewHub()

	// A press for a session nobody subscribed to is dropped silently.
	hub.Press("unknown", "alice", nil, "b1")

	events := hub.Events("s1")
	hub.Press("s1", "alice", []string{"mod"}, "b1")

	select {
	case ev := <-events:
		if ev.Actor != "alice" || ev.ButtonID != "b1" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if len(ev.Roles) != 1 || ev.Roles[0] != "mod" {
			t.Errorf("unexpected roles: %v", ev.Roles)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected a timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("event never queued")
	}
}

func TestHubCloseEndsStream(t *testing.T) {
	hub := NewHub()
	events := hub.Events("s1")

	hub.Close("s1")
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed")
	}

	// Presses after close are dropped, and closing again is a no-op.
	hub.Press("s1", "alice", nil, "b1")
	hub.Close("s1")
}

func TestHubPressDropsWhenFull(t *testing.T) {
	hub := NewHub()
	events := hub.Events("s1")

	for i := 0; i < eventBuffer+10; i++ {
		hub.Press("s1", "alice", nil, "b1")
	}

	drained := 0
	for {
		select {
		case <-events:
			drained++
			continue
		default:
		}
		break
	}
	if drained != eventBuffer {
		t.Errorf("expected %d queued events, got %d", eventBuffer, drained)
	}
}

func TestHubReplyUnknownPrompt(t *testing.T) {
	hub := NewHub()
	if hub.Reply("missing", "alice", "2") {
		t.Error("expected reply to unknown prompt to be rejected")
	}
}
