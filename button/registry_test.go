package button

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()

	if err := r.Add(Forward()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Add(Forward()); !errors.Is(err, ErrDuplicateSingleton) {
		t.Errorf("expected ErrDuplicateSingleton for second Next, got %v", err)
	}
	if got := r.Len(); got != 1 {
		t.Errorf("rejected add must not register, len %d", got)
	}

	// Non-singleton types may repeat.
	for i := 0; i < 3; i++ {
		b := &Button{Type: Caller, Label: "Run", Caller: &CallerSpec{Call: func(...any) error { return nil }}}
		if err := r.Add(b); err != nil {
			t.Fatalf("caller %d: unexpected error: %v", i, err)
		}
	}
	if got := len(r.ByLabel("Run")); got != 3 {
		t.Errorf("expected 3 callers by label, got %d", got)
	}
}

func TestRegistryControlLimit(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxControls; i++ {
		b := &Button{Type: Link, Label: fmt.Sprintf("L%d", i), URL: "https://example.com"}
		if err := r.Add(b); err != nil {
			t.Fatalf("add %d: unexpected error: %v", i, err)
		}
	}
	if err := r.Add(&Button{Type: Link, URL: "https://example.com"}); !errors.Is(err, ErrControlLimit) {
		t.Errorf("expected ErrControlLimit, got %v", err)
	}
}

func TestRegistryOwnership(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	btn := Forward()
	if err := a.Add(btn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Add(btn); !errors.Is(err, ErrButtonOwned) {
		t.Errorf("expected ErrButtonOwned, got %v", err)
	}

	// Removal releases ownership.
	if err := a.Remove(btn); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := b.Add(btn); err != nil {
		t.Errorf("released button should register elsewhere: %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	named := &Button{Type: Skip, Name: "jump", Label: "Jump", Skip: SkipSpec{Forward: true, Amount: 3}}
	if err := r.Add(named); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Add(Back()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.RemoveByName("nope"); !errors.Is(err, ErrButtonNotFound) {
		t.Errorf("expected ErrButtonNotFound, got %v", err)
	}
	if err := r.RemoveByName("jump"); err != nil {
		t.Fatalf("remove by name failed: %v", err)
	}
	if r.ByName("jump") != nil {
		t.Error("expected button gone after removal")
	}
	if err := r.Remove(named); !errors.Is(err, ErrButtonNotFound) {
		t.Errorf("expected ErrButtonNotFound for removed button, got %v", err)
	}

	r.Clear()
	if got := r.Len(); got != 0 {
		t.Errorf("expected empty registry after clear, got %d", got)
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	r := NewRegistry()
	for _, b := range AllNav() {
		if err := r.Add(b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := []Type{First, Previous, Next, Last, GoToPage, EndSession}
	ordered := r.Ordered()
	if len(ordered) != len(want) {
		t.Fatalf("expected %d buttons, got %d", len(want), len(ordered))
	}
	for i, b := range ordered {
		if b.Type != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], b.Type)
		}
		if b.ID == "" {
			t.Errorf("position %d: missing assigned ID", i)
		}
	}
}

func TestRegistryEventThresholdCoercion(t *testing.T) {
	r := NewRegistry()
	b := Forward()
	b.Event = &Event{Action: EventDisable, Threshold: -2}
	if err := r.Add(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Event.Threshold != 1 {
		t.Errorf("expected threshold coerced to 1, got %d", b.Event.Threshold)
	}
}

func TestButtonStatistics(t *testing.T) {
	b := Forward()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Minute)

	if got := b.RecordClick("alice", first); got != 1 {
		t.Errorf("expected 1st click, got %d", got)
	}
	b.RecordClick("bob", later)
	b.RecordClick("alice", later.Add(time.Second))

	stats := b.Statistics()
	if stats.TotalClicks != 3 {
		t.Errorf("expected 3 clicks, got %d", stats.TotalClicks)
	}
	if len(stats.ClickedBy) != 2 {
		t.Errorf("expected 2 distinct actors, got %d", len(stats.ClickedBy))
	}
	if !stats.LastClicked.Equal(later.Add(time.Second)) {
		t.Errorf("unexpected last clicked: %v", stats.LastClicked)
	}

	// The returned snapshot is a copy.
	stats.ClickedBy["mallory"] = struct{}{}
	if len(b.Statistics().ClickedBy) != 2 {
		t.Error("statistics snapshot leaked internal state")
	}
}
