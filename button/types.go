package button

import (
	"errors"
	"sync"
	"time"

	"github.com/pagemenu/server/page"
)

var (
	// ErrDuplicateSingleton is returned when a second button of a
	// singleton type is registered to the same session.
	ErrDuplicateSingleton = errors.New("a button of this type is already registered")

	// ErrControlLimit is returned when registering a button would exceed
	// the platform's per-message control cap.
	ErrControlLimit = errors.New("control limit exceeded")

	// ErrButtonNotFound is returned by Remove when no registered button
	// matches the given identity.
	ErrButtonNotFound = errors.New("button not found")

	// ErrButtonOwned is returned when a button already registered to one
	// session is added to another. Button state is session-exclusive.
	ErrButtonOwned = errors.New("button is already registered to a session")
)

// MaxControls is the platform cap on interactive controls per message.
const MaxControls = 25

// Type determines the action a button performs when pressed.
type Type int

const (
	Next Type = iota
	Previous
	First
	Last
	GoToPage
	EndSession
	CustomContent
	Caller
	Skip
	Link
	SendEphemeral
)

var typeNames = map[Type]string{
	Next:          "next",
	Previous:      "previous",
	First:         "first",
	Last:          "last",
	GoToPage:      "go_to_page",
	EndSession:    "end_session",
	CustomContent: "custom_content",
	Caller:        "caller",
	Skip:          "skip",
	Link:          "link",
	SendEphemeral: "send_ephemeral",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Singleton reports whether at most one live button of this type is
// allowed per session.
func (t Type) Singleton() bool {
	switch t {
	case Next, Previous, First, Last, GoToPage, EndSession:
		return true
	default:
		return false
	}
}

// SkipSpec moves the page index by Amount in the given direction.
type SkipSpec struct {
	Forward bool
	Amount  int
}

// CallerSpec is the command object bound to a Caller button. The engine
// treats Call as opaque: its return value is discarded and panics or
// errors raised by it never terminate the session.
type CallerSpec struct {
	Call func(args ...any) error
	Args []any
}

// EventAction is what happens to a button when its click-count event
// threshold is reached.
type EventAction string

const (
	EventDisable EventAction = "disable"
	EventRemove  EventAction = "remove"
)

// Event disables or removes a button once it has been pressed a certain
// number of times. Thresholds below one are coerced to one.
type Event struct {
	Action    EventAction
	Threshold int
}

// Stats holds the mutable click analytics of a button. All mutation
// happens inside the owning session's dispatcher; readers outside it
// (relay callbacks) only get copies.
type Stats struct {
	TotalClicks int
	ClickedBy   map[string]struct{}
	LastClicked time.Time
}

// Button is one interactive control bound to a session.
type Button struct {
	ID    string // assigned at registration
	Type  Type
	Name  string
	Label string

	URL      string      // Link only
	Content  *page.Page  // CustomContent / SendEphemeral payload
	Skip     SkipSpec    // Skip only
	Caller   *CallerSpec // Caller only
	Event    *Event      // optional click-count policy
	Disabled bool

	statsMu sync.Mutex
	stats   Stats

	owned bool // set while registered to a registry
}

// RecordClick updates the click analytics for the given actor and
// returns the new total click count.
func (b *Button) RecordClick(actor string, at time.Time) int {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	if b.stats.ClickedBy == nil {
		b.stats.ClickedBy = make(map[string]struct{})
	}
	b.stats.ClickedBy[actor] = struct{}{}
	b.stats.TotalClicks++
	b.stats.LastClicked = at
	return b.stats.TotalClicks
}

// Statistics returns a copy of the button's click analytics.
func (b *Button) Statistics() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	out := b.stats
	out.ClickedBy = make(map[string]struct{}, len(b.stats.ClickedBy))
	for actor := range b.stats.ClickedBy {
		out.ClickedBy[actor] = struct{}{}
	}
	return out
}
