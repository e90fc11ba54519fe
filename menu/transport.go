package menu

import (
	"context"
	"time"

	"github.com/pagemenu/server/page"
)

// MessageHandle identifies the rendered message representing a session
// on the messaging platform. Opaque to the engine.
type MessageHandle string

// Control is the render-time view of one button.
type Control struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	URL      string `json:"url,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// View is what a render sends to the platform: one page plus the
// current control states. If Ephemeral is set, the view is shown only
// to that actor instead of updating the session message.
type View struct {
	Page      page.Page `json:"page"`
	Controls  []Control `json:"controls,omitempty"`
	Ephemeral string    `json:"ephemeral,omitempty"`
}

// InteractionEvent is one button press delivered by the platform.
type InteractionEvent struct {
	Actor     string
	Roles     []string
	ButtonID  string
	Timestamp time.Time
}

// Transport is the external collaborator that moves views and events
// between the engine and the messaging platform. Wire formats are the
// transport's concern.
type Transport interface {
	// Render sends or updates the message representing the session.
	Render(ctx context.Context, sessionID string, view View) (MessageHandle, error)

	// Delete removes the session's message. Best-effort; failures are
	// surfaced as non-fatal warnings by the caller.
	Delete(ctx context.Context, handle MessageHandle) error

	// PromptText asks the given actor for a line of text in the given
	// channel and waits for the reply. The reply match is scoped to the
	// actor who was prompted; replies from anyone else are ignored.
	PromptText(ctx context.Context, channel, actor, prompt string) (string, error)

	// Events returns the session-scoped stream of interaction events.
	// The channel is closed when the transport tears the session down.
	Events(sessionID string) <-chan InteractionEvent

	// Close tears down the session on the transport side and ends its
	// event stream.
	Close(sessionID string)
}
