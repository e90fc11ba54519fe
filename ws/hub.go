// Package ws exposes menu sessions to remote viewers over JSON-RPC 2.0
// on WebSocket. The Hub implements menu.Transport: page views flow out
// as notifications, button presses and prompt replies flow back in as
// requests.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/pagemenu/server/menu"
)

// ErrNoViewers is returned when an operation needs a connected viewer:
// prompting for text, or rendering an ephemeral view to its target.
var ErrNoViewers = errors.New("no viewers connected")

// ErrPromptExpired is returned by PromptText when the wait ends before
// a matching reply arrives.
var ErrPromptExpired = errors.New("prompt expired without a reply")

// eventBuffer bounds queued presses per session. Presses beyond it are
// dropped rather than blocking the RPC handler.
const eventBuffer = 64

type sessionState struct {
	mu     sync.Mutex
	events chan menu.InteractionEvent
	closed bool
}

type viewerConn struct {
	id    string
	actor string
	roles []string
	conn  *jsonrpc2.Conn
}

type pendingPrompt struct {
	actor string
	reply chan string
}

// Hub routes views and interaction events between menu sessions and
// viewer connections.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	conns    map[string]*viewerConn
	prompts  map[string]*pendingPrompt
	views    map[string]renderParams

	// DeleteInteractions tells viewers to clear the prompt and reply
	// messages once a GoToPage exchange finishes.
	DeleteInteractions bool
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*sessionState),
		conns:    make(map[string]*viewerConn),
		prompts:  make(map[string]*pendingPrompt),
		views:    make(map[string]renderParams),
	}
}

var _ menu.Transport = (*Hub)(nil)

// Render broadcasts the view to every viewer, or only to the ephemeral
// target when the view is actor-scoped. The latest non-ephemeral view
// per session is kept so sessions can start before any viewer connects
// and be replayed to late joiners. An ephemeral view still needs its
// target connected.
func (h *Hub) Render(ctx context.Context, sessionID string, view menu.View) (menu.MessageHandle, error) {
	params := renderParams{SessionID: sessionID, View: view}
	if view.Ephemeral == "" {
		h.mu.Lock()
		h.views[sessionID] = params
		h.mu.Unlock()
	}

	conns := h.snapshotConns()
	sent := 0
	for _, vc := range conns {
		if view.Ephemeral != "" && vc.actor != view.Ephemeral {
			continue
		}
		if err := vc.conn.Notify(ctx, "menu.render", params); err != nil {
			slog.Debug("failed to notify viewer", "connId", vc.id, "error", err)
			continue
		}
		sent++
	}
	if view.Ephemeral != "" && sent == 0 {
		return "", ErrNoViewers
	}
	return menu.MessageHandle(sessionID), nil
}

// Delete tells every viewer to drop the session's message.
func (h *Hub) Delete(ctx context.Context, handle menu.MessageHandle) error {
	h.mu.Lock()
	delete(h.views, string(handle))
	h.mu.Unlock()

	conns := h.snapshotConns()
	params := deleteParams{SessionID: string(handle)}

	var errs []error
	for _, vc := range conns {
		if err := vc.conn.Notify(ctx, "menu.delete", params); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PromptText asks one actor for a line of text and waits for the
// matching reply. Replies are matched to the prompted actor only.
func (h *Hub) PromptText(ctx context.Context, channel, actor, prompt string) (string, error) {
	promptID := uuid.Must(uuid.NewV7()).String()
	pending := &pendingPrompt{actor: actor, reply: make(chan string, 1)}

	h.mu.Lock()
	h.prompts[promptID] = pending
	conns := make([]*viewerConn, 0, len(h.conns))
	for _, vc := range h.conns {
		if vc.actor == actor {
			conns = append(conns, vc)
		}
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.prompts, promptID)
		h.mu.Unlock()

		if h.DeleteInteractions {
			h.notifyAll(context.Background(), "menu.prompt.clear", promptClearParams{PromptID: promptID})
		}
	}()

	if len(conns) == 0 {
		return "", ErrNoViewers
	}

	params := promptParams{PromptID: promptID, Channel: channel, Actor: actor, Text: prompt}
	for _, vc := range conns {
		if err := vc.conn.Notify(ctx, "menu.prompt", params); err != nil {
			slog.Debug("failed to send prompt", "connId", vc.id, "error", err)
		}
	}

	select {
	case text := <-pending.reply:
		return text, nil
	case <-ctx.Done():
		return "", ErrPromptExpired
	}
}

// Events returns the session-scoped event stream, creating it on first
// use.
func (h *Hub) Events(sessionID string) <-chan menu.InteractionEvent {
	return h.state(sessionID).events
}

// Close ends the session's event stream. Later presses for the session
// are dropped.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	st := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	if st == nil {
		return
	}

	st.mu.Lock()
	if !st.closed {
		st.closed = true
		close(st.events)
	}
	st.mu.Unlock()
}

// Press queues one interaction event for the session. Unknown or
// torn-down sessions drop the press silently; a full queue drops it
// with a warning.
func (h *Hub) Press(sessionID, actor string, roles []string, buttonID string) {
	h.mu.Lock()
	st := h.sessions[sessionID]
	h.mu.Unlock()

	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}

	ev := menu.InteractionEvent{
		Actor:     actor,
		Roles:     roles,
		ButtonID:  buttonID,
		Timestamp: time.Now(),
	}
	select {
	case st.events <- ev:
	default:
		slog.Warn("event queue full, dropping press", "sessionId", sessionID, "actor", actor)
	}
}

// Reply resolves a pending prompt. The reply is accepted only from the
// actor the prompt was scoped to.
func (h *Hub) Reply(promptID, actor, text string) bool {
	h.mu.Lock()
	pending := h.prompts[promptID]
	h.mu.Unlock()

	if pending == nil || pending.actor != actor {
		return false
	}

	select {
	case pending.reply <- text:
		return true
	default:
		return false
	}
}

// replay catches a freshly authenticated viewer up with the current
// view of every session.
func (h *Hub) replay(ctx context.Context, vc *viewerConn) {
	h.mu.Lock()
	pending := make([]renderParams, 0, len(h.views))
	for _, params := range h.views {
		pending = append(pending, params)
	}
	h.mu.Unlock()

	for _, params := range pending {
		if err := vc.conn.Notify(ctx, "menu.render", params); err != nil {
			slog.Debug("failed to replay view", "connId", vc.id, "sessionId", params.SessionID, "error", err)
		}
	}
}

func (h *Hub) addConn(vc *viewerConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[vc.id] = vc
}

func (h *Hub) removeConn(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) connByID(id string) *viewerConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[id]
}

func (h *Hub) snapshotConns() []*viewerConn {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]*viewerConn, 0, len(h.conns))
	for _, vc := range h.conns {
		conns = append(conns, vc)
	}
	return conns
}

func (h *Hub) state(sessionID string) *sessionState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.sessions[sessionID]
	if !ok {
		st = &sessionState{events: make(chan menu.InteractionEvent, eventBuffer)}
		h.sessions[sessionID] = st
	}
	return st
}

func (h *Hub) notifyAll(ctx context.Context, method string, params any) {
	for _, vc := range h.snapshotConns() {
		if err := vc.conn.Notify(ctx, method, params); err != nil {
			slog.Debug("failed to notify viewer", "connId", vc.id, "method", method, "error", err)
		}
	}
}
