// Package menu implements the interactive pagination session engine:
// per-session state machines that turn a page sequence into navigable
// state, driven by interaction events from a Transport.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pagemenu/server/button"
	"github.com/pagemenu/server/logger"
	"github.com/pagemenu/server/page"
	"github.com/pagemenu/server/registry"
)

var (
	// ErrNoButtons is returned when a session is started with an empty
	// button registry.
	ErrNoButtons = errors.New("cannot start a session with no buttons registered")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("session is already running")

	// ErrNotRunning is returned by operations that require a running
	// session.
	ErrNotRunning = errors.New("session is not running")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusCreated      Status = "created"
	StatusRunning      Status = "running"
	StatusAwaitingPage Status = "awaiting_page_input"
	StatusStopped      Status = "stopped"
)

// StopMode selects what happens to the session's message and controls
// when the session ends.
type StopMode string

const (
	// StopNone ends the session and leaves the message as-is.
	StopNone StopMode = "none"
	// StopDelete deletes the session's message.
	StopDelete StopMode = "delete"
	// StopDisable marks every control non-interactive but keeps them
	// rendered.
	StopDisable StopMode = "disable_controls"
	// StopRemove strips the controls from the message.
	StopRemove StopMode = "remove_controls"
)

// promptTimeout bounds the GoToPage reply wait when the session itself
// has no inactivity timeout.
const promptTimeout = 30 * time.Second

// Config carries the immutable per-session settings.
type Config struct {
	Name    string
	Owner   string
	Channel string
	Guild   string

	// Timeout is the inactivity window. Zero disables the timer.
	Timeout time.Duration

	// AllCanClick lets any actor navigate. Otherwise only the owner and
	// holders of an OnlyRoles entry may.
	AllCanClick bool
	OnlyRoles   []string

	Director page.Director

	// Timeout behavior. Deletion takes precedence over disabling, which
	// takes precedence over removal.
	DeleteOnTimeout  bool
	DisableOnTimeout bool
	RemoveOnTimeout  bool
}

func (c Config) timeoutMode() StopMode {
	switch {
	case c.DeleteOnTimeout:
		return StopDelete
	case c.DisableOnTimeout:
		return StopDisable
	case c.RemoveOnTimeout:
		return StopRemove
	default:
		return StopNone
	}
}

// Session is one running pagination instance bound to one rendered
// message. Its page index and status mutate only inside the dispatcher
// goroutine; everything outside funnels through channels.
type Session struct {
	id         string
	cfg        Config
	pages      *page.Store
	buttons    *button.Registry
	transport  Transport
	admissions *registry.Registry
	log        *slog.Logger

	mu           sync.Mutex
	status       Status
	index        int
	handle       MessageHandle
	stopReq      stopRequest
	needsCleanup bool

	relayMu sync.Mutex
	relay   *relaySpec

	onTimeout func(*Session)

	timer    *time.Timer
	commands chan func()
	done     chan struct{}
	stopOnce sync.Once
}

type stopRequest struct {
	mode     StopMode
	timedOut bool
}

// New creates a session in the Created state. It does not touch the
// transport or the admission registry until Start.
func New(cfg Config, pages *page.Store, buttons *button.Registry, transport Transport, admissions *registry.Registry) (*Session, error) {
	if err := cfg.Director.Validate(); err != nil {
		return nil, err
	}

	id := uuid.Must(uuid.NewV7()).String()
	return &Session{
		id:         id,
		cfg:        cfg,
		pages:      pages,
		buttons:    buttons,
		transport:  transport,
		admissions: admissions,
		log:        logger.NewSessionLogger(id),
		status:     StatusCreated,
		commands:   make(chan func(), 4),
		done:       make(chan struct{}),
	}, nil
}

// ID returns the session's identity.
func (s *Session) ID() string { return s.id }

// Name returns the configured session name.
func (s *Session) Name() string { return s.cfg.Name }

// Owner returns the identity that owns the session.
func (s *Session) Owner() string { return s.cfg.Owner }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentIndex returns the zero-based index of the page on display.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Buttons returns the session's button registry.
func (s *Session) Buttons() *button.Registry { return s.buttons }

// Pages returns the session's page store.
func (s *Session) Pages() *page.Store { return s.pages }

// GetButton returns the button(s) matching the given identity, checked
// against button names first, then labels.
func (s *Session) GetButton(identity string) []*button.Button {
	if b := s.buttons.ByName(identity); b != nil {
		return []*button.Button{b}
	}
	return s.buttons.ByLabel(identity)
}

// OnTimeout registers a hook invoked after the session was ended by its
// inactivity timer.
func (s *Session) OnTimeout(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTimeout = fn
}

// Done is closed when the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start admits the session, renders the first page and begins the
// event loop. Registration errors (no pages, no buttons, admission
// refused) are returned synchronously; the session never starts.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusCreated {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.mu.Unlock()

	if s.pages.Len() == 0 {
		return page.ErrEmptyPagination
	}
	if s.buttons.Len() == 0 {
		return ErrNoButtons
	}

	keys := registry.ScopeKeys{Owner: s.cfg.Owner, Channel: s.cfg.Channel, Guild: s.cfg.Guild}
	if err := s.admissions.TryAdmit(s, keys); err != nil {
		return err
	}

	handle, err := s.render(ctx, 0)
	if err != nil {
		// The slot must not stay occupied by a session that never ran.
		s.admissions.Release(s.id)
		return fmt.Errorf("initial render: %w", err)
	}

	s.mu.Lock()
	s.status = StatusRunning
	s.index = 0
	s.handle = handle
	if s.cfg.Timeout > 0 {
		s.timer = time.NewTimer(s.cfg.Timeout)
	}
	s.mu.Unlock()

	go s.dispatch(ctx)
	s.log.Info("session started", "owner", s.cfg.Owner, "pages", s.pages.Len(), "buttons", s.buttons.Len())
	return nil
}

// Stop ends the session and leaves its message as-is. Implements the
// registry's bulk-stop interface.
func (s *Session) Stop() error {
	return s.StopWith(StopNone)
}

// StopWith ends the session with the given cleanup mode. Idempotent;
// only the first call performs teardown.
func (s *Session) StopWith(mode StopMode) error {
	s.finish(stopRequest{mode: mode})
	return nil
}

// ReplacePages swaps the session's page sequence while it is running.
// The swap is applied inside the dispatcher to preserve per-session
// serialization; the current index is clamped to the new length.
func (s *Session) ReplacePages(ctx context.Context, pages []page.Page) error {
	if len(pages) == 0 {
		return page.ErrEmptyPagination
	}
	if s.Status() == StatusStopped || s.Status() == StatusCreated {
		return ErrNotRunning
	}

	applied := make(chan error, 1)
	cmd := func() {
		if err := s.pages.ReplaceAll(pages); err != nil {
			applied <- err
			return
		}
		s.mu.Lock()
		if s.index >= len(pages) {
			s.index = len(pages) - 1
		}
		index := s.index
		s.mu.Unlock()

		if _, err := s.render(ctx, index); err != nil {
			s.log.Warn("render after page replacement failed", "error", err)
		}
		applied <- nil
	}

	select {
	case s.commands <- cmd:
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-applied:
		return err
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// render sends the page at the given index through the transport,
// decorated with the page director.
func (s *Session) render(ctx context.Context, index int) (MessageHandle, error) {
	p, err := s.pages.Page(index)
	if err != nil {
		return "", err
	}
	view := View{
		Page:     s.cfg.Director.Decorate(p, index+1, s.pages.Len()),
		Controls: s.controls(),
	}
	return s.transport.Render(ctx, s.id, view)
}

// controls builds the render-time view of the registered buttons.
func (s *Session) controls() []Control {
	ordered := s.buttons.Ordered()
	controls := make([]Control, 0, len(ordered))
	for _, b := range ordered {
		controls = append(controls, Control{
			ID:       b.ID,
			Type:     b.Type.String(),
			Label:    b.Label,
			URL:      b.URL,
			Disabled: b.Disabled,
		})
	}
	return controls
}

// finish ends the session exactly once: cancel the timer, stop the
// loop, end the event stream, release the admission slot. The recorded
// stop mode is applied later by the dispatcher goroutine (teardown)
// once its loop has exited, so button state is never mutated from
// outside the loop. Release never waits on transport cleanup.
func (s *Session) finish(req stopRequest) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		wasRunning := s.status == StatusRunning || s.status == StatusAwaitingPage
		s.status = StatusStopped
		timer := s.timer
		s.stopReq = req
		s.needsCleanup = wasRunning
		s.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		close(s.done)

		s.transport.Close(s.id)
		s.admissions.Release(s.id)

		s.log.Info("session stopped", "mode", string(req.mode), "timedOut", req.timedOut)
	})
}

// teardown runs in the dispatcher goroutine after the loop exits. It
// applies the stop mode recorded by finish and fires the timeout hook.
func (s *Session) teardown() {
	s.mu.Lock()
	req := s.stopReq
	needsCleanup := s.needsCleanup
	handle := s.handle
	hook := s.onTimeout
	s.mu.Unlock()

	if needsCleanup {
		s.cleanup(req.mode, handle)
	}

	if req.timedOut && hook != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.LogPanic(r, "timeout hook panicked", "sessionId", s.id)
				}
			}()
			hook(s)
		}()
	}
}

func (s *Session) cleanup(mode StopMode, handle MessageHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch mode {
	case StopDelete:
		if err := s.transport.Delete(ctx, handle); err != nil {
			s.log.Warn("failed to delete session message", "error", err)
		}

	case StopDisable:
		for _, b := range s.buttons.Ordered() {
			b.Disabled = true
		}
		s.renderFinal(ctx)

	case StopRemove:
		s.buttons.Clear()
		s.renderFinal(ctx)
	}
}

func (s *Session) renderFinal(ctx context.Context) {
	s.mu.Lock()
	index := s.index
	s.mu.Unlock()

	if _, err := s.render(ctx, index); err != nil {
		s.log.Warn("final render failed", "error", err)
	}
}
