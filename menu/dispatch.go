package menu

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pagemenu/server/button"
	"github.com/pagemenu/server/logger"
)

// dispatch is the per-session event loop. It races the transport's
// event stream against the inactivity timer, processing events strictly
// in arrival order; a new event is not touched until the prior one's
// render has been issued. The stop-mode cleanup runs here too, after
// the loop exits, so the loop is the only goroutine touching buttons.
func (s *Session) dispatch(ctx context.Context) {
	defer s.teardown()
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "session dispatcher crashed", "sessionId", s.id)
			s.finish(stopRequest{mode: StopNone})
		}
	}()

	events := s.transport.Events(s.id)

	var timeoutC <-chan time.Time
	if s.timer != nil {
		timeoutC = s.timer.C
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Transport tore the session down.
				s.finish(stopRequest{mode: StopNone})
				return
			}
			if s.handleEvent(ctx, ev) {
				s.resetTimer()
			}
			if s.Status() == StatusStopped {
				return
			}

		case cmd := <-s.commands:
			cmd()

		case <-timeoutC:
			s.log.Info("session timed out", "timeout", s.cfg.Timeout)
			s.finish(stopRequest{mode: s.cfg.timeoutMode(), timedOut: true})
			return

		case <-s.done:
			return

		case <-ctx.Done():
			s.finish(stopRequest{mode: StopNone})
			return
		}
	}
}

// resetTimer re-arms the inactivity timer for a fresh full-duration
// wait. The timer measures inactivity, not session age, so it resets
// only after an event is processed.
func (s *Session) resetTimer() {
	if s.timer == nil {
		return
	}
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	s.timer.Reset(s.cfg.Timeout)
}

// handleEvent applies one interaction event and reports whether it was
// processed. Unauthorized presses and presses on unknown, disabled or
// link buttons are silent no-ops: no state change, no analytics, no
// render.
func (s *Session) handleEvent(ctx context.Context, ev InteractionEvent) bool {
	// Events still buffered when the session stops are discarded.
	if s.Status() == StatusStopped {
		return false
	}
	if !s.authorized(ev) {
		s.log.Debug("unauthorized press ignored", "actor", ev.Actor)
		return false
	}

	b := s.buttons.ByID(ev.ButtonID)
	if b == nil || b.Disabled || b.Type == button.Link {
		return false
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	clicks := b.RecordClick(ev.Actor, at)

	rerender := s.apply(ctx, b, ev)
	if s.Status() == StatusStopped {
		s.contactRelay(ev.Actor, b, at)
		return true
	}

	if b.Event != nil && clicks >= b.Event.Threshold {
		switch b.Event.Action {
		case button.EventDisable:
			b.Disabled = true
			rerender = true
		case button.EventRemove:
			if err := s.buttons.Remove(b); err == nil {
				rerender = true
			}
		}
	}

	if rerender {
		s.mu.Lock()
		index := s.index
		s.mu.Unlock()
		if handle, err := s.render(ctx, index); err != nil {
			s.log.Warn("render failed", "error", err)
		} else {
			s.mu.Lock()
			s.handle = handle
			s.mu.Unlock()
		}
	}

	s.contactRelay(ev.Actor, b, at)
	return true
}

// authorized reports whether the actor may drive the session. The owner
// always may; otherwise AllCanClick or an allow-listed role is needed.
func (s *Session) authorized(ev InteractionEvent) bool {
	if ev.Actor == s.cfg.Owner {
		return true
	}
	if s.cfg.AllCanClick {
		return true
	}
	for _, allowed := range s.cfg.OnlyRoles {
		for _, role := range ev.Roles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

// apply executes the button's type semantics and reports whether the
// current page must be re-rendered.
func (s *Session) apply(ctx context.Context, b *button.Button, ev InteractionEvent) bool {
	switch b.Type {
	case button.Next:
		s.setIndex(s.CurrentIndex() + 1)
		return true

	case button.Previous:
		s.setIndex(s.CurrentIndex() - 1)
		return true

	case button.First:
		s.setIndex(0)
		return true

	case button.Last:
		s.setIndex(s.pages.Len() - 1)
		return true

	case button.Skip:
		amount := b.Skip.Amount
		if amount < 1 {
			amount = 1
		}
		if !b.Skip.Forward {
			amount = -amount
		}
		s.setIndex(s.CurrentIndex() + amount)
		return true

	case button.GoToPage:
		return s.promptForPage(ctx, ev.Actor)

	case button.CustomContent:
		if b.Content == nil {
			s.log.Warn("custom content button has no content bound", "buttonId", b.ID)
			return false
		}
		view := View{Page: *b.Content, Controls: s.controls()}
		if _, err := s.transport.Render(ctx, s.id, view); err != nil {
			s.log.Warn("custom content render failed", "error", err)
		}
		return false

	case button.SendEphemeral:
		if b.Content == nil {
			s.log.Warn("ephemeral button has no content bound", "buttonId", b.ID)
			return false
		}
		view := View{Page: *b.Content, Ephemeral: ev.Actor}
		if _, err := s.transport.Render(ctx, s.id, view); err != nil {
			s.log.Warn("ephemeral render failed", "error", err)
		}
		return false

	case button.Caller:
		s.invokeCaller(b)
		return false

	case button.EndSession:
		s.finish(stopRequest{mode: StopDelete})
		return false
	}
	return false
}

// setIndex clamps the index into [0, page count). No wraparound:
// pressing next on the last page renders the same page again.
func (s *Session) setIndex(index int) {
	last := s.pages.Len() - 1
	if index < 0 {
		index = 0
	}
	if index > last {
		index = last
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
}

// promptForPage runs the GoToPage exchange: ask the pressing actor for
// a page number, apply it if valid, return to Running either way.
func (s *Session) promptForPage(ctx context.Context, actor string) bool {
	s.mu.Lock()
	s.status = StatusAwaitingPage
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.status == StatusAwaitingPage {
			s.status = StatusRunning
		}
		s.mu.Unlock()
	}()

	wait := s.cfg.Timeout
	if wait <= 0 {
		wait = promptTimeout
	}
	promptCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	// Stopping the session must not leave the loop parked in a prompt.
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-promptCtx.Done():
		}
	}()

	prompt := actor + ", what page would you like to go to?"
	reply, err := s.transport.PromptText(promptCtx, s.cfg.Channel, actor, prompt)
	if err != nil {
		s.log.Debug("page prompt yielded no reply", "error", err)
		return false
	}

	number, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || number < 1 || number > s.pages.Len() {
		return false
	}
	s.setIndex(number - 1)
	return true
}

// invokeCaller runs the command object bound to a Caller button. The
// return value is discarded; errors and panics are logged and never
// terminate the session.
func (s *Session) invokeCaller(b *button.Button) {
	if b.Caller == nil || b.Caller.Call == nil {
		s.log.Warn("caller button has no function bound", "buttonId", b.ID)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "caller button panicked", "sessionId", s.id, "buttonId", b.ID)
		}
	}()

	if err := b.Caller.Call(b.Caller.Args...); err != nil {
		s.log.Warn("caller button returned error", "buttonId", b.ID, "error", err)
	}
}
