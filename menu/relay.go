package menu

import (
	"time"

	"github.com/pagemenu/server/button"
	"github.com/pagemenu/server/logger"
)

// RelayPayload is handed to a relay callback once per processed
// interaction event. The callback may read button analytics but must
// not mutate session state; mutation has to come back through the
// session's own operations to preserve serialization.
type RelayPayload struct {
	Actor  string
	Button *button.Button
	Time   time.Time
}

// RelayFunc receives processed interaction events.
type RelayFunc func(RelayPayload)

type relaySpec struct {
	fn   RelayFunc
	only map[*button.Button]struct{}
}

// SetRelay registers a callback invoked for every processed event. If
// any buttons are given, events from buttons outside that set are
// suppressed. Link buttons never relay; they produce no event.
func (s *Session) SetRelay(fn RelayFunc, only ...*button.Button) {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()

	if fn == nil {
		s.relay = nil
		return
	}
	spec := &relaySpec{fn: fn}
	if len(only) > 0 {
		spec.only = make(map[*button.Button]struct{}, len(only))
		for _, b := range only {
			spec.only[b] = struct{}{}
		}
	}
	s.relay = spec
}

// RemoveRelay clears the relay registration.
func (s *Session) RemoveRelay() {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()
	s.relay = nil
}

// contactRelay fans one processed event out to the relay, if set.
// Relay failures are contained and never affect session state.
func (s *Session) contactRelay(actor string, b *button.Button, at time.Time) {
	s.relayMu.Lock()
	spec := s.relay
	s.relayMu.Unlock()

	if spec == nil {
		return
	}
	if spec.only != nil {
		if _, ok := spec.only[b]; !ok {
			return
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "relay callback panicked", "sessionId", s.id)
		}
	}()
	spec.fn(RelayPayload{Actor: actor, Button: b, Time: at})
}
