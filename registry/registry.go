// Package registry is the process-wide table of active menu sessions.
// It enforces admission limits per scope (owner, channel, guild) and
// supports lookup and bulk stop. A single instance is composed at the
// application boundary and injected into session creation.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Scope is a dimension sessions are counted and limited by.
type Scope string

const (
	ScopeOwner   Scope = "owner"
	ScopeChannel Scope = "channel"
	ScopeGuild   Scope = "guild"
)

// ScopeKeys identifies which scope buckets a session occupies. Empty
// keys occupy no bucket for that scope.
type ScopeKeys struct {
	Owner   string
	Channel string
	Guild   string
}

func (k ScopeKeys) buckets() map[Scope]string {
	b := make(map[Scope]string, 3)
	if k.Owner != "" {
		b[ScopeOwner] = k.Owner
	}
	if k.Channel != "" {
		b[ScopeChannel] = k.Channel
	}
	if k.Guild != "" {
		b[ScopeGuild] = k.Guild
	}
	return b
}

// LimitError is returned by TryAdmit when a configured scope limit is
// reached. Message is the caller-configured, user-facing text.
type LimitError struct {
	Scope   Scope
	Limit   int
	Message string
}

func (e *LimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("session limit of %d per %s reached", e.Limit, e.Scope)
}

// ErrLimitsLocked is returned by SetLimit while sessions are live.
// Limits are configured once, before any session starts.
var ErrLimitsLocked = errors.New("session limits cannot be changed while sessions are active")

type limit struct {
	max     int
	message string
}

// Session is the subset of a menu session the registry needs for lookup
// and bulk stop.
type Session interface {
	ID() string
	Name() string
	Stop() error
}

type entry struct {
	keys    ScopeKeys
	session Session
}

// Registry tracks live session entries and their per-scope counts.
// The counts table is the only state shared across sessions; every
// mutation goes through the mutex.
type Registry struct {
	mu      sync.Mutex
	limits  map[Scope]limit
	counts  map[Scope]map[string]int
	entries map[string]entry
}

func New() *Registry {
	return &Registry{
		limits:  make(map[Scope]limit),
		counts:  make(map[Scope]map[string]int),
		entries: make(map[string]entry),
	}
}

// SetLimit configures the admission limit for one scope. The message is
// surfaced to viewers when the limit refuses a session. Limits cannot
// change while sessions are live; existing sessions are never evicted.
func (r *Registry) SetLimit(scope Scope, max int, message string) error {
	if max < 1 {
		return fmt.Errorf("session limit must be at least one, got %d", max)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) > 0 {
		return ErrLimitsLocked
	}
	r.limits[scope] = limit{max: max, message: message}
	return nil
}

// RemoveLimit clears the limit for one scope.
func (r *Registry) RemoveLimit(scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limits, scope)
}

// TryAdmit atomically checks every configured scope count against its
// limit and either registers the session or returns a *LimitError. On
// failure no count is mutated.
func (r *Registry) TryAdmit(sess Session, keys ScopeKeys) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[sess.ID()]; exists {
		return fmt.Errorf("session %s is already admitted", sess.ID())
	}

	buckets := keys.buckets()
	for scope, key := range buckets {
		lim, limited := r.limits[scope]
		if !limited {
			continue
		}
		if r.counts[scope][key] >= lim.max {
			return &LimitError{Scope: scope, Limit: lim.max, Message: lim.message}
		}
	}

	for scope, key := range buckets {
		if r.counts[scope] == nil {
			r.counts[scope] = make(map[string]int)
		}
		r.counts[scope][key]++
	}
	r.entries[sess.ID()] = entry{keys: keys, session: sess}
	return nil
}

// Release removes the session's entry and decrements all of its scope
// counts. Calling it again for the same session is a no-op, so the slot
// is released exactly once even if stop and timeout race.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[sessionID]
	if !ok {
		return
	}
	delete(r.entries, sessionID)

	for scope, key := range ent.keys.buckets() {
		if bucket := r.counts[scope]; bucket != nil {
			if bucket[key] > 0 {
				bucket[key]--
			}
			if bucket[key] == 0 {
				delete(bucket, key)
			}
		}
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// List returns a snapshot of every live session.
func (r *Registry) List() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]Session, 0, len(r.entries))
	for _, ent := range r.entries {
		sessions = append(sessions, ent.session)
	}
	return sessions
}

// Lookup returns every live session with the given name.
func (r *Registry) Lookup(name string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []Session
	for _, ent := range r.entries {
		if ent.session.Name() == name {
			matched = append(matched, ent.session)
		}
	}
	return matched
}

// Get returns the live session with the given ID, or nil.
func (r *Registry) Get(sessionID string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ent, ok := r.entries[sessionID]; ok {
		return ent.session
	}
	return nil
}

// StopAll stops every live session. The table is snapshotted first and
// each stop runs without the registry lock held, so sessions releasing
// themselves concurrently cannot deadlock. A failing stop does not
// prevent the remaining sessions from being attempted; the aggregate
// error reports every failure.
func (r *Registry) StopAll() error {
	return r.StopAllWhere(func(Session) bool { return true })
}

// StopAllWhere stops every live session matching the predicate.
func (r *Registry) StopAllWhere(match func(Session) bool) error {
	var errs []error
	for _, sess := range r.List() {
		if !match(sess) {
			continue
		}
		if err := sess.Stop(); err != nil {
			slog.Warn("failed to stop session", "sessionId", sess.ID(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", sess.ID(), err))
		}
	}
	return errors.Join(errs...)
}
