package button

import (
	"sync"

	"github.com/google/uuid"
)

// Registry holds the ordered control set of one session. Validation
// happens at registration time so misconfiguration fails before the
// session ever starts.
type Registry struct {
	mu      sync.RWMutex
	ordered []*Button
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a button. Buttons of singleton types may only be added
// once, the total is capped at MaxControls, and a button registered to
// one session cannot be registered to another.
func (r *Registry) Add(b *Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.owned {
		return ErrButtonOwned
	}
	if len(r.ordered) >= MaxControls {
		return ErrControlLimit
	}
	if b.Type.Singleton() {
		for _, existing := range r.ordered {
			if existing.Type == b.Type {
				return ErrDuplicateSingleton
			}
		}
	}

	if b.Event != nil && b.Event.Threshold < 1 {
		b.Event.Threshold = 1
	}
	b.ID = uuid.Must(uuid.NewV7()).String()
	b.owned = true
	r.ordered = append(r.ordered, b)
	return nil
}

// Remove deregisters the given button.
func (r *Registry) Remove(b *Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.ordered {
		if existing == b {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			b.owned = false
			return nil
		}
	}
	return ErrButtonNotFound
}

// RemoveByName deregisters the first button with the given name.
func (r *Registry) RemoveByName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.ordered {
		if existing.Name == name {
			existing.owned = false
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			return nil
		}
	}
	return ErrButtonNotFound
}

// Clear deregisters every button.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.ordered {
		b.owned = false
	}
	r.ordered = nil
}

// Len returns the number of registered buttons.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Ordered returns the buttons in insertion order. Order matters only
// for rendering, not for dispatch semantics.
func (r *Registry) Ordered() []*Button {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Button(nil), r.ordered...)
}

// ByID returns the button with the given registration ID, or nil.
func (r *Registry) ByID(id string) *Button {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.ordered {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// ByName returns the button with the given name, or nil.
func (r *Registry) ByName(name string) *Button {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.ordered {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ByLabel returns every button with the given label. Labels are not
// unique the way singleton types are.
func (r *Registry) ByLabel(label string) []*Button {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Button
	for _, b := range r.ordered {
		if b.Label == label {
			matched = append(matched, b)
		}
	}
	return matched
}
