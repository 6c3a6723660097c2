package gate

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Registry holds live gates between the page render and later polls. Gates
// idle longer than the TTL are closed by Sweep, which is how a gate the user
// navigated away from is abandoned.
type Registry struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]registryEntry
}

type registryEntry struct {
	gate  *Gate
	owner string
}

// NewRegistry returns an empty registry with the given idle TTL.
func NewRegistry(ttl time.Duration, now func() time.Time) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{ttl: ttl, now: now, entries: make(map[string]registryEntry)}
}

// Add stores gate for owner, replacing and closing any gate with the same id.
func (r *Registry) Add(owner string, g *Gate) {
	if g == nil {
		return
	}
	r.mu.Lock()
	previous, ok := r.entries[g.ID()]
	r.entries[g.ID()] = registryEntry{gate: g, owner: strings.TrimSpace(owner)}
	r.mu.Unlock()
	if ok && previous.gate != g {
		previous.gate.Close()
	}
}

// Get returns the gate with id when it belongs to owner and refreshes its TTL.
func (r *Registry) Get(owner string, id string) (*Gate, bool) {
	r.mu.Lock()
	entry, ok := r.entries[strings.TrimSpace(id)]
	r.mu.Unlock()
	if !ok || entry.owner != strings.TrimSpace(owner) {
		return nil, false
	}
	entry.gate.Touch()
	return entry.gate, true
}

// Remove closes and drops the gate with id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		entry.gate.Close()
	}
}

// Sweep closes and drops gates idle past the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var expired []*Gate

	r.mu.Lock()
	for id, entry := range r.entries {
		if entry.gate.LastActive().Before(cutoff) {
			expired = append(expired, entry.gate)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, g := range expired {
		g.Close()
	}
	return len(expired)
}

// Len reports the number of live gates.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps every interval until ctx is done, then closes all gates.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes and drops every gate.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]registryEntry)
	r.mu.Unlock()
	for _, entry := range entries {
		entry.gate.Close()
	}
}
