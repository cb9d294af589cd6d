package provider

import (
	"sync"
	"time"
)

// Registry holds the adapters wired at startup keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[ProviderName]Source
	limits  *RateLimiterMap
}

// NewRegistry creates an empty registry. limits may be nil.
func NewRegistry(limits *RateLimiterMap) *Registry {
	return &Registry{
		sources: make(map[ProviderName]Source),
		limits:  limits,
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns an adapter by name, or nil if not registered.
func (r *Registry) Get(name ProviderName) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// Status describes one provider for operators.
type Status struct {
	Name         ProviderName  `json:"name"`
	DisplayName  string        `json:"display_name"`
	Enabled      bool          `json:"enabled"`
	RequiresAuth bool          `json:"requires_auth"`
	MinDelay     time.Duration `json:"min_delay_ns"`
	Capability
}

// Statuses returns one entry per known provider in display order.
func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := Capabilities()
	out := make([]Status, 0, len(caps))
	for _, name := range AllProviderNames() {
		st := Status{
			Name:        name,
			DisplayName: name.DisplayName(),
			Capability:  caps[name],
		}
		if s, ok := r.sources[name]; ok {
			st.Enabled = true
			st.RequiresAuth = s.RequiresAuth()
		}
		if r.limits != nil {
			st.MinDelay = r.limits.MinDelay(name)
		}
		out = append(out, st)
	}
	return out
}
