package agent

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry holds the configured search agents. Which agents are registered
// is configuration; the core never depends on specific sources.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger zerolog.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		logger: logger.With().Str("component", "agents").Logger(),
	}
}

// Register adds an agent. An agent that is not available (for example one
// missing required credentials) is still registered but excluded from
// Available; that is a configuration problem, never a fatal error.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name()]; exists {
		r.logger.Warn().Str("agent", a.Name()).Msg("agent already registered, replacing")
	}
	r.agents[a.Name()] = a

	if !a.IsAvailable() {
		r.logger.Warn().Str("agent", a.Name()).Msg("agent registered but not available, excluded from searches")
	} else {
		r.logger.Info().Str("agent", a.Name()).Int("priority", a.Priority()).Msg("agent registered")
	}
}

// Remove drops an agent by name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// Get returns an agent by name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Available returns the currently usable agents sorted by priority
// (lower number = higher priority).
func (r *Registry) Available() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if a.IsAvailable() {
			available = append(available, a)
		}
	}

	sort.Slice(available, func(i, j int) bool {
		if available[i].Priority() != available[j].Priority() {
			return available[i].Priority() < available[j].Priority()
		}
		return available[i].Name() < available[j].Name()
	})

	return available
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
