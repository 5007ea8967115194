// Package mock provides a configurable in-memory search agent for tests
// and developer mode.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/ludarr/ludarr/internal/agent"
)

// Agent is a mock search agent with scripted results.
type Agent struct {
	name     string
	priority int

	mu        sync.Mutex
	available bool
	delay     time.Duration
	results   []agent.Candidate
	err       error

	searchCalls int
}

// New creates a mock agent that returns no results.
func New(name string, priority int) *Agent {
	return &Agent{
		name:      name,
		priority:  priority,
		available: true,
	}
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Priority returns the configured priority.
func (a *Agent) Priority() int { return a.priority }

// IsAvailable reports the scripted availability.
func (a *Agent) IsAvailable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.available
}

// SetAvailable scripts availability.
func (a *Agent) SetAvailable(available bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.available = available
}

// SetResults scripts the candidates returned by the next searches.
func (a *Agent) SetResults(results []agent.Candidate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = results
	a.err = nil
}

// SetError scripts a search failure.
func (a *Agent) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// SetDelay scripts a per-search delay, honoring context cancellation.
func (a *Agent) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

// SearchCalls returns how many searches have been executed.
func (a *Agent) SearchCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.searchCalls
}

// Search returns the scripted results.
func (a *Agent) Search(ctx context.Context, _ agent.Query) ([]agent.Candidate, error) {
	a.mu.Lock()
	delay := a.delay
	err := a.err
	results := make([]agent.Candidate, len(a.results))
	copy(results, a.results)
	a.searchCalls++
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchEnhanced behaves like Search; the mock ignores catalog context.
func (a *Agent) SearchEnhanced(ctx context.Context, query agent.Enhanced) ([]agent.Candidate, error) {
	return a.Search(ctx, query.Query)
}
