package downloader

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory download client for tests and developer mode.
type Mock struct {
	mu      sync.Mutex
	adds    []MockAdd
	failErr error
	counter int
}

// MockAdd records one submitted download.
type MockAdd struct {
	Locator  string
	Category string
	Handle   string
}

// NewMock creates a mock client.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns the client name.
func (m *Mock) Name() string { return "mock" }

// Test always succeeds unless a failure is scripted.
func (m *Mock) Test(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failErr
}

// FailWith scripts all subsequent operations to fail.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// AddMagnetOrTorrent records the add and returns a synthetic handle.
func (m *Mock) AddMagnetOrTorrent(ctx context.Context, locator string, opts AddOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return "", m.failErr
	}
	if locator == "" {
		return "", ErrNoLocator
	}

	m.counter++
	handle := fmt.Sprintf("mock-%d", m.counter)
	m.adds = append(m.adds, MockAdd{Locator: locator, Category: opts.Category, Handle: handle})
	return handle, nil
}

// Adds returns the recorded submissions.
func (m *Mock) Adds() []MockAdd {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockAdd, len(m.adds))
	copy(out, m.adds)
	return out
}
