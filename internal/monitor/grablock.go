package monitor

import "sync"

// grabLock serializes acquisition triggers per title, so the periodic
// re-check, a passive monitor and a user approval can never double-submit
// the same title to the download client.
type grabLock struct {
	mu    sync.Mutex
	locks map[int64]struct{}
}

func newGrabLock() *grabLock {
	return &grabLock{locks: make(map[int64]struct{})}
}

// tryAcquire reports whether the caller now holds the title's lock.
func (g *grabLock) tryAcquire(catalogID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.locks[catalogID]; held {
		return false
	}
	g.locks[catalogID] = struct{}{}
	return true
}

func (g *grabLock) release(catalogID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, catalogID)
}
