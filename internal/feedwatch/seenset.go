package feedwatch

// seenSet remembers which feed entry IDs have already been processed. It is
// bounded: once the cap is reached the oldest entry is evicted on insert.
// Not safe for concurrent use; each watcher owns its own set.
type seenSet struct {
	cap   int
	ids   map[string]struct{}
	order []string
}

func newSeenSet(cap int) *seenSet {
	if cap <= 0 {
		cap = 2000
	}
	return &seenSet{
		cap: cap,
		ids: make(map[string]struct{}, cap),
	}
}

func (s *seenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records the id and reports whether it was new.
func (s *seenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *seenSet) Len() int {
	return len(s.order)
}
