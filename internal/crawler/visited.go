package crawler

import "sync"

// VisitedSet is a concurrent set of normalized urls. Add is the dedup gate:
// exactly one caller wins for a given url.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// Add inserts u and reports whether it was absent
func (v *VisitedSet) Add(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.urls[u]; ok {
		return false
	}
	v.urls[u] = struct{}{}
	return true
}

// Contains reports whether u was added
func (v *VisitedSet) Contains(u string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.urls[u]
	return ok
}

// Len returns the number of urls in the set
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.urls)
}
