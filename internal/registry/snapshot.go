package registry

import "sync/atomic"

// Snapshot holds the registry currently served. Reloading static data swaps
// the whole registry; a loaded registry is never modified in place.
type Snapshot struct {
	current atomic.Pointer[Registry]
}

// NewSnapshot returns a holder serving r.
func NewSnapshot(r *Registry) *Snapshot {
	s := &Snapshot{}
	s.current.Store(r)
	return s
}

// Load returns the registry currently served.
func (s *Snapshot) Load() *Registry {
	return s.current.Load()
}

// Swap installs r and returns the previously served registry.
// A nil r is ignored so the holder never serves nothing.
func (s *Snapshot) Swap(r *Registry) *Registry {
	if r == nil {
		return s.current.Load()
	}
	return s.current.Swap(r)
}
