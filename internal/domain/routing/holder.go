package routing

import "sync/atomic"

// Holder keeps the current catalog. Reloads swap in a new instance; a
// catalog is never mutated after publication.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a Holder publishing c (which may be nil).
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	if c != nil {
		h.current.Store(c)
	}
	return h
}

// Current returns the published catalog, or nil before the first load.
func (h *Holder) Current() *Catalog {
	return h.current.Load()
}

// Swap publishes c and returns the previous catalog.
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.current.Swap(c)
}
