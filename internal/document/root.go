// Package document holds the global presentation root that styling and
// label selection are keyed on: a set of classes and a few attributes.
package document

import (
	"slices"
	"sync"
)

type Root struct {
	mu      sync.RWMutex
	classes map[string]struct{}
	attrs   map[string]string
}

func NewRoot() *Root {
	return &Root{
		classes: make(map[string]struct{}),
		attrs:   make(map[string]string),
	}
}

// SetClass adds the class when on is true and removes it otherwise.
func (r *Root) SetClass(name string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if on {
		r.classes[name] = struct{}{}
		return
	}
	delete(r.classes, name)
}

func (r *Root) HasClass(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.classes[name]
	return ok
}

// Classes returns the active classes in sorted order.
func (r *Root) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (r *Root) SetAttr(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attrs[name] = value
}

func (r *Root) Attr(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.attrs[name]
}
