package view

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Context belongs to a single page render: layout, view and all partials.
// It is safe to render partials concurrently.
type Context struct {
	ID uuid.UUID

	mu       sync.Mutex
	rendered []string
	seen     map[string]struct{}
}

func NewContext() *Context {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Context{ID: id, seen: make(map[string]struct{})}
}

func (vc *Context) record(key string) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	if vc.seen == nil {
		vc.seen = make(map[string]struct{})
	}
	if _, ok := vc.seen[key]; ok {
		return
	}
	vc.seen[key] = struct{}{}
	vc.rendered = append(vc.rendered, key)
}

// Rendered returns keys of rendered templates in order of first render.
func (vc *Context) Rendered() []string {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return slices.Clone(vc.rendered)
}
