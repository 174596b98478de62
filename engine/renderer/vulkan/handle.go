package vulkan

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkutility/engine/core"
)

// lifetime is what a child holds on each parent: its own reference,
// released when the child itself is destroyed.
type lifetime interface {
	retainRef() lifetime
	Destroy()
}

// ownedState is shared by every reference to one native object.
type ownedState[T comparable] struct {
	handle  T
	refs    atomic.Int32
	kind    string
	id      uuid.UUID
	driver  Driver
	release func(T)
	parents []lifetime
}

// Owned is one reference to exactly one native handle. Copies are made with
// Retain; each reference is destroyed on its own and drops at most one count.
// The native release runs once, when the last reference is destroyed, and
// only then are the parent references given back.
type Owned[T comparable] struct {
	state    *ownedState[T]
	released atomic.Bool
}

func newOwned[T comparable](drv Driver, kind string, handle T, release func(T), parents ...lifetime) *Owned[T] {
	s := &ownedState[T]{
		handle:  handle,
		kind:    kind,
		id:      uuid.New(),
		driver:  drv,
		release: release,
	}
	s.refs.Store(1)
	for _, p := range parents {
		s.parents = append(s.parents, p.retainRef())
	}
	o := &Owned[T]{state: s}
	core.LogDebug("Created %s.", o)
	return o
}

// Handle returns the raw native handle for interop with direct API calls.
// It is the zero value once this reference has been destroyed.
func (o *Owned[T]) Handle() T {
	var empty T
	if !o.Valid() {
		return empty
	}
	return o.state.handle
}

func (o *Owned[T]) Valid() bool {
	var empty T
	return o != nil && o.state != nil && !o.released.Load() && o.state.handle != empty
}

// Retain returns a new, independent reference to the same native object, or
// nil when this reference is no longer valid.
func (o *Owned[T]) Retain() *Owned[T] {
	if !o.Valid() {
		return nil
	}
	o.state.refs.Add(1)
	return &Owned[T]{state: o.state}
}

func (o *Owned[T]) retainRef() lifetime {
	return o.Retain()
}

// Destroy drops this reference. Calling it again, or on an empty wrapper,
// does nothing.
func (o *Owned[T]) Destroy() {
	if !o.Valid() || o.released.Swap(true) {
		return
	}
	s := o.state
	if s.refs.Add(-1) > 0 {
		return
	}

	var empty T
	handle := s.handle
	s.handle = empty
	if s.release != nil {
		s.release(handle)
	}
	core.LogDebug("Destroyed %s.", o)

	// Parents go last, in reverse order of acquisition.
	for i := len(s.parents) - 1; i >= 0; i-- {
		s.parents[i].Destroy()
	}
	s.parents = nil
}

func (o *Owned[T]) Driver() Driver {
	if o == nil || o.state == nil {
		return nil
	}
	return o.state.driver
}

func (o *Owned[T]) String() string {
	if o == nil || o.state == nil {
		return "<nil>"
	}
	return o.state.kind + " " + o.state.id.String()
}
