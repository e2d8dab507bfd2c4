package index

import (
	"reflect"
	"sync"

	"github.com/ViewWay/flow-sub000/internal/extension"
)

// TypeHandle identifies a registered resource type. Handles compare with
// ==; nothing else about the underlying type is consulted.
type TypeHandle struct {
	rt reflect.Type
}

func (h TypeHandle) String() string {
	if h.rt == nil {
		return "<nil>"
	}
	return h.rt.String()
}

// HandleOf derives the handle for a resource type.
func HandleOf[T extension.Extension]() TypeHandle {
	return TypeHandle{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// HandleFor derives the handle from a live resource. It matches
// HandleOf for the resource's concrete type.
func HandleFor(ext extension.Extension) TypeHandle {
	return TypeHandle{rt: reflect.TypeOf(ext)}
}

// Registry maps type handles to index bundles. It is built at startup
// and read from every ingest and query path afterwards.
type Registry struct {
	mu      sync.RWMutex
	bundles map[TypeHandle]*Bundle
}

func NewRegistry() *Registry {
	return &Registry{bundles: make(map[TypeHandle]*Bundle)}
}

// Register creates a bundle for the handle. Registering a handle twice
// returns the existing bundle untouched.
func (r *Registry) Register(handle TypeHandle, kindTag string, specs []Spec) (*Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bundle, ok := r.bundles[handle]; ok {
		return bundle, nil
	}
	bundle, err := NewBundle(kindTag, specs)
	if err != nil {
		return nil, err
	}
	r.bundles[handle] = bundle
	return bundle, nil
}

// Get resolves the bundle for a handle.
func (r *Registry) Get(handle TypeHandle) (*Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle, ok := r.bundles[handle]
	if !ok {
		return nil, &NotRegisteredError{Handle: handle.String()}
	}
	return bundle, nil
}

// Deregister drops the bundle for a handle, if any.
func (r *Registry) Deregister(handle TypeHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bundles, handle)
}

// Handles lists every registered handle.
func (r *Registry) Handles() []TypeHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeHandle, 0, len(r.bundles))
	for handle := range r.bundles {
		out = append(out, handle)
	}
	return out
}
