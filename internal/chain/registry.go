package chain

import (
	"fmt"

	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

// Entry pairs a network descriptor with its live client.
type Entry struct {
	Descriptor model.NetworkDescriptor
	Client     Client
}

// Registry holds the supported networks. It is populated once at startup
// and never mutated afterwards; every component receives it by reference.
type Registry struct {
	order   []model.NetworkID
	entries map[model.NetworkID]Entry
}

// NewRegistry builds an immutable registry from entries. Duplicate or
// mismatched ids are construction errors.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		order:   make([]model.NetworkID, 0, len(entries)),
		entries: make(map[model.NetworkID]Entry, len(entries)),
	}
	for _, e := range entries {
		id := e.Descriptor.ID
		if id == "" {
			return nil, fmt.Errorf("network descriptor missing id")
		}
		if e.Client != nil && e.Client.Network() != id {
			return nil, fmt.Errorf("client network %q does not match descriptor %q", e.Client.Network(), id)
		}
		if _, dup := r.entries[id]; dup {
			return nil, fmt.Errorf("duplicate network %q", id)
		}
		r.entries[id] = e
		r.order = append(r.order, id)
	}
	return r, nil
}

// List returns descriptors in registration order.
func (r *Registry) List() []model.NetworkDescriptor {
	out := make([]model.NetworkDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Descriptor)
	}
	return out
}

// Get returns the descriptor for id.
func (r *Registry) Get(id model.NetworkID) (model.NetworkDescriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return model.NetworkDescriptor{}, errs.Newf(errs.KindUnknownNetwork, "network %q is not registered", id)
	}
	return e.Descriptor, nil
}

// Client returns the live client for id.
func (r *Registry) Client(id model.NetworkID) (Client, error) {
	e, ok := r.entries[id]
	if !ok || e.Client == nil {
		return nil, errs.Newf(errs.KindUnknownNetwork, "network %q is not registered", id)
	}
	return e.Client, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id model.NetworkID) bool {
	_, ok := r.entries[id]
	return ok
}
