// Package modelreg tracks the live controller.ModelInstances of one
// simulation by uid (C14), grounded on xact/xreg's renew/find registry
// pattern simplified to this domain: one simulation has at most one
// instance per uid, so there is no scope/bucket matching to do, only
// Find/All/Renew.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package modelreg

import (
	"sync"

	"github.com/dsebus/dsebus/controller"
	"github.com/dsebus/dsebus/dsebuserr"
)

// Registry maps uid to its live ModelInstance.
type Registry struct {
	mu  sync.RWMutex
	all map[uint32]*controller.ModelInstance
}

func New() *Registry { return &Registry{all: make(map[uint32]*controller.ModelInstance)} }

// Add registers mi under its own uid, replacing whatever was there.
func (r *Registry) Add(mi *controller.ModelInstance) {
	r.mu.Lock()
	r.all[mi.UID] = mi
	r.mu.Unlock()
}

func (r *Registry) Find(uid uint32) (*controller.ModelInstance, bool) {
	r.mu.RLock()
	mi, ok := r.all[uid]
	r.mu.RUnlock()
	return mi, ok
}

// All returns every live instance in no particular order.
func (r *Registry) All() []*controller.ModelInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*controller.ModelInstance, 0, len(r.all))
	for _, mi := range r.all {
		out = append(out, mi)
	}
	return out
}

// Renew replaces the instance at uid with next: it first exits the
// previous instance's adapter (if any), binds next's model code, and
// installs next in its place, e.g. to swap in a rebuilt plugin-backed
// model between runs. No command-line entrypoint calls it.
func (r *Registry) Renew(uid uint32, next *controller.ModelInstance, kind, path string) (*controller.ModelInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.all[uid]; ok && prev.Adapter != nil {
		if err := prev.Adapter.Exit(prev.AdapterModel); err != nil {
			return nil, dsebuserr.NewModelError(err, "modelreg: renew uid %d: exit previous instance", uid)
		}
	}
	if err := next.BindModel(kind, path); err != nil {
		return nil, err
	}
	r.all[uid] = next
	return next, nil
}
