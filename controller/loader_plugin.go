//go:build modelplugin

package controller

import (
	"plugin"

	"github.com/dsebus/dsebus/dsebuserr"
)

// loadPlugin resolves a model shared object via the Go plugin package, the
// nearest idiomatic analogue of dlopen/dlsym (§9). Built only when the
// modelplugin build tag is set, since plugin is Linux/macOS-cgo-only.
func loadPlugin(path string) (*Model, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, dsebuserr.NewConfigError("failed to open model plugin %q: %v", path, err)
	}
	m := &Model{}
	if sym, err := p.Lookup("ModelCreate"); err == nil {
		if fn, ok := sym.(func(*ModelDesc) (*ModelDesc, error)); ok {
			m.Create = fn
		}
	}
	if sym, err := p.Lookup("ModelStep"); err == nil {
		if fn, ok := sym.(func(*ModelDesc, *float64, float64) error); ok {
			m.Step = fn
		}
	}
	if sym, err := p.Lookup("ModelDestroy"); err == nil {
		if fn, ok := sym.(func(*ModelDesc) error); ok {
			m.Destroy = fn
		}
	}
	return m, nil
}
