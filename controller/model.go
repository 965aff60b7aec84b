// Package controller implements the model ABI, per-channel transforms, and
// Kahan-summed time stepping (C4). Grounded on
// original_source/dse/modelc/controller/{model_function,model_runtime,transform}.c
// and the teacher's xact orchestration style (one registry of live units,
// stepped under a single owning loop).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package controller

import (
	"github.com/dsebus/dsebus/adapter"
	"github.com/dsebus/dsebus/dsebuserr"
)

// ModelDesc is the model-facing descriptor passed to Create/Step/Destroy:
// composition over the original's "cast up" void* convention (§9) -- a
// model that needs extra state embeds *ModelDesc rather than the runtime
// reinterpreting an opaque pointer.
type ModelDesc struct {
	MI       *ModelInstance
	Channels []*ModelFunctionChannel
}

// Model is the loaded model's ABI surface. Create and Destroy are optional
// (nil means identity / no-op); Step is mandatory -- Load fails with
// ModelError if a resolved model has no Step.
type Model struct {
	Create  func(desc *ModelDesc) (*ModelDesc, error)
	Step    func(desc *ModelDesc, modelTime *float64, stopTime float64) error
	Destroy func(desc *ModelDesc) error
}

// ModelInstance is one configured, loaded model: its identity, its loaded
// code, its function channels, and its adapter-side counterpart.
type ModelInstance struct {
	UID      uint32
	Name     string
	Kind     string // "" (shared object), "gateway", "mcl", "lua"
	Model    *Model
	Desc     *ModelDesc
	Channels []*ModelFunctionChannel

	Adapter      *adapter.Adapter
	AdapterModel *adapter.AdapterModel

	ModelTime       float64
	kahanCorrection float64 // carried across interleaved oneSubStep calls
}

func NewModelInstance(uid uint32, name string) *ModelInstance {
	mi := &ModelInstance{UID: uid, Name: name, AdapterModel: adapter.NewAdapterModel(uid)}
	mi.Desc = &ModelDesc{MI: mi}
	return mi
}

// BindModel resolves mi.Model via Load and runs its optional Create hook --
// the public entry point runtime.Driver uses to attach a configured
// model's code to its ModelInstance.
func (mi *ModelInstance) BindModel(kind, path string) error {
	return mi.bindModel(kind, path)
}

// bindModel resolves mi.Model via Load and runs its optional Create hook.
func (mi *ModelInstance) bindModel(kind, path string) error {
	m, err := Load(kind, path)
	if err != nil {
		return err
	}
	mi.Model = m
	mi.Kind = kind
	if m.Create != nil {
		desc, err := m.Create(mi.Desc)
		if err != nil {
			return dsebuserr.NewModelError(err, "model %q create failed", mi.Name)
		}
		if desc != nil {
			mi.Desc = desc
		}
	}
	return nil
}
