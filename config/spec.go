// Package config loads the YAML documents the original calls Stack, Model,
// and SignalGroup into the in-process SimulationSpec runtime.Driver
// consumes (C10). Grounded on the `kind`/`metadata.name`/`spec` document
// convention in original_source/dse/modelc/schema.h and parsed with
// gopkg.in/yaml.v2, the same library the teacher's cmd/cli uses for its own
// config documents.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package config

// Transform is a per-signal linear map read from a SignalGroup's
// `transform.linear.{factor,offset}` annotation.
type Transform struct {
	Factor float64
	Offset float64
}

// ChannelSpec is one Model's channel: its alias within the model, the
// SignalGroup it draws signal names and annotations from, and the
// resolved per-signal transforms.
type ChannelSpec struct {
	ChannelName         string
	FunctionName        string
	SignalNames         []string
	IsBinary            bool
	ExpectedModelCount  int
	Transforms          map[string]Transform
	SignalAnnotations   map[string]map[string]string
	ChannelAnnotations  map[string]string
}

// ModelInstanceSpec is one Stack entry, resolved against its Model
// document: identity, loaded-code selector, and configured channels.
type ModelInstanceSpec struct {
	UID      uint32
	Name     string
	Kind     string // "" (shared object), "gateway", "mcl", "lua"
	Path     string
	Channels []ChannelSpec
}

// SimulationSpec is the fully-resolved simulation: every Stack model
// instance joined to its Model and SignalGroup documents.
type SimulationSpec struct {
	Name            string
	StepSize        float64
	EndTime         float64
	SequentialCosim bool
	Transport       string
	Models          []ModelInstanceSpec
}
