// Package runtime composes the signal store (C1), endpoint (C2), adapter
// (C3), controller (C4) and sigvec (C5) packages into one in-process
// simulation, plus the Gateway façade that lets a foreign loop drive it by
// time (§4.7). Grounded on
// original_source/dse/modelc/controller/model_runtime.c's single-process
// "create every instance, wire loopback channels, step" composition, and
// the teacher's preference for one owning struct over package-level state.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package runtime

import (
	"github.com/dsebus/dsebus/adapter"
	"github.com/dsebus/dsebus/config"
	"github.com/dsebus/dsebus/controller"
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/internal/nlog"
	"github.com/dsebus/dsebus/modelreg"
	"github.com/dsebus/dsebus/signal"
)

// Driver owns one simulation's transport (a shared loopback hub, or dialed
// connections to an external bus), its channel store, and the Controller
// that steps every configured ModelInstance.
type Driver struct {
	Spec       *config.SimulationSpec
	Controller *controller.Controller
	Registry   *modelreg.Registry

	transportKind endpoint.Kind
	busURI        string
	hub           *endpoint.Hub
	channels      map[string]*signal.Channel
}

// NewDriver builds every ModelInstance named in spec over an in-process
// loopback hub, wiring channels of the same name to the same
// *signal.Channel so sharing works for free (§4.3's loopback rationale),
// loads each model's code, and runs the register handshake. The Driver is
// ready to RunTo as soon as this returns.
func NewDriver(spec *config.SimulationSpec) (*Driver, error) {
	return newDriver(spec, endpoint.KindLoopback, "")
}

// NewDistributedDriver is NewDriver's counterpart for the out-of-process
// case: every ModelInstance dials busURI as a distinct peer of an external
// simbus process instead of sharing an in-process Channel, per §4.3's
// Message/SimBus handshake path. transportKind must be KindMessage or
// KindSimBus.
func NewDistributedDriver(spec *config.SimulationSpec, transportKind endpoint.Kind, busURI string) (*Driver, error) {
	if transportKind != endpoint.KindMessage && transportKind != endpoint.KindSimBus {
		return nil, dsebuserr.NewConfigError("runtime: %q is not a distributed transport", transportKind)
	}
	return newDriver(spec, transportKind, busURI)
}

func newDriver(spec *config.SimulationSpec, kind endpoint.Kind, busURI string) (*Driver, error) {
	d := &Driver{
		Spec:          spec,
		Controller:    controller.NewController(spec.StepSize, spec.SequentialCosim),
		Registry:      modelreg.New(),
		transportKind: kind,
		busURI:        busURI,
		channels:      make(map[string]*signal.Channel),
	}
	if kind == endpoint.KindLoopback {
		d.hub = endpoint.NewHub()
	}
	for i := range spec.Models {
		if err := d.addModel(&spec.Models[i]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Driver) sharedChannel(name string, expectedModelCount int) *signal.Channel {
	ch, ok := d.channels[name]
	if !ok {
		ch = signal.NewChannel(name, expectedModelCount)
		d.channels[name] = ch
	}
	return ch
}

func (d *Driver) newEndpoint(uid uint32) endpoint.Endpoint {
	if d.transportKind == endpoint.KindLoopback {
		return endpoint.NewLoopbackEndpoint(d.hub, uid)
	}
	return endpoint.NewMessageDialer(d.busURI, uid)
}

func (d *Driver) addModel(ms *config.ModelInstanceSpec) error {
	ep := d.newEndpoint(ms.UID)
	if err := ep.Start(); err != nil {
		return err
	}
	a := adapter.NewAdapter(ep, d.Spec.StepSize)

	mi := controller.NewModelInstance(ms.UID, ms.Name)
	mi.Adapter = a

	// Loopback sharing only applies in-process: pre-populate shared
	// channels before binding/configuring so every ModelInstance naming
	// the same channel aliases the same *signal.Channel. Distributed
	// instances each keep their own store and exchange deltas over the
	// wire instead.
	if d.transportKind == endpoint.KindLoopback {
		for _, cs := range ms.Channels {
			mi.AdapterModel.Channels[cs.ChannelName] = d.sharedChannel(cs.ChannelName, cs.ExpectedModelCount)
		}
	}

	if err := mi.BindModel(ms.Kind, ms.Path); err != nil {
		return err
	}
	for _, cs := range ms.Channels {
		transforms := make(map[string]controller.Transform, len(cs.Transforms))
		for name, t := range cs.Transforms {
			transforms[name] = controller.Transform{Factor: t.Factor, Offset: t.Offset}
		}
		d.Controller.ConfigureChannel(mi, cs.ChannelName, cs.FunctionName, cs.SignalNames, cs.IsBinary, transforms)
	}
	if err := a.Register(mi.AdapterModel); err != nil {
		return err
	}

	d.Controller.AddModelInstance(mi)
	d.Registry.Add(mi)
	nlog.Infof("runtime: model %q (uid %d) added to simulation %q", ms.Name, ms.UID, d.Spec.Name)
	return nil
}

// RunTo advances every ModelInstance to targetTime.
func (d *Driver) RunTo(targetTime float64) error {
	return d.Controller.RunCycle(targetTime)
}

// ModelTime returns the furthest model_time reached by any configured
// instance (they converge to the same value absent a ModelError, but a
// caller mid-failure may see divergence).
func (d *Driver) ModelTime() float64 {
	var t float64
	for _, mi := range d.Controller.Models {
		if mi.ModelTime > t {
			t = mi.ModelTime
		}
	}
	return t
}

// Exit tears every model instance down, collecting (not stopping on) the
// first few distinct errors via dsebuserr.Errs.
func (d *Driver) Exit() error {
	var errs dsebuserr.Errs
	for _, mi := range d.Controller.Models {
		if mi.Adapter == nil {
			continue
		}
		errs.Add(mi.Adapter.Exit(mi.AdapterModel))
	}
	_, err := errs.JoinErr()
	return err
}
