package adapter

import "github.com/dsebus/dsebus/signal"

// AdapterModel is one model's side of the handshake: its uid, its view of
// simulation time, and the channels it publishes/subscribes through. In
// loopback mode the Channel pointers here are the same objects the runtime
// driver hands to every other ModelInstance sharing a channel name, so
// "sending" a delta is really just writing into a value both sides already
// see -- per §4.3's loopback rationale.
type AdapterModel struct {
	ModelUID  uint32
	ModelTime float64
	StopTime  float64
	Channels  map[string]*signal.Channel
	State     State
}

func NewAdapterModel(uid uint32) *AdapterModel {
	return &AdapterModel{
		ModelUID: uid,
		Channels: make(map[string]*signal.Channel),
	}
}

// Channel returns the model's handle for name, creating a fresh, unshared
// Channel if this model has not seen the name before. Callers that need
// loopback sharing across ModelInstances should instead populate Channels
// from a common table (see runtime.Driver) before registering.
func (am *AdapterModel) Channel(name string) *signal.Channel {
	ch, ok := am.Channels[name]
	if !ok {
		ch = signal.NewChannel(name, 0)
		am.Channels[name] = ch
	}
	return ch
}
