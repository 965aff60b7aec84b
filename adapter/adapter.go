package adapter

import (
	"time"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/internal/nlog"
)

// Adapter drives one model's side of the connect/register/ready/start/exit
// handshake (§4.3) over an endpoint.Endpoint. Its behaviour splits on the
// endpoint's Kind: Loopback needs no wire round-trip at all (every
// ModelInstance already shares the same in-process Channel objects by
// name, per the runtime driver's wiring), while Message/SimBus peers
// exchange notify control messages and SBCH delta envelopes with a bus at
// BusUID, grounded on dse/modelc/adapter/simbus/states.c and
// adapter_loopb.c.
type Adapter struct {
	ep       endpoint.Endpoint
	BusUID   uint32
	StepSize float64
	Timeout  time.Duration
}

func NewAdapter(ep endpoint.Endpoint, stepSize float64) *Adapter {
	return &Adapter{ep: ep, StepSize: stepSize, Timeout: 5 * time.Second}
}

func (a *Adapter) isLoopback() bool { return a.ep.Kind() == endpoint.KindLoopback }

// Register assigns uids to every signal currently known on the model's
// channels and, for non-loopback transports, publishes the resulting names
// to the bus so it can discover them too.
func (a *Adapter) Register(am *AdapterModel) error {
	for name, ch := range am.Channels {
		if err := ch.AssignUIDs(); err != nil {
			return err
		}
		if !a.isLoopback() {
			msg := encodeNotify(notifyRegister, am.ModelUID, name, 0, ch.Names())
			if err := a.ep.Send("", msg, a.BusUID); err != nil {
				return err
			}
		}
		nlog.Infof("adapter: model %d registered on channel %q", am.ModelUID, name)
	}
	am.State = StateRegistered
	return nil
}

// Ready publishes the model's current outputs. Loopback models have
// nothing to send (their channels are shared storage); wire peers flush
// each channel's delta and then mark themselves ready on the bus.
func (a *Adapter) Ready(am *AdapterModel) error {
	if am.State != StateRegistered && am.State != StateRunning {
		return dsebuserr.NewConfigError("adapter: model %d not registered", am.ModelUID)
	}
	if !a.isLoopback() {
		for name, ch := range am.Channels {
			delta := ch.EncodeDelta()
			if len(delta.UIDs) > 0 {
				if err := a.ep.Send(endpoint.ChannelToken(name), encodeSelfDescribingDelta(delta), a.BusUID); err != nil {
					return err
				}
			}
			if err := a.ep.Send("", encodeNotify(notifyReady, am.ModelUID, name, 0, nil), a.BusUID); err != nil {
				return err
			}
		}
	}
	am.State = StateReady
	return nil
}

// Start advances the model past its current step. Loopback commits the
// shared channel state synchronously; wire peers block for the bus's
// notifyStart broadcast, applying any deltas that arrive alongside it.
func (a *Adapter) Start(am *AdapterModel) error {
	if a.isLoopback() {
		am.StopTime = am.ModelTime + a.StepSize
		for _, ch := range am.Channels {
			ch.CommitPending()
		}
		am.ModelTime = am.StopTime
		am.State = StateRunning
		return nil
	}

	for {
		ch, payload, ok, err := a.ep.Recv(a.Timeout)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if ch == "" {
			kind, _, channel, stopTime, _, derr := decodeNotify(payload)
			if derr != nil {
				return derr
			}
			if kind == notifyStart {
				_ = channel // start applies to the model as a whole, not one channel
				am.StopTime = stopTime
				am.ModelTime = stopTime
				am.State = StateRunning
				return nil
			}
			continue
		}
		target, known := am.Channels[ch]
		if !known {
			continue
		}
		delta, derr := decodeSelfDescribingDelta(payload)
		if derr != nil {
			return derr
		}
		if err := target.ApplyDelta(delta); err != nil {
			return err
		}
	}
}

// Exit tears the model down, notifying the bus on wire transports.
func (a *Adapter) Exit(am *AdapterModel) error {
	if !a.isLoopback() {
		for name := range am.Channels {
			if err := a.ep.Send("", encodeNotify(notifyExit, am.ModelUID, name, 0, nil), a.BusUID); err != nil {
				return err
			}
		}
	}
	am.State = StateExited
	nlog.Infof("adapter: model %d exited", am.ModelUID)
	return nil
}
