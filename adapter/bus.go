package adapter

import (
	"sync"
	"time"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/endpoint"
	"github.com/dsebus/dsebus/internal/kahan"
	"github.com/dsebus/dsebus/internal/nlog"
	"github.com/dsebus/dsebus/signal"
)

// Bus is the mediator half of the §4.3/§4.8 handshake: it owns the
// authoritative Channel for every name it has seen, tracks each channel's
// register/ready quorum, and fans out a notifyStart once every channel it
// knows about is simultaneously network-ready and models-ready -- a global
// barrier across channels, not a per-channel decision. Grounded on
// dse/modelc/adapter/simbus/states.c's simbus_model_at_register/ready/exit
// and simbus_network_ready/simbus_models_ready/simbus_models_to_start,
// which all loop over every channel on the single bus AdapterModel,
// generalized from per-channel C state to a Go type.
type Bus struct {
	ep       endpoint.Endpoint
	StepSize float64

	mu            sync.Mutex
	channels      map[string]*signal.Channel
	expected      map[string]int
	time          kahan.Accumulator
	anyRegistered bool
	lastSeen      map[string]map[uint32]time.Time
}

func NewBus(ep endpoint.Endpoint, stepSize float64) *Bus {
	return &Bus{
		ep:       ep,
		StepSize: stepSize,
		channels: make(map[string]*signal.Channel),
		expected: make(map[string]int),
		lastSeen: make(map[string]map[uint32]time.Time),
	}
}

// ExpectModels declares how many distinct models must register on name
// before the bus considers it network-ready, per §4.3's ExpectedModelCount.
// Unlike the lazy, register-triggered creation in Channel, ExpectModels
// creates the Channel immediately: allChannelsReady's global barrier walks
// every Channel the bus knows about, so every configured channel must be
// present in that set from startup, before any model has connected to it,
// or a channel nobody has registered on yet would be silently excluded from
// the barrier instead of holding it open.
func (b *Bus) ExpectModels(name string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expected[name] = n
	ch, ok := b.channels[name]
	if !ok {
		b.channels[name] = signal.NewChannel(name, n)
		return
	}
	ch.ExpectedModelCount = n
}

func (b *Bus) Channel(name string) *signal.Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		ch = signal.NewChannel(name, b.expected[name])
		b.channels[name] = ch
	}
	return ch
}

// Serve runs the bus's receive loop until stop is closed, the endpoint
// reports Cancelled, or the bus is quiescent (every model that registered
// has exited). It is safe to run in its own goroutine.
func (b *Bus) Serve(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		chName, payload, ok, err := b.ep.Recv(time.Second)
		if err != nil {
			if _, cancelled := err.(*dsebuserr.Cancelled); cancelled {
				return nil
			}
			return err
		}
		if !ok {
			continue
		}
		if chName == "" {
			if err := b.handleNotify(payload); err != nil {
				nlog.Errorln(err)
			}
			if b.quiescent() {
				nlog.Infof("bus: all channels exited, stopping")
				return nil
			}
			continue
		}
		ch := b.Channel(chName)
		delta, derr := decodeSelfDescribingDelta(payload)
		if derr != nil {
			nlog.Errorln(derr)
			continue
		}
		if err := ch.ApplyDelta(delta); err != nil {
			nlog.Errorln(err)
		}
	}
}

func (b *Bus) handleNotify(payload []byte) error {
	kind, modelUID, channel, _, names, err := decodeNotify(payload)
	if err != nil {
		return err
	}
	ch := b.Channel(channel)
	b.touch(channel, modelUID)
	switch kind {
	case notifyRegister:
		for _, n := range names {
			ch.Get(n)
		}
		if err := ch.AssignUIDs(); err != nil {
			return err
		}
		ch.RegisterModel(modelUID)
		b.mu.Lock()
		b.anyRegistered = true
		b.mu.Unlock()
		nlog.Infof("bus: model %d registered on %q (%d/%d)", modelUID, channel, ch.RegisterCount(), ch.ExpectedModelCount)
	case notifyReady:
		ch.ReadyModel(modelUID)
		if b.allChannelsReady() {
			if err := b.broadcastStart(); err != nil {
				return err
			}
		}
	case notifyExit:
		ch.ExitModel(modelUID)
	}
	return nil
}

// quiescent reports whether the bus loop should terminate: at least one
// model registered at some point, and every known channel's register set
// has since emptied (every model that ever joined has exited), per §4.8's
// "simbus_model_at_exit" termination signal.
func (b *Bus) quiescent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.anyRegistered {
		return false
	}
	for _, ch := range b.channels {
		if ch.RegisterCount() > 0 {
			return false
		}
	}
	return true
}

// allChannelsReady reports whether the bus should advance the cycle: per
// §4.3/§4.8, this is a barrier across every channel the bus knows about, not
// a per-channel decision -- simbus_network_ready/simbus_models_ready (states.c)
// both loop over every channel on the single bus AdapterModel before
// allowing a start, and a bus with no channels yet is never ready.
func (b *Bus) allChannelsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.channels) == 0 {
		return false
	}
	for _, ch := range b.channels {
		if !ch.NetworkReady() || !ch.ModelsReady() {
			return false
		}
	}
	return true
}

// broadcastStart advances bus time by one step and notifies every
// registered peer across every channel -- mirroring simbus_models_to_start,
// which clears every channel's ready set together as one global barrier
// (§4.3/§5: no peer observes the next cycle until every peer has declared
// ready for this one). Each distinct model uid is notified once, even if it
// is registered on more than one channel.
func (b *Bus) broadcastStart() error {
	b.mu.Lock()
	stopTime := b.time.Add(b.StepSize)
	channels := make([]*signal.Channel, 0, len(b.channels))
	for _, ch := range b.channels {
		channels = append(channels, ch)
	}
	b.mu.Unlock()

	uids := make(map[uint32]struct{})
	for _, ch := range channels {
		for _, uid := range ch.RegisteredUIDs() {
			uids[uid] = struct{}{}
		}
	}

	msg := encodeNotify(notifyStart, 0, "", stopTime, nil)
	for uid := range uids {
		if err := b.ep.Send("", msg, uid); err != nil {
			return err
		}
	}
	for _, ch := range channels {
		ch.ClearReady()
	}
	return nil
}

func (b *Bus) touch(channel string, uid uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.lastSeen[channel]
	if !ok {
		m = make(map[uint32]time.Time)
		b.lastSeen[channel] = m
	}
	m[uid] = time.Now()
}

// PruneStale force-exits any model that registered on a channel but has
// not been seen (a register/ready/exit notify; delta sends do not count)
// within ttl --
// a dead peer whose transport connection dropped without a clean exit
// notify. Intended to run as a housekeeping job (hk); returns the number
// of models pruned.
func (b *Bus) PruneStale(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	var pruned int

	b.mu.Lock()
	type target struct {
		ch  *signal.Channel
		uid uint32
	}
	var stale []target
	for name, ch := range b.channels {
		seen := b.lastSeen[name]
		for _, uid := range ch.RegisteredUIDs() {
			if t, ok := seen[uid]; !ok || t.Before(cutoff) {
				stale = append(stale, target{ch, uid})
			}
		}
	}
	b.mu.Unlock()

	for _, s := range stale {
		s.ch.ExitModel(s.uid)
		pruned++
		nlog.Warningf("bus: pruned stale model %d on %q (no activity for %s)", s.uid, s.ch.Name, ttl)
	}
	return pruned
}

// QuorumSnapshot returns, per channel, the current registered count and
// the expected count -- the shape dsestats polls into its quorum gauge.
func (b *Bus) QuorumSnapshot() map[string][2]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][2]int, len(b.channels))
	for name, ch := range b.channels {
		out[name] = [2]int{ch.RegisterCount(), ch.ExpectedModelCount}
	}
	return out
}
