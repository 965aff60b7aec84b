package endpoint

import (
	"sync"
	"time"

	"github.com/dsebus/dsebus/dsebuserr"
)

// Hub is the shared in-memory transport backing every LoopbackEndpoint in
// one simulation: a mailbox per participant uid. It exists so that the
// Loopback variant runs through the *same* envelope/send/recv code paths a
// wire transport would, without a socket -- per §4.2's rationale.
type Hub struct {
	mu        sync.Mutex
	mailboxes map[uint32]chan Envelope
	channels  map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		mailboxes: make(map[uint32]chan Envelope),
		channels:  make(map[string]struct{}),
	}
}

func (h *Hub) mailbox(uid uint32) chan Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	mb, ok := h.mailboxes[uid]
	if !ok {
		mb = make(chan Envelope, 256)
		h.mailboxes[uid] = mb
	}
	return mb
}

// LoopbackEndpoint is one participant's view of a Hub, identified by uid.
// uid 0 is conventionally the bus in bus-mode simulations (§4.8); model
// uids are the uid each ModelInstance was configured with.
type LoopbackEndpoint struct {
	hub  *Hub
	uid  uint32
	stop chan struct{}
	once sync.Once
}

func NewLoopbackEndpoint(hub *Hub, uid uint32) *LoopbackEndpoint {
	return &LoopbackEndpoint{hub: hub, uid: uid, stop: make(chan struct{})}
}

func (e *LoopbackEndpoint) Kind() Kind { return KindLoopback }

func (e *LoopbackEndpoint) CreateChannel(name string) (ChannelToken, error) {
	e.hub.mu.Lock()
	e.hub.channels[name] = struct{}{}
	e.hub.mu.Unlock()
	return ChannelToken(name), nil
}

func (e *LoopbackEndpoint) Start() error { return nil }

func (e *LoopbackEndpoint) Interrupt() {
	e.once.Do(func() { close(e.stop) })
}

func (e *LoopbackEndpoint) Disconnect() error { return nil }

// Send delivers directly into peerUID's mailbox -- no serialization delay,
// but the same Envelope shape a wire transport would carry.
func (e *LoopbackEndpoint) Send(tok ChannelToken, payload []byte, peerUID uint32) error {
	env := Envelope{Notify: tok == "", Channel: string(tok), Payload: payload}
	mb := e.hub.mailbox(peerUID)
	select {
	case mb <- env:
		return nil
	default:
		return dsebuserr.NewTransportError(nil, "loopback mailbox %d full", peerUID)
	}
}

func (e *LoopbackEndpoint) Recv(timeout time.Duration) (string, []byte, bool, error) {
	mb := e.hub.mailbox(e.uid)
	select {
	case env := <-mb:
		return env.Channel, env.Payload, true, nil
	case <-e.stop:
		return "", nil, false, dsebuserr.NewCancelled("endpoint %d interrupted", e.uid)
	case <-time.After(timeout):
		return "", nil, false, nil // timeouts are not errors, per §4.2
	}
}

// Broadcast delivers the same envelope to every uid in uids, stopping at the
// first failed Send. adapter.Bus does not use it: its `start` fan-out
// (§4.3) calls Send once per registered model.
func (e *LoopbackEndpoint) Broadcast(tok ChannelToken, payload []byte, uids []uint32) error {
	for _, uid := range uids {
		if err := e.Send(tok, payload, uid); err != nil {
			return err
		}
	}
	return nil
}
