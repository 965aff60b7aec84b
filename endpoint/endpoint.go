package endpoint

import (
	"time"

	"github.com/dsebus/dsebus/dsebuserr"
)

// Kind is the tagged-variant enum from §9's re-architecture guidance: the
// source's dlopen-style v-table becomes one of three fixed cases.
type Kind int

const (
	KindMessage Kind = iota
	KindLoopback
	KindSimBus
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindLoopback:
		return "loopback"
	case KindSimBus:
		return "simbus"
	default:
		return "unknown"
	}
}

// ChannelToken is the opaque handle returned by CreateChannel, per §4.2.
type ChannelToken string

// Endpoint is the transport-agnostic datagram object of §4.2. recv blocks
// up to timeout; a timeout is reported via ok=false, not an error.
type Endpoint interface {
	Kind() Kind
	CreateChannel(name string) (ChannelToken, error)
	Start() error
	Interrupt()
	Disconnect() error
	Send(tok ChannelToken, payload []byte, peerUID uint32) error
	Recv(timeout time.Duration) (channelName string, payload []byte, ok bool, err error)
}

// ParseTransport maps the §6 `--transport=<tag>` value to a Kind, the way
// the teacher's earlystart resolves a config string to a typed selector.
func ParseTransport(tag string) (Kind, error) {
	switch tag {
	case "loopback", "":
		return KindLoopback, nil
	case "tcp", "message":
		return KindMessage, nil
	case "simbus":
		return KindSimBus, nil
	default:
		return 0, dsebuserr.NewConfigError("unknown transport %q", tag)
	}
}
