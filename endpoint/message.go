package endpoint

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/internal/nlog"
)

// MessageEndpoint is the concrete, non-Loopback wire implementation (C15,
// SPEC_FULL §4.2): length-prefixed Envelope frames over net.Conn. It
// exercises the §4.2 contract end to end without depending on a
// production message-queue/Redis client, which §1 keeps out of scope.
//
// Frame on the wire: 4-byte big-endian length, then that many bytes of
// Envelope.Encode() output -- the same "tagged header then payload"
// idiom as the teacher's transport package (see transport/tinit.go).
type MessageEndpoint struct {
	kind       Kind
	uid        uint32
	dialAddr   string // client role when non-empty
	listenAddr string // server role bind address, "" means ":0" (any port)
	listener   net.Listener

	mu    sync.Mutex
	conns map[uint32]net.Conn // peerUID -> connection (server role)
	conn  net.Conn            // single connection (client role)

	recvCh chan Envelope
	errCh  chan error
	stopCh chan struct{}
	once   sync.Once
}

// NewMessageListener creates a server-role endpoint: it Start()s a
// net.Listener and accepts one connection per peer.
func NewMessageListener(addr string, uid uint32) *MessageEndpoint {
	return &MessageEndpoint{
		kind:       KindMessage,
		uid:        uid,
		dialAddr:   "", // server role
		listenAddr: addr,
		conns:      make(map[uint32]net.Conn),
		recvCh:     make(chan Envelope, 64),
		errCh:      make(chan error, 4),
		stopCh:     make(chan struct{}),
	}
}

// NewMessageDialer creates a client-role endpoint connecting to addr.
func NewMessageDialer(addr string, uid uint32) *MessageEndpoint {
	return &MessageEndpoint{
		kind:     KindMessage,
		uid:      uid,
		dialAddr: addr,
		conns:    make(map[uint32]net.Conn),
		recvCh:   make(chan Envelope, 64),
		errCh:    make(chan error, 4),
		stopCh:   make(chan struct{}),
	}
}

// NewSimBusListener is a MessageEndpoint tagged KindSimBus: same wire
// contract, different role (mediator rather than peer), per §9's guidance
// that SimBus is a fixed variant alongside Message/Loopback.
func NewSimBusListener(addr string, uid uint32) *MessageEndpoint {
	e := NewMessageListener(addr, uid)
	e.kind = KindSimBus
	return e
}

func (e *MessageEndpoint) Kind() Kind { return e.kind }

func (e *MessageEndpoint) CreateChannel(name string) (ChannelToken, error) {
	return ChannelToken(name), nil
}

// Start dials (client role) or listens+accepts (server role). Initial
// connect is retried per §7: 60 attempts at 1s intervals before the
// TransportError is surfaced.
func (e *MessageEndpoint) Start() error {
	if e.dialAddr != "" {
		var lastErr error
		for attempt := 0; attempt < 60; attempt++ {
			conn, err := net.DialTimeout("tcp", e.dialAddr, 2*time.Second)
			if err == nil {
				if err := e.sendIdentity(conn); err != nil {
					return err
				}
				e.mu.Lock()
				e.conn = conn
				e.mu.Unlock()
				go e.readLoop(conn)
				return nil
			}
			lastErr = err
			select {
			case <-e.stopCh:
				return dsebuserr.NewCancelled("connect interrupted")
			case <-time.After(time.Second):
			}
		}
		return dsebuserr.NewTransportError(lastErr, "failed to connect to %s after 60 attempts", e.dialAddr)
	}

	ln, err := net.Listen("tcp", e.dialAddrOrAny())
	if err != nil {
		return dsebuserr.NewTransportError(err, "listen failed")
	}
	e.listener = ln
	go e.acceptLoop(ln)
	return nil
}

func (e *MessageEndpoint) dialAddrOrAny() string {
	if e.listenAddr == "" {
		return ":0"
	}
	return e.listenAddr
}

// Addr returns the bound listener address (server role only), for tests
// that need to dial back in.
func (e *MessageEndpoint) Addr() string {
	if e.listener != nil {
		return e.listener.Addr().String()
	}
	return ""
}

func (e *MessageEndpoint) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-e.stopCh:
			default:
				nlog.Warningf("message endpoint accept: %v", err)
			}
			return
		}
		peerUID, err := e.recvIdentity(conn)
		if err != nil {
			nlog.Warningf("message endpoint identity handshake: %v", err)
			conn.Close()
			continue
		}
		e.mu.Lock()
		e.conns[peerUID] = conn
		e.mu.Unlock()
		go e.readLoop(conn)
	}
}

// sendIdentity announces this endpoint's uid on conn as a single 4-byte
// big-endian frame, so the accepting peer can address replies by uid
// instead of guessing from accept order.
func (e *MessageEndpoint) sendIdentity(conn net.Conn) error {
	var frame [4]byte
	binary.BigEndian.PutUint32(frame[:], e.uid)
	var lenb [4]byte
	binary.BigEndian.PutUint32(lenb[:], uint32(len(frame)))
	if _, err := conn.Write(lenb[:]); err != nil {
		return dsebuserr.NewTransportError(err, "send identity header")
	}
	if _, err := conn.Write(frame[:]); err != nil {
		return dsebuserr.NewTransportError(err, "send identity")
	}
	return nil
}

func (e *MessageEndpoint) recvIdentity(conn net.Conn) (uint32, error) {
	var lenb [4]byte
	if _, err := io.ReadFull(conn, lenb[:]); err != nil {
		return 0, dsebuserr.NewTransportError(err, "read identity header")
	}
	n := binary.BigEndian.Uint32(lenb[:])
	frame := make([]byte, n)
	if _, err := io.ReadFull(conn, frame); err != nil {
		return 0, dsebuserr.NewTransportError(err, "read identity")
	}
	if n != 4 {
		return 0, dsebuserr.NewProtocolError("malformed identity frame of length %d", n)
	}
	return binary.BigEndian.Uint32(frame), nil
}

func (e *MessageEndpoint) readLoop(conn net.Conn) {
	var lenb [4]byte
	for {
		if _, err := io.ReadFull(conn, lenb[:]); err != nil {
			return
		}
		n := binary.BigEndian.Uint32(lenb[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(conn, frame); err != nil {
			return
		}
		env, err := Decode(frame)
		if err != nil {
			select {
			case e.errCh <- err:
			default:
			}
			continue
		}
		select {
		case e.recvCh <- env:
		case <-e.stopCh:
			return
		}
	}
}

func (e *MessageEndpoint) Send(tok ChannelToken, payload []byte, peerUID uint32) error {
	env := Envelope{Notify: tok == "", Channel: string(tok), Payload: payload}
	frame := env.Encode()
	var lenb [4]byte
	binary.BigEndian.PutUint32(lenb[:], uint32(len(frame)))

	conn := e.connFor(peerUID)
	if conn == nil {
		return dsebuserr.NewTransportError(nil, "no connection for peer %d", peerUID)
	}
	if _, err := conn.Write(lenb[:]); err != nil {
		return dsebuserr.NewTransportError(err, "send header")
	}
	if _, err := conn.Write(frame); err != nil {
		return dsebuserr.NewTransportError(err, "send payload")
	}
	return nil
}

func (e *MessageEndpoint) connFor(peerUID uint32) net.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		return e.conn
	}
	if c, ok := e.conns[peerUID]; ok {
		return c
	}
	for _, c := range e.conns {
		return c // single-peer server role fallback
	}
	return nil
}

func (e *MessageEndpoint) Recv(timeout time.Duration) (string, []byte, bool, error) {
	select {
	case env := <-e.recvCh:
		return env.Channel, env.Payload, true, nil
	case err := <-e.errCh:
		return "", nil, false, err
	case <-e.stopCh:
		return "", nil, false, dsebuserr.NewCancelled("endpoint interrupted")
	case <-time.After(timeout):
		return "", nil, false, nil
	}
}

func (e *MessageEndpoint) Interrupt() {
	e.once.Do(func() { close(e.stopCh) })
}

func (e *MessageEndpoint) Disconnect() error {
	e.Interrupt()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		e.conn.Close()
	}
	for _, c := range e.conns {
		c.Close()
	}
	if e.listener != nil {
		e.listener.Close()
	}
	return nil
}
