// Package endpoint implements the transport-agnostic datagram abstraction
// (§4.2): Endpoint variants {Message, Loopback, SimBus}, each exposing
// create_channel/start/interrupt/disconnect/send/recv over a common
// envelope. Grounded on the teacher's transport package (pdu.go's
// positional-buffer idiom, tinit.go's tagged-header convention).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package endpoint

import (
	"encoding/binary"

	"github.com/dsebus/dsebus/dsebuserr"
)

// 4-byte envelope tags, exactly as §4.2/§6.
var (
	tagChannel = [4]byte{'S', 'B', 'C', 'H'}
	tagNotify  = [4]byte{'S', 'B', 'N', 'O'}
)

// Envelope is the three-field datagram described in §4.2/§6: a 4-byte tag,
// a length-prefixed channel name (empty for notify), and a length-prefixed
// payload.
type Envelope struct {
	Notify  bool
	Channel string
	Payload []byte
}

// Encode serializes the envelope per the wire grammar in §6.
func (e Envelope) Encode() []byte {
	tag := tagChannel
	if e.Notify {
		tag = tagNotify
	}
	buf := make([]byte, 0, 4+4+len(e.Channel)+4+len(e.Payload))
	buf = append(buf, tag[:]...)
	buf = appendLP(buf, []byte(e.Channel))
	buf = appendLP(buf, e.Payload)
	return buf
}

// Decode parses bytes produced by Encode. Unknown tags are a ProtocolError.
func Decode(b []byte) (Envelope, error) {
	if len(b) < 4 {
		return Envelope{}, dsebuserr.NewProtocolError("envelope too short: %d bytes", len(b))
	}
	var tag [4]byte
	copy(tag[:], b[:4])
	rest := b[4:]

	var e Envelope
	switch tag {
	case tagChannel:
		e.Notify = false
	case tagNotify:
		e.Notify = true
	default:
		return Envelope{}, dsebuserr.NewProtocolError("envelope with unknown tag %q", tag[:])
	}

	chanBytes, rest, err := readLP(rest)
	if err != nil {
		return Envelope{}, err
	}
	e.Channel = string(chanBytes)

	payload, rest, err := readLP(rest)
	if err != nil {
		return Envelope{}, err
	}
	if len(rest) != 0 {
		return Envelope{}, dsebuserr.NewProtocolError("trailing %d bytes after envelope", len(rest))
	}
	e.Payload = payload
	return e, nil
}

func appendLP(buf, p []byte) []byte {
	var lenb [4]byte
	binary.BigEndian.PutUint32(lenb[:], uint32(len(p)))
	buf = append(buf, lenb[:]...)
	buf = append(buf, p...)
	return buf
}

func readLP(b []byte) (field, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, dsebuserr.NewProtocolError("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, dsebuserr.NewProtocolError("truncated field: want %d have %d", n, len(b))
	}
	return b[:n], b[n:], nil
}
