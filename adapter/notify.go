package adapter

import (
	"encoding/binary"
	"math"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/signal"
)

// notifyKind tags the bus-control messages exchanged on the SBNO (Notify)
// envelope path, distinct from the SBCH payload grammar in endpoint/payload.go
// -- §6 leaves the control-message grammar to the implementation, only
// fixing the envelope's outer shape.
type notifyKind uint8

const (
	notifyRegister notifyKind = iota
	notifyReady
	notifyStart
	notifyExit
)

// encodeNotify lays out: [1]kind [4]modelUID [4]len+channel [8]stopTime
// [4]namesCount (len+name)*. namesCount is only meaningful for
// notifyRegister (publishing newly-discovered signal names to the bus); it
// is empty for the other kinds.
func encodeNotify(kind notifyKind, modelUID uint32, channel string, stopTime float64, names []string) []byte {
	buf := make([]byte, 0, 32+len(channel))
	buf = append(buf, byte(kind))
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], modelUID)
	buf = append(buf, u32[:]...)
	buf = appendLenStr(buf, channel)
	var f64 [8]byte
	binary.BigEndian.PutUint64(f64[:], math.Float64bits(stopTime))
	buf = append(buf, f64[:]...)
	binary.BigEndian.PutUint32(u32[:], uint32(len(names)))
	buf = append(buf, u32[:]...)
	for _, n := range names {
		buf = appendLenStr(buf, n)
	}
	return buf
}

func appendLenStr(buf []byte, s string) []byte {
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(s)))
	buf = append(buf, u32[:]...)
	return append(buf, s...)
}

func readLenStr(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, dsebuserr.NewProtocolError("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return "", nil, dsebuserr.NewProtocolError("truncated string body")
	}
	return string(b[:n]), b[n:], nil
}

func decodeNotify(b []byte) (kind notifyKind, modelUID uint32, channel string, stopTime float64, names []string, err error) {
	if len(b) < 1+4 {
		err = dsebuserr.NewProtocolError("notify message too short")
		return
	}
	kind = notifyKind(b[0])
	b = b[1:]
	modelUID = binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	channel, b, err = readLenStr(b)
	if err != nil {
		return
	}
	if len(b) < 8+4 {
		err = dsebuserr.NewProtocolError("notify message truncated after channel")
		return
	}
	stopTime = math.Float64frombits(binary.BigEndian.Uint64(b[:8]))
	b = b[8:]
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	names = make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		var n string
		n, b, err = readLenStr(b)
		if err != nil {
			return
		}
		names = append(names, n)
	}
	return
}

// encodeSelfDescribingDelta carries a mixed scalar/binary signal.Delta on a
// channel's SBCH envelope between adapter peers: unlike
// endpoint.EncodeDeltaPayload (which assumes a uniform per-channel kind, per
// §6), each value here carries its own scalar-or-binary tag, since a
// channel's composition is only known to the signal store, not the wire.
func encodeSelfDescribingDelta(d signal.Delta) []byte {
	buf := make([]byte, 0, 64)
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(d.UIDs)))
	buf = append(buf, u32[:]...)
	for i, uid := range d.UIDs {
		binary.BigEndian.PutUint32(u32[:], uid)
		buf = append(buf, u32[:]...)
		v := d.Values[i]
		if v.IsBin {
			buf = append(buf, 1)
			buf = appendLenStr(buf, string(v.Binary))
		} else {
			buf = append(buf, 0)
			var f64 [8]byte
			binary.BigEndian.PutUint64(f64[:], math.Float64bits(v.Scalar))
			buf = append(buf, f64[:]...)
		}
	}
	return buf
}

func decodeSelfDescribingDelta(b []byte) (signal.Delta, error) {
	if len(b) < 4 {
		return signal.Delta{}, dsebuserr.NewProtocolError("delta too short")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	d := signal.Delta{UIDs: make([]uint32, 0, n), Values: make([]signal.DeltaValue, 0, n)}
	for i := uint32(0); i < n; i++ {
		if len(b) < 4+1 {
			return signal.Delta{}, dsebuserr.NewProtocolError("truncated delta entry %d", i)
		}
		uid := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		tag := b[0]
		b = b[1:]
		var dv signal.DeltaValue
		if tag == 1 {
			var payload string
			var err error
			payload, b, err = readLenStr(b)
			if err != nil {
				return signal.Delta{}, err
			}
			dv = signal.DeltaValue{Binary: []byte(payload), IsBin: true}
		} else {
			if len(b) < 8 {
				return signal.Delta{}, dsebuserr.NewProtocolError("truncated scalar at entry %d", i)
			}
			dv = signal.DeltaValue{Scalar: math.Float64frombits(binary.BigEndian.Uint64(b[:8]))}
			b = b[8:]
		}
		d.UIDs = append(d.UIDs, uid)
		d.Values = append(d.Values, dv)
	}
	return d, nil
}
