package endpoint

import (
	"encoding/binary"
	"math"

	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/signal"
)

// EncodeDeltaPayload serializes a signal.Delta to the §6 payload grammar: a
// pair of equal-length arrays (uids, values); values are IEEE-754 doubles
// for scalar channels or length-prefixed byte strings for binary channels.
func EncodeDeltaPayload(d signal.Delta, binary_ bool) []byte {
	buf := make([]byte, 0, 64)
	var countb [4]byte
	binary.BigEndian.PutUint32(countb[:], uint32(len(d.UIDs)))
	buf = append(buf, countb[:]...)
	for _, uid := range d.UIDs {
		var u [4]byte
		binary.BigEndian.PutUint32(u[:], uid)
		buf = append(buf, u[:]...)
	}
	for _, v := range d.Values {
		if binary_ {
			buf = appendLP(buf, v.Binary)
		} else {
			var f [8]byte
			binary.BigEndian.PutUint64(f[:], math.Float64bits(v.Scalar))
			buf = append(buf, f[:]...)
		}
	}
	return buf
}

// DecodeDeltaPayload is the inverse of EncodeDeltaPayload. Mismatched
// array lengths (malformed uid count vs available value bytes) surface as
// a ProtocolError per §7.
func DecodeDeltaPayload(b []byte, binary_ bool) (signal.Delta, error) {
	if len(b) < 4 {
		return signal.Delta{}, dsebuserr.NewProtocolError("delta payload too short")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	d := signal.Delta{
		UIDs:   make([]uint32, n),
		Values: make([]signal.DeltaValue, n),
	}
	for i := uint32(0); i < n; i++ {
		if len(b) < 4 {
			return signal.Delta{}, dsebuserr.NewProtocolError("truncated uid array at index %d", i)
		}
		d.UIDs[i] = binary.BigEndian.Uint32(b[:4])
		b = b[4:]
	}
	for i := uint32(0); i < n; i++ {
		if binary_ {
			payload, rest, err := readLP(b)
			if err != nil {
				return signal.Delta{}, err
			}
			cp := make([]byte, len(payload))
			copy(cp, payload)
			d.Values[i] = signal.DeltaValue{Binary: cp, IsBin: true}
			b = rest
		} else {
			if len(b) < 8 {
				return signal.Delta{}, dsebuserr.NewProtocolError("truncated value array at index %d", i)
			}
			d.Values[i] = signal.DeltaValue{Scalar: math.Float64frombits(binary.BigEndian.Uint64(b[:8]))}
			b = b[8:]
		}
	}
	return d, nil
}
