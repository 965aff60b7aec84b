// Package codec implements the binary stream codec attachment (§4.6): an
// opaque handle constructed from (mime_type, stream) that a model drives
// frames through via Read/Write/Flush/Stat/Config/Truncate. The core never
// interprets frame contents -- the frame/PDU payload grammar is owned by
// whichever codec is registered for a mime type, per the original's
// ncodec_open dispatch. Grounded on
// original_source/dse/modelc/model/ncodec.c.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package codec

import (
	"github.com/dsebus/dsebus/bstream"
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/sigvec"
)

// Frame is one unit of codec traffic. Its Data is opaque to the core; only
// the codec implementation assigns it meaning.
type Frame struct {
	Data []byte
}

// Stat mirrors ncodec_stat: point-in-time counters a caller can poll
// without consuming a frame.
type Stat struct {
	FrameCount int
	ByteCount  int
}

// ConfigItem is one name/value pair read back via Config, or written via
// ConfigSet (e.g. node_id/swc_id used to filter frame RX).
type ConfigItem struct {
	Name  string
	Value string
}

// Codec is the interface every registered mime type implements. It embeds
// sigvec.Codec (Flush() error) so a Codec can be attached directly to a
// Signal without sigvec needing to know about this package.
type Codec interface {
	sigvec.Codec

	Read() (Frame, bool, error)
	Write(Frame) error
	Stat() Stat
	Config() []ConfigItem
	ConfigSet(name, value string) error
	Truncate() error
}

// Factory constructs a Codec bound to stream for a given mime type.
type Factory func(mimeType string, stream *bstream.Stream) Codec

var registry = map[string]Factory{
	"application/octet-stream": newPassthrough,
}

// Register adds or replaces the factory for mimeType. Call from an init()
// in a codec implementation package to extend the dispatch table.
func Register(mimeType string, f Factory) { registry[mimeType] = f }

// Open constructs the codec registered for mimeType over a stream bound to
// sig's buffer, and attaches it to sig.
func Open(mimeType string, sig *sigvec.Signal) (Codec, error) {
	f, ok := registry[mimeType]
	if !ok {
		return nil, dsebuserr.NewConfigError("codec: no codec registered for mime type %q", mimeType)
	}
	c := f(mimeType, bstream.New(sig))
	sig.AttachCodec(c)
	return c, nil
}
