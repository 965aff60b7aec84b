package codec

import (
	"github.com/dsebus/dsebus/bstream"
)

// passthrough is the built-in "application/octet-stream" codec: the whole
// stream window is one frame in, one frame out, no framing of its own.
// It is the concrete default for binary channels that carry an
// already-framed payload (e.g. a CAN or network binary blob) rather than a
// PDU format this package would need to parse.
type passthrough struct {
	stream *bstream.Stream
	config map[string]string
	stat   Stat
}

func newPassthrough(mimeType string, stream *bstream.Stream) Codec {
	return &passthrough{stream: stream, config: map[string]string{"mime_type": mimeType}}
}

func (p *passthrough) Read() (Frame, bool, error) {
	data := p.stream.Read(bstream.PosUpdate)
	if data == nil {
		return Frame{}, false, nil
	}
	p.stat.FrameCount++
	p.stat.ByteCount += len(data)
	return Frame{Data: data}, true, nil
}

func (p *passthrough) Write(f Frame) error {
	p.stream.Write(f.Data)
	p.stat.FrameCount++
	p.stat.ByteCount += len(f.Data)
	return nil
}

// Flush is a no-op: passthrough has no internal buffering beyond the
// stream itself, which already holds the written bytes.
func (p *passthrough) Flush() error { return nil }

func (p *passthrough) Stat() Stat { return p.stat }

func (p *passthrough) Config() []ConfigItem {
	items := make([]ConfigItem, 0, len(p.config))
	for k, v := range p.config {
		items = append(items, ConfigItem{Name: k, Value: v})
	}
	return items
}

func (p *passthrough) ConfigSet(name, value string) error {
	p.config[name] = value
	return nil
}

// Truncate discards any buffered bytes and begins a new message, matching
// NCODEC_SEEK_RESET semantics.
func (p *passthrough) Truncate() error {
	_, err := p.stream.Seek(0, bstream.SeekReset)
	p.stat = Stat{}
	return err
}
