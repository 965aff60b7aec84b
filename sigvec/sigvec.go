// Package sigvec implements the model-facing Signal Vector view (C5): the
// array of named scalar/binary slots a model reads and writes each step,
// plus the annotation and signal_index lookups the original exposes to
// model code. Grounded on original_source/dse/modelc/model/signal.h and the
// growable-buffer reuse already built in package signal (C1).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package sigvec

import "github.com/dsebus/dsebus/signal"

// Signal is one slot in a SignalVector: either a scalar double or a binary
// buffer, never both meaningfully populated at once (IsBinary on the
// owning SignalVector decides which).
type Signal struct {
	Name   string
	Scalar float64
	Bin    signal.Binary

	annotations map[string]string
	resetCalled bool
	codec       Codec
}

// Append grows the signal's binary buffer and copies p in, per §4.5.
func (s *Signal) Append(p []byte) { s.Bin.Append(p) }

// Reset zeroes the buffer length and arms the one-shot reset_called flag
// that a binary stream's SEEK_RESET consumes (§4.6).
func (s *Signal) Reset() {
	s.Bin.Reset()
	s.resetCalled = true
}

// Release frees the buffer entirely.
func (s *Signal) Release() { s.Bin.Release() }

// ConsumeResetCalled reports and clears the one-shot reset flag.
func (s *Signal) ConsumeResetCalled() bool {
	v := s.resetCalled
	s.resetCalled = false
	return v
}

// Annotation retrieves a string annotation from the channel schema (e.g.
// mime_type), ok=false if absent.
func (s *Signal) Annotation(key string) (string, bool) {
	v, ok := s.annotations[key]
	return v, ok
}

// SetAnnotation attaches a schema property (mime_type, initial_value, ...)
// to the signal. The config loader (C10) does not call it.
func (s *Signal) SetAnnotation(key, value string) {
	if s.annotations == nil {
		s.annotations = make(map[string]string)
	}
	s.annotations[key] = value
}

// Codec returns the signal's attached codec handle, or nil for scalar
// signals / signals with nothing attached yet. Lazy construction happens
// via AttachCodec (package codec calls this once it knows the mime type).
func (s *Signal) Codec() Codec { return s.codec }

// AttachCodec installs c as this signal's codec handle; construction is the
// caller's responsibility (package codec, given the signal's mime_type
// annotation and a bstream.Stream bound to s.Bin).
func (s *Signal) AttachCodec(c Codec) { s.codec = c }

// Codec is the opaque handle sigvec hands back from Signal.Codec without
// importing package codec (which instead imports sigvec's Signal/Binary to
// build one) -- avoids a import cycle between the two.
type Codec interface {
	Flush() error
}

// SignalVector is the model-facing projection of one configured channel:
// an ordered, named array of Signals, §4.5.
type SignalVector struct {
	Name         string
	FunctionName string
	IsBinary     bool

	Signals []*Signal
	index   map[string]int
}

// New allocates a SignalVector with one Signal per name, in order.
func New(name, functionName string, signalNames []string, isBinary bool) *SignalVector {
	sv := &SignalVector{
		Name:         name,
		FunctionName: functionName,
		IsBinary:     isBinary,
		Signals:      make([]*Signal, len(signalNames)),
		index:        make(map[string]int, len(signalNames)),
	}
	for i, n := range signalNames {
		sv.Signals[i] = &Signal{Name: n}
		sv.index[n] = i
	}
	return sv
}

// Count returns signal_count (§3's ModelFunctionChannel invariant, carried
// over to the vector view).
func (sv *SignalVector) Count() int { return len(sv.Signals) }

// At returns the i'th signal, or nil if out of range.
func (sv *SignalVector) At(i int) *Signal {
	if i < 0 || i >= len(sv.Signals) {
		return nil
	}
	return sv.Signals[i]
}

// IndexOf resolves a signal name to its position within this vector,
// ok=false if not present.
func (sv *SignalVector) IndexOf(name string) (int, bool) {
	i, ok := sv.index[name]
	return i, ok
}
