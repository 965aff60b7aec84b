// Package bstream implements the positional binary stream over a signal's
// growable buffer (§4.6): read/write/seek/tell/eof/close, the interface a
// codec attachment drives frames through. Grounded on
// original_source/dse/modelc/model/ncodec.c's stream_read/write/seek
// functions, reworked from a SignalVector-index pair into a Go type bound
// to one sigvec.Signal.
/*
 * Copyright (c) 2024, dsebus authors.
 */
package bstream

import (
	"github.com/dsebus/dsebus/dsebuserr"
	"github.com/dsebus/dsebus/sigvec"
)

// Whence selects the seek origin, matching NCODEC_SEEK_{SET,CUR,END,RESET}.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
	SeekReset
)

// PosOp controls whether Read advances the stream position, matching
// NCODEC_POS_{UPDATE,KEEP}.
type PosOp int

const (
	PosUpdate PosOp = iota
	PosKeep
)

// Stream is a positional read/write cursor over one binary signal's buffer.
type Stream struct {
	sig *sigvec.Signal
	pos int
}

// New binds a Stream to sig's buffer.
func New(sig *sigvec.Signal) *Stream { return &Stream{sig: sig} }

// Read returns the window [pos, length) and, unless posOp is PosKeep,
// advances pos to length.
func (s *Stream) Read(posOp PosOp) []byte {
	length := s.sig.Bin.Length
	if length == 0 || s.pos >= length {
		return nil
	}
	data := s.sig.Bin.Buf[s.pos:length]
	if posOp != PosKeep {
		s.pos = length
	}
	return data
}

// Write truncates the buffer to the current position (discarding anything
// beyond it), appends p, and advances pos by len(p).
func (s *Stream) Write(p []byte) int {
	if s.pos > s.sig.Bin.Length {
		s.pos = s.sig.Bin.Length
	}
	s.sig.Bin.Length = s.pos
	s.sig.Append(p)
	s.pos += len(p)
	return len(p)
}

// Seek repositions the cursor. SeekReset is "begin a new message": it
// zeroes the buffer length and position and arms the one-shot
// reset_called flag for the next observer (§4.6).
func (s *Stream) Seek(pos int, whence Whence) (int, error) {
	length := s.sig.Bin.Length
	switch whence {
	case SeekSet:
		s.pos = clamp(pos, length)
	case SeekCur:
		s.pos = clamp(s.pos+pos, length)
	case SeekEnd:
		s.pos = length
	case SeekReset:
		s.pos = 0
		s.sig.Reset()
	default:
		return 0, dsebuserr.NewProtocolError("bstream: invalid seek whence %d", whence)
	}
	return s.pos, nil
}

func clamp(pos, length int) int {
	if pos > length {
		return length
	}
	if pos < 0 {
		return 0
	}
	return pos
}

// Tell returns the current position.
func (s *Stream) Tell() int { return s.pos }

// EOF reports whether the cursor has reached the buffer's length.
func (s *Stream) EOF() bool { return s.pos >= s.sig.Bin.Length }

// Close is a no-op (the buffer's lifetime is owned by the signal, not the
// stream), matching the original's stream_close.
func (s *Stream) Close() error { return nil }
