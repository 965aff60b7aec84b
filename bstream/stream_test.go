package bstream_test

import (
	"bytes"
	"testing"

	"github.com/dsebus/dsebus/bstream"
	"github.com/dsebus/dsebus/sigvec"
)

func newSignal() *sigvec.Signal {
	sv := sigvec.New("network", "step", []string{"frame"}, true)
	return sv.At(0)
}

func TestWriteThenReadReturnsWrittenWindow(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)

	n := st.Write([]byte("hello"))
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	if st.Tell() != 5 {
		t.Fatalf("expected pos 5 after write, got %d", st.Tell())
	}

	// Reading from pos 5 on a 5-byte buffer is EOF.
	if got := st.Read(bstream.PosUpdate); got != nil {
		t.Fatalf("expected nil read at EOF, got %q", got)
	}

	st.Seek(0, bstream.SeekSet)
	got := st.Read(bstream.PosUpdate)
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	if !st.EOF() {
		t.Fatal("expected EOF after read with PosUpdate")
	}
}

func TestReadWithPosKeepDoesNotAdvance(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("abc"))
	st.Seek(0, bstream.SeekSet)

	first := st.Read(bstream.PosKeep)
	second := st.Read(bstream.PosKeep)
	if !bytes.Equal(first, second) {
		t.Fatalf("expected repeated read with PosKeep to return same window, got %q then %q", first, second)
	}
	if st.Tell() != 0 {
		t.Fatalf("expected pos unchanged by PosKeep read, got %d", st.Tell())
	}
}

func TestWriteFromMidPositionTruncatesTail(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("hello world"))
	st.Seek(5, bstream.SeekSet)
	st.Write([]byte("!"))

	st.Seek(0, bstream.SeekSet)
	got := st.Read(bstream.PosUpdate)
	if !bytes.Equal(got, []byte("hello!")) {
		t.Fatalf("expected write at mid-position to truncate tail, got %q", got)
	}
}

func TestSeekResetZeroesBufferAndArmsFlag(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("payload"))

	if _, err := st.Seek(0, bstream.SeekReset); err != nil {
		t.Fatal(err)
	}
	if st.Tell() != 0 {
		t.Fatalf("expected pos 0 after reset, got %d", st.Tell())
	}
	if !st.EOF() {
		t.Fatal("expected EOF immediately after reset")
	}
	if !s.ConsumeResetCalled() {
		t.Fatal("expected reset_called armed by SeekReset")
	}
}

func TestSeekEndLandsAtLength(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("0123456789"))
	st.Seek(0, bstream.SeekSet)

	pos, err := st.Seek(0, bstream.SeekEnd)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 10 {
		t.Fatalf("expected seek-end to land at 10, got %d", pos)
	}
}

func TestSeekCurClampsToBufferLength(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("abc"))
	st.Seek(0, bstream.SeekSet)

	pos, err := st.Seek(100, bstream.SeekCur)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 3 {
		t.Fatalf("expected seek-cur overshoot clamped to length 3, got %d", pos)
	}
}

func TestInvalidWhenceReturnsProtocolError(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	if _, err := st.Seek(0, bstream.Whence(99)); err == nil {
		t.Fatal("expected error for invalid seek whence")
	}
}

func TestCloseIsNoOp(t *testing.T) {
	s := newSignal()
	st := bstream.New(s)
	st.Write([]byte("x"))
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	// the buffer must survive Close, since its lifetime belongs to the signal
	st.Seek(0, bstream.SeekSet)
	if got := st.Read(bstream.PosKeep); !bytes.Equal(got, []byte("x")) {
		t.Fatalf("expected buffer to survive Close, got %q", got)
	}
}
