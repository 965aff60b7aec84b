package sigvec_test

import (
	"testing"

	"github.com/dsebus/dsebus/sigvec"
)

func TestAppendGrowsAndTracksLength(t *testing.T) {
	sv := sigvec.New("network", "step", []string{"frame"}, true)
	s := sv.At(0)
	s.Append([]byte("hello"))
	s.Append([]byte(" world"))
	if s.Bin.Length != len("hello world") {
		t.Fatalf("expected length %d, got %d", len("hello world"), s.Bin.Length)
	}
	if string(s.Bin.Buf[:s.Bin.Length]) != "hello world" {
		t.Fatalf("unexpected buffer contents: %q", s.Bin.Buf[:s.Bin.Length])
	}
}

func TestResetArmsOneShotFlag(t *testing.T) {
	sv := sigvec.New("network", "step", []string{"frame"}, true)
	s := sv.At(0)
	s.Append([]byte("x"))
	s.Reset()
	if s.Bin.Length != 0 {
		t.Fatalf("expected length 0 after reset, got %d", s.Bin.Length)
	}
	if !s.ConsumeResetCalled() {
		t.Fatal("expected reset_called true immediately after reset")
	}
	if s.ConsumeResetCalled() {
		t.Fatal("expected reset_called to be one-shot")
	}
}

func TestReleaseFreesBuffer(t *testing.T) {
	sv := sigvec.New("network", "step", []string{"frame"}, true)
	s := sv.At(0)
	s.Append([]byte("payload"))
	s.Release()
	if s.Bin.Length != 0 || s.Bin.Buf != nil {
		t.Fatalf("expected buffer released, got len=%d buf=%v", s.Bin.Length, s.Bin.Buf)
	}
}

func TestAnnotationRoundTrip(t *testing.T) {
	sv := sigvec.New("data", "step", []string{"x"}, false)
	s := sv.At(0)
	if _, ok := s.Annotation("mime_type"); ok {
		t.Fatal("expected no annotation set")
	}
	s.SetAnnotation("mime_type", "application/octet-stream")
	v, ok := s.Annotation("mime_type")
	if !ok || v != "application/octet-stream" {
		t.Fatalf("unexpected annotation: %q ok=%v", v, ok)
	}
}

func TestSignalIndexWithAndWithoutSignalName(t *testing.T) {
	data := sigvec.New("data", "step", []string{"x", "y"}, false)
	table := sigvec.NewTable([]*sigvec.SignalVector{data})

	full, ok := table.Index("data", "y")
	if !ok || full.Signal == nil || full.Signal.Name != "y" {
		t.Fatalf("expected resolved signal y, got %+v ok=%v", full, ok)
	}

	vecOnly, ok := table.Index("data", "")
	if !ok || vecOnly.Signal != nil || vecOnly.Vector != data {
		t.Fatalf("expected vector-only lookup, got %+v ok=%v", vecOnly, ok)
	}

	if _, ok := table.Index("nope", "x"); ok {
		t.Fatal("expected lookup miss for unknown vector")
	}
}
