package signal_test

import (
	"testing"

	"github.com/dsebus/dsebus/signal"
)

func TestFNV1a32KnownVector(t *testing.T) {
	// FNV-1a 32-bit of the empty string is the offset basis.
	if got := signal.FNV1a32(""); got != 2166136261 {
		t.Fatalf("empty string hash = %d, want offset basis", got)
	}
}

func TestUIDStability(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	ch.Get("counter")
	if err := ch.AssignUIDs(); err != nil {
		t.Fatal(err)
	}
	want := signal.FNV1a32("counter")
	if got := ch.Get("counter").UID; got != want {
		t.Fatalf("uid(counter) = %d, want %d", got, want)
	}
}

func TestDeltaMinimalityAfterApply(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	v := ch.Get("counter")
	v.Scalar.Current = 42
	v.Scalar.Final = 52
	_ = ch.AssignUIDs()

	d := ch.EncodeDelta()
	if len(d.UIDs) != 1 {
		t.Fatalf("expected 1 changed signal, got %d", len(d.UIDs))
	}
	// encode does not commit current<-final; loopback commit does.
	ch.CommitPending()
	for _, sv := range ch.Signals() {
		if sv.Changed() {
			t.Fatalf("signal %q still reports changed after commit", sv.Name)
		}
	}
}

func TestBinaryDeltaConsumesBuffer(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	v := ch.Get("message")
	v.Binary.Append([]byte("count is 43\x00"))
	_ = ch.AssignUIDs()

	d := ch.EncodeDelta()
	if len(d.Values) != 1 || !d.Values[0].IsBin {
		t.Fatalf("expected one binary delta value")
	}
	if got := string(d.Values[0].Binary); got != "count is 43\x00" {
		t.Fatalf("payload = %q", got)
	}
	if v.Binary.Length != 0 {
		t.Fatalf("binary length not consumed: %d", v.Binary.Length)
	}
}

func TestCollisionRejected(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	ch.Get("a")
	ch.Get("b")
	if err := ch.AssignUIDs(); err != nil {
		t.Fatal(err)
	}
	// Re-running AssignUIDs after manually clearing a uid, while the
	// assignedUIDs record still holds it, is not a collision: the same name
	// gets the same uid back.
	a := ch.Get("a")
	a.UID = 0
	if err := ch.AssignUIDs(); err != nil {
		t.Fatal(err)
	}
	if a.UID != signal.FNV1a32("a") {
		t.Fatalf("re-assigned uid should be stable: got %d", a.UID)
	}

	// "costarring" and "liquid" have the same FNV-1a 32-bit digest, so two
	// distinct names map to one uid and register must refuse them.
	clash := signal.NewChannel("data", 1)
	clash.Get("costarring")
	clash.Get("liquid")
	if err := clash.AssignUIDs(); err == nil {
		t.Fatal("expected ConfigError for colliding signal names")
	}
}

func TestApplyDeltaMismatchedLengthsIsProtocolError(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	err := ch.ApplyDelta(signal.Delta{UIDs: []uint32{1, 2}, Values: []signal.DeltaValue{{Scalar: 1}}})
	if err == nil {
		t.Fatal("expected ProtocolError on mismatched delta arrays")
	}
}

// S3: a binary signal with an initial buffer of capacity 10 holding 1 byte
// already; a model appends "count is 43\x00" (len=12), forcing a
// reallocation to ≥13, and the consumer observes the full 13-byte buffer.
func TestBinaryAppendReallocatesAndPreservesFullBuffer(t *testing.T) {
	ch := signal.NewChannel("data", 1)
	v := ch.Get("message")
	v.Binary.Buf = make([]byte, 1, 10)
	v.Binary.Buf[0] = 'x'
	v.Binary.Length = 1

	v.Binary.Append([]byte("count is 43\x00"))

	if v.Binary.Length != 13 {
		t.Fatalf("expected length 13 after append, got %d", v.Binary.Length)
	}
	if cap(v.Binary.Buf) < 13 {
		t.Fatalf("expected buffer reallocated to capacity >= 13, got %d", cap(v.Binary.Buf))
	}
	want := "xcount is 43\x00"
	if got := string(v.Binary.Buf[:v.Binary.Length]); got != want {
		t.Fatalf("buffer contents = %q, want %q", got, want)
	}
}

func TestBusQuorum(t *testing.T) {
	ch := signal.NewChannel("data", 2)
	ch.RegisterModel(1)
	if ch.NetworkReady() {
		t.Fatal("should not be network-ready with 1/2 registered")
	}
	ch.RegisterModel(2)
	if !ch.NetworkReady() {
		t.Fatal("should be network-ready with 2/2 registered")
	}
	ch.ReadyModel(1)
	if ch.ModelsReady() {
		t.Fatal("should not be models-ready with 1/2 ready")
	}
	ch.ReadyModel(2)
	if !ch.ModelsReady() {
		t.Fatal("should be models-ready with 2/2 ready")
	}
	ch.ClearReady()
	if ch.ModelsReady() {
		t.Fatal("ready set should be empty after ClearReady")
	}

	empty := ch.ExitModel(1)
	if empty {
		t.Fatal("register set should not be empty after one of two exits")
	}
	empty = ch.ExitModel(2)
	if !empty {
		t.Fatal("register set should be empty after both exit")
	}
}
